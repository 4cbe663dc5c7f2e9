package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/federation"
	"github.com/cignalottu/authcore/internal/config"
	"github.com/cignalottu/authcore/internal/seed"
	"github.com/cignalottu/authcore/internal/server"
	promexp "github.com/cignalottu/authcore/metrics/export/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the authentication API. SQL stores are migrated on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engineCfg, err := cfg.Engine()
		if err != nil {
			return err
		}
		hasher, err := newHasher(engineCfg)
		if err != nil {
			return fmt.Errorf("configure password hasher: %w", err)
		}

		store, closeStore, err := openStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()

		engine, err := authcore.New().
			WithConfig(engineCfg).
			WithIdentityStore(store).
			WithCredentialVerifier(hasher).
			WithLogger(log).
			Build()
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}
		defer engine.Close()

		report := engine.SecurityReport()
		log.Info().
			Str("alg", report.SigningAlgorithm).
			Dur("access_ttl", report.AccessTTL).
			Dur("refresh_ttl", report.RefreshTTL).
			Str("password", string(report.PasswordAlgorithm)).
			Bool("audit", report.AuditEnabled).
			Msg("engine ready")

		if cfg.Seed {
			if _, err := seed.Run(ctx, store, hasher, log, seed.DevUsers); err != nil {
				return err
			}
		}

		fed, err := newFederation(cfg, engine)
		if err != nil {
			return err
		}

		corsOpts := server.CORSOptionsFor(cfg.Server.CORSOrigins)
		opts := server.RouterOptions{
			Auth:        engine,
			Federation:  fed,
			CORSOptions: &corsOpts,
			Logger:      log,
		}
		if cfg.Metrics.Enabled {
			opts.Metrics = promexp.NewExporter(engine).Handler()
		}

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server.NewRouter(opts),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	},
}

// newFederation returns nil when no provider is configured.
func newFederation(c *config.Config, resolver authcore.FederatedResolver) (*federation.Handler, error) {
	if !c.OAuth2.Google.Enabled() {
		return nil, nil
	}
	google, err := federation.NewGoogleProvider(federation.GoogleConfig{
		ClientID:     c.OAuth2.Google.ClientID,
		ClientSecret: c.OAuth2.Google.ClientSecret,
		RedirectURL:  c.OAuth2.Google.RedirectURL,
		Scopes:       c.OAuth2.Google.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("configure google provider: %w", err)
	}

	hashKey, blockKey, err := c.CookieKeys()
	if err != nil {
		return nil, err
	}
	transport, err := federation.NewCookieTransport(federation.CookieConfig{
		HashKey:  hashKey,
		BlockKey: blockKey,
		Path:     c.OAuth2.Cookie.Path,
		Secure:   c.OAuth2.Cookie.Secure,
		MaxAge:   c.OAuth2.Cookie.MaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("configure oauth2 cookies: %w", err)
	}
	log.Info().
		Str("provider", google.Name()).
		Strs("allowed_redirects", c.OAuth2.AllowedRedirects).
		Msg("federated sign-in enabled")
	return federation.NewHandler(resolver, transport, log, google).AllowRedirects(c.OAuth2.AllowedRedirects...), nil
}
