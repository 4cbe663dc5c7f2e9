package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore/federation"
	authmw "github.com/cignalottu/authcore/middleware"
)

// RouterOptions controls router construction. Auth is required; the other
// fields are optional.
type RouterOptions struct {
	Auth AuthService
	// Federation mounts the OAuth2 routes when non-nil.
	Federation *federation.Handler
	// Metrics is served at /metrics when non-nil.
	Metrics     http.Handler
	CORSOptions *cors.Options
	Logger      zerolog.Logger
	Middleware  []func(http.Handler) http.Handler
}

// DefaultCORSOptions returns the development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFor returns DefaultCORSOptions with the allowed origins replaced
// when origins is non-empty.
func CORSOptionsFor(origins []string) cors.Options {
	opts := DefaultCORSOptions()
	if len(origins) > 0 {
		opts.AllowedOrigins = append([]string(nil), origins...)
	}
	return opts
}

// NewRouter assembles the HTTP surface.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(authmw.Authenticate(opts.Auth, opts.Logger))

	h := &handlers{auth: opts.Auth, log: opts.Logger}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)

		r.With(authmw.RequireAuthenticated()).Get("/me", h.me)

		if fed := opts.Federation; fed != nil {
			r.Get("/oauth2/authorize/{provider}", func(w http.ResponseWriter, r *http.Request) {
				fed.Begin(w, r, chi.URLParam(r, "provider"))
			})
			r.Get("/oauth2/callback/{provider}", func(w http.ResponseWriter, r *http.Request) {
				fed.Callback(w, r, chi.URLParam(r, "provider"))
			})
		}
	})

	r.Get("/healthz", health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}
