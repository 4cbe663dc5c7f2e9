package authcore

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore/internal/audit"
	"github.com/cignalottu/authcore/internal/flows"
	"github.com/cignalottu/authcore/jwt"
	"github.com/cignalottu/authcore/password"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithIdentityStore(store).
//		WithLogger(log).
//		Build()
type Builder struct {
	config   Config
	store    IdentityStore
	verifier CredentialVerifier
	sink     AuditSink
	log      zerolog.Logger
	now      func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.store = store
	return b
}

// WithCredentialVerifier overrides the hasher built from Config.Password.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the destination of audit events. It has no effect
// unless Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithClock overrides time.Now for token timestamps and identity audit
// fields. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. Configuration
// problems are returned as KindConfiguration errors.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, newError(KindConfiguration, errors.New("builder already used"))
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, newError(KindConfiguration, ErrMissingStore)
	}

	verifier := b.verifier
	if verifier == nil {
		hasher, err := password.New(cfg.Password)
		if err != nil {
			return nil, newError(KindConfiguration, err)
		}
		verifier = hasher
	}

	log := b.log.With().Str("component", "authcore").Logger()

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.Token.Secret,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Issuer:     cfg.Token.Issuer,
		Logger:     log,
		Now:        b.now,
	})
	if err != nil {
		return nil, newError(KindConfiguration, err)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	sink := b.sink
	if sink == nil {
		sink = audit.NewLogSink(log)
	}

	b.built = true

	return &Engine{
		config:   cfg,
		store:    b.store,
		verifier: verifier,
		tokens:   tokens,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		log: log,
		now: now,
		flows: flows.Deps{
			Register: flows.RegisterDeps{
				Store:  b.store,
				Hasher: verifier,
				Issuer: tokens,
				Now:    b.now,
			},
			Login: flows.LoginDeps{
				Store:  b.store,
				Hasher: verifier,
				Issuer: tokens,
			},
			Refresh: flows.RefreshDeps{
				Tokens: tokens,
				Issuer: tokens,
				Store:  b.store,
			},
			Federated: flows.FederatedDeps{
				Store:            b.store,
				Issuer:           tokens,
				DefaultFirstName: cfg.Federation.DefaultFirstName,
				Now:              b.now,
			},
		},
	}, nil
}
