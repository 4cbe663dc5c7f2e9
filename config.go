package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cignalottu/authcore/jwt"
	"github.com/cignalottu/authcore/password"
)

// Config configures an Engine. Build clones it, so later changes to the
// caller's copy have no effect.
type Config struct {
	Token      TokenConfig
	Password   password.Config
	Federation FederationConfig
	Metrics    MetricsConfig
	Audit      AuditConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the HS256 signing key and token lifetimes. Only one key
// is active; rotating it invalidates every outstanding token.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

/*
====================================
FEDERATION CONFIG
====================================
*/

type FederationConfig struct {
	// DefaultFirstName is stored when the provider omits a display name.
	DefaultFirstName string
}

// AuditConfig controls delivery of authentication events to the sink set
// with Builder.WithAuditSink. Events are sent to the engine logger when no
// sink is set.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Token.Secret is left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
		},
		Password: password.DefaultConfig(),
		Federation: FederationConfig{
			DefaultFirstName: "Google User",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	return out
}

// Validate reports the first configuration problem as a KindConfiguration
// error.
func (c *Config) Validate() error {
	if len(c.Token.Secret) < jwt.MinKeyLength {
		return newError(KindConfiguration, ErrSigningKeyShort)
	}
	if c.Token.AccessTTL <= 0 {
		return newError(KindConfiguration, errors.New("token AccessTTL must be > 0"))
	}
	if c.Token.RefreshTTL <= 0 {
		return newError(KindConfiguration, errors.New("token RefreshTTL must be > 0"))
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return newError(KindConfiguration, ErrTTLOrder)
	}

	switch c.Password.Algorithm {
	case "", password.AlgorithmArgon2id, password.AlgorithmBcrypt:
	default:
		return newError(KindConfiguration, fmt.Errorf("unsupported password algorithm %q", c.Password.Algorithm))
	}

	if strings.TrimSpace(c.Federation.DefaultFirstName) == "" {
		return newError(KindConfiguration, errors.New("federation DefaultFirstName must not be empty"))
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return newError(KindConfiguration, errors.New("latency histograms require metrics to be enabled"))
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return newError(KindConfiguration, errors.New("audit BufferSize must be > 0"))
	}
	return nil
}
