package authcore

import (
	"time"

	"github.com/cignalottu/authcore/jwt"
	"github.com/cignalottu/authcore/password"
)

// SecurityReport summarizes the security-relevant settings of a built
// engine. It holds no key material.
type SecurityReport struct {
	SigningAlgorithm       string
	SigningKeyBytes        int
	Issuer                 string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	RefreshRotationEnabled bool
	PasswordAlgorithm      password.Algorithm
	BcryptCost             int
	Argon2                 PasswordConfigReport
	MetricsEnabled         bool
	LatencyHistograms      bool
	AuditEnabled           bool
	AuditDropIfFull        bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	algorithm := cfg.Password.Algorithm
	if algorithm == "" {
		algorithm = password.DefaultConfig().Algorithm
	}
	argon := cfg.Password.Argon2

	return SecurityReport{
		SigningAlgorithm:       jwt.Algorithm,
		SigningKeyBytes:        len(cfg.Token.Secret),
		Issuer:                 cfg.Token.Issuer,
		AccessTTL:              cfg.Token.AccessTTL,
		RefreshTTL:             cfg.Token.RefreshTTL,
		RefreshRotationEnabled: false,
		PasswordAlgorithm:      algorithm,
		BcryptCost:             cfg.Password.BcryptCost,
		Argon2: PasswordConfigReport{
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
		},
		MetricsEnabled:    cfg.Metrics.Enabled,
		LatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		AuditEnabled:      cfg.Audit.Enabled,
		AuditDropIfFull:   cfg.Audit.Enabled && cfg.Audit.DropIfFull,
	}
}
