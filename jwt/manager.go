package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinKeyLength is the minimum HS256 key size in bytes.
const MinKeyLength = 32

// Algorithm is the only accepted JWS algorithm.
var Algorithm = jwt.SigningMethodHS256.Alg()

var (
	ErrKeyTooShort      = errors.New("signing key must be at least 32 bytes")
	ErrInvalidTTL       = errors.New("invalid TTL configuration")
	ErrTokenEmpty       = errors.New("token is empty")
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenSignature   = errors.New("token signature is invalid")
	ErrTokenUnsupported = errors.New("token algorithm is unsupported")
	ErrTokenClaims      = errors.New("token claims are incomplete")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenWrongUse    = errors.New("token used for the wrong purpose")
	ErrSubjectMismatch  = errors.New("token subject mismatch")
)

// Use distinguishes access tokens from refresh tokens.
type Use string

const (
	UseAccess  Use = "access"
	UseRefresh Use = "refresh"
)

// Config configures a Manager. Secret is the raw HS256 key; it is copied at
// construction and never exposed again.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Logger     zerolog.Logger
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Subject is the identity data embedded in issued tokens.
type Subject struct {
	UserID    int64
	Email     string
	Role      string
	FirstName string
	Provider  string
}

// Claims are the decoded contents of an access or refresh token. Refresh
// tokens leave Role, FirstName and Provider empty.
type Claims struct {
	UserID    int64  `json:"uid"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"fn,omitempty"`
	Provider  string `json:"prv,omitempty"`
	Use       Use    `json:"tu"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 tokens with a single symmetric key.
// It is immutable after NewManager and safe for concurrent use.
type Manager struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	log        zerolog.Logger
	now        func() time.Time
	parser     *jwt.Parser
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	key := make([]byte, len(cfg.Secret))
	copy(key, cfg.Secret)

	return &Manager{
		key:        key,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     strings.TrimSpace(cfg.Issuer),
		log:        cfg.Logger,
		now:        now,
		// expiry is applied by Expired
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess signs an access token for s. iat and exp share one clock
// reading so exp-iat equals the access TTL exactly.
func (m *Manager) IssueAccess(s Subject) (string, error) {
	return m.issue(s, UseAccess, m.accessTTL)
}

// IssueRefresh signs a refresh token for s. Role, name and provider are
// omitted.
func (m *Manager) IssueRefresh(s Subject) (string, error) {
	return m.issue(Subject{UserID: s.UserID, Email: s.Email}, UseRefresh, m.refreshTTL)
}

func (m *Manager) issue(s Subject, use Use, ttl time.Duration) (string, error) {
	if strings.TrimSpace(s.Email) == "" {
		return "", ErrTokenClaims
	}
	now := m.now().Truncate(time.Second)
	claims := Claims{
		UserID:    s.UserID,
		Role:      s.Role,
		FirstName: s.FirstName,
		Provider:  s.Provider,
		Use:       use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", use, err)
	}
	return signed, nil
}

// Decode verifies the signature, algorithm and claim structure of token.
// It does not reject expired tokens; see Expired and Validate.
func (m *Manager) Decode(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenEmpty
	}

	parsed, err := m.parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("%w: %s", ErrTokenUnsupported, t.Method.Alg())
		}
		return m.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenClaims
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrTokenClaims
	}
	if claims.Use != UseAccess && claims.Use != UseRefresh {
		return nil, ErrTokenClaims
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, ErrTokenClaims
	}
	return claims, nil
}

// Expired reports whether claims are past their expiry at the manager's clock.
func (m *Manager) Expired(c *Claims) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return !m.now().Before(c.ExpiresAt.Time)
}

// Validate decodes token and checks expiry and intended use.
func (m *Manager) Validate(token string, use Use) (*Claims, error) {
	claims, err := m.Decode(token)
	if err != nil {
		return nil, err
	}
	if m.Expired(claims) {
		return nil, ErrTokenExpired
	}
	if claims.Use != use {
		return nil, ErrTokenWrongUse
	}
	return claims, nil
}

// IsValid reports whether token decodes, names expectedSubject and has not
// expired. Failures are logged at debug level and never returned.
func (m *Manager) IsValid(token, expectedSubject string) bool {
	claims, err := m.Decode(token)
	if err != nil {
		m.log.Debug().Err(err).Msg("token rejected")
		return false
	}
	if claims.Subject != expectedSubject {
		m.log.Debug().Err(ErrSubjectMismatch).Msg("token rejected")
		return false
	}
	if m.Expired(claims) {
		m.log.Debug().Err(ErrTokenExpired).Str("sub", claims.Subject).Msg("token rejected")
		return false
	}
	return true
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrTokenUnsupported):
		return ErrTokenUnsupported
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
