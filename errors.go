package authcore

import (
	"errors"

	"github.com/cignalottu/authcore/identity"
)

// Kind classifies engine errors. Transports map kinds to status codes.
type Kind int

const (
	// KindInternal covers store outages and other unexpected faults.
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrFederatedAccount is returned by Login for identities that must sign
	// in through their federated provider.
	ErrFederatedAccount  = errors.New("account uses federated sign-in")
	ErrRefreshInvalid    = errors.New("invalid or expired refresh token")
	ErrTokenInvalid      = errors.New("invalid or expired access token")
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrEngineNotReady    = errors.New("engine not initialized")
	ErrStoreUnavailable  = errors.New("identity store unavailable")
	ErrTokenIssue        = errors.New("token issuance failed")
	ErrCredentialHash    = errors.New("password hashing failed")
	ErrMissingStore      = errors.New("identity store required")
	ErrMissingCredential = errors.New("credential verifier required")
	ErrTTLOrder          = errors.New("access token TTL must be shorter than refresh token TTL")
	ErrSigningKeyShort   = errors.New("signing key must be at least 32 bytes")
)

// Password policy violations, re-exported so callers need not import identity.
var (
	ErrPasswordTooShort = identity.ErrPasswordTooShort
	ErrPasswordTooLong  = identity.ErrPasswordTooLong
	ErrPasswordNoUpper  = identity.ErrPasswordNoUpper
	ErrPasswordNoLower  = identity.ErrPasswordNoLower
	ErrPasswordNoDigit  = identity.ErrPasswordNoDigit
)

// Error is the error type returned by every Engine operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
