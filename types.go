package authcore

import (
	"context"

	"github.com/cignalottu/authcore/identity"
)

type (
	Identity  = identity.Identity
	Principal = identity.Principal
	Role      = identity.Role
	Provider  = identity.Provider
	// IdentityStore persists identities. See identity.Store for the contract.
	IdentityStore = identity.Store
)

const (
	RoleAdmin          = identity.RoleAdmin
	RoleBarber         = identity.RoleBarber
	RoleCustomer       = identity.RoleCustomer
	RoleRepresentative = identity.RoleRepresentative

	ProviderLocal  = identity.ProviderLocal
	ProviderGoogle = identity.ProviderGoogle
)

// TokenType is the scheme reported in every AuthResult.
const TokenType = "Bearer"

// CredentialVerifier hashes and verifies passwords. password.Hasher is the
// default implementation.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	// Verify returns false with a nil error on mismatch.
	Verify(plaintext, encodedHash string) (bool, error)
}

// RegisterRequest is the input to Engine.Register.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// FederatedProfile is the identity asserted by an external provider after a
// successful OAuth2 exchange.
type FederatedProfile struct {
	Provider    Provider
	Email       string
	DisplayName string
	Subject     string
}

// AuthResult is the token envelope returned by every successful
// authentication path and serialized verbatim by the HTTP layer.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	UserID       int64  `json:"userId"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
}

// Authenticator validates bearer tokens. Engine implements it; middleware and
// transports depend on this interface.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*Principal, error)
}

// IdentityResolver re-reads the identity behind a principal.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, p *Principal) (*Identity, error)
}

// FederatedResolver links provider profiles to identities.
type FederatedResolver interface {
	ResolveFederatedIdentity(ctx context.Context, p FederatedProfile) (*AuthResult, error)
}

// NormalizeEmail trims and lowercases email. It is idempotent.
func NormalizeEmail(email string) string {
	return identity.NormalizeEmail(email)
}
