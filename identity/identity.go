package identity

import (
	"context"
	"errors"
	"time"
)

// Role is the authorization role carried by an identity. The set is closed.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleBarber         Role = "BARBER"
	RoleCustomer       Role = "CUSTOMER"
	RoleRepresentative Role = "REPRESENTATIVE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBarber, RoleCustomer, RoleRepresentative:
		return true
	default:
		return false
	}
}

// Authority returns the role in ROLE_<name> form.
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// Provider records how an identity authenticates.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderLocal || p == ProviderGoogle
}

var (
	// ErrNotFound is returned by stores when no identity matches the lookup.
	ErrNotFound = errors.New("identity not found")
	// ErrDuplicateEmail is returned by stores when a save would break email uniqueness.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Identity is the persisted user record shared by local and federated logins.
//
// Email is always stored normalized. PasswordHash is nil for identities that
// were created through a federated provider and never set a password.
type Identity struct {
	ID           int64
	Email        string
	PasswordHash *string
	FirstName    string
	LastName     string
	Role         Role
	Provider     Provider
	ProviderID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether a local credential is stored.
func (i *Identity) HasPassword() bool {
	return i != nil && i.PasswordHash != nil && *i.PasswordHash != ""
}

// Clone returns a deep copy so callers cannot alias store-owned pointers.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	if i.PasswordHash != nil {
		v := *i.PasswordHash
		out.PasswordHash = &v
	}
	if i.ProviderID != nil {
		v := *i.ProviderID
		out.ProviderID = &v
	}
	return &out
}

// Principal returns the request-scoped projection of i.
func (i *Identity) Principal() *Principal {
	if i == nil {
		return nil
	}
	return &Principal{
		UserID:    i.ID,
		Email:     i.Email,
		Role:      i.Role,
		FirstName: i.FirstName,
		Provider:  i.Provider,
	}
}

// Principal is the authenticated subject attached to a request. It is built
// per request and never persisted.
type Principal struct {
	UserID    int64
	Email     string
	Role      Role
	FirstName string
	Provider  Provider
}

// Authorities returns the granted authorities, currently only the role.
func (p *Principal) Authorities() []string {
	if p == nil || p.Role == "" {
		return nil
	}
	return []string{p.Role.Authority()}
}

// HasRole reports whether the principal holds any of roles.
func (p *Principal) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Store persists identities. Implementations must enforce case-insensitive
// email uniqueness and return ErrDuplicateEmail when it would be violated,
// including when two concurrent inserts race.
type Store interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByEmail returns ErrNotFound when no identity matches.
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	// Save inserts when ID is zero and updates otherwise. The returned
	// identity carries the assigned ID and timestamps.
	Save(ctx context.Context, ident *Identity) (*Identity, error)
}
