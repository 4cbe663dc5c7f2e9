package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cignalottu/authcore/identity"
)

// FederatedFailureKind classifies federated resolution failures.
type FederatedFailureKind int

const (
	FederatedFailureNone FederatedFailureKind = iota
	FederatedFailureInvalidEmail
	FederatedFailureStore
	FederatedFailureIssue
)

// FederatedProfile is what an external identity provider asserted.
type FederatedProfile struct {
	Provider    identity.Provider
	Email       string
	DisplayName string
	Subject     string
}

type FederatedResult struct {
	Failure  FederatedFailureKind
	Err      error
	Identity *identity.Identity
	Created  bool
	Merged   bool
	Tokens   Tokens
}

type FederatedDeps struct {
	Store            identity.Store
	Issuer           TokenIssuer
	DefaultFirstName string
	Now              func() time.Time
}

// RunResolveFederated finds or creates the identity for a provider profile,
// links the provider on existing accounts and issues a token pair.
func RunResolveFederated(ctx context.Context, p FederatedProfile, deps FederatedDeps) FederatedResult {
	email := identity.NormalizeEmail(p.Email)
	if !identity.ValidEmail(email) {
		return FederatedResult{Failure: FederatedFailureInvalidEmail}
	}
	provider := p.Provider
	if provider == "" {
		provider = identity.ProviderGoogle
	}

	var (
		ident   *identity.Identity
		created bool
		merged  bool
	)

	existing, err := deps.Store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		ident = existing
	case errors.Is(err, identity.ErrNotFound):
		ident, created, err = createFederated(ctx, email, provider, p, deps)
		if err != nil {
			return FederatedResult{Failure: FederatedFailureStore, Err: err}
		}
	default:
		return FederatedResult{Failure: FederatedFailureStore, Err: err}
	}

	if !created && ident.Provider != provider {
		ident.Provider = provider
		ident.ProviderID = optionalString(p.Subject)
		ident.UpdatedAt = nowOr(deps.Now)
		ident, err = deps.Store.Save(ctx, ident)
		if err != nil {
			return FederatedResult{Failure: FederatedFailureStore, Err: err}
		}
		merged = true
	}

	tokens, err := issuePair(deps.Issuer, ident)
	if err != nil {
		return FederatedResult{Failure: FederatedFailureIssue, Err: err, Identity: ident}
	}
	return FederatedResult{Identity: ident, Created: created, Merged: merged, Tokens: tokens}
}

func createFederated(ctx context.Context, email string, provider identity.Provider, p FederatedProfile, deps FederatedDeps) (*identity.Identity, bool, error) {
	firstName := strings.TrimSpace(p.DisplayName)
	if firstName == "" {
		firstName = deps.DefaultFirstName
	}
	now := nowOr(deps.Now)

	ident, err := deps.Store.Save(ctx, &identity.Identity{
		Email:      email,
		FirstName:  firstName,
		LastName:   "",
		Role:       identity.RoleCustomer,
		Provider:   provider,
		ProviderID: optionalString(p.Subject),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err == nil {
		return ident, true, nil
	}
	if !errors.Is(err, identity.ErrDuplicateEmail) {
		return nil, false, err
	}

	// a concurrent callback created it first; continue with theirs
	ident, err = deps.Store.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return ident, false, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
