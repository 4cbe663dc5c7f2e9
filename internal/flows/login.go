package flows

import (
	"context"
	"errors"

	"github.com/cignalottu/authcore/identity"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureCredentials covers unknown email, missing credential and
	// wrong password. Callers must not distinguish them.
	LoginFailureCredentials
	LoginFailureFederated
	LoginFailureStore
	LoginFailureIssue
)

type LoginResult struct {
	Failure  LoginFailureKind
	Err      error
	Identity *identity.Identity
	Tokens   Tokens
}

type LoginDeps struct {
	Store  identity.Store
	Hasher CredentialHasher
	Issuer TokenIssuer
}

// RunLogin authenticates email and password against a LOCAL identity.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = identity.NormalizeEmail(email)

	ident, err := deps.Store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return LoginResult{Failure: LoginFailureCredentials}
		}
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}
	if !ident.HasPassword() {
		return LoginResult{Failure: LoginFailureCredentials}
	}

	ok, err := deps.Hasher.Verify(password, *ident.PasswordHash)
	if err != nil || !ok {
		return LoginResult{Failure: LoginFailureCredentials, Err: err}
	}

	// provider is checked only once the password verifies
	if ident.Provider != identity.ProviderLocal {
		return LoginResult{Failure: LoginFailureFederated, Identity: ident}
	}

	tokens, err := issuePair(deps.Issuer, ident)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Identity: ident}
	}
	return LoginResult{Identity: ident, Tokens: tokens}
}
