package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cignalottu/authcore/identity"
)

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalidEmail
	RegisterFailurePolicy
	RegisterFailureDuplicate
	RegisterFailureHash
	RegisterFailureStore
	RegisterFailureIssue
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult carries the created identity and its tokens, or failure
// metadata.
type RegisterResult struct {
	Failure  RegisterFailureKind
	Err      error
	Identity *identity.Identity
	Tokens   Tokens
}

type RegisterDeps struct {
	Store  identity.Store
	Hasher CredentialHasher
	Issuer TokenIssuer
	Now    func() time.Time
}

// RunRegister validates input, creates a LOCAL customer and logs it in.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	email := identity.NormalizeEmail(in.Email)
	if !identity.ValidEmail(email) {
		return RegisterResult{Failure: RegisterFailureInvalidEmail}
	}
	if err := identity.CheckPassword(in.Password); err != nil {
		return RegisterResult{Failure: RegisterFailurePolicy, Err: err}
	}
	if err := identity.CheckPasswordBytes(in.Password, maxPasswordBytes(deps.Hasher)); err != nil {
		return RegisterResult{Failure: RegisterFailurePolicy, Err: err}
	}

	exists, err := deps.Store.ExistsByEmail(ctx, email)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureStore, Err: err}
	}
	if exists {
		return RegisterResult{Failure: RegisterFailureDuplicate}
	}

	hash, err := deps.Hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	now := nowOr(deps.Now)
	created, err := deps.Store.Save(ctx, &identity.Identity{
		Email:        email,
		PasswordHash: &hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         identity.RoleCustomer,
		Provider:     identity.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// lost a race with a concurrent registration for the same email
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return RegisterResult{Failure: RegisterFailureDuplicate, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureStore, Err: err}
	}

	tokens, err := issuePair(deps.Issuer, created)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureIssue, Err: err, Identity: created}
	}
	return RegisterResult{Identity: created, Tokens: tokens}
}
