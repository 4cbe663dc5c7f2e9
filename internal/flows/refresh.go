package flows

import (
	"context"
	"errors"

	"github.com/cignalottu/authcore/identity"
	"github.com/cignalottu/authcore/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureInvalid
	RefreshFailureWrongUse
	RefreshFailureIdentityGone
	RefreshFailureStore
	RefreshFailureIssue
)

type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	Subject  string
	Identity *identity.Identity
	Tokens   Tokens
}

type RefreshDeps struct {
	Tokens RefreshValidator
	Issuer TokenIssuer
	Store  identity.Store
}

// RunRefresh validates a refresh token, re-resolves its identity and issues
// a new access token. The presented refresh token is returned unchanged.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Tokens.Decode(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	subject := claims.Subject
	if !deps.Tokens.IsValid(refreshToken, subject) {
		return RefreshResult{Failure: RefreshFailureInvalid, Subject: subject}
	}
	if claims.Use != jwt.UseRefresh {
		return RefreshResult{Failure: RefreshFailureWrongUse, Subject: subject}
	}

	ident, err := deps.Store.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureIdentityGone, Subject: subject}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject}
	}

	access, err := deps.Issuer.IssueAccess(subjectOf(ident))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Subject: subject}
	}
	return RefreshResult{
		Subject:  subject,
		Identity: ident,
		Tokens:   Tokens{AccessToken: access, RefreshToken: refreshToken},
	}
}
