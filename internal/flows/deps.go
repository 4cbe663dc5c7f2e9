package flows

import (
	"time"

	"github.com/cignalottu/authcore/identity"
	"github.com/cignalottu/authcore/jwt"
)

// TokenIssuer signs access and refresh tokens.
type TokenIssuer interface {
	IssueAccess(jwt.Subject) (string, error)
	IssueRefresh(jwt.Subject) (string, error)
}

// RefreshValidator decodes and validates refresh tokens.
type RefreshValidator interface {
	Decode(token string) (*jwt.Claims, error)
	IsValid(token, expectedSubject string) bool
}

// CredentialHasher hashes and checks plaintext passwords.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
}

// inputBound is implemented by hashers that reject long inputs.
type inputBound interface {
	MaxPasswordBytes() int
}

func maxPasswordBytes(h CredentialHasher) int {
	if b, ok := h.(inputBound); ok {
		return b.MaxPasswordBytes()
	}
	return 0
}

// Tokens is the issued token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Deps groups flow dependency sets. The engine builds this once at Build
// time and delegates each operation to the matching flow.
type Deps struct {
	Register  RegisterDeps
	Login     LoginDeps
	Refresh   RefreshDeps
	Federated FederatedDeps
}

func subjectOf(ident *identity.Identity) jwt.Subject {
	return jwt.Subject{
		UserID:    ident.ID,
		Email:     ident.Email,
		Role:      string(ident.Role),
		FirstName: ident.FirstName,
		Provider:  string(ident.Provider),
	}
}

func issuePair(issuer TokenIssuer, ident *identity.Identity) (Tokens, error) {
	sub := subjectOf(ident)
	access, err := issuer.IssueAccess(sub)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := issuer.IssueRefresh(sub)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
