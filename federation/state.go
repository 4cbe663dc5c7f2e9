package federation

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// AuthorizationRequest is the state carried across the provider redirect.
// It lives only inside the signed request cookie and is consumed once.
type AuthorizationRequest struct {
	State          string    `json:"state"`
	Provider       string    `json:"provider"`
	CodeVerifier   string    `json:"verifier"`
	ClientRedirect string    `json:"redirect,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAuthorizationRequest creates a request with a random state and PKCE
// verifier.
func NewAuthorizationRequest(provider, clientRedirect string) *AuthorizationRequest {
	return &AuthorizationRequest{
		State:          uuid.NewString(),
		Provider:       provider,
		CodeVerifier:   oauth2.GenerateVerifier(),
		ClientRedirect: clientRedirect,
		CreatedAt:      time.Now().UTC(),
	}
}
