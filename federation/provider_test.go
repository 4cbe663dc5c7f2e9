package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newIdP(t *testing.T, userinfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "idp-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer idp-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if userinfoStatus != http.StatusOK {
			w.WriteHeader(userinfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":         "1234",
			"email":       "giulia@gmail.com",
			"given_name":  "Giulia",
			"family_name": "Verdi",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(t *testing.T, srv *httptest.Server) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/oauth2/callback/google",
		Endpoint:     &oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		UserInfoURL:  srv.URL + "/userinfo",
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewGoogleProviderRequiresClientID(t *testing.T) {
	_, err := NewGoogleProvider(GoogleConfig{})
	require.ErrorIs(t, err, ErrMissingClientID)
}

func TestGoogleAuthCodeURLUsesPKCE(t *testing.T) {
	p := newTestGoogle(t, newIdP(t, http.StatusOK))

	u, err := url.Parse(p.AuthCodeURL("st", oauth2.GenerateVerifier()))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "client", q.Get("client_id"))
}

func TestGoogleExchangeFetchesProfile(t *testing.T) {
	p := newTestGoogle(t, newIdP(t, http.StatusOK))

	prof, err := p.Exchange(context.Background(), "good-code", oauth2.GenerateVerifier())
	require.NoError(t, err)
	assert.Equal(t, "giulia@gmail.com", prof.Email)
	assert.Equal(t, "1234", prof.Subject)
	assert.Equal(t, "Giulia Verdi", prof.DisplayName())
}

func TestGoogleExchangeRejectedCode(t *testing.T) {
	p := newTestGoogle(t, newIdP(t, http.StatusOK))
	_, err := p.Exchange(context.Background(), "bad-code", oauth2.GenerateVerifier())
	require.Error(t, err)
}

func TestGoogleExchangeUserInfoFailure(t *testing.T) {
	p := newTestGoogle(t, newIdP(t, http.StatusInternalServerError))
	_, err := p.Exchange(context.Background(), "good-code", oauth2.GenerateVerifier())
	require.ErrorIs(t, err, ErrUserInfo)
}

func TestProfileDisplayNamePrefersName(t *testing.T) {
	assert.Equal(t, "Mario", Profile{Name: " Mario ", GivenName: "X"}.DisplayName())
	assert.Equal(t, "", Profile{}.DisplayName())
}
