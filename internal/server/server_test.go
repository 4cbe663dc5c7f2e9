package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/federation"
	"github.com/cignalottu/authcore/identity"
	promexp "github.com/cignalottu/authcore/metrics/export/prometheus"
	"github.com/cignalottu/authcore/password"
	"github.com/cignalottu/authcore/store/memory"
)

func newTestEngine(t *testing.T) *authcore.Engine {
	t.Helper()
	return newEngineWithStore(t, memory.New())
}

func newEngineWithStore(t *testing.T, store authcore.IdentityStore) *authcore.Engine {
	t.Helper()
	cfg := authcore.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password = password.Config{Algorithm: password.AlgorithmBcrypt, BcryptCost: 4}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithLogger(zerolog.Nop()).
		Build()
	require.NoError(t, err)
	return engine
}

func newTestServer(t *testing.T, mutate func(*RouterOptions)) (*httptest.Server, *authcore.Engine) {
	t.Helper()
	engine := newTestEngine(t)
	opts := RouterOptions{Auth: engine, Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&opts)
	}
	srv := httptest.NewServer(NewRouter(opts))
	t.Cleanup(srv.Close)
	return srv, engine
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := srv.Client().Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getWithToken(t *testing.T, srv *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"email":     email,
		"password":  "Passw0rd",
		"firstName": "Mario",
		"lastName":  "Rossi",
	}
}

func TestRegisterLoginAndProfile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/auth/register", registerBody("Mario@Example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reg := decode[authcore.AuthResult](t, resp)
	assert.Equal(t, "mario@example.com", reg.Email)
	assert.Equal(t, authcore.RoleCustomer, reg.Role)
	assert.Equal(t, authcore.TokenType, reg.TokenType)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp = postJSON(t, srv, "/auth/login", map[string]string{
		"email": "mario@example.com", "password": "Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[authcore.AuthResult](t, resp)
	assert.Equal(t, reg.UserID, login.UserID)

	resp = getWithToken(t, srv, "/auth/me", login.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[profileResponse](t, resp)
	assert.Equal(t, reg.UserID, me.ID)
	assert.Equal(t, "Mario", me.FirstName)
	assert.Equal(t, "Rossi", me.LastName)
	assert.Equal(t, authcore.ProviderLocal, me.Provider)
	assert.False(t, me.CreatedAt.IsZero())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/auth/register", registerBody("dup@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv, "/auth/register", registerBody("DUP@example.com"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "conflict", body.Kind)
}

func TestRegisterRejectsInvalidFields(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/auth/register", map[string]string{
		"email":     "not-an-email",
		"password":  "short",
		"firstName": "M",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "validation", body.Kind)

	fields := map[string]string{}
	for _, f := range body.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Equal(t, "must be at least 2 characters", fields["firstName"])
	assert.Equal(t, "is required", fields["lastName"])
}

func TestRegisterWeakPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := registerBody("weak@example.com")
	body["password"] = "password1"
	resp := postJSON(t, srv, "/auth/register", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decode[errorResponse](t, resp).Kind)
}

func TestMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.Client().Post(srv.URL+"/auth/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "body", body.Fields[0].Field)
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, postJSON(t, srv, "/auth/register", registerBody("a@example.com")).StatusCode)

	for _, email := range []string{"a@example.com", "ghost@example.com"} {
		resp := postJSON(t, srv, "/auth/login", map[string]string{"email": email, "password": "Wr0ngpass"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, email)
		body := decode[errorResponse](t, resp)
		assert.Equal(t, "authentication", body.Kind)
		assert.Equal(t, authcore.ErrInvalidCredentials.Error(), body.Error)
	}
}

func TestRefresh(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := postJSON(t, srv, "/auth/register", registerBody("r@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reg := decode[authcore.AuthResult](t, resp)

	resp = postJSON(t, srv, "/auth/refresh", map[string]string{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[authcore.AuthResult](t, resp)
	assert.Equal(t, reg.UserID, out.UserID)
	assert.NotEmpty(t, out.AccessToken)

	resp = postJSON(t, srv, "/auth/refresh", map[string]string{"refreshToken": reg.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfileRequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, getWithToken(t, srv, "/auth/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, getWithToken(t, srv, "/auth/me", "garbage").StatusCode)

	resp := postJSON(t, srv, "/auth/register", registerBody("r@example.com"))
	reg := decode[authcore.AuthResult](t, resp)
	assert.Equal(t, http.StatusUnauthorized, getWithToken(t, srv, "/auth/me", reg.RefreshToken).StatusCode)
}

func TestProfileForDeletedIdentity(t *testing.T) {
	store := memory.New()
	engine := newEngineWithStore(t, store)
	srv := httptest.NewServer(NewRouter(RouterOptions{Auth: engine, Logger: zerolog.Nop()}))
	defer srv.Close()

	reg, err := engine.Register(context.Background(), authcore.RegisterRequest{
		Email: "gone@example.com", Password: "Passw0rd", FirstName: "Go", LastName: "Ne",
	})
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), "gone@example.com"))

	assert.Equal(t, http.StatusUnauthorized, getWithToken(t, srv, "/auth/me", reg.AccessToken).StatusCode)
}

func TestLogoutAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv, "/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "logged out", decode[messageResponse](t, resp).Message)

	resp = getWithToken(t, srv, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, getWithToken(t, srv, "/metrics", "").StatusCode)

	engine := newTestEngine(t)
	metricsSrv := httptest.NewServer(NewRouter(RouterOptions{
		Auth:    engine,
		Logger:  zerolog.Nop(),
		Metrics: promexp.NewExporter(engine).Handler(),
	}))
	defer metricsSrv.Close()

	resp := postJSON(t, metricsSrv, "/auth/login", map[string]string{"email": "x@example.com", "password": "Passw0rd"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getWithToken(t, metricsSrv, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "authcore_login_failure_total 1")
}

type stubProvider struct{}

func (stubProvider) Name() string              { return "google" }
func (stubProvider) Origin() identity.Provider { return identity.ProviderGoogle }

func (stubProvider) AuthCodeURL(state, _ string) string {
	return "https://idp.test/auth?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(_ context.Context, code, _ string) (*federation.Profile, error) {
	return &federation.Profile{Subject: "sub-1", Email: "fed@example.com", EmailVerified: true, Name: "Fed User"}, nil
}

func TestFederationRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, getWithToken(t, srv, "/auth/oauth2/authorize/google", "").StatusCode)

	transport, err := federation.NewCookieTransport(federation.CookieConfig{
		HashKey: []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)

	engine := newTestEngine(t)
	fed := federation.NewHandler(engine, transport, zerolog.Nop(), stubProvider{})
	fedSrv := httptest.NewServer(NewRouter(RouterOptions{Auth: engine, Logger: zerolog.Nop(), Federation: fed}))
	defer fedSrv.Close()

	client := fedSrv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(fedSrv.URL + "/auth/oauth2/authorize/google")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	req, err := http.NewRequest(http.MethodGet,
		fedSrv.URL+"/auth/oauth2/callback/google?code=abc&state="+url.QueryEscape(state), nil)
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	cb, err := client.Do(req)
	require.NoError(t, err)
	defer cb.Body.Close()
	require.Equal(t, http.StatusOK, cb.StatusCode)

	res := decode[authcore.AuthResult](t, cb)
	assert.Equal(t, "fed@example.com", res.Email)
	assert.Equal(t, authcore.RoleCustomer, res.Role)

	me := getWithToken(t, fedSrv, "/auth/me", res.AccessToken)
	require.Equal(t, http.StatusOK, me.StatusCode)
	profile := decode[profileResponse](t, me)
	assert.Equal(t, authcore.ProviderGoogle, profile.Provider)
	assert.Equal(t, "Fed User", profile.FirstName)
}
