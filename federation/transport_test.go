package federation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func newTestTransport(t *testing.T) *CookieTransport {
	t.Helper()
	tr, err := NewCookieTransport(CookieConfig{HashKey: testKey('k')})
	require.NoError(t, err)
	return tr
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/auth/oauth2/callback/google", nil)
	for _, c := range cookies {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}

func TestNewCookieTransportRejectsShortKey(t *testing.T) {
	_, err := NewCookieTransport(CookieConfig{HashKey: []byte("short")})
	require.ErrorIs(t, err, ErrCookieKeyTooShort)

	_, err = NewCookieTransport(CookieConfig{HashKey: testKey('k'), BlockKey: []byte("odd")})
	require.Error(t, err)
}

func TestCookieTransportRoundTrip(t *testing.T) {
	tr := newTestTransport(t)
	req := NewAuthorizationRequest("google", "https://app.test/after")

	rec := httptest.NewRecorder()
	require.NoError(t, tr.Save(rec, req))

	cookies := rec.Result().Cookies()
	c := cookieNamed(cookies, AuthRequestCookie)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, DefaultCookiePath, c.Path)
	assert.Equal(t, DefaultCookieMaxAge, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	redirect := cookieNamed(cookies, RedirectCookie)
	require.NotNil(t, redirect)
	assert.Equal(t, "https://app.test/after", redirect.Value)

	got, ok := tr.Load(requestWith(cookies))
	require.True(t, ok)
	assert.Equal(t, req.State, got.State)
	assert.Equal(t, req.CodeVerifier, got.CodeVerifier)
	assert.Equal(t, "google", got.Provider)
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))
}

func TestCookieTransportRejectsTamperedCookie(t *testing.T) {
	tr := newTestTransport(t)
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Save(rec, NewAuthorizationRequest("google", "")))

	c := cookieNamed(rec.Result().Cookies(), AuthRequestCookie)
	require.NotNil(t, c)
	c.Value = c.Value[:len(c.Value)-4] + "AAAA"

	_, ok := tr.Load(requestWith([]*http.Cookie{c}))
	assert.False(t, ok)
}

func TestCookieTransportRejectsForeignKey(t *testing.T) {
	other, err := NewCookieTransport(CookieConfig{HashKey: testKey('x')})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Save(rec, NewAuthorizationRequest("google", "")))

	_, ok := newTestTransport(t).Load(requestWith(rec.Result().Cookies()))
	assert.False(t, ok)
}

func TestCookieTransportRemoveAlwaysClears(t *testing.T) {
	tr := newTestTransport(t)

	rec := httptest.NewRecorder()
	req, ok := tr.Remove(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Nil(t, req)

	cookies := rec.Result().Cookies()
	for _, name := range []string{AuthRequestCookie, RedirectCookie} {
		c := cookieNamed(cookies, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0, name)
		assert.Empty(t, c.Value, name)
	}
}

func TestCookieTransportRemoveReturnsSavedRequest(t *testing.T) {
	tr := newTestTransport(t)
	saved := NewAuthorizationRequest("google", "")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Save(rec, saved))

	out := httptest.NewRecorder()
	got, ok := tr.Remove(out, requestWith(rec.Result().Cookies()))
	require.True(t, ok)
	assert.Equal(t, saved.State, got.State)
	assert.Less(t, cookieNamed(out.Result().Cookies(), AuthRequestCookie).MaxAge, 0)
}

func TestCookieTransportSaveNilClears(t *testing.T) {
	tr := newTestTransport(t)
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Save(rec, nil))

	c := cookieNamed(rec.Result().Cookies(), AuthRequestCookie)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}
