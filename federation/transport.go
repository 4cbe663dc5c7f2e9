package federation

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// AuthRequestCookie holds the signed AuthorizationRequest.
	AuthRequestCookie = "oauth2_auth_request"
	// RedirectCookie holds the post-login target requested by the client.
	RedirectCookie = "redirect_uri"
	// DefaultCookieMaxAge bounds how long a user may take at the provider.
	DefaultCookieMaxAge = 180
	DefaultCookiePath   = "/auth"

	maxCookieLength = 4096
)

var ErrCookieKeyTooShort = errors.New("cookie hash key must be at least 32 bytes")

// CookieConfig configures a CookieTransport. HashKey signs the cookie with
// HMAC-SHA256. BlockKey, when set, additionally encrypts it with AES and
// must be 16, 24 or 32 bytes.
type CookieConfig struct {
	HashKey  []byte
	BlockKey []byte
	Path     string
	Secure   bool
	MaxAge   int
}

// CookieTransport carries AuthorizationRequests in a signed, short-lived,
// HttpOnly cookie. It holds no server-side state.
type CookieTransport struct {
	codec  *securecookie.SecureCookie
	path   string
	secure bool
	maxAge int
}

func NewCookieTransport(cfg CookieConfig) (*CookieTransport, error) {
	if len(cfg.HashKey) < 32 {
		return nil, ErrCookieKeyTooShort
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, errors.New("cookie block key must be 16, 24 or 32 bytes")
	}
	if cfg.Path == "" {
		cfg.Path = DefaultCookiePath
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultCookieMaxAge
	}

	var block []byte
	if len(cfg.BlockKey) > 0 {
		block = cfg.BlockKey
	}
	codec := securecookie.New(cfg.HashKey, block)
	codec.MaxAge(cfg.MaxAge)
	codec.MaxLength(maxCookieLength)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &CookieTransport{
		codec:  codec,
		path:   cfg.Path,
		secure: cfg.Secure,
		maxAge: cfg.MaxAge,
	}, nil
}

// Save writes req to the response. A nil req clears both cookies.
func (t *CookieTransport) Save(w http.ResponseWriter, req *AuthorizationRequest) error {
	if req == nil {
		t.clear(w)
		return nil
	}

	encoded, err := t.codec.Encode(AuthRequestCookie, req)
	if err != nil {
		return err
	}
	http.SetCookie(w, t.cookie(AuthRequestCookie, encoded, t.maxAge))
	if req.ClientRedirect != "" {
		http.SetCookie(w, t.cookie(RedirectCookie, req.ClientRedirect, t.maxAge))
	}
	return nil
}

// Load returns the request carried by r. Missing, forged, expired and
// undecodable cookies all report false.
func (t *CookieTransport) Load(r *http.Request) (*AuthorizationRequest, bool) {
	c, err := r.Cookie(AuthRequestCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}

	var req AuthorizationRequest
	if err := t.codec.Decode(AuthRequestCookie, c.Value, &req); err != nil {
		return nil, false
	}
	return &req, true
}

// Remove loads the request and clears both cookies, whether or not a valid
// request was present.
func (t *CookieTransport) Remove(w http.ResponseWriter, r *http.Request) (*AuthorizationRequest, bool) {
	req, ok := t.Load(r)
	t.clear(w)
	return req, ok
}

func (t *CookieTransport) clear(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie(AuthRequestCookie, "", -1))
	http.SetCookie(w, t.cookie(RedirectCookie, "", -1))
}

func (t *CookieTransport) cookie(name, value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     t.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	} else {
		c.Expires = time.Unix(0, 0)
	}
	return c
}
