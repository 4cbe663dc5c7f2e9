package federation

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore"
)

// Handler drives the authorization-code flow: Begin redirects to the
// provider and Callback resolves the returned profile into tokens.
type Handler struct {
	resolver  authcore.FederatedResolver
	transport *CookieTransport
	providers map[string]Provider
	// origins a client may ask to be redirected to after sign-in
	redirects map[string]struct{}
	log       zerolog.Logger
}

func NewHandler(resolver authcore.FederatedResolver, transport *CookieTransport, log zerolog.Logger, providers ...Provider) *Handler {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Handler{
		resolver:  resolver,
		transport: transport,
		providers: m,
		log:       log.With().Str("component", "federation").Logger(),
	}
}

// AllowRedirects registers the origins (scheme://host[:port]) accepted as
// post-login redirect targets. Without any, redirect_uri is rejected.
func (h *Handler) AllowRedirects(origins ...string) *Handler {
	if h.redirects == nil {
		h.redirects = make(map[string]struct{}, len(origins))
	}
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			h.redirects[strings.ToLower(o)] = struct{}{}
		}
	}
	return h
}

// redirectAllowed reports whether target is an absolute http(s) URL on a
// registered origin.
func (h *Handler) redirectAllowed(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	_, ok := h.redirects[strings.ToLower(u.Scheme+"://"+u.Host)]
	return ok
}

// Providers returns the number of configured providers.
func (h *Handler) Providers() int { return len(h.providers) }

// Begin stores a fresh authorization request and redirects to the provider.
// An optional redirect_uri query parameter must name an allowed origin.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request, name string) {
	p, ok := h.providers[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown provider"})
		return
	}
	target := r.URL.Query().Get(RedirectCookie)
	if target != "" && !h.redirectAllowed(target) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "redirect target not allowed"})
		return
	}

	req := NewAuthorizationRequest(p.Name(), target)
	if err := h.transport.Save(w, req); err != nil {
		h.log.Error().Err(err).Str("provider", name).Msg("saving authorization request")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	http.Redirect(w, r, p.AuthCodeURL(req.State, req.CodeVerifier), http.StatusFound)
}

// Callback completes the flow. The authorization request cookie is cleared
// on every outcome. On success the tokens are written as JSON, or carried in
// the URL fragment of the client redirect stored by Begin.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request, name string) {
	saved, found := h.transport.Remove(w, r)

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		if desc := q.Get("error_description"); desc != "" {
			reason = desc
		}
		h.fail(w, name, reason)
		return
	}

	p, ok := h.providers[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown provider"})
		return
	}
	if !found {
		h.fail(w, name, "authorization request not found")
		return
	}
	if saved.Provider != p.Name() || q.Get("state") != saved.State {
		h.fail(w, name, "state mismatch")
		return
	}
	code := q.Get("code")
	if code == "" {
		h.fail(w, name, "missing authorization code")
		return
	}

	profile, err := p.Exchange(r.Context(), code, saved.CodeVerifier)
	if err != nil {
		h.log.Warn().Err(err).Str("provider", name).Msg("code exchange failed")
		h.fail(w, name, "code exchange failed")
		return
	}
	if profile.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "email not provided by identity provider"})
		return
	}
	if !profile.EmailVerified {
		h.fail(w, name, "email not verified by identity provider")
		return
	}

	res, err := h.resolver.ResolveFederatedIdentity(r.Context(), authcore.FederatedProfile{
		Provider:    p.Origin(),
		Email:       profile.Email,
		DisplayName: profile.DisplayName(),
		Subject:     profile.Subject,
	})
	if err != nil {
		switch authcore.KindOf(err) {
		case authcore.KindValidation:
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		case authcore.KindAuthentication:
			h.fail(w, name, err.Error())
		default:
			h.log.Error().Err(err).Str("provider", name).Msg("resolving federated identity")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
		return
	}

	if saved.ClientRedirect != "" && h.redirectAllowed(saved.ClientRedirect) {
		http.Redirect(w, r, withTokenFragment(saved.ClientRedirect, res), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func withTokenFragment(target string, res *authcore.AuthResult) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	return target + "#" + url.Values{
		"accessToken":  {res.AccessToken},
		"refreshToken": {res.RefreshToken},
		"tokenType":    {res.TokenType},
	}.Encode()
}

func (h *Handler) fail(w http.ResponseWriter, provider, reason string) {
	h.log.Info().Str("provider", provider).Str("reason", reason).Msg("federated login failed")
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "federated login failed: " + reason})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
