package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore"
)

const maxBodyBytes = 1 << 20

// AuthService is the engine surface the HTTP layer depends on.
// *authcore.Engine implements it.
type AuthService interface {
	authcore.Authenticator
	authcore.IdentityResolver
	Register(ctx context.Context, req authcore.RegisterRequest) (*authcore.AuthResult, error)
	Login(ctx context.Context, email, password string) (*authcore.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authcore.AuthResult, error)
}

type handlers struct {
	auth AuthService
	log  zerolog.Logger
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.auth.Register(r.Context(), authcore.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// logout acknowledges the request. Tokens are stateless; clients discard
// them.
func (h *handlers) logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	p, _ := authcore.PrincipalFromContext(r.Context())
	ident, err := h.auth.CurrentIdentity(r.Context(), p)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profileFrom(ident))
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeRequest reads a JSON body into dst and validates it.
func decodeRequest(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "must be a valid JSON object"
		if errors.Is(err, io.EOF) {
			msg = "is required"
		}
		return &requestError{Fields: []FieldError{{Field: "body", Message: msg}}}
	}
	return validateRequest(dst)
}
