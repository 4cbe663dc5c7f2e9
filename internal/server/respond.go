package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore"
)

type errorResponse struct {
	Error  string       `json:"error"`
	Kind   string       `json:"kind"`
	Fields []FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind authcore.Kind) int {
	switch kind {
	case authcore.KindValidation:
		return http.StatusBadRequest
	case authcore.KindConflict:
		return http.StatusConflict
	case authcore.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal and configuration failures are logged and
// reported with a generic message.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  reqErr.Error(),
			Kind:   authcore.KindValidation.String(),
			Fields: reqErr.Fields,
		})
		return
	}

	kind := authcore.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", kind.String()).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()})
}
