package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
)

// genericError is the error body shape shared by every endpoint.
type genericError struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError maps an error kind to its HTTP status and emits the
// {"detail": ...} body. Unexpected errors are logged and surfaced as an
// opaque 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, broker.ErrNotFound):
		writeJSON(w, http.StatusNotFound, genericError{Detail: err.Error()})
	case errors.Is(err, broker.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, genericError{Detail: err.Error()})
	case errors.Is(err, broker.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, genericError{Detail: err.Error()})
	case errors.Is(err, broker.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, genericError{Detail: err.Error()})
	case errors.Is(err, clients.ErrInvalidClient):
		writeJSON(w, http.StatusUnauthorized, genericError{Detail: err.Error()})
	default:
		log.Error().Err(err).Msg("unexpected error")
		writeJSON(w, http.StatusInternalServerError, genericError{Detail: "internal server error"})
	}
}

// decodeJSON decodes a request body, reporting malformed input as 422.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, genericError{Detail: "invalid json body"})
		return false
	}
	return true
}

// queryInt parses an integer query param with a default for absent or
// malformed values. Range validation happens in the broker.
func queryInt(r *http.Request, key string, def int) int {
	q := r.URL.Query().Get(key)
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		return def
	}
	return n
}
