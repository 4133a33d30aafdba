package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pgbus/pgbus/internal/db"
)

// healthResp is the body of the liveness and readiness probes
type healthResp struct {
	Status string `json:"status"`
}

// Liveness handles GET /liveness; it reports only that the process runs.
func (s *Server) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{Status: "alive"})
}

// Readiness handles GET /readiness; ready means the store answers.
func (s *Server) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), s.DB); err != nil {
		log.Error().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, genericError{Detail: "database is down"})
		return
	}
	writeJSON(w, http.StatusOK, healthResp{Status: "ready"})
}
