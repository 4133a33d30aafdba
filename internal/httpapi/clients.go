package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
)

// clientReq is the request body for client create and update
type clientReq struct {
	Name     string `json:"name"`
	Scopes   string `json:"scopes"`
	IsActive *bool  `json:"is_active"`
}

// tokenReq is the request body for the client-credentials exchange
type tokenReq struct {
	ClientID     uuid.UUID `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
}

// listClientsResp wraps paginated client lists
type listClientsResp struct {
	Data []clients.Client `json:"data"`
}

func clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, fmt.Errorf("client id must be a uuid: %w", broker.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

// CreateClient handles POST /clients. The generated secret appears in this
// response only; it is stored hashed.
func (s *Server) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientReq
	if !decodeJSON(w, r, &req) {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	result, err := s.Clients.Create(r.Context(), req.Name, req.Scopes, isActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetClient handles GET /clients/{id}
func (s *Server) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	client, err := s.Clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// ListClients handles GET /clients
func (s *Server) ListClients(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	list, err := s.Clients.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listClientsResp{Data: list})
}

// UpdateClient handles PUT /clients/{id}. Outstanding tokens are revoked by
// the token_version bump.
func (s *Server) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var req clientReq
	if !decodeJSON(w, r, &req) {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	client, err := s.Clients.Update(r.Context(), id, req.Name, req.Scopes, isActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// DeleteClient handles DELETE /clients/{id}
func (s *Server) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	if err := s.Clients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IssueToken handles POST /oauth/token
func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := s.Clients.IssueToken(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}
