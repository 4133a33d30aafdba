package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pgbus/pgbus/internal/broker"
)

// createTopicReq is the request body for topic creation
type createTopicReq struct {
	ID string `json:"id"`
}

// listTopicsResp wraps paginated topic lists
type listTopicsResp struct {
	Data []broker.Topic `json:"data"`
}

// CreateTopic handles POST /topics
func (s *Server) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicReq
	if !decodeJSON(w, r, &req) {
		return
	}

	topic, err := s.Broker.CreateTopic(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

// GetTopic handles GET /topics/{id}
func (s *Server) GetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.Broker.GetTopic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// ListTopics handles GET /topics
func (s *Server) ListTopics(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	topics, err := s.Broker.ListTopics(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listTopicsResp{Data: topics})
}

// DeleteTopic handles DELETE /topics/{id}
func (s *Server) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.Broker.DeleteTopic(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishMessages handles POST /topics/{id}/messages. The body is a JSON
// array of envelopes; non-object elements are silently dropped by the
// broker.
func (s *Server) PublishMessages(w http.ResponseWriter, r *http.Request) {
	var messages []any
	if !decodeJSON(w, r, &messages) {
		return
	}

	if _, err := s.Broker.Publish(r.Context(), chi.URLParam(r, "id"), messages); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
