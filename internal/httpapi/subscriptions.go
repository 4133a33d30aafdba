package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pgbus/pgbus/internal/broker"
)

// createSubscriptionReq is the request body for subscription creation.
// Omitted delivery/backoff settings fall back to the broker defaults.
type createSubscriptionReq struct {
	ID                  string         `json:"id"`
	TopicID             string         `json:"topic_id"`
	Filter              map[string]any `json:"filter"`
	MaxDeliveryAttempts int            `json:"max_delivery_attempts"`
	BackoffMinSeconds   int            `json:"backoff_min_seconds"`
	BackoffMaxSeconds   int            `json:"backoff_max_seconds"`
}

// listSubscriptionsResp wraps paginated subscription lists
type listSubscriptionsResp struct {
	Data []broker.Subscription `json:"data"`
}

// listMessagesResp wraps consumed and DLQ message batches
type listMessagesResp struct {
	Data []broker.Message `json:"data"`
}

// CreateSubscription handles POST /subscriptions
func (s *Server) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionReq
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := s.Broker.CreateSubscription(r.Context(), broker.CreateSubscriptionParams{
		ID:                  req.ID,
		TopicID:             req.TopicID,
		Filter:              req.Filter,
		MaxDeliveryAttempts: req.MaxDeliveryAttempts,
		BackoffMinSeconds:   req.BackoffMinSeconds,
		BackoffMaxSeconds:   req.BackoffMaxSeconds,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// GetSubscription handles GET /subscriptions/{id}
func (s *Server) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.Broker.GetSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListSubscriptions handles GET /subscriptions
func (s *Server) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	subs, err := s.Broker.ListSubscriptions(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listSubscriptionsResp{Data: subs})
}

// DeleteSubscription handles DELETE /subscriptions/{id}
func (s *Server) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.Broker.DeleteSubscription(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveSubscription turns the {id} path param into an existing
// subscription id, so message operations 404 on unknown subscriptions
// instead of silently matching zero rows.
func (s *Server) resolveSubscription(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub, err := s.Broker.GetSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return sub.ID, true
}

// decodeMessageIDs parses the JSON array of message UUIDs used by the
// ack/nack/reprocess endpoints.
func decodeMessageIDs(w http.ResponseWriter, r *http.Request) ([]uuid.UUID, bool) {
	var ids []uuid.UUID
	if !decodeJSON(w, r, &ids) {
		return nil, false
	}
	return ids, true
}

// ConsumeMessages handles GET /subscriptions/{id}/messages
func (s *Server) ConsumeMessages(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}

	consumerID := r.URL.Query().Get("consumer_id")
	batchSize := queryInt(r, "batch_size", 10)

	msgs, err := s.Broker.Consume(r.Context(), subID, consumerID, batchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listMessagesResp{Data: msgs})
}

// AckMessages handles POST /subscriptions/{id}/acks
func (s *Server) AckMessages(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}
	ids, ok := decodeMessageIDs(w, r)
	if !ok {
		return
	}

	if _, err := s.Broker.Ack(r.Context(), subID, ids); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NackMessages handles POST /subscriptions/{id}/nacks
func (s *Server) NackMessages(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}
	ids, ok := decodeMessageIDs(w, r)
	if !ok {
		return
	}

	if _, err := s.Broker.Nack(r.Context(), subID, ids); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDLQ handles GET /subscriptions/{id}/dlq
func (s *Server) ListDLQ(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	msgs, err := s.Broker.ListDLQ(r.Context(), subID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listMessagesResp{Data: msgs})
}

// ReprocessDLQ handles POST /subscriptions/{id}/dlq/reprocess
func (s *Server) ReprocessDLQ(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}
	ids, ok := decodeMessageIDs(w, r)
	if !ok {
		return
	}

	if _, err := s.Broker.ReprocessDLQ(r.Context(), subID, ids); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscriptionMetrics handles GET /subscriptions/{id}/metrics
func (s *Server) SubscriptionMetrics(w http.ResponseWriter, r *http.Request) {
	subID, ok := s.resolveSubscription(w, r)
	if !ok {
		return
	}

	metrics, err := s.Broker.SubscriptionMetrics(r.Context(), subID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
