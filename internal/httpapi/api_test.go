package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
)

func TestTopicEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create topic status = %d, want 201; body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate topic status = %d, want 409", rec.Code)
	}
	var errBody genericError
	decodeBody(t, rec, &errBody)
	if errBody.Detail == "" {
		t.Error("error response has no detail")
	}

	rec = doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "bad topic!"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid topic id status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/topics/orders", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get topic status = %d, want 200", rec.Code)
	}
	var topic broker.Topic
	decodeBody(t, rec, &topic)
	if topic.ID != "orders" {
		t.Errorf("get topic id = %q, want orders", topic.ID)
	}

	rec = doJSON(t, h, http.MethodGet, "/topics/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing topic status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/topics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list topics status = %d, want 200", rec.Code)
	}
	var list listTopicsResp
	decodeBody(t, rec, &list)
	if len(list.Data) != 1 {
		t.Errorf("list topics = %d entries, want 1", len(list.Data))
	}

	rec = doJSON(t, h, http.MethodDelete, "/topics/orders", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete topic status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/topics/orders", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestSubscriptionEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})

	rec := doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id":       "orders-sub",
		"topic_id": "orders",
		"filter":   map[string]any{"country": []string{"BR"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create subscription status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var sub broker.Subscription
	decodeBody(t, rec, &sub)
	if sub.MaxDeliveryAttempts != 5 {
		t.Errorf("max_delivery_attempts = %d, want default 5", sub.MaxDeliveryAttempts)
	}

	rec = doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id":       "other-sub",
		"topic_id": "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("subscription on missing topic status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id":       "bad-filter",
		"topic_id": "orders",
		"filter":   map[string]any{"country": "BR"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("subscription with scalar filter value status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get subscription status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/subscriptions/orders-sub", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete subscription status = %d, want 204", rec.Code)
	}
}

func TestPublishConsumeAckFlow(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})
	doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id": "orders-sub", "topic_id": "orders",
	})

	rec := doJSON(t, h, http.MethodPost, "/topics/orders/messages", []any{
		map[string]any{"n": 1},
		map[string]any{"n": 2},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("publish status = %d, want 204; body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub/messages?consumer_id=c1&batch_size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("consume status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var batch listMessagesResp
	decodeBody(t, rec, &batch)
	if len(batch.Data) != 2 {
		t.Fatalf("consume returned %d messages, want 2", len(batch.Data))
	}

	ids := make([]uuid.UUID, len(batch.Data))
	for i, m := range batch.Data {
		ids[i] = m.ID
	}
	rec = doJSON(t, h, http.MethodPost, "/subscriptions/orders-sub/acks", ids)
	if rec.Code != http.StatusNoContent {
		t.Errorf("ack status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	var metrics broker.Metrics
	decodeBody(t, rec, &metrics)
	if metrics.Acked != 2 || metrics.Available != 0 {
		t.Errorf("metrics = %+v, want acked=2 available=0", metrics)
	}
}

func TestNackAndDLQEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})
	doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id": "orders-sub", "topic_id": "orders",
		"max_delivery_attempts": 1,
	})
	doJSON(t, h, http.MethodPost, "/topics/orders/messages", []any{map[string]any{"n": 1}})

	rec := doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub/messages?consumer_id=c1", nil)
	var batch listMessagesResp
	decodeBody(t, rec, &batch)
	if len(batch.Data) != 1 {
		t.Fatalf("consume returned %d messages, want 1", len(batch.Data))
	}

	rec = doJSON(t, h, http.MethodPost, "/subscriptions/orders-sub/nacks", []uuid.UUID{batch.Data[0].ID})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("nack status = %d, want 204", rec.Code)
	}

	// max_delivery_attempts=1 sends the first nack straight to the DLQ
	rec = doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub/dlq", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dlq list status = %d, want 200", rec.Code)
	}
	var dlq listMessagesResp
	decodeBody(t, rec, &dlq)
	if len(dlq.Data) != 1 {
		t.Fatalf("dlq list = %d messages, want 1", len(dlq.Data))
	}

	rec = doJSON(t, h, http.MethodPost, "/subscriptions/orders-sub/dlq/reprocess", []uuid.UUID{dlq.Data[0].ID})
	if rec.Code != http.StatusNoContent {
		t.Errorf("reprocess status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/subscriptions/orders-sub/metrics", nil)
	var metrics broker.Metrics
	decodeBody(t, rec, &metrics)
	if metrics.Available != 1 || metrics.DLQ != 0 {
		t.Errorf("metrics after reprocess = %+v, want available=1 dlq=0", metrics)
	}
}

func TestMessageOpsUnknownSubscription(t *testing.T) {
	h, _ := newTestServer(t)

	paths := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/subscriptions/ghost/messages?consumer_id=c", nil},
		{http.MethodPost, "/subscriptions/ghost/acks", []uuid.UUID{uuid.New()}},
		{http.MethodPost, "/subscriptions/ghost/nacks", []uuid.UUID{uuid.New()}},
		{http.MethodGet, "/subscriptions/ghost/dlq", nil},
		{http.MethodPost, "/subscriptions/ghost/dlq/reprocess", []uuid.UUID{uuid.New()}},
		{http.MethodGet, "/subscriptions/ghost/metrics", nil},
	}
	for _, p := range paths {
		rec := doJSON(t, h, p.method, p.path, p.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", p.method, p.path, rec.Code)
		}
	}
}

func TestMalformedJSONBody(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/topics", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed body status = %d, want 422", rec.Code)
	}
	var errBody genericError
	decodeBody(t, rec, &errBody)
	if errBody.Detail != "invalid json body" {
		t.Errorf("detail = %q, want %q", errBody.Detail, "invalid json body")
	}
}

func TestConsumeValidation(t *testing.T) {
	h, _ := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/topics", map[string]any{"id": "orders"})
	doJSON(t, h, http.MethodPost, "/subscriptions", map[string]any{
		"id": "orders-sub", "topic_id": "orders",
	})

	// Missing consumer_id and oversized batch both fail validation
	for _, path := range []string{
		"/subscriptions/orders-sub/messages",
		"/subscriptions/orders-sub/messages?consumer_id=c&batch_size=101",
	} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("GET %s status = %d, want 422", path, rec.Code)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/liveness", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}
	var health healthResp
	decodeBody(t, rec, &health)
	if health.Status != "alive" {
		t.Errorf("liveness status field = %q, want alive", health.Status)
	}

	rec = doJSON(t, h, http.MethodGet, "/readiness", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readiness status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("prometheus exposition status = %d, want 200", rec.Code)
	}
}

func TestClientEndpointsAndTokenExchange(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/clients", map[string]any{
		"name":   "worker",
		"scopes": "topics:read",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var created clients.CreateResult
	decodeBody(t, rec, &created)
	if created.Secret == "" {
		t.Fatal("create client returned no secret")
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/clients/%s", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get client status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/clients/not-a-uuid", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("get client with bad id status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/oauth/token", map[string]any{
		"client_id":     created.ID,
		"client_secret": created.Secret,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("token exchange status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var token clients.Token
	decodeBody(t, rec, &token)
	if token.AccessToken == "" || token.TokenType != "Bearer" {
		t.Errorf("token = %+v", token)
	}

	rec = doJSON(t, h, http.MethodPost, "/oauth/token", map[string]any{
		"client_id":     created.ID,
		"client_secret": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad secret exchange status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/clients/%s", created.ID), map[string]any{
		"name":      "worker",
		"scopes":    "*",
		"is_active": false,
	})
	if rec.Code != http.StatusOK {
		t.Errorf("update client status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/clients/%s", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete client status = %d, want 204", rec.Code)
	}
}
