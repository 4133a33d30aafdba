package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
	"github.com/pgbus/pgbus/internal/db"
)

// newTestServer connects to the test database, resets state, and returns a
// ready router with auth disabled. Auth behavior has its own tests.
func newTestServer(t *testing.T) (http.Handler, *Server) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := db.Open(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, table := range []string{"topics", "clients"} {
		if _, err := pool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("Failed to clean %s table: %v", table, err)
		}
	}

	srv := &Server{
		DB: pool,
		Broker: broker.New(pool, broker.Defaults{
			MaxDeliveryAttempts: 5,
			BackoffMinSeconds:   5,
			BackoffMaxSeconds:   300,
		}),
		Clients: clients.NewStore(pool, clients.TokenConfig{
			SecretKey: "test-signing-secret",
			TokenTTL:  30 * time.Minute,
		}),
		AuthEnabled: false,
	}
	return srv.Routes(), srv
}

// doJSON performs a request against the router, JSON-encoding body when it
// is non-nil.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes a response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
