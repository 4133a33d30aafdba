// Package broker implements the message-flow engine: topics, subscriptions,
// fan-out publication, lease-based consumption, ack/nack with exponential
// backoff, dead-lettering, and janitor sweeps. All coordination lives in
// PostgreSQL; the package holds no in-process state about messages or leases.
package broker

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message status values. The lifecycle is
// available -> delivered -> {acked, available, dlq} and dlq -> available
// (reprocess). acked rows are eventually garbage-collected.
const (
	StatusAvailable = "available"
	StatusDelivered = "delivered"
	StatusAcked     = "acked"
	StatusDLQ       = "dlq"
)

// Topic is a named channel publishers send messages to.
type Topic struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscription is a durable, optionally filtered queue over a topic.
//
// Filter maps payload field names to arrays of allowed primitive values.
// Matching compares the payload value rendered as text (payload->>key), so
// the number 1 matches "1" and true matches "true". A nil or empty filter
// accepts everything.
type Subscription struct {
	ID                  string         `json:"id"`
	TopicID             string         `json:"topic_id"`
	Filter              map[string]any `json:"filter"`
	MaxDeliveryAttempts int            `json:"max_delivery_attempts"`
	BackoffMinSeconds   int            `json:"backoff_min_seconds"`
	BackoffMaxSeconds   int            `json:"backoff_max_seconds"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Message is one payload copy belonging to exactly one subscription. A
// published envelope becomes N messages, one per matching subscription.
type Message struct {
	ID               uuid.UUID      `json:"id"`
	SubscriptionID   string         `json:"subscription_id"`
	Payload          map[string]any `json:"payload"`
	DeliveryAttempts int            `json:"delivery_attempts"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Metrics is the per-subscription count of messages in each state.
type Metrics struct {
	SubscriptionID string `json:"subscription_id"`
	Available      int64  `json:"available"`
	Delivered      int64  `json:"delivered"`
	Acked          int64  `json:"acked"`
	DLQ            int64  `json:"dlq"`
}

// Defaults are applied to subscription create requests that omit delivery
// or backoff settings.
type Defaults struct {
	MaxDeliveryAttempts int
	BackoffMinSeconds   int
	BackoffMaxSeconds   int
}

// Broker exposes the message-flow operations. Every public method runs in a
// single transaction (one statement, or an explicit pgx.Tx) so cancellation
// never leaves partial effects.
type Broker struct {
	db       *pgxpool.Pool
	defaults Defaults
}

// New creates a Broker on top of an open connection pool.
func New(db *pgxpool.Pool, defaults Defaults) *Broker {
	return &Broker{db: db, defaults: defaults}
}
