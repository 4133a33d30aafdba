package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Postgres error codes mapped to broker error kinds.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// CreateTopic inserts a new topic. Fails with ErrAlreadyExists on a
// duplicate id.
func (b *Broker) CreateTopic(ctx context.Context, id string) (*Topic, error) {
	if err := ValidateID("id", id); err != nil {
		return nil, err
	}

	var t Topic
	err := b.db.QueryRow(ctx,
		`INSERT INTO topics (id) VALUES ($1) RETURNING id, created_at`,
		id).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, alreadyExists("topic")
		}
		return nil, fmt.Errorf("create topic: %w", err)
	}

	log.Info().Str("topic_id", t.ID).Msg("topic created")
	return &t, nil
}

// GetTopic looks up a topic by id.
func (b *Broker) GetTopic(ctx context.Context, id string) (*Topic, error) {
	var t Topic
	err := b.db.QueryRow(ctx,
		`SELECT id, created_at FROM topics WHERE id = $1`,
		id).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("topic")
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

// ListTopics returns topics ordered by id ascending.
func (b *Broker) ListTopics(ctx context.Context, offset, limit int) ([]Topic, error) {
	if err := ValidatePage(offset, limit); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(ctx,
		`SELECT id, created_at FROM topics ORDER BY id ASC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]Topic, 0, limit)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// DeleteTopic removes a topic. Subscriptions and their messages go with it
// via ON DELETE CASCADE, in the same transaction.
func (b *Broker) DeleteTopic(ctx context.Context, id string) error {
	tag, err := b.db.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("topic")
	}

	log.Info().Str("topic_id", id).Msg("topic deleted")
	return nil
}

// CreateSubscriptionParams carries a subscription create request. Zero
// values for the delivery/backoff settings mean "use the broker defaults".
type CreateSubscriptionParams struct {
	ID                  string
	TopicID             string
	Filter              map[string]any
	MaxDeliveryAttempts int
	BackoffMinSeconds   int
	BackoffMaxSeconds   int
}

// CreateSubscription inserts a new subscription under a topic. Fails with
// ErrAlreadyExists on a duplicate id and ErrNotFound when the topic does not
// exist (enforced by the foreign key).
func (b *Broker) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	if err := ValidateID("id", params.ID); err != nil {
		return nil, err
	}
	if err := ValidateID("topic_id", params.TopicID); err != nil {
		return nil, err
	}

	filter, err := SanitizeFilter(params.Filter)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = map[string]any{}
	}

	maxAttempts := params.MaxDeliveryAttempts
	if maxAttempts == 0 {
		maxAttempts = b.defaults.MaxDeliveryAttempts
	}
	backoffMin := params.BackoffMinSeconds
	if backoffMin == 0 {
		backoffMin = b.defaults.BackoffMinSeconds
	}
	backoffMax := params.BackoffMaxSeconds
	if backoffMax == 0 {
		backoffMax = b.defaults.BackoffMaxSeconds
	}

	if maxAttempts < 1 {
		return nil, invalid("max_delivery_attempts must be >= 1")
	}
	if backoffMin < 1 {
		return nil, invalid("backoff_min_seconds must be >= 1")
	}
	if backoffMax < backoffMin {
		return nil, invalid("backoff_max_seconds must be >= backoff_min_seconds")
	}

	var s Subscription
	err = b.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, topic_id, filter, max_delivery_attempts, backoff_min_seconds, backoff_max_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, topic_id, filter, max_delivery_attempts, backoff_min_seconds, backoff_max_seconds, created_at
	`, params.ID, params.TopicID, filter, maxAttempts, backoffMin, backoffMax).Scan(
		&s.ID, &s.TopicID, &s.Filter, &s.MaxDeliveryAttempts, &s.BackoffMinSeconds, &s.BackoffMaxSeconds, &s.CreatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, alreadyExists("subscription")
		}
		if isPgCode(err, pgForeignKeyViolation) {
			return nil, notFound("topic")
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	log.Info().
		Str("subscription_id", s.ID).
		Str("topic_id", s.TopicID).
		Int("max_delivery_attempts", s.MaxDeliveryAttempts).
		Msg("subscription created")
	return &s, nil
}

// GetSubscription looks up a subscription by id.
func (b *Broker) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var s Subscription
	err := b.db.QueryRow(ctx, `
		SELECT id, topic_id, filter, max_delivery_attempts, backoff_min_seconds, backoff_max_seconds, created_at
		FROM subscriptions WHERE id = $1
	`, id).Scan(&s.ID, &s.TopicID, &s.Filter, &s.MaxDeliveryAttempts, &s.BackoffMinSeconds, &s.BackoffMaxSeconds, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("subscription")
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &s, nil
}

// ListSubscriptions returns subscriptions ordered by id ascending.
func (b *Broker) ListSubscriptions(ctx context.Context, offset, limit int) ([]Subscription, error) {
	if err := ValidatePage(offset, limit); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(ctx, `
		SELECT id, topic_id, filter, max_delivery_attempts, backoff_min_seconds, backoff_max_seconds, created_at
		FROM subscriptions ORDER BY id ASC OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0, limit)
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.TopicID, &s.Filter, &s.MaxDeliveryAttempts, &s.BackoffMinSeconds, &s.BackoffMaxSeconds, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription removes a subscription and, via cascade, its messages.
func (b *Broker) DeleteSubscription(ctx context.Context, id string) error {
	tag, err := b.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("subscription")
	}

	log.Info().Str("subscription_id", id).Msg("subscription deleted")
	return nil
}
