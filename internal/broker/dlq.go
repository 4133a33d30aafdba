package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ListDLQ returns dead-lettered messages for a subscription, oldest first.
func (b *Broker) ListDLQ(ctx context.Context, subscriptionID string, offset, limit int) ([]Message, error) {
	if err := ValidatePage(offset, limit); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(ctx, `
		SELECT id, subscription_id, payload, delivery_attempts, created_at
		FROM subscription_messages
		WHERE subscription_id = $1
		AND status = 'dlq'
		ORDER BY created_at
		OFFSET $2 LIMIT $3
	`, subscriptionID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SubscriptionID, &m.Payload, &m.DeliveryAttempts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list dlq: scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	return msgs, nil
}

// ReprocessDLQ moves dead-lettered messages back to available with the
// attempt counter reset to zero and available_at set to now, so they are
// immediately eligible for consumption. Rows not in the DLQ are skipped.
// Returns the number of affected rows.
func (b *Broker) ReprocessDLQ(ctx context.Context, subscriptionID string, messageIDs []uuid.UUID) (int64, error) {
	tag, err := b.db.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'available',
		    delivery_attempts = 0,
		    available_at = now()
		WHERE subscription_id = $1
		AND id = ANY ($2)
		AND status = 'dlq'
	`, subscriptionID, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("reprocess dlq: %w", err)
	}

	moved := tag.RowsAffected()
	log.Info().
		Str("subscription_id", subscriptionID).
		Int("requested", len(messageIDs)).
		Int64("reprocessed", moved).
		Msg("dlq messages reprocessed")
	return moved, nil
}
