package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// consumeSQL leases a batch: lock up to batch_size available rows, oldest
// available_at first, skipping rows locked by concurrent consumers, then
// mark them delivered. The attempt counter is incremented inside the same
// transaction, so a consumer that crashes after this call still has its
// attempt counted.
const consumeSQL = `
WITH cte AS (
    SELECT id
    FROM subscription_messages
    WHERE subscription_id = $1
    AND status = 'available'
    AND available_at <= now()
    ORDER BY available_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
UPDATE subscription_messages sm
SET status = 'delivered',
    locked_at = now(),
    locked_by = $2,
    delivery_attempts = sm.delivery_attempts + 1
FROM cte
WHERE sm.id = cte.id
RETURNING sm.id, sm.subscription_id, sm.payload, sm.delivery_attempts, sm.created_at
`

// Consume atomically leases up to batchSize messages to consumerID. An empty
// batch is a legitimate result, not an error. Concurrent calls on the same
// subscription return disjoint batches.
func (b *Broker) Consume(ctx context.Context, subscriptionID, consumerID string, batchSize int) ([]Message, error) {
	if err := ValidateBatchSize(batchSize); err != nil {
		return nil, err
	}
	if consumerID == "" {
		return nil, invalid("consumer_id must not be empty")
	}

	rows, err := b.db.Query(ctx, consumeSQL, subscriptionID, consumerID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	defer rows.Close()

	batch := make([]Message, 0, batchSize)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SubscriptionID, &m.Payload, &m.DeliveryAttempts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("consume: scan: %w", err)
		}
		batch = append(batch, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	log.Debug().
		Str("subscription_id", subscriptionID).
		Str("consumer_id", consumerID).
		Int("batch", len(batch)).
		Msg("messages leased")
	return batch, nil
}
