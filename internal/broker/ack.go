package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Ack finalizes delivered messages: status becomes acked, the lease is
// cleared, acked_at is stamped. Rows not currently delivered (already acked,
// rescheduled, or dead-lettered) are skipped, which makes Ack idempotent and
// safe to retry. Returns the number of rows that transitioned.
func (b *Broker) Ack(ctx context.Context, subscriptionID string, messageIDs []uuid.UUID) (int64, error) {
	tag, err := b.db.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'acked',
		    acked_at = now(),
		    locked_at = NULL,
		    locked_by = NULL
		WHERE subscription_id = $1
		AND id = ANY ($2)
		AND status = 'delivered'
	`, subscriptionID, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("ack: %w", err)
	}

	acked := tag.RowsAffected()
	log.Debug().
		Str("subscription_id", subscriptionID).
		Int("requested", len(messageIDs)).
		Int64("acked", acked).
		Msg("messages acked")
	return acked, nil
}

// Nack terminates a lease negatively. A delivered message whose attempt
// count has reached the subscription's max_delivery_attempts moves to the
// DLQ with available_at untouched; otherwise it returns to available with
//
//	available_at = now() + min(backoff_max, backoff_min * 2^attempts) seconds
//
// i.e. exponential base-2 backoff on the current attempt count, clamped.
// Non-delivered rows are skipped. Returns the number of affected rows.
func (b *Broker) Nack(ctx context.Context, subscriptionID string, messageIDs []uuid.UUID) (int64, error) {
	tag, err := b.db.Exec(ctx, `
		UPDATE subscription_messages sm
		SET status = CASE
		        WHEN sm.delivery_attempts >= s.max_delivery_attempts THEN 'dlq'
		        ELSE 'available'
		    END,
		    available_at = CASE
		        WHEN sm.delivery_attempts >= s.max_delivery_attempts THEN sm.available_at
		        ELSE now() + make_interval(
		            secs => LEAST(
		                s.backoff_max_seconds,
		                s.backoff_min_seconds * (2 ^ sm.delivery_attempts)
		            )
		        )
		    END,
		    locked_at = NULL,
		    locked_by = NULL
		FROM subscriptions s
		WHERE s.id = sm.subscription_id
		AND sm.subscription_id = $1
		AND sm.id = ANY ($2)
		AND sm.status = 'delivered'
	`, subscriptionID, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("nack: %w", err)
	}

	nacked := tag.RowsAffected()
	log.Debug().
		Str("subscription_id", subscriptionID).
		Int("requested", len(messageIDs)).
		Int64("nacked", nacked).
		Msg("messages nacked")
	return nacked, nil
}
