package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// UnlockStuck releases leases held longer than lockTimeout: delivered rows
// whose locked_at is older than now() - lockTimeout return to available.
// delivery_attempts and available_at are left untouched, so the rows are
// immediately eligible again and the attempt accounting survives consumer
// crashes. Idempotent; returns the number of unlocked rows.
func (b *Broker) UnlockStuck(ctx context.Context, lockTimeout time.Duration) (int64, error) {
	tag, err := b.db.Exec(ctx, `
		UPDATE subscription_messages
		SET status = 'available',
		    locked_at = NULL,
		    locked_by = NULL
		WHERE status = 'delivered'
		AND locked_at < now() - make_interval(secs => $1)
	`, lockTimeout.Seconds())
	if err != nil {
		return 0, fmt.Errorf("unlock stuck: %w", err)
	}

	unlocked := tag.RowsAffected()
	if unlocked > 0 {
		log.Warn().
			Int64("unlocked", unlocked).
			Dur("lock_timeout", lockTimeout).
			Msg("stuck messages unlocked")
	}
	return unlocked, nil
}

// DeleteAcked garbage-collects acked rows older than retentionAge.
// Idempotent; returns the number of deleted rows.
func (b *Broker) DeleteAcked(ctx context.Context, retentionAge time.Duration) (int64, error) {
	tag, err := b.db.Exec(ctx, `
		DELETE FROM subscription_messages
		WHERE status = 'acked'
		AND acked_at < now() - make_interval(secs => $1)
	`, retentionAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("delete acked: %w", err)
	}

	deleted := tag.RowsAffected()
	if deleted > 0 {
		log.Info().
			Int64("deleted", deleted).
			Dur("retention_age", retentionAge).
			Msg("acked messages deleted")
	}
	return deleted, nil
}
