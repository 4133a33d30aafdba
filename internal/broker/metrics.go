package broker

import (
	"context"
	"fmt"
)

// SubscriptionMetrics counts the subscription's messages in each state, in
// one aggregate query.
func (b *Broker) SubscriptionMetrics(ctx context.Context, subscriptionID string) (*Metrics, error) {
	m := Metrics{SubscriptionID: subscriptionID}
	err := b.db.QueryRow(ctx, `
		SELECT
		    count(*) FILTER (WHERE status = 'available'),
		    count(*) FILTER (WHERE status = 'delivered'),
		    count(*) FILTER (WHERE status = 'acked'),
		    count(*) FILTER (WHERE status = 'dlq')
		FROM subscription_messages
		WHERE subscription_id = $1
	`, subscriptionID).Scan(&m.Available, &m.Delivered, &m.Acked, &m.DLQ)
	if err != nil {
		return nil, fmt.Errorf("subscription metrics: %w", err)
	}
	return &m, nil
}
