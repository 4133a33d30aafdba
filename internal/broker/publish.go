package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// publishSQL fans one batch of envelopes out to every matching subscription
// of the topic, as a single multi-row insert. Filter evaluation happens in
// SQL: a subscription matches a message when, for every filter key whose
// value is an array, the payload value rendered as text appears in that
// array. A payload missing a filter key does not match (the COALESCE turns
// the NULL comparison into a violation). Nil, non-object, or empty filters
// accept everything. Non-object envelopes are dropped by the jsonb_typeof
// guard.
const publishSQL = `
WITH messages AS (
    SELECT value AS payload
    FROM jsonb_array_elements($2::jsonb)
    WHERE jsonb_typeof(value) = 'object'
),
eligible AS (
    SELECT
        s.id AS subscription_id,
        m.payload
    FROM subscriptions s
    JOIN messages m ON TRUE
    WHERE s.topic_id = $1
    AND (
        s.filter IS NULL
        OR jsonb_typeof(s.filter) <> 'object'
        OR s.filter = '{}'::jsonb
        OR NOT EXISTS (
            SELECT 1
            FROM jsonb_each(s.filter) f(key, allowed_values)
            WHERE
                jsonb_typeof(allowed_values) = 'array'
                AND NOT COALESCE(
                    m.payload ->> f.key = ANY (
                        SELECT jsonb_array_elements_text(allowed_values)
                    ),
                    FALSE
                )
        )
    )
)
INSERT INTO subscription_messages (subscription_id, payload)
SELECT subscription_id, payload
FROM eligible
`

// Publish writes messages to a topic. Every subscription on the topic gets
// its own copy of each envelope that passes its filter. Returns the total
// number of inserted message rows across all subscriptions; a topic with no
// subscriptions yields 0. The whole fan-out is one transaction.
func (b *Broker) Publish(ctx context.Context, topicID string, messages []any) (int64, error) {
	if messages == nil {
		messages = []any{}
	}
	encoded, err := json.Marshal(messages)
	if err != nil {
		return 0, invalid("messages are not valid JSON")
	}

	tx, err := b.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("publish: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// The fan-out insert alone cannot distinguish "no such topic" from
	// "no matching subscriptions", so verify the topic inside the
	// transaction.
	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM topics WHERE id = $1`, topicID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFound("topic")
		}
		return 0, fmt.Errorf("publish: check topic: %w", err)
	}

	tag, err := tx.Exec(ctx, publishSQL, topicID, encoded)
	if err != nil {
		return 0, fmt.Errorf("publish: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("publish: commit: %w", err)
	}

	inserted := tag.RowsAffected()
	log.Debug().
		Str("topic_id", topicID).
		Int("envelopes", len(messages)).
		Int64("inserted", inserted).
		Msg("messages published")
	return inserted, nil
}
