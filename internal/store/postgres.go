package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"
)

const createWebhookEventsTable = `
CREATE TABLE IF NOT EXISTS webhook_events (
	event_id    TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	payload     JSONB,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertWebhookEvent = `
INSERT INTO webhook_events (event_id, type, payload)
VALUES ($1, $2, $3)
ON CONFLICT (event_id) DO NOTHING`

// PostgresLedger records webhook events in the webhook_events table. Rows are
// kept forever; they double as an audit log of what Stripe delivered.
type PostgresLedger struct {
	pool *sql.DB
}

// NewPostgresLedger wraps an open, verified connection pool.
func NewPostgresLedger(pool *sql.DB) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// EnsureSchema creates the webhook_events table when it does not exist.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.ExecContext(ctx, createWebhookEventsTable); err != nil {
		return fmt.Errorf("store: create webhook_events: %w", err)
	}
	return nil
}

// Record inserts the event. ON CONFLICT DO NOTHING affects zero rows for a
// replayed event id, which is reported as first=false.
func (l *PostgresLedger) Record(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error) {
	res, err := l.pool.ExecContext(ctx, insertWebhookEvent,
		eventID,
		eventType,
		pqtype.NullRawMessage{RawMessage: payload, Valid: len(payload) > 0},
	)
	if err != nil {
		return false, fmt.Errorf("store: insert webhook event %s: %w", eventID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: rows affected for event %s: %w", eventID, err)
	}
	return n == 1, nil
}
