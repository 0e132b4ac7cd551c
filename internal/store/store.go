// Package store holds the transient state the HTTP layer needs between the
// checkout request and the Stripe webhook: pending Order Intents (store mode
// only) and the ledger of webhook events that were already handled.
//
// Nothing here is durable order storage. Every backend bounds how long an
// intent lives, so an unpaid checkout simply expires.
//
// Dependency rule: store imports no other internal package.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Intent is a message waiting for payment confirmation.
type Intent struct {
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Signed    bool      `json:"signed"`
	Custom    bool      `json:"custom"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrOrderNotFound is returned by Take when the id is unknown, was already
// taken, or expired.
var ErrOrderNotFound = errors.New("store: order not found")

// ─── INTERFACES ──────────────────────────────────────────────────────────────

// OrderStore keeps Order Intents keyed by an opaque order id.
// Implementations must be safe for concurrent use.
type OrderStore interface {
	// Put stores the intent under id, replacing any previous value.
	Put(ctx context.Context, id string, intent Intent) error

	// Take returns the intent and removes it, so a second Take for the same
	// id returns ErrOrderNotFound.
	Take(ctx context.Context, id string) (Intent, error)

	// Delete removes the intent if present. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// EventLedger remembers which webhook events have been handled.
// Implementations must be safe for concurrent use.
type EventLedger interface {
	// Record marks eventID as seen. first is false when the id was already
	// recorded, in which case the caller should not act on the event again.
	Record(ctx context.Context, eventID, eventType string, payload json.RawMessage) (first bool, err error)
}
