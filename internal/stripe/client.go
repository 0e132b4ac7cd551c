// Package stripe defines the interface for Stripe API calls and webhook
// verification, and provides helpers used by the api package.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/nyashahama/ironic-mailer-backend/internal/store"
)

// ─── METADATA KEYS ────────────────────────────────────────────────────────────

// Keys written to Checkout session metadata. The names match what earlier
// deployments wrote, so sessions created before an upgrade still resolve.
const (
	MetaEmail   = "email"
	MetaMessage = "msg_template"
	MetaSigned  = "signed"
	MetaCustom  = "custom"
	MetaOrderID = "order_id"
)

// MaxMetadataValueLen is Stripe's limit on a single metadata value, in characters.
const MaxMetadataValueLen = 500

// EventCheckoutSessionCompleted is the only event type the webhook acts on.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CheckoutSessionParams holds the inputs for creating a hosted Checkout session
// with a single line item.
type CheckoutSessionParams struct {
	AmountMinor        int64
	Currency           string
	ProductName        string
	ProductDescription string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// CheckoutSession is the subset of a Stripe Checkout Session that callers need.
type CheckoutSession struct {
	ID  string
	URL string // hosted payment page; empty for embedded sessions
}

// Event is a parsed Stripe webhook event. DataRaw contains the raw JSON of the
// event's data.object so handlers can unmarshal only what they need.
type Event struct {
	ID      string
	Type    string
	DataRaw json.RawMessage
}

// CompletedSession is the part of a checkout.session.completed payload the
// webhook reads.
type CompletedSession struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the api package uses for all Stripe calls.
// The concrete implementation wraps the official stripe-go SDK.
// Tests inject a stub.
type Client interface {
	// CreateCheckoutSession creates a hosted payment page for one item.
	CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (CheckoutSession, error)

	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event. Returns an error if the signature is invalid or expired.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── HELPERS USED BY api/ ────────────────────────────────────────────────────

// ExtractCheckoutSession decodes the Checkout Session carried by a
// checkout.session.* event.
func ExtractCheckoutSession(event Event) (CompletedSession, error) {
	var cs CompletedSession
	if err := json.Unmarshal(event.DataRaw, &cs); err != nil {
		return CompletedSession{}, fmt.Errorf("stripe: unmarshal checkout session: %w", err)
	}
	if cs.ID == "" {
		return CompletedSession{}, fmt.Errorf("stripe: checkout session id is empty in event %s", event.ID)
	}
	return cs, nil
}

// IntentMetadata encodes a whole Order Intent as Checkout metadata.
// It fails when the message does not fit in a metadata value.
func IntentMetadata(intent store.Intent) (map[string]string, error) {
	if n := utf8.RuneCountInString(intent.Message); n > MaxMetadataValueLen {
		return nil, fmt.Errorf("stripe: message is %d characters, metadata allows %d", n, MaxMetadataValueLen)
	}
	if n := utf8.RuneCountInString(intent.Email); n > MaxMetadataValueLen {
		return nil, fmt.Errorf("stripe: email is %d characters, metadata allows %d", n, MaxMetadataValueLen)
	}
	return map[string]string{
		MetaEmail:   intent.Email,
		MetaMessage: intent.Message,
		MetaSigned:  strconv.FormatBool(intent.Signed),
		MetaCustom:  strconv.FormatBool(intent.Custom),
	}, nil
}

// IntentFromMetadata is the inverse of IntentMetadata. Missing flags decode as false.
func IntentFromMetadata(meta map[string]string) store.Intent {
	signed, _ := strconv.ParseBool(meta[MetaSigned])
	custom, _ := strconv.ParseBool(meta[MetaCustom])
	return store.Intent{
		Email:   meta[MetaEmail],
		Message: meta[MetaMessage],
		Signed:  signed,
		Custom:  custom,
	}
}
