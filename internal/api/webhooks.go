package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nyashahama/ironic-mailer-backend/internal/email"
	"github.com/nyashahama/ironic-mailer-backend/internal/store"
	stripeinternal "github.com/nyashahama/ironic-mailer-backend/internal/stripe"
)

type webhookResponse struct {
	Received bool `json:"received"`
}

// ─── POST /api/stripe/webhook ─────────────────────────────────────────────────

// handleStripeWebhook is the entry point for all Stripe webhook deliveries.
//
// Once the signature checks out the handler always answers 200, whatever
// happens downstream: Stripe retries any other status, and a retried event
// would mean another attempt at the same email. Duplicate deliveries that do
// arrive are caught by the event ledger.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// The signature check must run against the exact bytes Stripe signed.
	r.Body = http.MaxBytesReader(w, r.Body, 65536) // 64 KB
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the Stripe-Signature header ─────────────────────────────────
	sig := r.Header.Get("Stripe-Signature")
	event, err := s.stripe.VerifyWebhook(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	// ── 3. Dispatch by event type ─────────────────────────────────────────────
	switch event.Type {
	case stripeinternal.EventCheckoutSessionCompleted:
		s.onCheckoutCompleted(r, event, payload)
	default:
		s.logger.Debug("webhook: unhandled event type", "type", event.Type, logField(r))
	}

	respond(w, http.StatusOK, webhookResponse{Received: true})
}

// ─── EVENT HANDLERS ───────────────────────────────────────────────────────────

// onCheckoutCompleted resolves the paid order and sends its message once.
// Every failure is logged; none changes the HTTP response.
func (s *Server) onCheckoutCompleted(r *http.Request, event stripeinternal.Event, payload []byte) {
	log := s.logger.With("event_id", event.ID, logField(r))

	// ── Idempotency: skip events we have already handled ─────────────────────
	first, err := s.ledger.Record(r.Context(), event.ID, event.Type, payload)
	switch {
	case err != nil:
		// Better a rare duplicate than a paid message that never goes out.
		log.Warn("webhook: event ledger unavailable, processing anyway", "error", err)
	case !first:
		log.Info("webhook: duplicate event, skipping")
		return
	}

	cs, err := stripeinternal.ExtractCheckoutSession(event)
	if err != nil {
		log.Error("webhook: malformed checkout session", "error", err)
		return
	}
	log = log.With("session_id", cs.ID)

	if cs.PaymentStatus == "unpaid" {
		log.Warn("webhook: checkout completed without payment, not sending")
		return
	}

	intent, err := s.resolveIntent(r, cs)
	if errors.Is(err, store.ErrOrderNotFound) {
		log.Warn("webhook: no pending order for session", "order_id", cs.Metadata[stripeinternal.MetaOrderID])
		return
	}
	if err != nil {
		log.Error("webhook: resolve order", "error", err)
		return
	}

	if intent.Email == "" || intent.Message == "" {
		log.Warn("webhook: incomplete order metadata",
			"has_email", intent.Email != "",
			"has_message", intent.Message != "",
		)
		return
	}

	sendErr := s.mailer.SendMessage(r.Context(), email.MessageParams{
		To:      intent.Email,
		ToName:  s.cfg.EmailToName,
		Message: intent.Message,
		Signed:  intent.Signed,
	})
	if sendErr == nil {
		log.Info("webhook: message delivered")
	}
	s.logAndIgnoreEmailErr(r, sendErr, "send paid message")
}

// resolveIntent finds the order behind a completed session: from the order
// store when the metadata carries an order id, otherwise from the metadata.
func (s *Server) resolveIntent(r *http.Request, cs stripeinternal.CompletedSession) (store.Intent, error) {
	orderID := cs.Metadata[stripeinternal.MetaOrderID]
	if orderID == "" {
		return stripeinternal.IntentFromMetadata(cs.Metadata), nil
	}

	intent, err := s.orders.Take(r.Context(), orderID)
	if err != nil {
		return store.Intent{}, fmt.Errorf("take order %s: %w", orderID, err)
	}
	return intent, nil
}
