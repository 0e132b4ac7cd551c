package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/ironic-mailer-backend/internal/store"
	stripeinternal "github.com/nyashahama/ironic-mailer-backend/internal/stripe"
)

// ─── POST /api/stripe/create-session ─────────────────────────────────────────

type createSessionRequest struct {
	Email    string `json:"email"`
	Template string `json:"template"` // the message body, delivered verbatim
	Signed   truthy `json:"signed"`
	Custom   truthy `json:"custom"`
}

type createSessionResponse struct {
	// SessionID is the Checkout Session id, usable with Stripe.js
	// redirectToCheckout.
	SessionID string `json:"sessionId"`
	// URL is the hosted payment page. Newer clients redirect here directly.
	URL string `json:"url,omitempty"`
}

// handleCreateSession opens a hosted Checkout session for one message.
//
// In metadata mode the whole order rides in the session metadata. In store
// mode it is kept server-side under a random order id and only that id is
// sent to Stripe, so the message never shows up in the Stripe dashboard.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Template == "" {
		respondErr(w, http.StatusBadRequest, "missing data: email or template")
		return
	}

	intent := store.Intent{
		Email:     req.Email,
		Message:   req.Template,
		Signed:    bool(req.Signed),
		Custom:    bool(req.Custom),
		CreatedAt: time.Now().UTC(),
	}

	var (
		meta    map[string]string
		orderID string
		err     error
	)

	switch s.cfg.OrderMode {
	case OrderModeStore:
		orderID = uuid.NewString()
		if err := s.orders.Put(r.Context(), orderID, intent); err != nil {
			s.respondInternalErr(w, r, fmt.Errorf("store order: %w", err))
			return
		}
		meta = map[string]string{stripeinternal.MetaOrderID: orderID}
	default:
		meta, err = stripeinternal.IntentMetadata(intent)
		if err != nil {
			respondErr(w, http.StatusBadRequest,
				fmt.Sprintf("message too long: at most %d characters", stripeinternal.MaxMetadataValueLen))
			return
		}
	}

	base := s.baseURL(r)
	cs, err := s.stripe.CreateCheckoutSession(r.Context(), stripeinternal.CheckoutSessionParams{
		AmountMinor:        s.priceFor(intent.Custom),
		Currency:           s.cfg.Currency,
		ProductName:        s.cfg.ProductName,
		ProductDescription: s.cfg.ProductDescription,
		SuccessURL:         base + "/success?success=1",
		CancelURL:          base + "/cancel",
		Metadata:           meta,
	})
	if err != nil {
		if orderID != "" {
			// The order can never be paid; don't let it wait for its TTL.
			if delErr := s.orders.Delete(r.Context(), orderID); delErr != nil {
				s.logger.Warn("create session: failed to drop orphan order",
					"order_id", orderID,
					"error", delErr,
					logField(r),
				)
			}
		}
		s.respondInternalErr(w, r, fmt.Errorf("create checkout session: %w", err))
		return
	}

	s.logger.Info("checkout session created",
		"session_id", cs.ID,
		"order_id", orderID,
		"mode", s.cfg.OrderMode,
		"message_len", len(intent.Message),
		"signed", intent.Signed,
		"custom", intent.Custom,
		logField(r),
	)

	respond(w, http.StatusOK, createSessionResponse{
		SessionID: cs.ID,
		URL:       cs.URL,
	})
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func (s *Server) priceFor(custom bool) int64 {
	if custom {
		return s.cfg.PriceCustom
	}
	return s.cfg.PriceTemplate
}

// baseURL returns cfg.BaseURL, or scheme://host of the request when unset.
// X-Forwarded-Proto is honoured because the service usually runs behind a
// TLS-terminating proxy.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	return scheme + "://" + r.Host
}

// truthy decodes a flag the way a JavaScript client's !!value would:
// false, null, 0 and "" are false; any other string, number, array or
// object is true. Browser forms often send the flags as strings or numbers.
type truthy bool

func (t *truthy) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = false
		return nil
	}
	switch data[0] {
	case 'n', 'f':
		*t = false
	case 't', '[', '{':
		*t = true
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*t = str != ""
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("flag must be a boolean, string or number: %w", err)
		}
		*t = n != 0
	}
	return nil
}
