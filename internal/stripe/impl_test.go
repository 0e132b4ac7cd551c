package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string, secret string, ts time.Time) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Header, signed.Payload
}

const completedEvent = `{
  "id": "evt_test_completed",
  "object": "event",
  "api_version": "2020-08-27",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_123",
      "object": "checkout.session",
      "payment_status": "paid",
      "metadata": {"email": "friend@example.com", "msg_template": "Ciao!"}
    }
  }
}`

// ─── VerifyWebhook ────────────────────────────────────────────────────────────

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	c := NewClient("sk_test_unused")
	header, payload := signedPayload(t, completedEvent, testWebhookSecret, time.Now())

	ev, err := c.VerifyWebhook(payload, header, testWebhookSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "evt_test_completed" {
		t.Errorf("id: got %q", ev.ID)
	}
	if ev.Type != EventCheckoutSessionCompleted {
		t.Errorf("type: got %q", ev.Type)
	}

	cs, err := ExtractCheckoutSession(ev)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if cs.Metadata[MetaEmail] != "friend@example.com" {
		t.Errorf("metadata email: got %q", cs.Metadata[MetaEmail])
	}
}

func TestVerifyWebhook_WrongSecret(t *testing.T) {
	c := NewClient("sk_test_unused")
	header, payload := signedPayload(t, completedEvent, "whsec_attacker", time.Now())

	if _, err := c.VerifyWebhook(payload, header, testWebhookSecret); err == nil {
		t.Fatal("expected error for payload signed with another secret")
	}
}

func TestVerifyWebhook_TamperedPayload(t *testing.T) {
	c := NewClient("sk_test_unused")
	header, _ := signedPayload(t, completedEvent, testWebhookSecret, time.Now())
	tampered := []byte(`{"id":"evt_forged","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_x"}}}`)

	if _, err := c.VerifyWebhook(tampered, header, testWebhookSecret); err == nil {
		t.Fatal("expected error for tampered payload")
	}
}

func TestVerifyWebhook_ExpiredTimestamp(t *testing.T) {
	c := NewClient("sk_test_unused")
	header, payload := signedPayload(t, completedEvent, testWebhookSecret, time.Now().Add(-time.Hour))

	if _, err := c.VerifyWebhook(payload, header, testWebhookSecret); err == nil {
		t.Fatal("expected error for signature outside the tolerance window")
	}
}

func TestVerifyWebhook_MissingHeader(t *testing.T) {
	c := NewClient("sk_test_unused")

	if _, err := c.VerifyWebhook([]byte(completedEvent), "", testWebhookSecret); err == nil {
		t.Fatal("expected error for missing signature header")
	}
}

// ─── CreateCheckoutSession ────────────────────────────────────────────────────

// useFakeStripe points the SDK's API backend at srv for the duration of the test.
func useFakeStripe(t *testing.T, srv *httptest.Server) {
	t.Helper()
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	}))
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, nil) })
}

func TestCreateCheckoutSession_SendsLineItemAndMetadata(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.Error(w, `{"error":{"message":"unexpected route"}}`, http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_fake","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_fake"}`))
	}))
	defer srv.Close()
	useFakeStripe(t, srv)

	c := NewClient("sk_test_fake")
	cs, err := c.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		AmountMinor:        99,
		Currency:           "eur",
		ProductName:        "Fanculo automatico",
		ProductDescription: "Invia un messaggio ironico via email!",
		SuccessURL:         "http://localhost:3000/success?success=1",
		CancelURL:          "http://localhost:3000/cancel",
		Metadata: map[string]string{
			MetaEmail:   "friend@example.com",
			MetaMessage: "Ciao!",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.ID != "cs_test_fake" {
		t.Errorf("id: got %q", cs.ID)
	}
	if cs.URL == "" {
		t.Error("expected hosted page URL")
	}

	want := map[string]string{
		"mode":                                          "payment",
		"payment_method_types[0]":                       "card",
		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][currency]":           "eur",
		"line_items[0][price_data][unit_amount]":        "99",
		"line_items[0][price_data][product_data][name]": "Fanculo automatico",
		"success_url":                                   "http://localhost:3000/success?success=1",
		"cancel_url":                                    "http://localhost:3000/cancel",
		"metadata[email]":                               "friend@example.com",
		"metadata[msg_template]":                        "Ciao!",
	}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form %s: got %q, want %q", k, form[k], v)
		}
	}
}

func TestCreateCheckoutSession_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	}))
	defer srv.Close()
	useFakeStripe(t, srv)

	c := NewClient("sk_test_fake")
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		AmountMinor: 99,
		Currency:    "xxx",
		ProductName: "Fanculo automatico",
	})
	if err == nil {
		t.Fatal("expected error from provider")
	}
}
