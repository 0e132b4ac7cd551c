package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEmailJSEndpoint is the EmailJS REST send endpoint.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig holds the credentials and template of an EmailJS account.
type EmailJSConfig struct {
	PublicKey  string
	PrivateKey string
	ServiceID  string
	TemplateID string

	// Endpoint overrides DefaultEmailJSEndpoint (tests).
	Endpoint string
}

// emailJSClient is the concrete Sender backed by the EmailJS REST API.
type emailJSClient struct {
	cfg        EmailJSConfig
	httpClient *http.Client
}

// NewEmailJSClient returns a Sender that delivers email via EmailJS.
func NewEmailJSClient(cfg EmailJSConfig) Sender {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailJSEndpoint
	}
	return &emailJSClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── EMAILJS API SHAPES ───────────────────────────────────────────────────────

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendMessage fills the template variables email, to_name and msg_template.
func (c *emailJSClient) SendMessage(ctx context.Context, p MessageParams) error {
	reqBody := emailJSRequest{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"email":        p.To,
			"to_name":      p.ToName,
			"msg_template": p.Message,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	// EmailJS answers with plain text: "OK" on success, a reason otherwise.
	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: EmailJS status %d: %.200s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	return nil
}
