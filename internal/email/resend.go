package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultResendEndpoint is the Resend send-email endpoint.
const DefaultResendEndpoint = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "noreply@example.com"
	fromName   string // e.g. "Fanculo automatico"
	endpoint   string
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
// An empty endpoint means DefaultResendEndpoint.
func NewResendClient(apiKey, fromAddr, fromName, endpoint string) Sender {
	if endpoint == "" {
		endpoint = DefaultResendEndpoint
	}
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendMessage renders the message into a small HTML email and sends it.
func (c *resendClient) SendMessage(ctx context.Context, p MessageParams) error {
	subject := "Hai ricevuto un messaggio"
	if p.ToName != "" {
		subject = fmt.Sprintf("%s, hai ricevuto un messaggio", p.ToName)
	}

	return c.send(ctx, p.To, subject, messageHTML(p), p.Message)
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	reqBody := resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── HTML TEMPLATE ────────────────────────────────────────────────────────────

// messageHTML escapes the user's text; line breaks are kept.
func messageHTML(p MessageParams) string {
	greeting := "Ciao"
	if p.ToName != "" {
		greeting = fmt.Sprintf("Ciao %s", html.EscapeString(p.ToName))
	}

	body := strings.ReplaceAll(html.EscapeString(p.Message), "\n", "<br>")

	footer := "Messaggio anonimo"
	if p.Signed {
		footer = "Messaggio firmato dal mittente"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <p>%s,</p>
  <p>qualcuno ha pagato per farti arrivare questo messaggio:</p>
  <blockquote style="border-left: 4px solid #0f172a; margin: 24px 0; padding: 8px 16px;">%s</blockquote>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">%s · Fanculo automatico</p>
</body>
</html>`, greeting, body, footer)
}
