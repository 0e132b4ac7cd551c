// Package email defines the interface for transactional email delivery and
// provides EmailJS- and Resend-backed implementations.
package email

import "context"

// MessageParams holds the data for one paid message delivery.
type MessageParams struct {
	To      string // recipient email address
	ToName  string // display name used by the template, e.g. "Utente"
	Message string // the user's text, delivered verbatim
	Signed  bool   // the sender chose to sign the message
}

// Sender is the interface the webhook handler uses to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendMessage delivers the paid message. It makes exactly one attempt;
	// callers decide what a failure means.
	SendMessage(ctx context.Context, p MessageParams) error
}
