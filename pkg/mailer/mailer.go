// Package mailer wraps outbound email. Sends are fire-and-forget at the
// call sites: failures are logged by the caller and never roll back the
// state transition that triggered them.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rockettradeline/tradeline-backend/pkg/config"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender is the outbound email surface consumed by the notify worker.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	adminTo string
}

// NewSendGrid builds a sender from configuration.
func NewSendGrid(cfg config.SendgridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendGridSender{
		client:  sendgrid.NewSendClient(cfg.APIKey),
		from:    mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		adminTo: cfg.AdminEmail,
	}, nil
}

// Send delivers one message. Non-2xx API responses surface as errors.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}
	to := mail.NewEmail("", msg.To)
	text := msg.TextBody
	if text == "" {
		text = msg.HTMLBody
	}
	email := mail.NewSingleEmail(s.from, msg.Subject, to, text, msg.HTMLBody)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// AdminAddress returns the configured operator alert recipient.
func (s *SendGridSender) AdminAddress() string {
	return s.adminTo
}
