package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// EmailSender sends transactional mail. Implementations can be swapped
// without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string // optional HTML body
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a SendGrid sender, or nil when no API key is set.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Doctor K Therapy"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	var message *mail.SGMailV3
	if msg.HTML != "" {
		message = mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.HTML)
	} else {
		message = mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// StubEmailSender logs instead of sending. Used in tests and when email is
// not configured.
type StubEmailSender struct {
	logger *logging.Logger
	Sent   []EmailMessage
}

// NewStubEmailSender creates a stub sender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send records the message and logs it.
func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.Sent = append(s.Sent, msg)
	s.logger.Info("email suppressed (stub sender)", "to", msg.To, "subject", msg.Subject)
	return nil
}
