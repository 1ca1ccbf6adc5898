package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// ErrNoRecipient is returned for tickets without a sender address.
var ErrNoRecipient = errors.New("ticket has no sender address")

// SMTPMailer delivers confirmation emails over SMTP with STARTTLS and LOGIN auth.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer builds a mailer. Callers check cfg.Enabled first.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendConfirmation renders and sends the confirmation email for ticket.
func (m *SMTPMailer) SendConfirmation(ctx context.Context, ticket domain.Ticket) error {
	if ticket.SenderEmail == "" {
		return ErrNoRecipient
	}

	confirmation, err := BuildConfirmation(ticket)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(confirmation.To); err != nil {
		return fmt.Errorf("set recipient %s: %w", confirmation.To, err)
	}
	msg.Subject(confirmation.Subject)
	msg.SetBodyString(mail.TypeTextPlain, confirmation.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, confirmation.HTML)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if timeout := m.cfg.Timeout(); timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", ticket.TicketNumber, err)
	}

	m.logger.Info("confirmation email sent",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("recipient", confirmation.To))
	return nil
}
