package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/repository"
)

// ConfirmationSender delivers a confirmation message for a created ticket.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, ticket domain.Ticket) error
}

// NotificationService sends confirmation emails and reacts to ticket events.
type NotificationService struct {
	sender     ConfirmationSender
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	// Sender may be nil when SMTP is not configured; confirmations are then not attempted.
	Sender     ConfirmationSender
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		sender:     deps.Sender,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		timeout:    deps.Timeout,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketDuplicate, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketEvent)
}

func (n *NotificationService) handleTicketEvent(_ context.Context, event events.Event) error {
	n.metrics.RecordTicketEvent(string(event.Type))
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))
	return nil
}

// Confirm sends the confirmation email for ticket and records the outcome on it. Failures
// are logged and never returned: the ticket is already committed.
func (n *NotificationService) Confirm(ctx context.Context, ticket *domain.Ticket) {
	if n.sender == nil {
		ticket.ConfirmationStatus = domain.ConfirmationNotAttempted
		n.metrics.RecordNotification(string(domain.ConfirmationNotAttempted))
		return
	}

	// the caller may already be gone; the send gets its own deadline
	ctx = context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	status := domain.ConfirmationSent
	var sentAt *time.Time
	if err := n.sender.SendConfirmation(ctx, *ticket); err != nil {
		status = domain.ConfirmationFailed
		n.logger.Warn("confirmation email failed",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("recipient", ticket.SenderEmail),
			zap.Error(err))
	} else {
		at := n.now().UTC()
		sentAt = &at
	}
	n.metrics.RecordNotification(string(status))

	if err := n.tickets.SetConfirmation(ctx, ticket.TicketNumber, status, sentAt); err != nil {
		n.logger.Warn("recording confirmation outcome failed",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("confirmation_status", string(status)),
			zap.Error(err))
		return
	}
	ticket.ConfirmationStatus = status
	ticket.ConfirmationSent = sentAt
}
