package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/analysis"
	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/repository"
)

// CreateOutcome tells a fresh ticket apart from a fingerprint hit.
type CreateOutcome string

const (
	OutcomeCreated   CreateOutcome = "created"
	OutcomeDuplicate CreateOutcome = "duplicate"
)

// CreateResult is the outcome of TicketService.Create.
type CreateResult struct {
	Outcome CreateOutcome
	Ticket  *domain.Ticket
}

// TicketService owns the ticket lifecycle: dedup, analysis, numbering, status and deletion.
type TicketService struct {
	tickets       repository.TicketRepository
	provider      analysis.Provider
	notifications *NotificationService
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	cfg           config.TicketConfig
	locks         *keyedLock
	now           func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	// Provider is nil when analysis is not configured; Create then fails with ErrAnalysisNotConfigured.
	Provider      analysis.Provider
	Notifications *NotificationService
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Config        config.TicketConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = 200
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		provider:      deps.Provider,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		cfg:           cfg,
		locks:         newKeyedLock(),
		now:           time.Now,
	}
}

// AnalysisConfigured reports whether tickets can be created.
func (s *TicketService) AnalysisConfigured() bool {
	return s.provider != nil
}

// Create turns an inbound email into a ticket, or returns the ticket that already holds its
// fingerprint. Analysis runs before a number is allocated; if it fails nothing is stored.
func (s *TicketService) Create(ctx context.Context, email domain.InboundEmail, source events.Source) (*CreateResult, error) {
	if strings.TrimSpace(email.Body) == "" {
		return nil, domain.ErrEmptyBody
	}

	fingerprint := domain.Fingerprint(email.Body, &email.SenderEmail, &email.Subject)
	logger := s.logger.With(
		zap.String("fingerprint", fingerprint),
		zap.String("sender", email.SenderEmail),
		zap.String("source", string(source)))

	unlock, err := s.locks.Lock(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.tickets.GetByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		return s.duplicate(ctx, existing, logger), nil
	case !errors.Is(err, domain.ErrNotFound):
		s.metrics.RecordTicketOutcome("failed")
		return nil, err
	}

	result, err := s.analyze(ctx, email.Body)
	if err != nil {
		s.metrics.RecordTicketOutcome("failed")
		logger.Warn("ticket analysis failed", zap.Error(err))
		return nil, err
	}

	ticket := &domain.Ticket{
		SenderEmail:        email.SenderEmail,
		SenderName:         email.SenderName,
		Subject:            email.Subject,
		Body:               email.Body,
		ContentFingerprint: fingerprint,
		Status:             domain.TicketStatusOpen,
		Analysis:           result,
		WordCount:          domain.WordCount(email.Body),
		EmailSnippet:       domain.Snippet(email.Body, s.cfg.SnippetLength),
		ConfirmationStatus: domain.ConfirmationNotAttempted,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateFingerprint) {
			// another process won the insert
			winner, getErr := s.tickets.GetByFingerprint(ctx, fingerprint)
			if getErr != nil {
				s.metrics.RecordTicketOutcome("failed")
				return nil, getErr
			}
			return s.duplicate(ctx, winner, logger), nil
		}
		s.metrics.RecordTicketOutcome("failed")
		logger.Error("ticket persist failed", zap.Error(err))
		return nil, err
	}
	unlock()

	s.metrics.RecordTicketOutcome(string(OutcomeCreated))
	logger.Info("ticket created",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("category", string(ticket.Analysis.Category)),
		zap.String("priority", string(ticket.Analysis.Priority)))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.TicketNumber, events.TicketCreatedPayload{
		SenderEmail: ticket.SenderEmail,
		Category:    ticket.Analysis.Category,
		Priority:    ticket.Analysis.Priority,
		Subject:     ticket.Subject,
	}))

	if s.notifications != nil {
		s.notifications.Confirm(ctx, ticket)
	}

	return &CreateResult{Outcome: OutcomeCreated, Ticket: ticket}, nil
}

func (s *TicketService) duplicate(ctx context.Context, existing *domain.Ticket, logger *zap.Logger) *CreateResult {
	s.metrics.RecordTicketOutcome(string(OutcomeDuplicate))
	logger.Info("duplicate email, returning existing ticket", zap.String("ticket_number", existing.TicketNumber))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketDuplicate, existing.TicketNumber, nil))
	return &CreateResult{Outcome: OutcomeDuplicate, Ticket: existing}
}

func (s *TicketService) analyze(ctx context.Context, body string) (domain.Analysis, error) {
	if s.provider == nil {
		return domain.Analysis{}, domain.ErrAnalysisNotConfigured
	}

	start := time.Now()
	raw, err := s.provider.Analyze(ctx, body)
	if err != nil {
		s.metrics.RecordAnalysisCall("error", time.Since(start))
		return domain.Analysis{}, &domain.AnalysisUnavailableError{Err: err}
	}
	result, err := analysis.Parse(raw)
	if err != nil {
		s.metrics.RecordAnalysisCall("malformed", time.Since(start))
		return domain.Analysis{}, &domain.AnalysisUnavailableError{Err: err}
	}
	s.metrics.RecordAnalysisCall("ok", time.Since(start))
	return result, nil
}

// Get returns a ticket by number.
func (s *TicketService) Get(ctx context.Context, number string) (*domain.Ticket, error) {
	return s.tickets.GetByNumber(ctx, number)
}

// UpdateStatus validates rawStatus and applies it. Invalid values leave the ticket untouched.
func (s *TicketService) UpdateStatus(ctx context.Context, number, rawStatus string) (*domain.Ticket, error) {
	status, err := domain.ParseTicketStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	current, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	updated, err := s.tickets.UpdateStatus(ctx, number, status)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, number, events.TicketStatusChangedPayload{
		OldStatus: current.Status,
		NewStatus: updated.Status,
	}))
	return updated, nil
}

// Delete permanently removes a ticket. Its number is never handed out again.
func (s *TicketService) Delete(ctx context.Context, number string) error {
	if err := s.tickets.Delete(ctx, number); err != nil {
		return err
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketDeleted, number, nil))
	return nil
}

// List returns one page of tickets matching every filter, newest first.
func (s *TicketService) List(ctx context.Context, filter domain.TicketFilter) (domain.TicketPage, error) {
	filter.Limit, filter.Offset = s.pageBounds(filter.Limit, filter.Offset)
	page, err := s.tickets.List(ctx, filter)
	if err != nil {
		return page, err
	}
	if page.Items == nil {
		page.Items = []domain.Ticket{}
	}
	return page, nil
}

// PageBounds clamps a requested page to the configured sizes.
func (s *TicketService) PageBounds(limit, offset int) (int, int) {
	return s.pageBounds(limit, offset)
}

func (s *TicketService) pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Stats aggregates tickets created in the trailing window of days, plus the last week of activity.
func (s *TicketService) Stats(ctx context.Context, days int) (domain.TicketStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	now := s.now().UTC()
	stats, err := s.tickets.Stats(ctx, now.AddDate(0, 0, -days), now.AddDate(0, 0, -activityDays))
	if err != nil {
		return stats, err
	}
	stats.PeriodDays = days
	if stats.RecentActivity == nil {
		stats.RecentActivity = []domain.DailyCount{}
	}
	return stats, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

const (
	defaultStatsDays = 30
	activityDays     = 7
)
