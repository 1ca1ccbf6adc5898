package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/repository"
)

const analysisJSON = `{"summary":"Refund request","key_points":["order #123"],"category":"Support",
"priority":"High","sentiment":{"tone":"Urgent","confidence":0.9},"reply":"We are on it."}`

type fakeProvider struct {
	calls    atomic.Int32
	response string
	err      error
	delay    time.Duration
}

func (p *fakeProvider) Analyze(ctx context.Context, _ string) (string, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.err != nil {
		return "", p.err
	}
	if p.response == "" {
		return analysisJSON, nil
	}
	return p.response, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) SendConfirmation(_ context.Context, ticket domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, ticket.TicketNumber)
	return nil
}

type fixture struct {
	repo       *repository.MemoryTicketRepository
	provider   *fakeProvider
	sender     *fakeSender
	dispatcher events.Dispatcher
	svc        *TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       repository.NewMemoryTicketRepository(),
		provider:   &fakeProvider{},
		sender:     &fakeSender{},
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	notifications := NewNotificationService(NotificationDependencies{
		Sender:     f.sender,
		TicketRepo: f.repo,
		Dispatcher: f.dispatcher,
		Timeout:    time.Second,
	})
	notifications.RegisterHandlers()
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:    f.repo,
		Provider:      f.provider,
		Notifications: notifications,
		Dispatcher:    f.dispatcher,
		Config:        config.TicketConfig{SnippetLength: 200, DefaultPageSize: 20, MaxPageSize: 100},
	})
	return f
}

func email(subject, body string) domain.InboundEmail {
	return domain.InboundEmail{SenderEmail: "a@b.com", Subject: subject, Body: body}
}

func TestCreateThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := email("Refund", "Hi, I need a refund for order #123, please help urgently.")

	first, err := f.svc.Create(ctx, in, events.SourceAPI)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Outcome != OutcomeCreated || first.Ticket.TicketNumber != "TKT-000001" {
		t.Fatalf("first = %s %s", first.Outcome, first.Ticket.TicketNumber)
	}
	if first.Ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want open", first.Ticket.Status)
	}
	if first.Ticket.WordCount != 11 {
		t.Errorf("word count = %d, want 11", first.Ticket.WordCount)
	}
	if first.Ticket.Analysis.Category != domain.CategorySupport {
		t.Errorf("category = %s", first.Ticket.Analysis.Category)
	}

	second, err := f.svc.Create(ctx, in, events.SourceWebhook)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if second.Outcome != OutcomeDuplicate || second.Ticket.TicketNumber != "TKT-000001" {
		t.Errorf("second = %s %s", second.Outcome, second.Ticket.TicketNumber)
	}
	if calls := f.provider.calls.Load(); calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
	if len(f.sender.sent) != 1 {
		t.Errorf("confirmations sent = %d, want 1", len(f.sender.sent))
	}
}

func TestDuplicateIgnoresBodyBeyondPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("%0500d", 7)

	if _, err := f.svc.Create(ctx, email("s", prefix+" tail one"), events.SourceAPI); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Create(ctx, email("s", prefix+" tail two"), events.SourceAPI)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeDuplicate {
		t.Errorf("outcome = %s, want duplicate", res.Outcome)
	}
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := f.svc.Create(ctx, email(fmt.Sprintf("subject %d", i), "body"), events.SourceAPI)
		if err != nil {
			t.Fatal(err)
		}
		if want := domain.FormatTicketNumber(int64(i)); res.Ticket.TicketNumber != want {
			t.Errorf("ticket %d = %s, want %s", i, res.Ticket.TicketNumber, want)
		}
	}
}

func TestConcurrentCreatesDifferentEmails(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 20 * time.Millisecond
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, email("first", "first body"), events.SourceAPI); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	numbers := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Create(ctx, email(fmt.Sprintf("concurrent %d", i), fmt.Sprintf("body %d", i)), events.SourceAPI)
			errs[i] = err
			if err == nil {
				numbers[i] = res.Ticket.TicketNumber
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	got := map[string]bool{numbers[0]: true, numbers[1]: true}
	if !got["TKT-000002"] || !got["TKT-000003"] {
		t.Errorf("numbers = %v, want TKT-000002 and TKT-000003", numbers)
	}
}

func TestConcurrentCreatesSameEmail(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 20 * time.Millisecond
	ctx := context.Background()
	in := email("Refund", "same body")

	const callers = 8
	var (
		wg       sync.WaitGroup
		created  atomic.Int32
		numbers  sync.Map
		failures atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Create(ctx, in, events.SourceWebhook)
			if err != nil {
				failures.Add(1)
				return
			}
			if res.Outcome == OutcomeCreated {
				created.Add(1)
			}
			numbers.Store(res.Ticket.TicketNumber, true)
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d callers failed", failures.Load())
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
	if f.provider.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1", f.provider.calls.Load())
	}
	distinct := 0
	numbers.Range(func(any, any) bool { distinct++; return true })
	if distinct != 1 {
		t.Errorf("distinct ticket numbers = %d, want 1", distinct)
	}
}

func TestCreateAnalysisFailureStoresNothing(t *testing.T) {
	tests := []struct {
		name          string
		provider      *fakeProvider
		wantMalformed bool
	}{
		{"provider error", &fakeProvider{err: errors.New("connection refused")}, false},
		{"malformed response", &fakeProvider{response: "I cannot answer in JSON"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.provider = tt.provider
			ctx := context.Background()

			_, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
			var unavailable *domain.AnalysisUnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("Create() error = %v, want AnalysisUnavailableError", err)
			}
			var malformed *domain.MalformedAnalysisError
			if got := errors.As(err, &malformed); got != tt.wantMalformed {
				t.Errorf("malformed = %v, want %v", got, tt.wantMalformed)
			}

			page, _ := f.repo.List(ctx, domain.TicketFilter{})
			if page.Total != 0 {
				t.Errorf("tickets stored after failed analysis: %d", page.Total)
			}

			f.svc.provider = &fakeProvider{}
			res, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
			if err != nil {
				t.Fatal(err)
			}
			if res.Ticket.TicketNumber != "TKT-000001" {
				t.Errorf("number after failure = %s, want TKT-000001", res.Ticket.TicketNumber)
			}
		})
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), email("s", "   "), events.SourceAPI); !errors.Is(err, domain.ErrEmptyBody) {
		t.Errorf("empty body error = %v", err)
	}

	f.svc.provider = nil
	if f.svc.AnalysisConfigured() {
		t.Error("AnalysisConfigured() = true without provider")
	}
	if _, err := f.svc.Create(context.Background(), email("s", "b"), events.SourceAPI); !errors.Is(err, domain.ErrAnalysisNotConfigured) {
		t.Errorf("unconfigured error = %v", err)
	}
}

func TestCreateConfirmationOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
		if err != nil {
			t.Fatal(err)
		}
		if res.Ticket.ConfirmationStatus != domain.ConfirmationSent || res.Ticket.ConfirmationSent == nil {
			t.Errorf("confirmation = %s %v", res.Ticket.ConfirmationStatus, res.Ticket.ConfirmationSent)
		}
	})

	t.Run("failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.sender.err = errors.New("smtp down")
		res, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if res.Outcome != OutcomeCreated {
			t.Fatalf("outcome = %s", res.Outcome)
		}
		stored, _ := f.repo.GetByNumber(ctx, res.Ticket.TicketNumber)
		if stored.ConfirmationStatus != domain.ConfirmationFailed || stored.ConfirmationSent != nil {
			t.Errorf("stored confirmation = %s %v", stored.ConfirmationStatus, stored.ConfirmationSent)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		f.svc.notifications.sender = nil
		res, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
		if err != nil {
			t.Fatal(err)
		}
		if res.Ticket.ConfirmationStatus != domain.ConfirmationNotAttempted {
			t.Errorf("confirmation = %s", res.Ticket.ConfirmationStatus)
		}
	})
}

func TestCreateCancelledBeforeCommit(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI); err == nil {
		t.Fatal("expected error for cancelled create")
	}
	page, _ := f.repo.List(context.Background(), domain.TicketFilter{})
	if page.Total != 0 {
		t.Errorf("ticket visible after cancellation")
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI)
	if err != nil {
		t.Fatal(err)
	}
	number := res.Ticket.TicketNumber

	var changed []events.Event
	f.dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, e events.Event) error {
		changed = append(changed, e)
		return nil
	})

	_, err = f.svc.UpdateStatus(ctx, number, "archived")
	var invalid *domain.InvalidStatusError
	if !errors.As(err, &invalid) {
		t.Fatalf("UpdateStatus(archived) error = %v", err)
	}
	stored, _ := f.svc.Get(ctx, number)
	if stored.Status != domain.TicketStatusOpen {
		t.Errorf("status changed by invalid update: %s", stored.Status)
	}

	updated, err := f.svc.UpdateStatus(ctx, number, "in-progress")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s", updated.Status)
	}
	if len(changed) != 1 {
		t.Fatalf("status events = %d, want 1", len(changed))
	}
	payload := changed[0].Payload.(events.TicketStatusChangedPayload)
	if payload.OldStatus != domain.TicketStatusOpen || payload.NewStatus != domain.TicketStatusInProgress {
		t.Errorf("payload = %+v", payload)
	}

	if _, err := f.svc.UpdateStatus(ctx, "TKT-000404", "closed"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v", err)
	}
}

func TestDeleteNeverReusesNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Create(ctx, email(fmt.Sprintf("s%d", i), "b"), events.SourceAPI); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.svc.Delete(ctx, "TKT-000005"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, "TKT-000005"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	res, err := f.svc.Create(ctx, email("after delete", "b"), events.SourceAPI)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticket.TicketNumber != "TKT-000006" {
		t.Errorf("number = %s, want TKT-000006", res.Ticket.TicketNumber)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(ctx, email(fmt.Sprintf("s%d", i), "b"), events.SourceAPI); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.UpdateStatus(ctx, "TKT-000001", "closed"); err != nil {
		t.Fatal(err)
	}

	closed := domain.TicketStatusClosed
	page, err := f.svc.List(ctx, domain.TicketFilter{Status: &closed, Limit: 1, Offset: 0})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].TicketNumber != "TKT-000001" {
		t.Errorf("closed page = %+v", page)
	}

	open := domain.TicketStatusOpen
	page, _ = f.svc.List(ctx, domain.TicketFilter{Status: &open, Limit: 1, Offset: 5})
	if page.Total != 2 || len(page.Items) != 0 || page.Items == nil {
		t.Errorf("open page = total %d items %v", page.Total, page.Items)
	}
}

func TestPageBounds(t *testing.T) {
	f := newFixture(t)
	tests := []struct{ limit, offset, wantLimit, wantOffset int }{
		{0, 0, 20, 0},
		{500, -3, 100, 0},
		{10, 30, 10, 30},
	}
	for _, tt := range tests {
		l, o := f.svc.PageBounds(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("PageBounds(%d, %d) = %d, %d", tt.limit, tt.offset, l, o)
		}
	}
}

func TestTicketStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, email("s", "b"), events.SourceAPI); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.Stats(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stats.PeriodDays != 30 || stats.TotalTickets != 1 || stats.OpenTickets != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByPriority["High"] != 1 || len(stats.RecentActivity) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestKeyedLockHonoursContext(t *testing.T) {
	l := newKeyedLock()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() error = %v, want deadline exceeded", err)
	}

	other, err := l.Lock(context.Background(), "other")
	if err != nil {
		t.Fatal(err)
	}
	other()

	unlock()
	unlock()
	if len(l.entries) != 0 {
		t.Errorf("entries leaked: %d", len(l.entries))
	}
}
