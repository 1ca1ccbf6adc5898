package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

func newTicket(fingerprint string, category domain.Category) *domain.Ticket {
	return &domain.Ticket{
		SenderEmail:        "a@b.com",
		Subject:            "subject " + fingerprint,
		Body:               "body " + fingerprint,
		ContentFingerprint: fingerprint,
		Status:             domain.TicketStatusOpen,
		Analysis: domain.Analysis{
			Category:  category,
			Priority:  domain.PriorityMedium,
			KeyPoints: []string{"k"},
		},
		ConfirmationStatus: domain.ConfirmationNotAttempted,
	}
}

func TestMemoryTicketNumbersNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	for i, fp := range []string{"fp-1", "fp-2", "fp-3"} {
		ticket := newTicket(fp, domain.CategorySupport)
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("Create(%s) error = %v", fp, err)
		}
		if want := domain.FormatTicketNumber(int64(i + 1)); ticket.TicketNumber != want {
			t.Fatalf("ticket number = %s, want %s", ticket.TicketNumber, want)
		}
	}

	if err := repo.Delete(ctx, "TKT-000003"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	next := newTicket("fp-4", domain.CategorySupport)
	if err := repo.Create(ctx, next); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if next.TicketNumber != "TKT-000004" {
		t.Errorf("number after delete = %s, want TKT-000004", next.TicketNumber)
	}
}

func TestMemoryDuplicateFingerprintConsumesNoNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	if err := repo.Create(ctx, newTicket("same", domain.CategorySales)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, newTicket("same", domain.CategorySales)); !errors.Is(err, ErrDuplicateFingerprint) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateFingerprint", err)
	}
	other := newTicket("other", domain.CategorySales)
	if err := repo.Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	if other.TicketNumber != "TKT-000002" {
		t.Errorf("number = %s, want TKT-000002", other.TicketNumber)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := newTicket("fp", domain.CategoryHR)
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByNumber(ctx, ticket.TicketNumber)
	if err != nil {
		t.Fatal(err)
	}
	got.Analysis.KeyPoints[0] = "mutated"

	again, _ := repo.GetByFingerprint(ctx, "fp")
	if again.Analysis.KeyPoints[0] != "k" {
		t.Error("stored ticket was mutated through a returned copy")
	}
}

func TestMemoryListFilterAndTotal(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryTicketRepository().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	for _, fp := range []string{"a", "b", "c", "d"} {
		category := domain.CategorySupport
		if fp == "d" {
			category = domain.CategorySales
		}
		if err := repo.Create(ctx, newTicket(fp, category)); err != nil {
			t.Fatal(err)
		}
	}

	support := domain.CategorySupport
	page, err := repo.List(ctx, domain.TicketFilter{Category: &support, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
	if len(page.Items) != 2 || page.Items[0].TicketNumber != "TKT-000003" {
		t.Errorf("unexpected first page: %+v", page.Items)
	}

	page, _ = repo.List(ctx, domain.TicketFilter{Category: &support, Limit: 2, Offset: 2})
	if len(page.Items) != 1 || page.Items[0].TicketNumber != "TKT-000001" {
		t.Errorf("unexpected second page: %+v", page.Items)
	}

	page, _ = repo.List(ctx, domain.TicketFilter{Offset: 10})
	if page.Total != 4 || len(page.Items) != 0 {
		t.Errorf("offset past end: total=%d items=%d", page.Total, len(page.Items))
	}
}

func TestMemoryStatusAndConfirmation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := newTicket("fp", domain.CategoryGeneral)
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatal(err)
	}

	updated, err := repo.UpdateStatus(ctx, ticket.TicketNumber, domain.TicketStatusClosed)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s", updated.Status)
	}

	sent := time.Now()
	if err := repo.SetConfirmation(ctx, ticket.TicketNumber, domain.ConfirmationSent, &sent); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByNumber(ctx, ticket.TicketNumber)
	if got.ConfirmationStatus != domain.ConfirmationSent || got.ConfirmationSent == nil {
		t.Errorf("confirmation not recorded: %+v", got)
	}

	if _, err := repo.UpdateStatus(ctx, "TKT-999999", domain.TicketStatusOpen); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v", err)
	}
	if err := repo.Delete(ctx, "TKT-999999"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestMemoryTicketStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var at time.Time
	repo := NewMemoryTicketRepository().WithClock(func() time.Time { return at })

	for i, offset := range []time.Duration{0, -24 * time.Hour, -10 * 24 * time.Hour, -40 * 24 * time.Hour} {
		at = now.Add(offset)
		if err := repo.Create(ctx, newTicket(string(rune('a'+i)), domain.CategorySupport)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.UpdateStatus(ctx, "TKT-000004", domain.TicketStatusClosed); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.Stats(ctx, now.AddDate(0, 0, -30), now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTickets != 3 {
		t.Errorf("TotalTickets = %d, want 3", stats.TotalTickets)
	}
	if stats.OpenTickets != 3 {
		t.Errorf("OpenTickets = %d, want 3", stats.OpenTickets)
	}
	if stats.ByCategory["Support"] != 3 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if len(stats.RecentActivity) != 2 || stats.RecentActivity[0].Date != "2024-03-09" {
		t.Errorf("RecentActivity = %v", stats.RecentActivity)
	}
}

func TestMemoryAnalysisUpsertRefreshesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAnalysisRepository()

	first := &domain.AnalysisRecord{ContentFingerprint: "fp", Analysis: domain.Analysis{Summary: "v1"}, AnalyzedAt: time.Now()}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &domain.AnalysisRecord{ContentFingerprint: "fp", Analysis: domain.Analysis{Summary: "v2"}, AnalyzedAt: time.Now()}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}

	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Analysis.Summary != "v2" {
		t.Errorf("summary = %q, want v2", got.Analysis.Summary)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete error = %v", err)
	}
}

func TestKeyPointsScan(t *testing.T) {
	var k keyPoints
	if err := k.Scan([]byte(`["a","b"]`)); err != nil || len(k) != 2 {
		t.Fatalf("Scan([]byte) = %v, %v", k, err)
	}
	if err := k.Scan(`["c"]`); err != nil || k[0] != "c" {
		t.Fatalf("Scan(string) = %v, %v", k, err)
	}
	if err := k.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
	v, err := keyPoints(nil).Value()
	if err != nil || v != "[]" {
		t.Errorf("Value(nil) = %v, %v", v, err)
	}
}
