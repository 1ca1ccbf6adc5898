package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It backs development runs without
// a database and the service tests, with the same numbering and dedup rules as Postgres.
type MemoryTicketRepository struct {
	mu            sync.RWMutex
	tickets       map[string]domain.Ticket
	byFingerprint map[string]string
	highWater     string
	now           func() time.Time
}

// NewMemoryTicketRepository creates an empty in-memory ticket store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets:       make(map[string]domain.Ticket),
		byFingerprint: make(map[string]string),
		now:           time.Now,
	}
}

// WithClock overrides the timestamp source.
func (r *MemoryTicketRepository) WithClock(now func() time.Time) *MemoryTicketRepository {
	r.now = now
	return r
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return persistenceErr("create ticket", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byFingerprint[ticket.ContentFingerprint]; ok {
		return ErrDuplicateFingerprint
	}

	number, err := domain.NextTicketNumber(r.highWater)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	stored := cloneTicket(*ticket)
	stored.TicketNumber = number
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.tickets[number] = stored
	r.byFingerprint[stored.ContentFingerprint] = number
	r.highWater = number

	ticket.TicketNumber = number
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (r *MemoryTicketRepository) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *MemoryTicketRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Ticket, error) {
	r.mu.RLock()
	number, ok := r.byFingerprint[fingerprint]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByNumber(ctx, number)
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, number string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	ticket.Status = status
	ticket.UpdatedAt = r.now().UTC()
	r.tickets[number] = ticket

	out := cloneTicket(ticket)
	return &out, nil
}

func (r *MemoryTicketRepository) SetConfirmation(_ context.Context, number string, status domain.ConfirmationStatus, sentAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[number]
	if !ok {
		return domain.ErrNotFound
	}
	ticket.ConfirmationStatus = status
	ticket.ConfirmationSent = sentAt
	ticket.UpdatedAt = r.now().UTC()
	r.tickets[number] = ticket
	return nil
}

// Delete removes the ticket. The high-water mark is left alone so numbers are never reused.
func (r *MemoryTicketRepository) Delete(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[number]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.tickets, number)
	delete(r.byFingerprint, ticket.ContentFingerprint)
	return nil
}

func (r *MemoryTicketRepository) List(_ context.Context, filter domain.TicketFilter) (domain.TicketPage, error) {
	r.mu.RLock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if ticketMatches(ticket, filter) {
			matched = append(matched, ticket)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TicketNumber > matched[j].TicketNumber
	})

	page := domain.TicketPage{Total: len(matched)}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	for _, ticket := range window(matched, limit, offset) {
		page.Items = append(page.Items, cloneTicket(ticket))
	}
	return page, nil
}

func (r *MemoryTicketRepository) Stats(_ context.Context, since, activitySince time.Time) (domain.TicketStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.TicketStats{
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
		ByPriority: map[string]int{},
	}
	daily := map[string]int{}
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusOpen {
			stats.OpenTickets++
		}
		if !ticket.CreatedAt.Before(since) {
			stats.TotalTickets++
			stats.ByStatus[string(ticket.Status)]++
			stats.ByCategory[string(ticket.Analysis.Category)]++
			stats.ByPriority[string(ticket.Analysis.Priority)]++
		}
		if !ticket.CreatedAt.Before(activitySince) {
			daily[ticket.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	stats.RecentActivity = dailyCounts(daily)
	return stats, nil
}

func ticketMatches(t domain.Ticket, f domain.TicketFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Category != nil && t.Analysis.Category != *f.Category {
		return false
	}
	if f.Priority != nil && t.Analysis.Priority != *f.Priority {
		return false
	}
	return true
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Analysis.KeyPoints = append([]string(nil), t.Analysis.KeyPoints...)
	if t.SenderName != nil {
		name := *t.SenderName
		t.SenderName = &name
	}
	if t.ConfirmationSent != nil {
		sent := *t.ConfirmationSent
		t.ConfirmationSent = &sent
	}
	return t
}

// MemoryAnalysisRepository keeps analysis records in process memory.
type MemoryAnalysisRepository struct {
	mu            sync.RWMutex
	records       map[int64]domain.AnalysisRecord
	byFingerprint map[string]int64
	nextID        int64
}

// NewMemoryAnalysisRepository creates an empty in-memory analysis store.
func NewMemoryAnalysisRepository() *MemoryAnalysisRepository {
	return &MemoryAnalysisRepository{
		records:       make(map[int64]domain.AnalysisRecord),
		byFingerprint: make(map[string]int64),
	}
}

func (r *MemoryAnalysisRepository) Upsert(_ context.Context, record *domain.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byFingerprint[record.ContentFingerprint]
	if !ok {
		r.nextID++
		id = r.nextID
		r.byFingerprint[record.ContentFingerprint] = id
	}
	record.ID = id

	stored := *record
	stored.Analysis.KeyPoints = append([]string(nil), record.Analysis.KeyPoints...)
	r.records[id] = stored
	return nil
}

func (r *MemoryAnalysisRepository) Get(_ context.Context, id int64) (*domain.AnalysisRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Analysis.KeyPoints = append([]string(nil), rec.Analysis.KeyPoints...)
	return &rec, nil
}

func (r *MemoryAnalysisRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	delete(r.byFingerprint, rec.ContentFingerprint)
	return nil
}

func (r *MemoryAnalysisRepository) List(_ context.Context, filter domain.AnalysisFilter) (domain.AnalysisPage, error) {
	r.mu.RLock()
	matched := make([]domain.AnalysisRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Category != nil && rec.Analysis.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && rec.Analysis.Priority != *filter.Priority {
			continue
		}
		matched = append(matched, rec)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].AnalyzedAt.Equal(matched[j].AnalyzedAt) {
			return matched[i].AnalyzedAt.After(matched[j].AnalyzedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := domain.AnalysisPage{Total: len(matched)}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	page.Items = append(page.Items, window(matched, limit, offset)...)
	return page, nil
}

func (r *MemoryAnalysisRepository) Stats(_ context.Context, since, activitySince time.Time) (domain.AnalysisStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.AnalysisStats{
		ByCategory:  map[string]int{},
		ByPriority:  map[string]int{},
		BySentiment: map[string]int{},
	}
	daily := map[string]int{}
	var confidence float64
	for _, rec := range r.records {
		if !rec.AnalyzedAt.Before(since) {
			stats.TotalAnalyzed++
			stats.ByCategory[string(rec.Analysis.Category)]++
			stats.ByPriority[string(rec.Analysis.Priority)]++
			stats.BySentiment[string(rec.Analysis.Sentiment.Tone)]++
			confidence += rec.Analysis.Sentiment.Confidence
		}
		if !rec.AnalyzedAt.Before(activitySince) {
			daily[rec.AnalyzedAt.UTC().Format(time.DateOnly)]++
		}
	}
	if stats.TotalAnalyzed > 0 {
		stats.AvgSentimentConfidence = confidence / float64(stats.TotalAnalyzed)
	}
	stats.RecentActivity = dailyCounts(daily)
	return stats, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func dailyCounts(daily map[string]int) []domain.DailyCount {
	out := make([]domain.DailyCount, 0, len(daily))
	for date, count := range daily {
		out = append(out, domain.DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
