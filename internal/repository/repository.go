package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// ErrDuplicateFingerprint is returned by TicketRepository.Create when another ticket already
// holds the content fingerprint. Nothing was written and no number was consumed.
var ErrDuplicateFingerprint = errors.New("duplicate content fingerprint")

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create allocates the next ticket number and inserts the ticket in one transaction.
	// On success ticket.TicketNumber, CreatedAt and UpdatedAt are filled in.
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, number string, status domain.TicketStatus) (*domain.Ticket, error)
	SetConfirmation(ctx context.Context, number string, status domain.ConfirmationStatus, sentAt *time.Time) error
	Delete(ctx context.Context, number string) error
	List(ctx context.Context, filter domain.TicketFilter) (domain.TicketPage, error)
	Stats(ctx context.Context, since time.Time, activitySince time.Time) (domain.TicketStats, error)
}

// AnalysisRepository stores ad-hoc summarization results keyed by fingerprint.
type AnalysisRepository interface {
	// Upsert inserts record or refreshes the row holding the same fingerprint, setting record.ID.
	Upsert(ctx context.Context, record *domain.AnalysisRecord) error
	Get(ctx context.Context, id int64) (*domain.AnalysisRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.AnalysisFilter) (domain.AnalysisPage, error)
	Stats(ctx context.Context, since time.Time, activitySince time.Time) (domain.AnalysisStats, error)
}

func persistenceErr(op string, err error) error {
	return &domain.PersistenceError{Op: op, Err: err}
}

// keyPoints maps an ordered list of strings to a JSONB column.
type keyPoints []string

func (k keyPoints) Value() (driver.Value, error) {
	if k == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(k))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (k *keyPoints) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*k = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan key points: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan key points: %w", err)
	}
	*k = out
	return nil
}

func bucketsToMap(buckets []domain.CountBucket) map[string]int {
	out := make(map[string]int, len(buckets))
	for _, b := range buckets {
		out[b.Key] = b.Count
	}
	return out
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
