package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const (
	ticketCounterName        = "tickets"
	fingerprintConstraint    = "idx_tickets_fingerprint"
	uniqueViolationErrorCode = "23505"
)

const ticketColumns = `ticket_number, content_fingerprint, sender_email, sender_name, subject, body, status,
        summary, key_points, category, priority, sentiment_tone, sentiment_confidence, suggested_reply,
        word_count, email_snippet, confirmation_status, confirmation_sent, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

// NewTicketRepository instantiates the Postgres ticket store. pool serves the write path,
// db the dashboard aggregations.
func NewTicketRepository(pool *pgxpool.Pool, db *sqlx.DB) TicketRepository {
	return &ticketRepository{pool: pool, db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistenceErr("begin create ticket", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	number, err := r.allocateNumber(ctx, tx)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO tickets (ticket_number, content_fingerprint, sender_email, sender_name, subject, body, status,
            summary, key_points, category, priority, sentiment_tone, sentiment_confidence, suggested_reply,
            word_count, email_snippet, confirmation_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING created_at, updated_at`
	a := ticket.Analysis
	err = tx.QueryRow(ctx, query,
		number,
		ticket.ContentFingerprint,
		ticket.SenderEmail,
		ticket.SenderName,
		ticket.Subject,
		ticket.Body,
		ticket.Status,
		a.Summary,
		keyPoints(a.KeyPoints),
		a.Category,
		a.Priority,
		a.Sentiment.Tone,
		a.Sentiment.Confidence,
		a.SuggestedReply,
		ticket.WordCount,
		ticket.EmailSnippet,
		ticket.ConfirmationStatus,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, fingerprintConstraint) {
			return ErrDuplicateFingerprint
		}
		return persistenceErr("insert ticket", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistenceErr("commit ticket", err)
	}
	ticket.TicketNumber = number
	return nil
}

// allocateNumber bumps the high-water mark inside tx. The counter row stays locked until the
// transaction ends, so allocation and insert are serialized and a rollback returns the number.
func (r *ticketRepository) allocateNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	var last int64
	err := tx.QueryRow(ctx,
		`UPDATE ticket_counters SET last_value = last_value + 1 WHERE name = $1 RETURNING last_value`,
		ticketCounterName,
	).Scan(&last)
	if err == nil {
		return domain.FormatTicketNumber(last), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", persistenceErr("allocate ticket number", err)
	}

	// counter row missing: seed it from the highest stored number
	var latest string
	err = tx.QueryRow(ctx,
		`SELECT ticket_number FROM tickets ORDER BY LENGTH(ticket_number) DESC, ticket_number DESC LIMIT 1`,
	).Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", persistenceErr("read latest ticket number", err)
	}
	next, err := domain.NextTicketNumber(latest)
	if err != nil {
		return "", err
	}
	seed, err := domain.ParseTicketNumber(next)
	if err != nil {
		return "", persistenceErr("allocate ticket number", err)
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO ticket_counters (name, last_value) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET last_value = ticket_counters.last_value + 1
        RETURNING last_value`,
		ticketCounterName, seed,
	).Scan(&last)
	if err != nil {
		return "", persistenceErr("seed ticket counter", err)
	}
	return domain.FormatTicketNumber(last), nil
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	return r.fetchSingle(ctx, "get ticket", query, number)
}

func (r *ticketRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE content_fingerprint=$1`
	return r.fetchSingle(ctx, "get ticket by fingerprint", query, fingerprint)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, number string, status domain.TicketStatus) (*domain.Ticket, error) {
	query := `UPDATE tickets SET status=$1, updated_at=NOW() WHERE ticket_number=$2 RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, "update ticket status", query, status, number)
}

func (r *ticketRepository) SetConfirmation(ctx context.Context, number string, status domain.ConfirmationStatus, sentAt *time.Time) error {
	const query = `
        UPDATE tickets SET confirmation_status=$1, confirmation_sent=$2, updated_at=NOW()
        WHERE ticket_number=$3`
	cmd, err := r.pool.Exec(ctx, query, status, sentAt, number)
	if err != nil {
		return persistenceErr("set confirmation", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, number string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE ticket_number=$1`, number)
	if err != nil {
		return persistenceErr("delete ticket", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, op, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, persistenceErr(op, err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter domain.TicketFilter) (domain.TicketPage, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var page domain.TicketPage
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&page.Total); err != nil {
		return page, persistenceErr("count tickets", err)
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, ticket_number DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return page, persistenceErr("list tickets", err)
	}
	defer rows.Close()

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return page, persistenceErr("scan ticket", err)
		}
		page.Items = append(page.Items, *ticket)
	}
	if err := rows.Err(); err != nil {
		return page, persistenceErr("list tickets", err)
	}
	return page, nil
}

func (r *ticketRepository) Stats(ctx context.Context, since, activitySince time.Time) (domain.TicketStats, error) {
	stats := domain.TicketStats{}

	if err := r.db.GetContext(ctx, &stats.TotalTickets,
		`SELECT COUNT(*) FROM tickets WHERE created_at >= $1`, since); err != nil {
		return stats, persistenceErr("count tickets in window", err)
	}
	if err := r.db.GetContext(ctx, &stats.OpenTickets,
		`SELECT COUNT(*) FROM tickets WHERE status = $1`, domain.TicketStatusOpen); err != nil {
		return stats, persistenceErr("count open tickets", err)
	}

	groups := []struct {
		column string
		into   *map[string]int
	}{
		{"status", &stats.ByStatus},
		{"category", &stats.ByCategory},
		{"priority", &stats.ByPriority},
	}
	for _, g := range groups {
		var buckets []domain.CountBucket
		query := fmt.Sprintf(`SELECT %[1]s AS key, COUNT(*) AS count FROM tickets WHERE created_at >= $1 GROUP BY %[1]s`, g.column)
		if err := r.db.SelectContext(ctx, &buckets, query, since); err != nil {
			return stats, persistenceErr("group tickets by "+g.column, err)
		}
		*g.into = bucketsToMap(buckets)
	}

	const activity = `
        SELECT TO_CHAR((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS date, COUNT(*) AS count
        FROM tickets WHERE created_at >= $1
        GROUP BY 1 ORDER BY 1`
	if err := r.db.SelectContext(ctx, &stats.RecentActivity, activity, activitySince); err != nil {
		return stats, persistenceErr("ticket activity", err)
	}
	return stats, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		points keyPoints
	)
	a := &ticket.Analysis
	if err := row.Scan(
		&ticket.TicketNumber,
		&ticket.ContentFingerprint,
		&ticket.SenderEmail,
		&ticket.SenderName,
		&ticket.Subject,
		&ticket.Body,
		&ticket.Status,
		&a.Summary,
		&points,
		&a.Category,
		&a.Priority,
		&a.Sentiment.Tone,
		&a.Sentiment.Confidence,
		&a.SuggestedReply,
		&ticket.WordCount,
		&ticket.EmailSnippet,
		&ticket.ConfirmationStatus,
		&ticket.ConfirmationSent,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.KeyPoints = points
	return &ticket, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrorCode && pgErr.ConstraintName == constraint
}
