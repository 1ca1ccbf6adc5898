package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const analysisColumns = `id, content_fingerprint, sender, subject, summary, key_points, category, priority,
        sentiment_tone, sentiment_confidence, suggested_reply, word_count, email_snippet, analyzed_at`

const upsertAnalysisQuery = `
        INSERT INTO email_analyses (content_fingerprint, sender, subject, summary, key_points, category, priority,
            sentiment_tone, sentiment_confidence, suggested_reply, word_count, email_snippet, analyzed_at)
        VALUES (:content_fingerprint, :sender, :subject, :summary, :key_points, :category, :priority,
            :sentiment_tone, :sentiment_confidence, :suggested_reply, :word_count, :email_snippet, :analyzed_at)
        ON CONFLICT (content_fingerprint) DO UPDATE SET
            sender = EXCLUDED.sender,
            subject = EXCLUDED.subject,
            summary = EXCLUDED.summary,
            key_points = EXCLUDED.key_points,
            category = EXCLUDED.category,
            priority = EXCLUDED.priority,
            sentiment_tone = EXCLUDED.sentiment_tone,
            sentiment_confidence = EXCLUDED.sentiment_confidence,
            suggested_reply = EXCLUDED.suggested_reply,
            word_count = EXCLUDED.word_count,
            email_snippet = EXCLUDED.email_snippet,
            analyzed_at = EXCLUDED.analyzed_at
        RETURNING id`

type analysisRow struct {
	ID                  int64     `db:"id"`
	ContentFingerprint  string    `db:"content_fingerprint"`
	Sender              *string   `db:"sender"`
	Subject             *string   `db:"subject"`
	Summary             string    `db:"summary"`
	KeyPoints           keyPoints `db:"key_points"`
	Category            string    `db:"category"`
	Priority            string    `db:"priority"`
	SentimentTone       string    `db:"sentiment_tone"`
	SentimentConfidence float64   `db:"sentiment_confidence"`
	SuggestedReply      string    `db:"suggested_reply"`
	WordCount           int       `db:"word_count"`
	EmailSnippet        string    `db:"email_snippet"`
	AnalyzedAt          time.Time `db:"analyzed_at"`
}

func toAnalysisRow(rec *domain.AnalysisRecord) analysisRow {
	a := rec.Analysis
	return analysisRow{
		ID:                  rec.ID,
		ContentFingerprint:  rec.ContentFingerprint,
		Sender:              rec.Sender,
		Subject:             rec.Subject,
		Summary:             a.Summary,
		KeyPoints:           keyPoints(a.KeyPoints),
		Category:            string(a.Category),
		Priority:            string(a.Priority),
		SentimentTone:       string(a.Sentiment.Tone),
		SentimentConfidence: a.Sentiment.Confidence,
		SuggestedReply:      a.SuggestedReply,
		WordCount:           rec.WordCount,
		EmailSnippet:        rec.EmailSnippet,
		AnalyzedAt:          rec.AnalyzedAt,
	}
}

func (row analysisRow) record() domain.AnalysisRecord {
	return domain.AnalysisRecord{
		ID:                 row.ID,
		ContentFingerprint: row.ContentFingerprint,
		Sender:             row.Sender,
		Subject:            row.Subject,
		Analysis: domain.Analysis{
			Summary:   row.Summary,
			KeyPoints: []string(row.KeyPoints),
			Category:  domain.Category(row.Category),
			Priority:  domain.Priority(row.Priority),
			Sentiment: domain.Sentiment{
				Tone:       domain.SentimentTone(row.SentimentTone),
				Confidence: row.SentimentConfidence,
			},
			SuggestedReply: row.SuggestedReply,
		},
		WordCount:    row.WordCount,
		EmailSnippet: row.EmailSnippet,
		AnalyzedAt:   row.AnalyzedAt,
	}
}

type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository instantiates the Postgres analysis history store.
func NewAnalysisRepository(db *sqlx.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Upsert(ctx context.Context, record *domain.AnalysisRecord) error {
	query, args, err := sqlx.Named(upsertAnalysisQuery, toAnalysisRow(record))
	if err != nil {
		return persistenceErr("bind analysis upsert", err)
	}
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), args...).Scan(&record.ID); err != nil {
		return persistenceErr("upsert analysis", err)
	}
	return nil
}

func (r *analysisRepository) Get(ctx context.Context, id int64) (*domain.AnalysisRecord, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, `SELECT `+analysisColumns+` FROM email_analyses WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, persistenceErr("get analysis", err)
	}
	rec := row.record()
	return &rec, nil
}

func (r *analysisRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_analyses WHERE id=$1`, id)
	if err != nil {
		return persistenceErr("delete analysis", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("delete analysis", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *analysisRepository) List(ctx context.Context, filter domain.AnalysisFilter) (domain.AnalysisPage, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var page domain.AnalysisPage
	if err := r.db.GetContext(ctx, &page.Total, `SELECT COUNT(*) FROM email_analyses WHERE `+where, args...); err != nil {
		return page, persistenceErr("count analyses", err)
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM email_analyses WHERE %s ORDER BY analyzed_at DESC, id DESC LIMIT %d OFFSET %d`,
		analysisColumns, where, limit, offset)

	var rows []analysisRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return page, persistenceErr("list analyses", err)
	}
	for _, row := range rows {
		page.Items = append(page.Items, row.record())
	}
	return page, nil
}

func (r *analysisRepository) Stats(ctx context.Context, since, activitySince time.Time) (domain.AnalysisStats, error) {
	stats := domain.AnalysisStats{}

	if err := r.db.GetContext(ctx, &stats.TotalAnalyzed,
		`SELECT COUNT(*) FROM email_analyses WHERE analyzed_at >= $1`, since); err != nil {
		return stats, persistenceErr("count analyses in window", err)
	}

	groups := []struct {
		column string
		into   *map[string]int
	}{
		{"category", &stats.ByCategory},
		{"priority", &stats.ByPriority},
		{"sentiment_tone", &stats.BySentiment},
	}
	for _, g := range groups {
		var buckets []domain.CountBucket
		query := fmt.Sprintf(`SELECT %[1]s AS key, COUNT(*) AS count FROM email_analyses WHERE analyzed_at >= $1 GROUP BY %[1]s`, g.column)
		if err := r.db.SelectContext(ctx, &buckets, query, since); err != nil {
			return stats, persistenceErr("group analyses by "+g.column, err)
		}
		*g.into = bucketsToMap(buckets)
	}

	if err := r.db.GetContext(ctx, &stats.AvgSentimentConfidence,
		`SELECT COALESCE(AVG(sentiment_confidence), 0) FROM email_analyses WHERE analyzed_at >= $1`, since); err != nil {
		return stats, persistenceErr("average confidence", err)
	}

	const activity = `
        SELECT TO_CHAR((analyzed_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS date, COUNT(*) AS count
        FROM email_analyses WHERE analyzed_at >= $1
        GROUP BY 1 ORDER BY 1`
	if err := r.db.SelectContext(ctx, &stats.RecentActivity, activity, activitySince); err != nil {
		return stats, persistenceErr("analysis activity", err)
	}
	return stats, nil
}
