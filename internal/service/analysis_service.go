package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/analysis"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/repository"
)

// SummarizeInput is an ad-hoc summarization request.
type SummarizeInput struct {
	Text    string
	Sender  *string
	Subject *string
}

// SummarizeResult carries the analysis plus how it was produced. Record is nil when nothing
// was persisted (empty text, fallback modes, or a store failure).
type SummarizeResult struct {
	Analysis   domain.Analysis
	Record     *domain.AnalysisRecord
	WordCount  int
	AnalyzedAt time.Time
	Error      string
}

// AnalysisService runs ad-hoc summarization and serves the analysis history.
type AnalysisService struct {
	analyses      repository.AnalysisRepository
	provider      analysis.Provider
	metrics       *observability.Metrics
	logger        *zap.Logger
	snippetLength int
	now           func() time.Time
}

// AnalysisDependencies bundles collaborators for the analysis service.
type AnalysisDependencies struct {
	AnalysisRepo repository.AnalysisRepository
	// Provider is nil when analysis is not configured; Summarize then uses the extractive fallback.
	Provider      analysis.Provider
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	SnippetLength int
}

// NewAnalysisService constructs the service.
func NewAnalysisService(deps AnalysisDependencies) *AnalysisService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	snippet := deps.SnippetLength
	if snippet <= 0 {
		snippet = 200
	}
	return &AnalysisService{
		analyses:      deps.AnalysisRepo,
		provider:      deps.Provider,
		metrics:       deps.Metrics,
		logger:        logger,
		snippetLength: snippet,
		now:           time.Now,
	}
}

// Summarize analyzes text without creating a ticket. It never fails: provider problems
// degrade to a fallback analysis flagged through Error.
func (s *AnalysisService) Summarize(ctx context.Context, in SummarizeInput) SummarizeResult {
	result := SummarizeResult{AnalyzedAt: s.now().UTC()}

	if strings.TrimSpace(in.Text) == "" {
		result.Analysis = analysis.EmptyBody()
		return result
	}
	result.WordCount = domain.WordCount(in.Text)

	if s.provider == nil {
		result.Analysis = analysis.Extractive(in.Text,
			"[Fallback Mode - No API Key]",
			"API key required for analysis",
			"API key required to generate suggested replies.")
		return result
	}

	start := time.Now()
	raw, err := s.provider.Analyze(ctx, in.Text)
	if err != nil {
		s.metrics.RecordAnalysisCall("error", time.Since(start))
		s.logger.Warn("summarize provider call failed", zap.Error(err))
		result.Error = err.Error()
		result.Analysis = analysis.Extractive(in.Text,
			fmt.Sprintf("[Error: %s]\n\nFallback summary:", err),
			"Analysis unavailable due to error",
			fmt.Sprintf("Unable to generate reply due to error: %s", err))
		return result
	}

	parsed, err := analysis.Parse(raw)
	if err != nil {
		s.metrics.RecordAnalysisCall("malformed", time.Since(start))
		s.logger.Warn("summarize response not parseable", zap.Error(err))
		result.Error = "JSON parse error"
		result.Analysis = analysis.Unparsed(raw)
		return result
	}
	s.metrics.RecordAnalysisCall("ok", time.Since(start))
	result.Analysis = parsed

	record := &domain.AnalysisRecord{
		ContentFingerprint: domain.Fingerprint(in.Text, in.Sender, in.Subject),
		Sender:             in.Sender,
		Subject:            in.Subject,
		Analysis:           parsed,
		WordCount:          result.WordCount,
		EmailSnippet:       domain.Snippet(in.Text, s.snippetLength),
		AnalyzedAt:         result.AnalyzedAt,
	}
	if err := s.analyses.Upsert(ctx, record); err != nil {
		// the analysis is still useful to the caller
		s.logger.Warn("saving analysis failed", zap.Error(err))
		return result
	}
	result.Record = record
	return result
}

// History lists stored analyses, newest first.
func (s *AnalysisService) History(ctx context.Context, filter domain.AnalysisFilter) (domain.AnalysisPage, error) {
	page, err := s.analyses.List(ctx, filter)
	if err != nil {
		return page, err
	}
	if page.Items == nil {
		page.Items = []domain.AnalysisRecord{}
	}
	return page, nil
}

// Get returns one stored analysis.
func (s *AnalysisService) Get(ctx context.Context, id int64) (*domain.AnalysisRecord, error) {
	return s.analyses.Get(ctx, id)
}

// Delete removes one stored analysis.
func (s *AnalysisService) Delete(ctx context.Context, id int64) error {
	err := s.analyses.Delete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("delete analysis failed", zap.Int64("id", id), zap.Error(err))
	}
	return err
}

// Stats aggregates analyses over the trailing window of days.
func (s *AnalysisService) Stats(ctx context.Context, days int) (domain.AnalysisStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	now := s.now().UTC()
	stats, err := s.analyses.Stats(ctx, now.AddDate(0, 0, -days), now.AddDate(0, 0, -activityDays))
	if err != nil {
		return stats, err
	}
	stats.PeriodDays = days
	stats.AvgSentimentConfidence = math.Round(stats.AvgSentimentConfidence*100) / 100
	if stats.RecentActivity == nil {
		stats.RecentActivity = []domain.DailyCount{}
	}
	return stats, nil
}
