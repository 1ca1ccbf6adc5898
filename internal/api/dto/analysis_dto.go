package dto

import (
	"time"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// SummarizeRequest payload.
type SummarizeRequest struct {
	Text    string  `json:"text"`
	Sender  *string `json:"sender"`
	Subject *string `json:"subject"`
}

// SummarizeMetadata describes how a summary was produced.
type SummarizeMetadata struct {
	AnalyzedAt time.Time `json:"analyzed_at"`
	WordCount  int       `json:"word_count"`
	DatabaseID *int64    `json:"database_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SummarizeResponse is the ad-hoc analysis result.
type SummarizeResponse struct {
	Summary   string            `json:"summary"`
	KeyPoints []string          `json:"key_points"`
	Category  domain.Category   `json:"category"`
	Priority  domain.Priority   `json:"priority"`
	Sentiment SentimentResponse `json:"sentiment"`
	Reply     string            `json:"reply"`
	Metadata  SummarizeMetadata `json:"metadata"`
}

// AnalysisMetadata carries derived analysis fields.
type AnalysisMetadata struct {
	WordCount    int    `json:"word_count"`
	EmailSnippet string `json:"email_snippet"`
}

// AnalysisRecordResponse is one stored analysis.
type AnalysisRecordResponse struct {
	ID         int64             `json:"id"`
	EmailHash  string            `json:"email_hash"`
	Sender     *string           `json:"sender"`
	Subject    *string           `json:"subject"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
	Summary    string            `json:"summary"`
	KeyPoints  []string          `json:"key_points"`
	Category   domain.Category   `json:"category"`
	Priority   domain.Priority   `json:"priority"`
	Sentiment  SentimentResponse `json:"sentiment"`
	Reply      string            `json:"reply"`
	Metadata   AnalysisMetadata  `json:"metadata"`
}

// AnalysisListResponse is one page of analysis history.
type AnalysisListResponse struct {
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
	Items  []AnalysisRecordResponse `json:"items"`
}

// DeleteAnalysisResponse confirms a deletion.
type DeleteAnalysisResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// AnalysisStatsResponse backs the analysis dashboard.
type AnalysisStatsResponse struct {
	PeriodDays             int                  `json:"period_days"`
	TotalAnalyzed          int                  `json:"total_analyzed"`
	ByCategory             map[string]int       `json:"by_category"`
	ByPriority             map[string]int       `json:"by_priority"`
	BySentiment            map[string]int       `json:"by_sentiment"`
	AvgSentimentConfidence float64              `json:"avg_sentiment_confidence"`
	RecentActivity         []DailyCountResponse `json:"recent_activity"`
}
