package domain

import "time"

// Category classifies the business area of an email.
type Category string

const (
	CategorySales     Category = "Sales"
	CategorySupport   Category = "Support"
	CategoryGeneral   Category = "General"
	CategoryMarketing Category = "Marketing"
	CategoryHR        Category = "HR"
)

// Priority captures how soon an email needs attention.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// SentimentTone is the detected tone of an email.
type SentimentTone string

const (
	TonePositive SentimentTone = "Positive"
	ToneNeutral  SentimentTone = "Neutral"
	ToneNegative SentimentTone = "Negative"
	ToneUrgent   SentimentTone = "Urgent"
)

var (
	categories = map[Category]struct{}{
		CategorySales: {}, CategorySupport: {}, CategoryGeneral: {}, CategoryMarketing: {}, CategoryHR: {},
	}
	priorities = map[Priority]struct{}{
		PriorityHigh: {}, PriorityMedium: {}, PriorityLow: {},
	}
	tones = map[SentimentTone]struct{}{
		TonePositive: {}, ToneNeutral: {}, ToneNegative: {}, ToneUrgent: {},
	}
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	_, ok := priorities[p]
	return ok
}

// Valid reports whether t is one of the known tones.
func (t SentimentTone) Valid() bool {
	_, ok := tones[t]
	return ok
}

// Sentiment pairs a tone with the provider's confidence in it.
type Sentiment struct {
	Tone       SentimentTone
	Confidence float64
}

// Analysis is the normalized result of running an email through the analysis provider.
type Analysis struct {
	Summary        string
	KeyPoints      []string
	Category       Category
	Priority       Priority
	Sentiment      Sentiment
	SuggestedReply string
}

// AnalysisRecord is an ad-hoc summarization result not tied to a ticket.
type AnalysisRecord struct {
	ID                 int64
	ContentFingerprint string
	Sender             *string
	Subject            *string
	Analysis           Analysis
	WordCount          int
	EmailSnippet       string
	AnalyzedAt         time.Time
}

// AnalysisFilter narrows analysis history listings.
type AnalysisFilter struct {
	Category *Category
	Priority *Priority
	Limit    int
	Offset   int
}

// AnalysisPage is one page of analysis history.
type AnalysisPage struct {
	Total int
	Items []AnalysisRecord
}

// AnalysisStats aggregates analysis records over a trailing window.
type AnalysisStats struct {
	PeriodDays             int
	TotalAnalyzed          int
	ByCategory             map[string]int
	ByPriority             map[string]int
	BySentiment            map[string]int
	AvgSentimentConfidence float64
	RecentActivity         []DailyCount
}
