package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/email-ticket-service/internal/api/dto"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/service"
	apperrors "github.com/spec-kit/email-ticket-service/pkg/util/errorutil"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// AnalysisHandler serves ad-hoc summarization and its history.
type AnalysisHandler struct {
	service *service.AnalysisService
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: analysisService}
}

// Summarize POST /api/summarize.
func (h *AnalysisHandler) Summarize(c *fiber.Ctx) error {
	var req dto.SummarizeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res := h.service.Summarize(c.UserContext(), service.SummarizeInput{
		Text:    req.Text,
		Sender:  req.Sender,
		Subject: req.Subject,
	})

	meta := dto.SummarizeMetadata{
		AnalyzedAt: res.AnalyzedAt,
		WordCount:  res.WordCount,
		Error:      res.Error,
	}
	if res.Record != nil {
		id := res.Record.ID
		meta.DatabaseID = &id
	}
	a := res.Analysis
	return c.JSON(dto.SummarizeResponse{
		Summary:   a.Summary,
		KeyPoints: nonNilStrings(a.KeyPoints),
		Category:  a.Category,
		Priority:  a.Priority,
		Sentiment: dto.SentimentResponse{Tone: a.Sentiment.Tone, Confidence: a.Sentiment.Confidence},
		Reply:     a.SuggestedReply,
		Metadata:  meta,
	})
}

// History GET /api/history.
func (h *AnalysisHandler) History(c *fiber.Ctx) error {
	filter := domain.AnalysisFilter{
		Limit:  parseInt(c.Query("limit"), defaultHistoryLimit),
		Offset: parseOffset(c.Query("offset")),
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		category := domain.Category(v)
		filter.Category = &category
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		priority := domain.Priority(v)
		filter.Priority = &priority
	}

	page, err := h.service.History(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AnalysisRecordResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, analysisRecordResponse(&page.Items[i]))
	}
	return c.JSON(dto.AnalysisListResponse{
		Total:  page.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  items,
	})
}

// GetAnalysis GET /api/history/:id.
func (h *AnalysisHandler) GetAnalysis(c *fiber.Ctx) error {
	id, err := analysisID(c)
	if err != nil {
		return err
	}
	record, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return analysisError(err, id)
	}
	return c.JSON(analysisRecordResponse(record))
}

// DeleteAnalysis DELETE /api/history/:id.
func (h *AnalysisHandler) DeleteAnalysis(c *fiber.Ctx) error {
	id, err := analysisID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return analysisError(err, id)
	}
	return c.JSON(dto.DeleteAnalysisResponse{Message: "Analysis deleted successfully", ID: id})
}

// Stats GET /api/stats.
func (h *AnalysisHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), parseInt(c.Query("days"), 0))
	if err != nil {
		return err
	}
	return c.JSON(dto.AnalysisStatsResponse{
		PeriodDays:             stats.PeriodDays,
		TotalAnalyzed:          stats.TotalAnalyzed,
		ByCategory:             nonNilCounts(stats.ByCategory),
		ByPriority:             nonNilCounts(stats.ByPriority),
		BySentiment:            nonNilCounts(stats.BySentiment),
		AvgSentimentConfidence: stats.AvgSentimentConfidence,
		RecentActivity:         dailyCounts(stats.RecentActivity),
	})
}

func analysisID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func analysisError(err error, id int64) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFound("analysis", map[string]any{"id": id})
	}
	return err
}

func analysisRecordResponse(r *domain.AnalysisRecord) dto.AnalysisRecordResponse {
	return dto.AnalysisRecordResponse{
		ID:         r.ID,
		EmailHash:  r.ContentFingerprint,
		Sender:     r.Sender,
		Subject:    r.Subject,
		AnalyzedAt: r.AnalyzedAt,
		Summary:    r.Analysis.Summary,
		KeyPoints:  nonNilStrings(r.Analysis.KeyPoints),
		Category:   r.Analysis.Category,
		Priority:   r.Analysis.Priority,
		Sentiment: dto.SentimentResponse{
			Tone:       r.Analysis.Sentiment.Tone,
			Confidence: r.Analysis.Sentiment.Confidence,
		},
		Reply: r.Analysis.SuggestedReply,
		Metadata: dto.AnalysisMetadata{
			WordCount:    r.WordCount,
			EmailSnippet: r.EmailSnippet,
		},
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
