package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/email-ticket-service/internal/api/dto"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/service"
	apperrors "github.com/spec-kit/email-ticket-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets/create.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.SenderEmail = strings.TrimSpace(req.SenderEmail)
	if req.SenderEmail == "" {
		return apperrors.NewValidationError("sender_email required", map[string]any{"field": "sender_email"})
	}

	result, err := h.service.Create(c.UserContext(), domain.InboundEmail{
		SenderEmail: req.SenderEmail,
		SenderName:  req.SenderName,
		Subject:     req.Subject,
		Body:        req.Body,
	}, events.SourceAPI)
	if err != nil {
		return err
	}

	view := ticketResponse(result.Ticket)
	if result.Outcome == service.OutcomeDuplicate {
		return c.JSON(dto.CreateTicketResponse{
			TicketNumber:   result.Ticket.TicketNumber,
			Status:         string(service.OutcomeDuplicate),
			Message:        "A ticket for this email already exists",
			ExistingTicket: &view,
		})
	}

	sent := result.Ticket.ConfirmationStatus == domain.ConfirmationSent
	return c.Status(http.StatusCreated).JSON(dto.CreateTicketResponse{
		TicketNumber:     result.Ticket.TicketNumber,
		Status:           string(service.OutcomeCreated),
		Message:          "Ticket created successfully",
		ConfirmationSent: &sent,
		Ticket:           &view,
	})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	filter.Limit, filter.Offset = h.service.PageBounds(filter.Limit, filter.Offset)

	page, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	return c.JSON(dto.TicketListResponse{
		Total:  page.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  items,
	})
}

// GetTicket GET /api/tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	number := c.Params("number")
	ticket, err := h.service.Get(c.UserContext(), number)
	if err != nil {
		return ticketError(err, number)
	}
	return c.JSON(dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		Body:           ticket.Body,
	})
}

// UpdateStatus PATCH /api/tickets/:number/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	number := c.Params("number")
	ticket, err := h.service.UpdateStatus(c.UserContext(), number, req.Status)
	if err != nil {
		return ticketError(err, number)
	}
	return c.JSON(dto.UpdateStatusResponse{
		TicketNumber: ticket.TicketNumber,
		Status:       ticket.Status,
		UpdatedAt:    ticket.UpdatedAt,
	})
}

// DeleteTicket DELETE /api/tickets/:number.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	number := c.Params("number")
	if err := h.service.Delete(c.UserContext(), number); err != nil {
		return ticketError(err, number)
	}
	return c.JSON(dto.DeleteTicketResponse{Message: "Ticket deleted successfully", TicketNumber: number})
}

// Dashboard GET /api/tickets/stats/dashboard.
func (h *TicketsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), parseInt(c.Query("days"), 0))
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketStatsResponse{
		PeriodDays:     stats.PeriodDays,
		TotalTickets:   stats.TotalTickets,
		OpenTickets:    stats.OpenTickets,
		ByStatus:       nonNilCounts(stats.ByStatus),
		ByCategory:     nonNilCounts(stats.ByCategory),
		ByPriority:     nonNilCounts(stats.ByPriority),
		RecentActivity: dailyCounts(stats.RecentActivity),
	})
}

func ticketError(err error, number string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
	}
	return err
}

func parseTicketQuery(c *fiber.Ctx) domain.TicketFilter {
	filter := domain.TicketFilter{
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseOffset(c.Query("offset")),
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		category := domain.Category(v)
		filter.Category = &category
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		priority := domain.Priority(v)
		filter.Priority = &priority
	}
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseOffset(val string) int {
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		TicketNumber: ticket.TicketNumber,
		SenderEmail:  ticket.SenderEmail,
		SenderName:   ticket.SenderName,
		Subject:      ticket.Subject,
		Status:       ticket.Status,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		Summary:      ticket.Analysis.Summary,
		KeyPoints:    nonNilStrings(ticket.Analysis.KeyPoints),
		Category:     ticket.Analysis.Category,
		Priority:     ticket.Analysis.Priority,
		Sentiment: dto.SentimentResponse{
			Tone:       ticket.Analysis.Sentiment.Tone,
			Confidence: ticket.Analysis.Sentiment.Confidence,
		},
		SuggestedReply: ticket.Analysis.SuggestedReply,
		Metadata: dto.TicketMetadata{
			WordCount:          ticket.WordCount,
			EmailSnippet:       ticket.EmailSnippet,
			ConfirmationStatus: ticket.ConfirmationStatus,
			ConfirmationSent:   ticket.ConfirmationSent,
		},
	}
}

func nonNilCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func dailyCounts(days []domain.DailyCount) []dto.DailyCountResponse {
	out := make([]dto.DailyCountResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dto.DailyCountResponse{Date: d.Date, Count: d.Count})
	}
	return out
}
