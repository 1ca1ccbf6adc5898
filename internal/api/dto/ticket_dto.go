package dto

import (
	"time"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SenderEmail string  `json:"sender_email"`
	SenderName  *string `json:"sender_name"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
}

// SentimentResponse pairs tone and confidence.
type SentimentResponse struct {
	Tone       domain.SentimentTone `json:"tone"`
	Confidence float64              `json:"confidence"`
}

// TicketMetadata carries derived ticket fields.
type TicketMetadata struct {
	WordCount          int                       `json:"word_count"`
	EmailSnippet       string                    `json:"email_snippet"`
	ConfirmationStatus domain.ConfirmationStatus `json:"confirmation_status"`
	ConfirmationSent   *time.Time                `json:"confirmation_sent"`
}

// TicketResponse is the summary view used in listings.
type TicketResponse struct {
	TicketNumber   string              `json:"ticket_number"`
	SenderEmail    string              `json:"sender_email"`
	SenderName     *string             `json:"sender_name"`
	Subject        string              `json:"subject"`
	Status         domain.TicketStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Summary        string              `json:"summary"`
	KeyPoints      []string            `json:"key_points"`
	Category       domain.Category     `json:"category"`
	Priority       domain.Priority     `json:"priority"`
	Sentiment      SentimentResponse   `json:"sentiment"`
	SuggestedReply string              `json:"suggested_reply"`
	Metadata       TicketMetadata      `json:"metadata"`
}

// TicketDetailResponse adds the raw email body.
type TicketDetailResponse struct {
	TicketResponse
	Body string `json:"body"`
}

// CreateTicketResponse reports whether a ticket was created or already existed.
type CreateTicketResponse struct {
	TicketNumber     string          `json:"ticket_number"`
	Status           string          `json:"status"`
	Message          string          `json:"message"`
	ConfirmationSent *bool           `json:"confirmation_sent,omitempty"`
	Ticket           *TicketResponse `json:"ticket,omitempty"`
	ExistingTicket   *TicketResponse `json:"existing_ticket,omitempty"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []TicketResponse `json:"items"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatusResponse confirms the new status.
type UpdateStatusResponse struct {
	TicketNumber string              `json:"ticket_number"`
	Status       domain.TicketStatus `json:"status"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// DeleteTicketResponse confirms a deletion.
type DeleteTicketResponse struct {
	Message      string `json:"message"`
	TicketNumber string `json:"ticket_number"`
}

// DailyCountResponse is one day of activity.
type DailyCountResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TicketStatsResponse backs the ticket dashboard.
type TicketStatsResponse struct {
	PeriodDays     int                  `json:"period_days"`
	TotalTickets   int                  `json:"total_tickets"`
	OpenTickets    int                  `json:"open_tickets"`
	ByStatus       map[string]int       `json:"by_status"`
	ByCategory     map[string]int       `json:"by_category"`
	ByPriority     map[string]int       `json:"by_priority"`
	RecentActivity []DailyCountResponse `json:"recent_activity"`
}
