package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every accepted status value.
var TicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed}

// ParseTicketStatus validates a raw status. Unknown values are rejected, never coerced.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	for _, status := range TicketStatuses {
		if string(status) == raw {
			return status, nil
		}
	}
	return "", &InvalidStatusError{Value: raw}
}

// ConfirmationStatus records the outcome of the confirmation email.
type ConfirmationStatus string

const (
	ConfirmationNotAttempted ConfirmationStatus = "not_attempted"
	ConfirmationFailed       ConfirmationStatus = "failed"
	ConfirmationSent         ConfirmationStatus = "sent"
)

// Ticket is the durable record for one inbound support email.
type Ticket struct {
	TicketNumber       string
	SenderEmail        string
	SenderName         *string
	Subject            string
	Body               string
	ContentFingerprint string
	Status             TicketStatus
	Analysis           Analysis
	WordCount          int
	EmailSnippet       string
	ConfirmationStatus ConfirmationStatus
	ConfirmationSent   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InboundEmail is the input of ticket creation.
type InboundEmail struct {
	SenderEmail string
	SenderName  *string
	Subject     string
	Body        string
}

// TicketFilter narrows ticket listings. Zero values mean "any".
type TicketFilter struct {
	Status   *TicketStatus
	Category *Category
	Priority *Priority
	Limit    int
	Offset   int
}

// TicketPage is one page of a filtered listing.
type TicketPage struct {
	Total int
	Items []Ticket
}

// CountBucket is a labelled count used by dashboards.
type CountBucket struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// DailyCount is a per-day activity count.
type DailyCount struct {
	Date  string `db:"date"`
	Count int    `db:"count"`
}

// TicketStats aggregates tickets over a trailing window.
type TicketStats struct {
	PeriodDays     int
	TotalTickets   int
	OpenTickets    int
	ByStatus       map[string]int
	ByCategory     map[string]int
	ByPriority     map[string]int
	RecentActivity []DailyCount
}

// WordCount counts whitespace-delimited tokens.
func WordCount(body string) int {
	return len(strings.Fields(body))
}

// Snippet returns the first max characters of body, suffixed with an ellipsis when truncated.
func Snippet(body string, max int) string {
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "..."
}
