package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
)

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		TicketNumber: "TKT-000042",
		SenderEmail:  "jane.doe@example.com",
		Status:       domain.TicketStatusInProgress,
		Analysis: domain.Analysis{
			Summary:   "Refund <requested>",
			KeyPoints: []string{"one", "two", "three", "four"},
			Category:  domain.CategorySupport,
			Priority:  domain.PriorityHigh,
		},
	}
}

func TestBuildConfirmation(t *testing.T) {
	c, err := BuildConfirmation(sampleTicket())
	if err != nil {
		t.Fatalf("BuildConfirmation() error = %v", err)
	}
	if c.Subject != "Your Support Ticket #TKT-000042 - Confirmed" {
		t.Errorf("Subject = %q", c.Subject)
	}
	if c.To != "jane.doe@example.com" {
		t.Errorf("To = %q", c.To)
	}
	for _, want := range []string{"Hello Jane.Doe,", "In-Progress", "• three"} {
		if !strings.Contains(c.Text, want) {
			t.Errorf("text body missing %q", want)
		}
	}
	if strings.Contains(c.Text, "four") || strings.Contains(c.HTML, "four") {
		t.Error("only three key points should be rendered")
	}
	if !strings.Contains(c.HTML, "Refund &lt;requested&gt;") {
		t.Error("html body should escape the summary")
	}
}

func TestBuildConfirmationUsesSenderName(t *testing.T) {
	ticket := sampleTicket()
	name := "Jane Q. Customer"
	ticket.SenderName = &name
	ticket.Analysis.KeyPoints = nil

	c, err := BuildConfirmation(ticket)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(c.Text, "Hello Jane Q. Customer,") {
		t.Errorf("text body does not greet sender name:\n%s", c.Text)
	}
	if strings.Contains(c.HTML, "Key Points") {
		t.Error("key points section rendered without key points")
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"open":        "Open",
		"in-progress": "In-Progress",
		"jOHN_smith":  "John_Smith",
		"":            "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSendConfirmationRequiresRecipient(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "localhost", Port: 25}, zap.NewNop())
	ticket := sampleTicket()
	ticket.SenderEmail = ""
	if err := m.SendConfirmation(context.Background(), ticket); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("SendConfirmation() error = %v, want ErrNoRecipient", err)
	}
}
