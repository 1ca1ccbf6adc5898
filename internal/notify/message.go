package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"unicode"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const maxKeyPoints = 3

// Confirmation is a rendered confirmation email.
type Confirmation struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type confirmationData struct {
	Name         string
	TicketNumber string
	Status       string
	Priority     string
	Marker       string
	Category     string
	Summary      string
	KeyPoints    []string
}

var textTmpl = texttemplate.Must(texttemplate.New("confirmation.txt").Parse(`Hello {{.Name}},

Thank you for contacting us! Your support request has been received and a ticket has been created.

TICKET DETAILS
----------------------------------------

Ticket Number:  {{.TicketNumber}}
Status:         {{.Status}}
Priority:       {{.Marker}} {{.Priority}}
Category:       {{.Category}}

Summary:
{{.Summary}}
{{if .KeyPoints}}
{{range .KeyPoints}}• {{.}}
{{end}}{{end}}
----------------------------------------

Our team is reviewing your request and will get back to you shortly.

Please reference ticket #{{.TicketNumber}} in any follow-up communications.

Best regards,
Support Team
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #323130; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #0078d4;">Support Ticket Created</h1>
  <p>Hello {{.Name}},</p>
  <p>Thank you for contacting us! Your support request has been received and a ticket has been created.</p>
  <table style="border-collapse: collapse;">
    <tr><td><strong>Ticket Number:</strong></td><td><strong>{{.TicketNumber}}</strong></td></tr>
    <tr><td><strong>Status:</strong></td><td>{{.Status}}</td></tr>
    <tr><td><strong>Priority:</strong></td><td>{{.Marker}} {{.Priority}}</td></tr>
    <tr><td><strong>Category:</strong></td><td>{{.Category}}</td></tr>
  </table>
  <div style="background: #f3f2f1; padding: 12px; margin: 16px 0;">
    <strong>Summary:</strong><br>{{.Summary}}
  </div>
  {{if .KeyPoints}}<div>
    <strong>Key Points:</strong>
    <ul>{{range .KeyPoints}}<li>{{.}}</li>{{end}}</ul>
  </div>{{end}}
  <p>Our team is reviewing your request and will get back to you shortly based on the priority level.</p>
  <p><strong>Please reference ticket #{{.TicketNumber}} in any follow-up communications.</strong></p>
  <p style="color: #605e5c; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`))

// BuildConfirmation renders the confirmation email for a newly created ticket.
func BuildConfirmation(ticket domain.Ticket) (Confirmation, error) {
	points := ticket.Analysis.KeyPoints
	if len(points) > maxKeyPoints {
		points = points[:maxKeyPoints]
	}

	data := confirmationData{
		Name:         recipientName(ticket),
		TicketNumber: ticket.TicketNumber,
		Status:       titleCase(string(ticket.Status)),
		Priority:     string(ticket.Analysis.Priority),
		Marker:       priorityMarker(ticket.Analysis.Priority),
		Category:     string(ticket.Analysis.Category),
		Summary:      ticket.Analysis.Summary,
		KeyPoints:    points,
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Confirmation{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Confirmation{}, fmt.Errorf("render html body: %w", err)
	}

	return Confirmation{
		To:      ticket.SenderEmail,
		Subject: fmt.Sprintf("Your Support Ticket #%s - Confirmed", ticket.TicketNumber),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func recipientName(ticket domain.Ticket) string {
	if ticket.SenderName != nil && strings.TrimSpace(*ticket.SenderName) != "" {
		return *ticket.SenderName
	}
	local, _, _ := strings.Cut(ticket.SenderEmail, "@")
	return titleCase(local)
}

func priorityMarker(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "🔴"
	case domain.PriorityMedium:
		return "🟡"
	case domain.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// titleCase upper-cases the first letter of every letter run and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
