package analysis

import (
	"regexp"
	"strings"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const (
	fallbackSentences  = 3
	fallbackMaxSummary = 800
	rawSummaryMax      = 500
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// EmptyBody is the analysis reported for an email without content.
func EmptyBody() domain.Analysis {
	return domain.Analysis{
		Summary:        "No email body detected.",
		KeyPoints:      []string{"No content to analyze"},
		Category:       domain.CategoryGeneral,
		Priority:       domain.PriorityLow,
		Sentiment:      domain.Sentiment{Tone: domain.ToneNeutral},
		SuggestedReply: "Unable to generate reply - no email content found.",
	}
}

// Extractive builds an analysis from the first sentences of text. It is used when no
// provider is configured or the provider call failed; note explains which.
func Extractive(text, note, keyPoint, reply string) domain.Analysis {
	summary := ExtractSummary(text)
	if note != "" {
		summary = note + "\n\n" + summary
	}
	return domain.Analysis{
		Summary:        summary,
		KeyPoints:      []string{keyPoint},
		Category:       domain.CategoryGeneral,
		Priority:       domain.PriorityMedium,
		Sentiment:      domain.Sentiment{Tone: domain.ToneNeutral},
		SuggestedReply: reply,
	}
}

// Unparsed keeps the head of an unparseable provider response as the summary.
func Unparsed(raw string) domain.Analysis {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		summary = "Error parsing response"
	} else if runes := []rune(summary); len(runes) > rawSummaryMax {
		summary = string(runes[:rawSummaryMax])
	}
	return domain.Analysis{
		Summary:        summary,
		KeyPoints:      []string{"Unable to parse structured data"},
		Category:       domain.CategoryGeneral,
		Priority:       domain.PriorityMedium,
		Sentiment:      domain.Sentiment{Tone: domain.ToneNeutral},
		SuggestedReply: "Unable to generate structured reply",
	}
}

// ExtractSummary joins the first three sentences of text, capped at 800 characters.
func ExtractSummary(text string) string {
	flat := strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(text))

	var sentences []string
	rest := flat
	for len(sentences) < fallbackSentences {
		loc := sentenceBoundary.FindStringIndex(rest)
		if loc == nil {
			sentences = append(sentences, rest)
			break
		}
		// keep the terminating punctuation, drop the whitespace
		sentences = append(sentences, rest[:loc[0]+1])
		rest = rest[loc[1]:]
	}

	summary := strings.TrimSpace(strings.Join(sentences, " "))
	if runes := []rune(summary); len(runes) > fallbackMaxSummary {
		summary = string(runes[:fallbackMaxSummary]) + "..."
	}
	return summary
}
