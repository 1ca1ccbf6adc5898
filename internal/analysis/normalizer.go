// Package analysis turns email text into a structured, normalized analysis.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

const (
	placeholderSummary  = "Unable to generate summary"
	placeholderKeyPoint = "Unable to extract key points"
	placeholderReply    = "Unable to generate reply"
	defaultConfidence   = 0.5
	summaryBulletPrefix = "• "
	jsonFenceOpen       = "```json"
	genericFenceDelim   = "```"
)

// StripCodeFence removes a markdown code fence around a JSON payload. The first fence wins.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if _, after, ok := strings.Cut(text, jsonFenceOpen); ok {
		inner, _, _ := strings.Cut(after, genericFenceDelim)
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(text, genericFenceDelim); ok {
		inner, _, _ := strings.Cut(after, genericFenceDelim)
		return strings.TrimSpace(inner)
	}
	return text
}

// Parse decodes provider output into a loose payload and normalizes it.
func Parse(raw string) (domain.Analysis, error) {
	cleaned := StripCodeFence(raw)
	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return domain.Analysis{}, &domain.MalformedAnalysisError{Raw: raw, Err: err}
	}
	if payload == nil {
		return domain.Analysis{}, &domain.MalformedAnalysisError{Raw: raw, Err: errors.New("payload is not a JSON object")}
	}
	return Normalize(payload), nil
}

// Normalize applies field-by-field defaults so that every analysis field is populated.
func Normalize(payload map[string]any) domain.Analysis {
	return domain.Analysis{
		Summary:        normalizeSummary(payload["summary"]),
		KeyPoints:      normalizeKeyPoints(payload["key_points"]),
		Category:       normalizeCategory(payload["category"]),
		Priority:       normalizePriority(payload["priority"]),
		Sentiment:      normalizeSentiment(payload),
		SuggestedReply: normalizeReply(payload),
	}
}

func normalizeSummary(v any) string {
	switch val := v.(type) {
	case nil:
		return placeholderSummary
	case string:
		return val
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, summaryBulletPrefix+stringify(item))
		}
		return strings.Join(lines, "\n")
	default:
		return stringify(val)
	}
}

func normalizeKeyPoints(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{placeholderKeyPoint}
	case []any:
		points := make([]string, 0, len(val))
		for _, item := range val {
			points = append(points, stringify(item))
		}
		return points
	default:
		return []string{stringify(val)}
	}
}

func normalizeCategory(v any) domain.Category {
	if s, ok := v.(string); ok {
		if c := domain.Category(s); c.Valid() {
			return c
		}
	}
	return domain.CategoryGeneral
}

func normalizePriority(v any) domain.Priority {
	if s, ok := v.(string); ok {
		if p := domain.Priority(s); p.Valid() {
			return p
		}
	}
	return domain.PriorityMedium
}

// normalizeSentiment accepts {"sentiment": {"tone", "confidence"}} and the flat
// sentiment_tone / sentiment_confidence shape.
func normalizeSentiment(payload map[string]any) domain.Sentiment {
	var toneRaw, confRaw any
	if nested, ok := payload["sentiment"].(map[string]any); ok {
		toneRaw, confRaw = nested["tone"], nested["confidence"]
	} else if flat, ok := payload["sentiment_tone"]; ok {
		toneRaw, confRaw = flat, payload["sentiment_confidence"]
	}

	tone, ok := toneRaw.(string)
	if !ok {
		return domain.Sentiment{Tone: domain.ToneNeutral, Confidence: defaultConfidence}
	}
	t := domain.SentimentTone(tone)
	if !t.Valid() {
		t = domain.ToneNeutral
	}
	return domain.Sentiment{Tone: t, Confidence: confidence(confRaw)}
}

func confidence(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func normalizeReply(payload map[string]any) string {
	for _, key := range []string{"reply", "suggested_reply"} {
		if v, ok := payload[key]; ok && v != nil {
			return stringify(v)
		}
	}
	return placeholderReply
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
