package analysis

import "strings"

const systemPrompt = "You analyze customer support emails and answer with a single JSON object."

const promptTemplate = `Analyze this customer support email and provide structured information.

Email:
{{EMAIL}}

Return ONLY valid JSON with this exact structure:
{
    "summary": "3-5 bullet points summarizing the email",
    "key_points": ["specific date/name/number", "action item", "critical info"],
    "category": "Sales|Support|General|Marketing|HR",
    "priority": "High|Medium|Low",
    "sentiment": {"tone": "Positive|Neutral|Negative|Urgent", "confidence": 0.95},
    "reply": "Professional 2-4 paragraph reply with greeting and closing"
}

Categories guide:
- Sales: proposals, pricing, purchases, orders, deals
- Support: issues, problems, help, bugs, technical questions
- General: general communication, updates, casual messages
- Marketing: campaigns, newsletters, promotions, webinars
- HR: recruitment, interviews, performance, team matters

Priority guide:
- High: urgent, deadline-driven, requires immediate action
- Medium: important but not urgent, can wait 1-2 days
- Low: informational, FYI, no immediate action needed

Sentiment guide:
- Positive: friendly, thankful, enthusiastic
- Neutral: informational, professional
- Negative: complaint, frustration, anger
- Urgent: time-sensitive, requires immediate attention`

// BuildPrompt embeds the email body in the analysis instructions.
func BuildPrompt(text string) string {
	return strings.Replace(promptTemplate, "{{EMAIL}}", text, 1)
}
