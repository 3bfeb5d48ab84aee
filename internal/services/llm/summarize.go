package llm

import (
	"context"
	"fmt"
	"strings"

	"meetingintel/internal/services"
)

// SummaryPrompt instructs the model to summarise a meeting transcript.
const SummaryPrompt = `You summarise business meeting transcripts.
Respond with a single JSON object and nothing else:
{"summary": string, "action_items": [string], "decisions": [string], "confidence": number}
- summary: two to four sentences in plain prose.
- action_items: concrete tasks with an owner when one is named; empty list if none.
- decisions: agreements reached in the meeting; empty list if none.
- confidence: 0 to 1, how well the transcript supports the summary.`

// Summary is the model's structured reply.
type Summary struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	Decisions   []string `json:"decisions"`
	Confidence  float64  `json:"confidence"`
}

// Summarize asks the model for a summary of transcript. tone is an optional
// hint describing the emotional tone of the meeting.
func (c *Client) Summarize(ctx context.Context, transcript, tone string) (Summary, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Summary{}, services.Wrap(services.ErrValidation, serviceName, "summarize", "transcript is empty", nil)
	}
	var prompt strings.Builder
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&prompt, "Overall tone: %s\n\n", tone)
	}
	prompt.WriteString("Transcript:\n")
	prompt.WriteString(transcript)

	content, err := c.CompleteJSON(ctx, SummaryPrompt, prompt.String())
	if err != nil {
		return Summary{}, err
	}
	var parsed Summary
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return Summary{}, services.Wrap(services.ErrExternalTool, serviceName, "summarize", "parse payload", err)
	}
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	parsed.ActionItems = cleanList(parsed.ActionItems)
	parsed.Decisions = cleanList(parsed.Decisions)
	parsed.Confidence = min(max(parsed.Confidence, 0), 1)
	return parsed, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
