package analyzers

import (
	"context"
	"slices"
	"strings"

	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
	"meetingintel/internal/textutil"
)

const maxListedItems = 10

var (
	actionPatterns = []string{
		"will", "need to", "needs to", "should", "action item", "todo", "to do", "follow up",
		"let's", "assign", "assigned", "by friday", "by monday", "next week", "deadline",
	}
	decisionPatterns = []string{
		"decided", "decide", "agreed", "agree", "approve", "approved", "decision", "go with",
		"settled on", "concluded", "final",
	}
)

// extractiveSummarizer picks the highest scoring sentences by term frequency
// and pulls action items and decisions out with phrase patterns.
type extractiveSummarizer struct {
	sentences int
}

func (e extractiveSummarizer) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "extractive summarizer"); err != nil {
		return nil, err
	}
	transcript, ok := stage.Find[report.Transcript](in.Prior)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, ExtractiveSummarizer, "analyze", "no transcript available", nil)
	}
	all := textutil.Sentences(transcript.Text)
	out := report.Summary{
		Text:        strings.Join(e.topSentences(all), " "),
		ActionItems: matchSentences(all, actionPatterns),
		Decisions:   matchSentences(all, decisionPatterns),
	}
	if emotion, ok := stage.Find[report.Emotion](in.Prior); ok {
		tone := "Overall tone: " + emotion.Label + "."
		out.Text = strings.TrimSpace(out.Text + " " + tone)
	}
	return out, nil
}

func (e extractiveSummarizer) topSentences(all []string) []string {
	if len(all) <= e.sentences {
		return slices.Clone(all)
	}
	freq := make(map[string]int)
	tokenized := make([][]string, len(all))
	for i, s := range all {
		tokenized[i] = textutil.Words(s)
		for _, w := range tokenized[i] {
			if !textutil.IsStopword(w) {
				freq[w]++
			}
		}
	}
	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(all))
	for i, tokens := range tokenized {
		var sum int
		for _, w := range tokens {
			sum += freq[w]
		}
		score := 0.0
		if len(tokens) > 0 {
			score = float64(sum) / float64(len(tokens))
		}
		ranked[i] = scored{index: i, score: score}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	picked := make([]int, 0, e.sentences)
	for _, r := range ranked[:e.sentences] {
		picked = append(picked, r.index)
	}
	slices.Sort(picked)
	out := make([]string, 0, len(picked))
	for _, i := range picked {
		out = append(out, all[i])
	}
	return out
}

func matchSentences(all []string, patterns []string) []string {
	out := make([]string, 0)
	for _, s := range all {
		tokens := textutil.Words(s)
		for _, p := range patterns {
			if textutil.ContainsPhrase(tokens, p) > 0 {
				out = append(out, s)
				break
			}
		}
		if len(out) == maxListedItems {
			break
		}
	}
	return out
}

// llmSummarizer delegates summarisation to a language model.
type llmSummarizer struct {
	client Summarizer
}

func newLLMSummarizer(deps Deps) (stage.Analyzer, error) {
	if !isConfigured(deps.LLM) {
		return nil, services.Wrap(services.ErrConfiguration, LLMSummarizer, "new", "llm.api_key is not configured", nil)
	}
	return llmSummarizer{client: deps.LLM}, nil
}

func (l llmSummarizer) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	transcript, ok := stage.Find[report.Transcript](in.Prior)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, LLMSummarizer, "analyze", "no transcript available", nil)
	}
	var tone string
	if emotion, ok := stage.Find[report.Emotion](in.Prior); ok {
		tone = emotion.Label
	}
	reply, err := l.client.Summarize(ctx, transcript.Text, tone)
	if err != nil {
		return nil, err
	}
	out := report.Summary{
		Text:            reply.Summary,
		ActionItems:     reply.ActionItems,
		Decisions:       reply.Decisions,
		ConfidenceScore: report.Confidence(reply.Confidence),
	}
	if out.ActionItems == nil {
		out.ActionItems = []string{}
	}
	if out.Decisions == nil {
		out.Decisions = []string{}
	}
	return out, nil
}

func (l llmSummarizer) HealthCheck(ctx context.Context) stage.Health {
	return probeHealth(ctx, LLMSummarizer, l.client)
}
