package analyzers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
	"meetingintel/internal/textutil"
)

// Content labels produced by keywordClassifier.
const (
	ContentMeeting       = "meeting"
	ContentSpam          = "spam"
	ContentAdvertisement = "advertisement"
)

var contentKeywords = map[string][]string{
	ContentMeeting: {
		"agenda", "action item", "deadline", "project", "team", "meeting", "follow up", "decision",
		"review", "next steps", "schedule", "budget", "roadmap", "milestone", "update", "sprint", "minutes",
	},
	ContentSpam: {
		"winner", "prize", "congratulations", "claim", "lottery", "wire transfer", "gift card",
		"act now", "urgent", "verify your account", "click", "free money", "limited time",
	},
	ContentAdvertisement: {
		"sale", "discount", "offer", "buy", "promo", "promotion", "subscribe", "deal", "price",
		"sponsored", "order now", "shop", "coupon", "brand",
	},
}

// minVerdictHits is how many keyword hits spam or advertisement need before
// they outrank the meeting default.
const minVerdictHits = 2

// keywordClassifier labels the transcript by keyword density.
type keywordClassifier struct{}

func (keywordClassifier) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "keyword classifier"); err != nil {
		return nil, err
	}
	transcript, ok := stage.Find[report.Transcript](in.Prior)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, KeywordClassifier, "analyze", "no transcript available", nil)
	}
	tokens := textutil.Words(transcript.Text)

	hits := make(map[string]int, len(contentKeywords))
	matched := make(map[string][]string, len(contentKeywords))
	total := 0
	for label, keywords := range contentKeywords {
		for _, kw := range keywords {
			if n := textutil.ContainsPhrase(tokens, kw); n > 0 {
				hits[label] += n
				matched[label] = append(matched[label], kw)
				total += n
			}
		}
	}

	scores := make(map[string]float64, len(contentKeywords))
	for label := range contentKeywords {
		if total > 0 {
			scores[label] = round3(float64(hits[label]) / float64(total))
		} else {
			scores[label] = 0
		}
	}

	label := ContentMeeting
	for _, candidate := range []string{ContentSpam, ContentAdvertisement} {
		if hits[candidate] >= minVerdictHits && scores[candidate] > scores[label] {
			label = candidate
		}
	}
	// Confidence grows with the winning share and saturates at three hits.
	confidence := 0.5 + 0.5*scores[label]*clamp01(float64(total)/3)
	return report.Classification{
		Label:           label,
		ConfidenceScore: round3(confidence),
		Scores:          scores,
		Reasoning:       reasoning(label, hits[label], matched[label]),
	}, nil
}

func reasoning(label string, hits int, matched []string) string {
	if hits == 0 {
		return fmt.Sprintf("no distinguishing keywords; defaulted to %s", label)
	}
	slices.Sort(matched)
	return fmt.Sprintf("%d %s keyword hit(s): %s", hits, label, strings.Join(matched, ", "))
}
