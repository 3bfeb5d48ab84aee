package calendar

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetingintel/internal/report"
	"meetingintel/internal/textutil"
)

const (
	maxSuggestions  = 3
	eventDuration   = 30 * time.Minute
	defaultHour     = 10
	maxTopicRunes   = 80
	duplicateCosine = 0.8
	baseConfidence  = 0.7
)

// Suggestion is one proposed follow-up event.
type Suggestion struct {
	ID              string    `json:"event_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Confidence      float64   `json:"confidence"`
	Type            string    `json:"type"`
}

type topicKind int

const (
	kindDiscussion topicKind = iota
	kindFollowUp
	kindReview
)

type topic struct {
	text string
	kind topicKind
}

var topicPatterns = []struct {
	re   *regexp.Regexp
	kind topicKind
}{
	{regexp.MustCompile(`(?i)\bfollow[ -]up on ([^.!?\n]+)`), kindFollowUp},
	{regexp.MustCompile(`(?i)\bdiscuss ([^.!?\n]+?) next\b`), kindDiscussion},
	{regexp.MustCompile(`(?i)\breview ([^.!?\n]+)`), kindReview},
	{regexp.MustCompile(`(?i)\bmeet about ([^.!?\n]+)`), kindDiscussion},
}

var fallbackTopics = []string{"Action Items", "Project Update", "Team Discussion"}

// namespace scopes event ids to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("meetingintel:calendar"))

// Suggest proposes up to three follow-up events from summary. Topics come
// from follow-up phrasing in the summary text, then action items, then fixed
// fallbacks. Every event is 30 minutes at 10:00 on the first business day
// after now, in now's location.
func Suggest(summary report.Summary, now time.Time) []Suggestion {
	topics := collectTopics(summary)
	start := nextBusinessDay(now)
	out := make([]Suggestion, 0, len(topics))
	for i, t := range topics {
		title := titleFor(t)
		out = append(out, Suggestion{
			ID:              uuid.NewSHA1(namespace, []byte(title+"@"+start.Format(time.RFC3339))).String(),
			Title:           title,
			Description:     "Suggested from meeting discussion about: " + t.text,
			Start:           start,
			End:             start.Add(eventDuration),
			DurationMinutes: int(eventDuration / time.Minute),
			Confidence:      math.Round((baseConfidence-0.1*float64(i))*10) / 10,
			Type:            "suggested",
		})
	}
	return out
}

func collectTopics(summary report.Summary) []topic {
	var found []topic
	var prints []*textutil.Fingerprint
	add := func(text string, kind topicKind) {
		text = textutil.Truncate(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ".!?,;")), maxTopicRunes)
		if text == "" || len(found) == maxSuggestions {
			return
		}
		fp := textutil.NewFingerprint(text)
		for _, other := range prints {
			if textutil.CosineSimilarity(fp, other) >= duplicateCosine {
				return
			}
		}
		for _, existing := range found {
			if strings.EqualFold(existing.text, text) {
				return
			}
		}
		found = append(found, topic{text: text, kind: kind})
		if fp != nil {
			prints = append(prints, fp)
		}
	}

	for _, p := range topicPatterns {
		for _, match := range p.re.FindAllStringSubmatch(summary.Text, -1) {
			add(match[1], p.kind)
		}
	}
	for _, item := range summary.ActionItems {
		add(item, kindOf(item))
	}
	if len(found) == 0 {
		for _, text := range fallbackTopics {
			add(text, kindDiscussion)
		}
	}
	return found
}

func kindOf(text string) topicKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "follow"):
		return kindFollowUp
	case strings.Contains(lower, "review"):
		return kindReview
	default:
		return kindDiscussion
	}
}

func titleFor(t topic) string {
	switch t.kind {
	case kindFollowUp:
		return "Follow-up: " + t.text
	case kindReview:
		return "Review: " + t.text
	default:
		return "Discussion: " + t.text
	}
}

func nextBusinessDay(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), defaultHour, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
