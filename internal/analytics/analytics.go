package analytics

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"meetingintel/internal/report"
	"meetingintel/internal/textutil"
)

const (
	topicLimit        = 10
	minTopicLength    = 4
	decisionLimit     = 5
	activityBins      = 10
	richnessWordCount = 500
	emptyBalance      = 0.5
	keywordMinLength  = 5
	keywordsPerSample = 3
	previewRunes      = 50
)

// Report is the advanced analytics section of an analysis document.
type Report struct {
	Meeting      MeetingMetrics `json:"meeting_metrics"`
	Participants Participants   `json:"participant_insights"`
	Content      Content        `json:"content_analysis"`
	Temporal     Temporal       `json:"temporal_patterns"`
	Engagement   Engagement     `json:"engagement_score"`
	Charts       Charts         `json:"visualizations"`
}

// MeetingMetrics are the headline counts.
type MeetingMetrics struct {
	DurationMinutes float64 `json:"duration_minutes"`
	WordCount       int     `json:"word_count"`
	SentenceCount   int     `json:"sentence_count"`
	WordsPerMinute  float64 `json:"words_per_minute"`
	SpeakerCount    int     `json:"speaker_count"`
	UniqueTopics    int     `json:"unique_topics"`
}

// SpeakerShare is one speaker's talk time.
type SpeakerShare struct {
	Speaker    string  `json:"speaker"`
	Seconds    float64 `json:"time_seconds"`
	Percentage float64 `json:"percentage"`
}

// Participants summarizes who spoke and how evenly.
type Participants struct {
	SpeakingTime    []SpeakerShare `json:"speaking_time_distribution"`
	DominantSpeaker string         `json:"dominant_speaker"`
	// Balance is 1 - Gini over talk times; 1 is perfectly even.
	Balance float64 `json:"participation_balance"`
}

// Content describes what was discussed.
type Content struct {
	Topics           []string        `json:"topics"`
	QuestionCount    int             `json:"question_count"`
	DecisionPoints   []string        `json:"decision_points"`
	SentimentTrend   string          `json:"sentiment_trend"`
	KeywordEvolution []KeywordSample `json:"keyword_evolution"`
}

// KeywordSample is the long words of one sentence sampled at the start,
// the thirds, and the end of the transcript.
type KeywordSample struct {
	Position int      `json:"position"`
	Keywords []string `json:"keywords"`
	Preview  string   `json:"sentence_preview"`
}

// Temporal is speaking activity over the recording.
type Temporal struct {
	BinSeconds          float64   `json:"bin_seconds"`
	Activity            []float64 `json:"activity_over_time"`
	PeakActivitySeconds float64   `json:"peak_activity_time"`
}

// Charts is chart-ready data for front ends.
type Charts struct {
	SpeakerPie      Series `json:"speaker_pie_chart"`
	ActivityLine    Series `json:"activity_timeline"`
	EngagementRadar Series `json:"engagement_radar"`
}

// Series pairs labels with values of the same length.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Engagement scores are percentages in [0, 100].
type Engagement struct {
	Overall              float64  `json:"overall_score"`
	ContentRichness      float64  `json:"content_richness"`
	ParticipationBalance float64  `json:"participation_balance"`
	TopicDiversity       float64  `json:"topic_diversity"`
	Recommendations      []string `json:"recommendations"`
}

var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bdecided to ([^.!?]+)`),
	regexp.MustCompile(`(?i)\bagreed that ([^.!?]+)`),
	regexp.MustCompile(`(?i)\bwill ([^.!?]+)`),
	regexp.MustCompile(`(?i)\bshould ([^.!?]+)`),
	regexp.MustCompile(`(?i)\bgoing to ([^.!?]+)`),
}

// Compute derives the analytics report for result.
func Compute(result report.Result) Report {
	text := result.Transcript.Text
	topics := Topics(text)
	participants := participantInsights(result.Speakers.Segments)

	minutes := result.Source.DurationSeconds / 60
	wordCount := len(strings.Fields(text))
	meeting := MeetingMetrics{
		DurationMinutes: round(minutes, 2),
		WordCount:       wordCount,
		SentenceCount:   len(textutil.Sentences(text)),
		WordsPerMinute:  round(float64(wordCount)/max(minutes, 1), 2),
		SpeakerCount:    result.Speakers.SpeakerCount,
		UniqueTopics:    len(topics),
	}

	sentiment := result.Emotion.Sentiment.Label
	if sentiment == "" {
		sentiment = report.NeutralLabel
	}
	tm := temporal(result.Speakers.Segments)
	eng := engagement(wordCount, participants.Balance, len(topics))
	return Report{
		Meeting:      meeting,
		Participants: participants,
		Content: Content{
			Topics:           topics,
			QuestionCount:    strings.Count(text, "?"),
			DecisionPoints:   decisionPoints(text),
			SentimentTrend:   sentiment,
			KeywordEvolution: KeywordEvolution(text),
		},
		Temporal:   tm,
		Engagement: eng,
		Charts:     charts(participants, tm, eng),
	}
}

// KeywordEvolution samples the first, one-third, two-thirds, and last
// sentences of text and lists up to three long words from each.
func KeywordEvolution(text string) []KeywordSample {
	sentences := textutil.Sentences(text)
	out := []KeywordSample{}
	n := len(sentences)
	if n == 0 {
		return out
	}
	seen := make(map[int]bool)
	for _, pos := range []int{0, n / 3, 2 * n / 3, n - 1} {
		if seen[pos] {
			continue
		}
		seen[pos] = true
		sentence := sentences[pos]
		keywords := []string{}
		for _, w := range textutil.Words(sentence) {
			if len([]rune(w)) < keywordMinLength {
				continue
			}
			keywords = append(keywords, w)
			if len(keywords) == keywordsPerSample {
				break
			}
		}
		out = append(out, KeywordSample{Position: pos, Keywords: keywords, Preview: preview(sentence)})
	}
	return out
}

func preview(sentence string) string {
	runes := []rune(sentence)
	if len(runes) <= previewRunes {
		return sentence
	}
	return string(runes[:previewRunes]) + "..."
}

func charts(p Participants, tm Temporal, eng Engagement) Charts {
	pie := Series{Labels: []string{}, Values: []float64{}}
	for _, share := range p.SpeakingTime {
		pie.Labels = append(pie.Labels, share.Speaker)
		pie.Values = append(pie.Values, share.Percentage)
	}
	line := Series{Labels: make([]string, 0, len(tm.Activity)), Values: slices.Clone(tm.Activity)}
	for i := range tm.Activity {
		line.Labels = append(line.Labels, strconv.FormatFloat(round(float64(i)*tm.BinSeconds, 2), 'f', -1, 64))
	}
	return Charts{
		SpeakerPie:   pie,
		ActivityLine: line,
		EngagementRadar: Series{
			Labels: []string{"Content", "Participation", "Topics"},
			Values: []float64{eng.ContentRichness, eng.ParticipationBalance, eng.TopicDiversity},
		},
	}
}

// Topics returns up to ten of the most frequent content words of at least
// four letters. Ties keep first-occurrence order.
func Topics(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range textutil.Words(text) {
		if len(w) < minTopicLength || textutil.IsStopword(w) || !isAlpha(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > topicLimit {
		order = order[:topicLimit]
	}
	if order == nil {
		return []string{}
	}
	return order
}

func participantInsights(segments []report.SpeakerSegment) Participants {
	out := Participants{SpeakingTime: []SpeakerShare{}, Balance: emptyBalance}
	if len(segments) == 0 {
		return out
	}
	totals := make(map[string]float64)
	var order []string
	for _, seg := range segments {
		if _, seen := totals[seg.Speaker]; !seen {
			order = append(order, seg.Speaker)
		}
		totals[seg.Speaker] += seg.Duration()
	}
	var total float64
	times := make([]float64, 0, len(order))
	for _, speaker := range order {
		total += totals[speaker]
		times = append(times, totals[speaker])
	}
	best := -1.0
	for _, speaker := range order {
		share := SpeakerShare{Speaker: speaker, Seconds: round(totals[speaker], 2)}
		if total > 0 {
			share.Percentage = round(totals[speaker]/total*100, 2)
		}
		out.SpeakingTime = append(out.SpeakingTime, share)
		if totals[speaker] > best {
			best = totals[speaker]
			out.DominantSpeaker = speaker
		}
	}
	out.Balance = round(balance(times), 3)
	return out
}

// balance returns 1 minus the Gini coefficient of times.
func balance(times []float64) float64 {
	var total float64
	for _, t := range times {
		total += t
	}
	if len(times) == 0 || total == 0 {
		return emptyBalance
	}
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	n := float64(len(sorted))
	var gini float64
	for i, t := range sorted {
		gini += (2*float64(i+1) - n - 1) * t
	}
	gini /= n * total
	return 1 - gini
}

func decisionPoints(text string) []string {
	out := []string{}
	for _, pattern := range decisionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			out = append(out, strings.TrimSpace(match[1]))
			if len(out) == decisionLimit {
				return out
			}
		}
	}
	return out
}

func temporal(segments []report.SpeakerSegment) Temporal {
	out := Temporal{Activity: make([]float64, activityBins)}
	var end float64
	for _, seg := range segments {
		end = max(end, seg.End)
	}
	if end <= 0 {
		return out
	}
	width := end / activityBins
	out.BinSeconds = round(width, 3)
	for _, seg := range segments {
		bin := min(int(seg.Start/width), activityBins-1)
		out.Activity[bin] += seg.Duration()
	}
	peak := 0
	for i, v := range out.Activity {
		out.Activity[i] = round(v, 2)
		if v > out.Activity[peak] {
			peak = i
		}
	}
	out.PeakActivitySeconds = round(float64(peak)*width, 2)
	return out
}

func engagement(words int, participation float64, topics int) Engagement {
	richness := min(float64(words)/richnessWordCount, 1)
	diversity := min(float64(topics)/topicLimit, 1)
	score := (richness + participation + diversity) / 3
	return Engagement{
		Overall:              round(score*100, 1),
		ContentRichness:      round(richness*100, 1),
		ParticipationBalance: round(participation*100, 1),
		TopicDiversity:       round(diversity*100, 1),
		Recommendations:      recommendations(score),
	}
}

func recommendations(score float64) []string {
	switch {
	case score < 0.3:
		return []string{
			"Consider shorter, more focused meetings",
			"Encourage more participant interaction",
			"Prepare an agenda to stay on topic",
		}
	case score < 0.7:
		return []string{
			"Good meeting structure; participation balance could improve",
			"Watch time management for more efficient discussions",
		}
	default:
		return []string{
			"Excellent meeting engagement",
			"Maintain current participation levels",
		}
	}
}

func isAlpha(w string) bool {
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
