package export

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"meetingintel/internal/report"
)

// Section names, in output order.
const (
	SectionAnalysis       = "analysis"
	SectionSource         = "source"
	SectionTranscript     = "transcript"
	SectionSpeakers       = "speaker_analysis"
	SectionEmotion        = "emotion_analysis"
	SectionAuthenticity   = "voice_authenticity"
	SectionClassification = "content_classification"
	SectionSummary        = "summary"
	SectionManifest       = "manifest"
)

const notReported = "n/a"

// Row is one flattened field of a result.
type Row struct {
	Section string
	Field   string
	Value   string
}

// Rows flattens result into section, field, value triples. Map-valued fields
// are expanded in key order and list entries are numbered from 1.
func Rows(result report.Result) []Row {
	var rows []Row
	add := func(section, field, value string) {
		rows = append(rows, Row{Section: section, Field: field, Value: value})
	}

	add(SectionAnalysis, "analysis_id", result.AnalysisID)
	add(SectionAnalysis, "created_at", result.CreatedAt.UTC().Format(time.RFC3339))
	add(SectionAnalysis, "elapsed_ms", strconv.FormatInt(result.ElapsedMS, 10))
	add(SectionAnalysis, "confidence_score", number(result.OverallConfidence))

	src := result.Source
	add(SectionSource, "name", src.Name)
	add(SectionSource, "fingerprint", src.Fingerprint)
	add(SectionSource, "duration_seconds", number(src.DurationSeconds))
	add(SectionSource, "sample_rate", strconv.Itoa(src.SampleRate))
	add(SectionSource, "channels", strconv.Itoa(src.Channels))

	tr := result.Transcript
	add(SectionTranscript, "text", tr.Text)
	add(SectionTranscript, "language", tr.Language)
	add(SectionTranscript, "marker", tr.Marker)
	add(SectionTranscript, "confidence", optional(tr.Confidence()))
	add(SectionTranscript, "word_count", strconv.Itoa(len(tr.Words)))
	for i, w := range tr.Words {
		add(SectionTranscript, fmt.Sprintf("word_%d", i+1), fmt.Sprintf("%s [%s-%s]", w.Text, seconds(w.Start), seconds(w.End)))
	}

	sp := result.Speakers
	add(SectionSpeakers, "speaker_count", strconv.Itoa(sp.SpeakerCount))
	add(SectionSpeakers, "confidence", optional(sp.Confidence()))
	add(SectionSpeakers, "segment_count", strconv.Itoa(len(sp.Segments)))
	for i, seg := range sp.Segments {
		add(SectionSpeakers, fmt.Sprintf("segment_%d", i+1), fmt.Sprintf("%s [%s-%s]", seg.Speaker, seconds(seg.Start), seconds(seg.End)))
	}

	em := result.Emotion
	add(SectionEmotion, "primary_emotion", em.Label)
	add(SectionEmotion, "confidence", number(em.ConfidenceScore))
	add(SectionEmotion, "emotional_intensity", number(em.Intensity))
	add(SectionEmotion, "sentiment_label", em.Sentiment.Label)
	add(SectionEmotion, "sentiment_score", number(em.Sentiment.Score))
	for _, k := range sortedKeys(em.Breakdown) {
		add(SectionEmotion, "breakdown."+k, number(em.Breakdown[k]))
	}

	au := result.Authenticity
	add(SectionAuthenticity, "authenticity_score", number(au.Score))
	add(SectionAuthenticity, "is_ai_voice", strconv.FormatBool(au.Synthetic))
	add(SectionAuthenticity, "undetermined", strconv.FormatBool(au.Undetermined))
	add(SectionAuthenticity, "detection_method", au.Method)
	add(SectionAuthenticity, "confidence", number(au.ConfidenceScore))
	for _, k := range sortedKeys(au.Features) {
		add(SectionAuthenticity, "features."+k, number(au.Features[k]))
	}

	cl := result.Classification
	add(SectionClassification, "content_type", cl.Label)
	add(SectionClassification, "confidence", number(cl.ConfidenceScore))
	add(SectionClassification, "reasoning", cl.Reasoning)
	for _, k := range sortedKeys(cl.Scores) {
		add(SectionClassification, "scores."+k, number(cl.Scores[k]))
	}

	su := result.Summary
	add(SectionSummary, "summary", su.Text)
	add(SectionSummary, "marker", su.Marker)
	add(SectionSummary, "confidence", optional(su.Confidence()))
	add(SectionSummary, "action_item_count", strconv.Itoa(len(su.ActionItems)))
	for i, item := range su.ActionItems {
		add(SectionSummary, fmt.Sprintf("action_item_%d", i+1), item)
	}
	add(SectionSummary, "decision_count", strconv.Itoa(len(su.Decisions)))
	for i, d := range su.Decisions {
		add(SectionSummary, fmt.Sprintf("decision_%d", i+1), d)
	}

	for _, st := range result.Manifest {
		add(SectionManifest, st.StageID, manifestValue(st))
	}
	return rows
}

func manifestValue(st report.StageStatus) string {
	value := fmt.Sprintf("%s (%s, %dms", st.State, st.Kind, st.ElapsedMS)
	if st.Reported != nil {
		value += ", confidence " + number(*st.Reported)
	}
	if st.Reason != "" {
		value += ", reason: " + st.Reason
		if st.Retryable {
			value += ", retryable"
		}
	}
	return value + ")"
}

// SectionTitle turns a section or field key into a display heading.
func SectionTitle(key string) string {
	spaced := []rune(key)
	for i, r := range spaced {
		if r == '_' || r == '.' {
			spaced[i] = ' '
		}
	}
	return cases.Title(language.English).String(string(spaced))
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v float64, ok bool) string {
	if !ok {
		return notReported
	}
	return number(v)
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
