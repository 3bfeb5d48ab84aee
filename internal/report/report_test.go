package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"meetingintel/internal/report"
)

func TestDefaultsValidateForEveryKind(t *testing.T) {
	for _, kind := range report.Kinds() {
		if err := report.ValidateDefault(kind); err != nil {
			t.Fatalf("default for %s invalid: %v", kind, err)
		}
		payload, _ := report.DefaultFor(kind)
		if _, ok := payload.Confidence(); ok && kind != report.KindEmotion && kind != report.KindClassification {
			t.Fatalf("default for %s should not report a confidence", kind)
		}
	}
	if _, err := report.DefaultFor("mystery"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if report.Kind("mystery").Valid() {
		t.Fatal("unknown kind must not be valid")
	}
}

func TestDocumentedDefaultValues(t *testing.T) {
	res, err := report.NewResult()
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	if res.Transcript.Text != "" || res.Transcript.Marker != report.TranscriptUnavailable {
		t.Fatalf("unexpected transcript default %+v", res.Transcript)
	}
	if len(res.Speakers.Segments) != 0 || res.Speakers.Segments == nil {
		t.Fatalf("expected empty, non-nil segments, got %#v", res.Speakers.Segments)
	}
	if res.Emotion.Label != "neutral" || res.Emotion.ConfidenceScore != 0 {
		t.Fatalf("unexpected emotion default %+v", res.Emotion)
	}
	if res.Authenticity.Score != 0.5 || !res.Authenticity.Undetermined {
		t.Fatalf("unexpected authenticity default %+v", res.Authenticity)
	}
	if res.Summary.ActionItems == nil || len(res.Summary.ActionItems) != 0 {
		t.Fatalf("expected empty action items, got %#v", res.Summary.ActionItems)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("default result invalid: %v", err)
	}
}

func TestUndeterminedAuthenticityReportsNoConfidence(t *testing.T) {
	undetermined := report.Authenticity{Score: report.UndeterminedScore, Undetermined: true, Method: "signal", Features: map[string]float64{}}
	if _, ok := undetermined.Confidence(); ok {
		t.Fatal("undetermined authenticity must not report a confidence")
	}
	measured := report.Authenticity{Score: 0.9, Method: "signal", Features: map[string]float64{}, ConfidenceScore: 0.8}
	if c, ok := measured.Confidence(); !ok || c != 0.8 {
		t.Fatalf("Confidence() = %v, %v", c, ok)
	}
}

func TestDefaultsAreFreshPerCall(t *testing.T) {
	first, _ := report.DefaultFor(report.KindEmotion)
	first.(report.Emotion).Breakdown["joy"] = 1
	second, _ := report.DefaultFor(report.KindEmotion)
	if len(second.(report.Emotion).Breakdown) != 0 {
		t.Fatal("defaults must not share maps between calls")
	}
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload report.Payload
		wantErr string
	}{
		{"nil words", report.Transcript{}, "words must not be nil"},
		{"bad word span", report.Transcript{Words: []report.Word{{Text: "a", Start: 2, End: 1}}}, "invalid span"},
		{"transcript confidence", report.Transcript{Words: []report.Word{}, ConfidenceScore: report.Confidence(1.5)}, "outside [0, 1]"},
		{"blank speaker", report.Speakers{SpeakerCount: 1, Segments: []report.SpeakerSegment{{Start: 0, End: 1}}}, "label must be set"},
		{"undercounted speakers", report.Speakers{SpeakerCount: 1, Segments: []report.SpeakerSegment{{Speaker: "A", End: 1}, {Speaker: "B", Start: 1, End: 2}}}, "distinct labels"},
		{"emotion range", report.Emotion{Label: "joy", ConfidenceScore: 2, Breakdown: map[string]float64{}, Sentiment: report.Sentiment{Label: "positive"}}, "outside [0, 1]"},
		{"sentiment range", report.Emotion{Label: "joy", Breakdown: map[string]float64{}, Sentiment: report.Sentiment{Label: "positive", Score: 3}}, "outside [-1, 1]"},
		{"authenticity score", report.Authenticity{Score: 1.2, Method: "x", Features: map[string]float64{}}, "authenticity score"},
		{"authenticity method", report.Authenticity{Score: 0.2, Features: map[string]float64{}}, "method must be set"},
		{"classification label", report.Classification{Scores: map[string]float64{}}, "label must be set"},
		{"summary decisions", report.Summary{ActionItems: []string{}}, "decisions must not be nil"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestResultSetRoutesByKind(t *testing.T) {
	res, _ := report.NewResult()
	emotion := report.Emotion{Label: "positive", ConfidenceScore: 0.8, Breakdown: map[string]float64{"positive": 1}, Sentiment: report.Sentiment{Label: "positive", Score: 0.5}}
	if err := res.Set(emotion); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := res.Payload(report.KindEmotion)
	if !ok || got.(report.Emotion).Label != "positive" {
		t.Fatalf("expected emotion slot to update, got %+v", got)
	}
	if err := res.Set(nil); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestManifestHelpers(t *testing.T) {
	manifest := report.Manifest{
		{StageID: "transcription", State: report.StateFailed, Reason: "timeout", Retryable: true},
		{StageID: "diarization", State: report.StateSucceeded},
		{StageID: "emotion", State: report.StateSkipped},
	}
	status, ok := manifest.Get("emotion")
	if !ok || status.State != report.StateSkipped {
		t.Fatalf("unexpected status %+v", status)
	}
	if _, ok := manifest.Get("missing"); ok {
		t.Fatal("expected missing stage to be absent")
	}
	degraded := manifest.Degraded()
	if len(degraded) != 2 || degraded[0].StageID != "transcription" || degraded[1].StageID != "emotion" {
		t.Fatalf("unexpected degraded list %+v", degraded)
	}

	res, _ := report.NewResult()
	res.Manifest = append(manifest, manifest[0])
	if err := res.Validate(); err == nil {
		t.Fatal("expected duplicate manifest entry to fail validation")
	}
}

func TestNewAnalysisIDIsStable(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	a := report.NewAnalysisID("abc", at)
	if a != report.NewAnalysisID("abc", at) {
		t.Fatal("expected identical inputs to produce identical ids")
	}
	if a == report.NewAnalysisID("abc", at.Add(time.Nanosecond)) {
		t.Fatal("expected timestamp to change the id")
	}
	if a == report.NewAnalysisID("abd", at) {
		t.Fatal("expected fingerprint to change the id")
	}
}

func TestResultJSONHasStableFieldsAndNoNulls(t *testing.T) {
	res, _ := report.NewResult()
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc := string(data)
	for _, key := range []string{`"transcript"`, `"speaker_analysis"`, `"emotion_analysis"`, `"voice_authenticity"`, `"content_classification"`, `"summary"`, `"confidence_score"`, `"manifest"`, `"elapsed_ms"`, `"analysis_id"`} {
		if !strings.Contains(doc, key) {
			t.Fatalf("expected key %s in %s", key, doc)
		}
	}
	if strings.Contains(doc, "null") {
		t.Fatalf("default document must not contain nulls: %s", doc)
	}
}
