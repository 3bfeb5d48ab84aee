package report

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind identifies which report slot a stage fills.
type Kind string

const (
	KindTranscript     Kind = "transcript"
	KindSpeakers       Kind = "speakers"
	KindEmotion        Kind = "emotion"
	KindAuthenticity   Kind = "authenticity"
	KindClassification Kind = "classification"
	KindSummary        Kind = "summary"
)

// Kinds lists every report slot in document order.
func Kinds() []Kind {
	return []Kind{KindTranscript, KindSpeakers, KindEmotion, KindAuthenticity, KindClassification, KindSummary}
}

// Valid reports whether k names a known slot.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Payload is a stage's typed success value.
type Payload interface {
	Kind() Kind
	// Confidence returns the stage's self-reported confidence in [0, 1]. The
	// boolean is false when the analyzer does not report one; such payloads are
	// excluded from the overall confidence.
	Confidence() (float64, bool)
	Validate() error
}

// Word is one timed token of a transcript.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the transcription payload.
type Transcript struct {
	Text     string `json:"text"`
	Words    []Word `json:"words"`
	Language string `json:"language"`
	// Marker is non-empty only on the default payload.
	Marker          string   `json:"marker,omitempty"`
	ConfidenceScore *float64 `json:"confidence,omitempty"`
}

func (Transcript) Kind() Kind { return KindTranscript }

func (t Transcript) Confidence() (float64, bool) { return optional(t.ConfidenceScore) }

func (t Transcript) Validate() error {
	if t.Words == nil {
		return errors.New("transcript words must not be nil")
	}
	for i, w := range t.Words {
		if err := checkSpan(w.Start, w.End); err != nil {
			return fmt.Errorf("transcript word %d: %w", i, err)
		}
	}
	return checkOptional("transcript confidence", t.ConfidenceScore)
}

// SpeakerSegment attributes a time span to one speaker label.
type SpeakerSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 { return s.End - s.Start }

// Speakers is the diarization payload.
type Speakers struct {
	SpeakerCount    int              `json:"speaker_count"`
	Segments        []SpeakerSegment `json:"segments"`
	ConfidenceScore *float64         `json:"confidence,omitempty"`
}

func (Speakers) Kind() Kind { return KindSpeakers }

func (s Speakers) Confidence() (float64, bool) { return optional(s.ConfidenceScore) }

func (s Speakers) Validate() error {
	if s.Segments == nil {
		return errors.New("speaker segments must not be nil")
	}
	if s.SpeakerCount < 0 {
		return errors.New("speaker count must not be negative")
	}
	labels := make(map[string]struct{})
	for i, seg := range s.Segments {
		if strings.TrimSpace(seg.Speaker) == "" {
			return fmt.Errorf("speaker segment %d: label must be set", i)
		}
		if err := checkSpan(seg.Start, seg.End); err != nil {
			return fmt.Errorf("speaker segment %d: %w", i, err)
		}
		labels[seg.Speaker] = struct{}{}
	}
	if len(labels) > s.SpeakerCount {
		return fmt.Errorf("speaker count %d is below the %d distinct labels", s.SpeakerCount, len(labels))
	}
	return checkOptional("speaker confidence", s.ConfidenceScore)
}

// Sentiment is a polarity score in [-1, 1] with its label.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Emotion is the emotional-tone payload.
type Emotion struct {
	Label           string             `json:"primary_emotion"`
	ConfidenceScore float64            `json:"confidence"`
	Intensity       float64            `json:"emotional_intensity"`
	Breakdown       map[string]float64 `json:"emotion_breakdown"`
	Sentiment       Sentiment          `json:"sentiment"`
}

func (Emotion) Kind() Kind { return KindEmotion }

func (e Emotion) Confidence() (float64, bool) { return e.ConfidenceScore, true }

func (e Emotion) Validate() error {
	if strings.TrimSpace(e.Label) == "" {
		return errors.New("emotion label must be set")
	}
	if e.Breakdown == nil {
		return errors.New("emotion breakdown must not be nil")
	}
	if err := checkUnit("emotion confidence", e.ConfidenceScore); err != nil {
		return err
	}
	if err := checkUnit("emotion intensity", e.Intensity); err != nil {
		return err
	}
	for label, share := range e.Breakdown {
		if err := checkUnit("emotion breakdown "+label, share); err != nil {
			return err
		}
	}
	if math.IsNaN(e.Sentiment.Score) || e.Sentiment.Score < -1 || e.Sentiment.Score > 1 {
		return fmt.Errorf("sentiment score %v outside [-1, 1]", e.Sentiment.Score)
	}
	if strings.TrimSpace(e.Sentiment.Label) == "" {
		return errors.New("sentiment label must be set")
	}
	return nil
}

// Authenticity is the voice-authenticity payload. Score is the likelihood
// that the voice is a live human speaker.
type Authenticity struct {
	Score           float64            `json:"authenticity_score"`
	Synthetic       bool               `json:"is_ai_voice"`
	Undetermined    bool               `json:"undetermined"`
	Method          string             `json:"detection_method"`
	Features        map[string]float64 `json:"features"`
	ConfidenceScore float64            `json:"confidence"`
}

func (Authenticity) Kind() Kind { return KindAuthenticity }

// Confidence is absent for undetermined results.
func (a Authenticity) Confidence() (float64, bool) {
	if a.Undetermined {
		return 0, false
	}
	return a.ConfidenceScore, true
}

func (a Authenticity) Validate() error {
	if err := checkUnit("authenticity score", a.Score); err != nil {
		return err
	}
	if err := checkUnit("authenticity confidence", a.ConfidenceScore); err != nil {
		return err
	}
	if a.Features == nil {
		return errors.New("authenticity features must not be nil")
	}
	for name, v := range a.Features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("authenticity feature %s is not finite", name)
		}
	}
	if strings.TrimSpace(a.Method) == "" {
		return errors.New("authenticity method must be set")
	}
	return nil
}

// Classification is the content-classification payload.
type Classification struct {
	Label           string             `json:"content_type"`
	ConfidenceScore float64            `json:"confidence"`
	Scores          map[string]float64 `json:"scores"`
	Reasoning       string             `json:"reasoning"`
}

func (Classification) Kind() Kind { return KindClassification }

func (c Classification) Confidence() (float64, bool) { return c.ConfidenceScore, true }

func (c Classification) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return errors.New("classification label must be set")
	}
	if c.Scores == nil {
		return errors.New("classification scores must not be nil")
	}
	if err := checkUnit("classification confidence", c.ConfidenceScore); err != nil {
		return err
	}
	for name, v := range c.Scores {
		if err := checkUnit("classification score "+name, v); err != nil {
			return err
		}
	}
	return nil
}

// Summary is the generated summary payload.
type Summary struct {
	Text        string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	Decisions   []string `json:"decisions"`
	// Marker is non-empty only on the default payload.
	Marker          string   `json:"marker,omitempty"`
	ConfidenceScore *float64 `json:"confidence,omitempty"`
}

func (Summary) Kind() Kind { return KindSummary }

func (s Summary) Confidence() (float64, bool) { return optional(s.ConfidenceScore) }

func (s Summary) Validate() error {
	if s.ActionItems == nil {
		return errors.New("summary action items must not be nil")
	}
	if s.Decisions == nil {
		return errors.New("summary decisions must not be nil")
	}
	return checkOptional("summary confidence", s.ConfidenceScore)
}

// Confidence returns a pointer suitable for the optional confidence fields.
func Confidence(v float64) *float64 { return &v }

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func checkOptional(name string, v *float64) error {
	if v == nil {
		return nil
	}
	return checkUnit(name, *v)
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s %v outside [0, 1]", name, v)
	}
	return nil
}

func checkSpan(start, end float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || end < start {
		return fmt.Errorf("invalid span [%v, %v]", start, end)
	}
	return nil
}
