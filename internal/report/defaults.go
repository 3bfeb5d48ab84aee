package report

import "fmt"

// Markers carried by default payloads.
const (
	TranscriptUnavailable = "[transcript unavailable]"
	SummaryUnavailable    = "[summary unavailable]"
)

// Labels used by default payloads.
const (
	NeutralLabel      = "neutral"
	UnclassifiedLabel = "unclassified"
	UndeterminedScore = 0.5
)

// DefaultFor returns the documented payload substituted when a stage of kind
// fails or is skipped. Each call returns fresh slices and maps.
func DefaultFor(kind Kind) (Payload, error) {
	switch kind {
	case KindTranscript:
		return Transcript{Words: []Word{}, Marker: TranscriptUnavailable}, nil
	case KindSpeakers:
		return Speakers{Segments: []SpeakerSegment{}}, nil
	case KindEmotion:
		return Emotion{
			Label:     NeutralLabel,
			Breakdown: map[string]float64{},
			Sentiment: Sentiment{Label: NeutralLabel},
		}, nil
	case KindAuthenticity:
		return Authenticity{
			Score:        UndeterminedScore,
			Undetermined: true,
			Method:       "none",
			Features:     map[string]float64{},
		}, nil
	case KindClassification:
		return Classification{Label: UnclassifiedLabel, Scores: map[string]float64{}}, nil
	case KindSummary:
		return Summary{ActionItems: []string{}, Decisions: []string{}, Marker: SummaryUnavailable}, nil
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
}

// ValidateDefault checks that the default for kind satisfies the same schema
// as a success payload.
func ValidateDefault(kind Kind) error {
	payload, err := DefaultFor(kind)
	if err != nil {
		return err
	}
	if payload.Kind() != kind {
		return fmt.Errorf("default for %q reports kind %q", kind, payload.Kind())
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("default for %q: %w", kind, err)
	}
	return nil
}
