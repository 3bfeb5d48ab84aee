package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage states recorded in the manifest.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped-dependency-unmet"
)

// StageStatus is one manifest entry.
type StageStatus struct {
	StageID   string   `json:"stage_id"`
	Kind      Kind     `json:"kind"`
	State     State    `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	Retryable bool     `json:"retryable"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Reported  *float64 `json:"confidence,omitempty"`
}

// Manifest lists exactly one status per registered stage in registration order.
type Manifest []StageStatus

// Get returns the status for a stage id.
func (m Manifest) Get(id string) (StageStatus, bool) {
	for _, status := range m {
		if status.StageID == id {
			return status, true
		}
	}
	return StageStatus{}, false
}

// Degraded returns the entries that did not succeed.
func (m Manifest) Degraded() []StageStatus {
	out := make([]StageStatus, 0)
	for _, status := range m {
		if status.State != StateSucceeded {
			out = append(out, status)
		}
	}
	return out
}

// Source describes the analysed audio.
type Source struct {
	Name            string  `json:"name"`
	Fingerprint     string  `json:"fingerprint"`
	DurationSeconds float64 `json:"duration_seconds"`
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
}

// Result is the complete MeetingAnalysisResult. Every slot holds either the
// succeeded stage's payload or that kind's default.
type Result struct {
	AnalysisID        string         `json:"analysis_id"`
	CreatedAt         time.Time      `json:"created_at"`
	Source            Source         `json:"source"`
	Transcript        Transcript     `json:"transcript"`
	Speakers          Speakers       `json:"speaker_analysis"`
	Emotion           Emotion        `json:"emotion_analysis"`
	Authenticity      Authenticity   `json:"voice_authenticity"`
	Classification    Classification `json:"content_classification"`
	Summary           Summary        `json:"summary"`
	OverallConfidence float64        `json:"confidence_score"`
	Manifest          Manifest       `json:"manifest"`
	ElapsedMS         int64          `json:"elapsed_ms"`
}

// NewResult returns a result with every slot holding its default.
func NewResult() (Result, error) {
	var res Result
	for _, kind := range Kinds() {
		payload, err := DefaultFor(kind)
		if err != nil {
			return Result{}, err
		}
		if err := res.Set(payload); err != nil {
			return Result{}, err
		}
	}
	res.Manifest = Manifest{}
	return res, nil
}

// Set stores payload in the slot for its kind.
func (r *Result) Set(payload Payload) error {
	switch p := payload.(type) {
	case Transcript:
		r.Transcript = p
	case Speakers:
		r.Speakers = p
	case Emotion:
		r.Emotion = p
	case Authenticity:
		r.Authenticity = p
	case Classification:
		r.Classification = p
	case Summary:
		r.Summary = p
	case nil:
		return errors.New("nil payload")
	default:
		return fmt.Errorf("unsupported payload type %T", payload)
	}
	return nil
}

// Payload returns the slot for kind.
func (r *Result) Payload(kind Kind) (Payload, bool) {
	switch kind {
	case KindTranscript:
		return r.Transcript, true
	case KindSpeakers:
		return r.Speakers, true
	case KindEmotion:
		return r.Emotion, true
	case KindAuthenticity:
		return r.Authenticity, true
	case KindClassification:
		return r.Classification, true
	case KindSummary:
		return r.Summary, true
	default:
		return nil, false
	}
}

// Validate checks every slot and the manifest.
func (r *Result) Validate() error {
	for _, kind := range Kinds() {
		payload, _ := r.Payload(kind)
		if err := payload.Validate(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	seen := make(map[string]struct{}, len(r.Manifest))
	for _, status := range r.Manifest {
		if _, dup := seen[status.StageID]; dup {
			return fmt.Errorf("manifest lists stage %q twice", status.StageID)
		}
		seen[status.StageID] = struct{}{}
	}
	return nil
}

// Elapsed returns the pipeline wall time.
func (r *Result) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

// NewAnalysisID derives a stable identifier from the audio fingerprint and the
// request timestamp.
func NewAnalysisID(fingerprint string, at time.Time) string {
	name := fingerprint + "@" + at.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
