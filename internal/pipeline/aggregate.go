package pipeline

import (
	"errors"
	"fmt"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
	"meetingintel/internal/stage"
)

// ErrAggregation marks a report that could not be assembled. It indicates a
// broken default payload, never a stage failure.
var ErrAggregation = errors.New("report aggregation failed")

// Aggregate folds outcomes, given in registration order, into a complete
// report. The first succeeded payload of each kind fills its slot; every other
// slot keeps the kind's default. The overall confidence is the mean over
// succeeded payloads that report one, or zero when none do.
func Aggregate(h *audio.Handle, outcomes []stage.Outcome) (report.Result, error) {
	res, err := report.NewResult()
	if err != nil {
		return report.Result{}, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	if h != nil {
		res.Source = report.Source{
			Name:            h.Source(),
			Fingerprint:     h.Fingerprint(),
			DurationSeconds: h.Seconds(),
			SampleRate:      h.SampleRate(),
			Channels:        h.Channels(),
		}
	}

	filled := make(map[report.Kind]bool, len(outcomes))
	res.Manifest = make(report.Manifest, 0, len(outcomes))
	var sum float64
	var reported int
	for _, outcome := range outcomes {
		res.Manifest = append(res.Manifest, outcome.Status())
		if outcome.State != report.StateSucceeded || outcome.Payload == nil {
			continue
		}
		if c, ok := outcome.Payload.Confidence(); ok {
			sum += c
			reported++
		}
		if filled[outcome.Kind] {
			continue
		}
		if err := res.Set(outcome.Payload); err != nil {
			return report.Result{}, fmt.Errorf("%w: stage %s: %w", ErrAggregation, outcome.StageID, err)
		}
		filled[outcome.Kind] = true
	}
	if reported > 0 {
		res.OverallConfidence = sum / float64(reported)
	}
	if err := res.Validate(); err != nil {
		return report.Result{}, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	return res, nil
}
