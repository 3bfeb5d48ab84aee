package stage

import (
	"strings"
	"time"

	"meetingintel/internal/report"
)

// Failure reasons the runner records itself.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
)

// Outcome is the final result of one stage in one run.
type Outcome struct {
	StageID   string
	Kind      report.Kind
	State     report.State
	Payload   report.Payload
	Reason    string
	Retryable bool
	Elapsed   time.Duration
}

// Succeeded records a well-formed payload.
func Succeeded(spec Spec, payload report.Payload, elapsed time.Duration) Outcome {
	return Outcome{StageID: spec.ID, Kind: spec.Kind, State: report.StateSucceeded, Payload: payload, Elapsed: elapsed}
}

// Failed records an analyzer error, invalid payload, or panic.
func Failed(spec Spec, reason string, retryable bool, elapsed time.Duration) Outcome {
	return Outcome{StageID: spec.ID, Kind: spec.Kind, State: report.StateFailed, Reason: reason, Retryable: retryable, Elapsed: elapsed}
}

// TimedOut records an expired stage timeout. Timeouts are always retryable.
func TimedOut(spec Spec, elapsed time.Duration) Outcome {
	return Failed(spec, ReasonTimeout, true, elapsed)
}

// Skipped records a stage whose dependencies did not all succeed.
func Skipped(spec Spec, unmet []string) Outcome {
	return Outcome{
		StageID: spec.ID,
		Kind:    spec.Kind,
		State:   report.StateSkipped,
		Reason:  "dependency unmet: " + strings.Join(unmet, ", "),
	}
}

// Status converts the outcome into a manifest entry.
func (o Outcome) Status() report.StageStatus {
	status := report.StageStatus{
		StageID:   o.StageID,
		Kind:      o.Kind,
		State:     o.State,
		Reason:    o.Reason,
		Retryable: o.Retryable,
		ElapsedMS: o.Elapsed.Milliseconds(),
	}
	if o.State == report.StateSucceeded && o.Payload != nil {
		if c, ok := o.Payload.Confidence(); ok {
			status.Reported = &c
		}
	}
	return status
}
