package stage

import (
	"context"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
)

// Input is what an analyzer receives for one run.
type Input struct {
	Audio *audio.Handle
	Prior Prior
}

// Analyzer is the concrete logic behind a stage. Implementations must honour
// ctx cancellation where they block, must not mutate the audio handle, and
// must not keep state across runs. The stage timeout arrives as the ctx
// deadline.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (report.Payload, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, in Input) (report.Payload, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, in Input) (report.Payload, error) {
	return f(ctx, in)
}

// HealthChecker is implemented by analyzers that depend on external services.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
