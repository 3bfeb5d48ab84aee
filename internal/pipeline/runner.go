package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"meetingintel/internal/audio"
	"meetingintel/internal/logging"
	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
)

// Runner executes registries. A Runner holds no per-run state and may be
// shared between goroutines.
type Runner struct {
	logger     *slog.Logger
	sequential bool
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for stage lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSequential runs the stages of each batch one at a time.
func WithSequential(sequential bool) Option {
	return func(r *Runner) { r.sequential = sequential }
}

// WithClock overrides the clock used for timestamps and elapsed times.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r
}

// Run executes every stage in reg against h and returns the aggregated report.
// Stage failures never surface as an error; they are recorded in the manifest
// and their slots keep the default payload. Run returns an error only for a
// missing handle, an invalid registry, or an aggregation defect.
func (r *Runner) Run(ctx context.Context, h *audio.Handle, reg *stage.Registry) (report.Result, error) {
	if h == nil {
		return report.Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "audio handle is required", nil)
	}
	if reg == nil {
		return report.Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "stage registry is required", nil)
	}
	batches, err := reg.Batches()
	if err != nil {
		return report.Result{}, err
	}

	started := r.now()
	analysisID := report.NewAnalysisID(h.Fingerprint(), started)
	if existing, ok := services.AnalysisIDFromContext(ctx); ok {
		analysisID = existing
	} else {
		ctx = services.WithAnalysisID(ctx, analysisID)
	}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info(
		"pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("source", h.Source()),
		logging.Int("stages", reg.Len()),
		logging.Int("batches", len(batches)),
		logging.Float64("duration_seconds", h.Seconds()),
	)

	specs := reg.Specs()
	order := make([]string, len(specs))
	for i, spec := range specs {
		order[i] = spec.ID
	}
	results := make(map[string]stage.Outcome, len(specs))
	payloads := make(map[string]report.Payload, len(specs))

	for _, batch := range batches {
		in := stage.Input{Audio: h, Prior: stage.NewPrior(order, payloads)}
		for _, outcome := range r.runBatch(ctx, logger, reg, batch, results, in) {
			results[outcome.StageID] = outcome
			if outcome.State == report.StateSucceeded {
				payloads[outcome.StageID] = outcome.Payload
			}
		}
	}

	outcomes := make([]stage.Outcome, 0, len(specs))
	for _, id := range order {
		outcomes = append(outcomes, results[id])
	}
	res, err := Aggregate(h, outcomes)
	if err != nil {
		logger.Error("report aggregation failed", logging.Error(err))
		return report.Result{}, err
	}
	elapsed := r.now().Sub(started)
	res.AnalysisID = analysisID
	res.CreatedAt = started.UTC()
	res.ElapsedMS = elapsed.Milliseconds()

	degraded := res.Manifest.Degraded()
	logger.Info(
		"pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Duration("elapsed", elapsed),
		logging.Int("degraded_stages", len(degraded)),
		logging.Confidence(res.OverallConfidence),
	)
	return res, nil
}

// runBatch executes one dependency batch and returns outcomes in batch order.
func (r *Runner) runBatch(ctx context.Context, logger *slog.Logger, reg *stage.Registry, batch []string, done map[string]stage.Outcome, in stage.Input) []stage.Outcome {
	out := make([]stage.Outcome, len(batch))
	var wg sync.WaitGroup
	for i, id := range batch {
		spec, _ := reg.Lookup(id)
		if unmet := unmetDependencies(spec, done); len(unmet) > 0 {
			out[i] = stage.Skipped(spec, unmet)
			logger.Warn(
				"stage skipped",
				logging.String(logging.FieldStage, spec.ID),
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("reason", out[i].Reason),
				logging.String(logging.FieldImpact, "report slot "+string(spec.Kind)+" keeps its default"),
			)
			continue
		}
		if r.sequential {
			out[i] = r.runStage(ctx, logger, spec, in)
			continue
		}
		wg.Go(func() {
			out[i] = r.runStage(ctx, logger, spec, in)
		})
	}
	wg.Wait()
	return out
}

func unmetDependencies(spec stage.Spec, done map[string]stage.Outcome) []string {
	var unmet []string
	for _, dep := range spec.DependsOn {
		if outcome, ok := done[dep]; !ok || outcome.State != report.StateSucceeded {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

type attempt struct {
	payload report.Payload
	err     error
	panic   string
}

// runStage invokes one analyzer under its timeout. The result channel is
// buffered so an analyzer that outlives its deadline can still deliver and
// exit; the late value is dropped.
func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, spec stage.Spec, in stage.Input) stage.Outcome {
	stageLogger := logger.With(logging.String(logging.FieldStage, spec.ID))
	if spec.Timeout <= 0 {
		outcome := stage.TimedOut(spec, 0)
		r.logFailure(stageLogger, outcome, "stage timeout is zero; raise it in the pipeline definition")
		return outcome
	}
	if ctx.Err() != nil {
		outcome := stage.Failed(spec, stage.ReasonCanceled, true, 0)
		r.logFailure(stageLogger, outcome, "")
		return outcome
	}

	stageCtx, cancel := context.WithTimeout(services.WithStage(ctx, spec.ID), spec.Timeout)
	defer cancel()

	stageLogger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("kind", string(spec.Kind)),
		logging.Duration("timeout", spec.Timeout),
	)
	start := r.now()
	results := make(chan attempt, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				results <- attempt{panic: fmt.Sprintf("analyzer panic: %v", recovered)}
			}
		}()
		payload, err := spec.Analyzer.Analyze(stageCtx, in)
		results <- attempt{payload: payload, err: err}
	}()

	var outcome stage.Outcome
	select {
	case a := <-results:
		outcome = r.settle(stageCtx, ctx, spec, a, r.now().Sub(start))
	case <-stageCtx.Done():
		outcome = expired(ctx, spec, r.now().Sub(start))
	}

	if outcome.State == report.StateSucceeded {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", outcome.Elapsed),
		}
		if c, ok := outcome.Payload.Confidence(); ok {
			attrs = append(attrs, logging.Confidence(c))
		}
		stageLogger.Info("stage completed", logging.Args(attrs...)...)
		return outcome
	}
	r.logFailure(stageLogger, outcome, "")
	return outcome
}

// settle classifies a delivered attempt.
func (r *Runner) settle(stageCtx, parent context.Context, spec stage.Spec, a attempt, elapsed time.Duration) stage.Outcome {
	switch {
	case a.panic != "":
		return stage.Failed(spec, a.panic, false, elapsed)
	case a.err != nil:
		if stageCtx.Err() != nil {
			return expired(parent, spec, elapsed)
		}
		return stage.Failed(spec, services.Reason(a.err), services.IsRetryable(a.err), elapsed)
	case a.payload == nil:
		return stage.Failed(spec, "analyzer returned no payload", false, elapsed)
	case a.payload.Kind() != spec.Kind:
		return stage.Failed(spec, fmt.Sprintf("analyzer returned %s payload for %s stage", a.payload.Kind(), spec.Kind), false, elapsed)
	}
	if err := a.payload.Validate(); err != nil {
		return stage.Failed(spec, services.Reason(fmt.Errorf("invalid payload: %w", err)), false, elapsed)
	}
	return stage.Succeeded(spec, a.payload, elapsed)
}

func expired(parent context.Context, spec stage.Spec, elapsed time.Duration) stage.Outcome {
	if parent.Err() != nil {
		return stage.Failed(spec, stage.ReasonCanceled, true, elapsed)
	}
	return stage.TimedOut(spec, elapsed)
}

func (r *Runner) logFailure(logger *slog.Logger, outcome stage.Outcome, hint string) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_failed"),
		logging.String("reason", outcome.Reason),
		logging.Bool("retryable", outcome.Retryable),
		logging.Duration("elapsed", outcome.Elapsed),
		logging.String(logging.FieldImpact, "report slot "+string(outcome.Kind)+" keeps its default"),
	}
	if hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logger.Warn("stage failed", logging.Args(attrs...)...)
}
