package analysis

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"meetingintel/internal/analytics"
	"meetingintel/internal/audio"
	"meetingintel/internal/calendar"
	"meetingintel/internal/logging"
	"meetingintel/internal/pipeline"
	"meetingintel/internal/services"
	"meetingintel/internal/store"
)

// History is the persistence the service needs. *store.Store satisfies it.
type History interface {
	Save(ctx context.Context, rec store.Record) error
	Get(ctx context.Context, id string) (*store.Record, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service runs analyses and serves their history.
type Service struct {
	registries *RegistryHolder
	runner     *pipeline.Runner
	history    History
	enhance    []audio.Method
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory enables persistence of finished documents.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithEnhancement applies the given clean-up steps to the audio before the
// pipeline runs.
func WithEnhancement(methods ...audio.Method) Option {
	return func(s *Service) { s.enhance = append([]audio.Method(nil), methods...) }
}

// WithRunner replaces the default pipeline runner.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the reference time used for calendar suggestions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service reading its registry from registries.
func NewService(registries *RegistryHolder, opts ...Option) *Service {
	s := &Service{
		registries: registries,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(pipeline.WithLogger(s.logger))
	}
	s.logger = logging.NewComponentLogger(s.logger, "analysis")
	return s
}

// Registries exposes the holder so callers can inspect or swap the registry.
func (s *Service) Registries() *RegistryHolder { return s.registries }

// HistoryEnabled reports whether documents are persisted.
func (s *Service) HistoryEnabled() bool { return s.history != nil }

// Analyze decodes a WAV stream and analyzes it.
func (s *Service) Analyze(ctx context.Context, name string, r io.ReadSeeker) (Document, error) {
	h, err := audio.DecodeWAV(r, name)
	if err != nil {
		return Document{}, err
	}
	return s.AnalyzeHandle(ctx, h)
}

// AnalyzeFile decodes the WAV file at path and analyzes it.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (Document, error) {
	h, err := audio.Open(path)
	if err != nil {
		return Document{}, err
	}
	return s.AnalyzeHandle(ctx, h)
}

// AnalyzeHandle enhances h, runs the current registry against the result and
// derives the full document. A persistence failure is logged and does not fail
// the analysis.
func (s *Service) AnalyzeHandle(ctx context.Context, h *audio.Handle) (Document, error) {
	reg := s.registries.Load()
	if reg == nil {
		return Document{}, services.Wrap(services.ErrConfiguration, "analysis", "analyze", "no stage registry loaded", nil)
	}
	enhanced, enhancement, err := audio.Enhance(h, s.enhance...)
	if err != nil {
		return Document{}, err
	}
	result, err := s.runner.Run(ctx, enhanced, reg)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		Result:      result,
		Enhancement: enhancement,
		Analytics:   analytics.Compute(result),
		Calendar:    calendar.Suggest(result.Summary, s.now()),
	}

	logger := logging.WithContext(services.WithAnalysisID(ctx, result.AnalysisID), s.logger)
	if len(enhancement.AppliedMethods) > 0 {
		logger.Debug(
			"audio enhanced",
			logging.String(logging.FieldEventType, "audio_enhanced"),
			logging.String("methods", strings.Join(enhancement.AppliedMethods, ",")),
			logging.Float64("snr_improvement", enhancement.SNRImprovement),
		)
	}
	if s.history != nil {
		if err := s.save(ctx, doc); err != nil {
			logging.WarnWithContext(logger, "analysis not saved to history", "history_save_failed",
				logging.String(logging.FieldErrorHint, "check the data directory is writable"),
				logging.String(logging.FieldImpact, "analysis is returned but will not appear in history"),
				logging.Error(err),
			)
		}
	}
	logger.Info(
		"analysis completed",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Confidence(result.OverallConfidence),
		logging.Int("degraded_stages", len(result.Manifest.Degraded())),
		logging.Int("calendar_suggestions", len(doc.Calendar)),
	)
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc Document) error {
	rec, err := doc.Record()
	if err != nil {
		return err
	}
	return s.history.Save(ctx, rec)
}

// Get loads a stored document.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	if err := s.requireHistory("get"); err != nil {
		return Document{}, err
	}
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if rec == nil {
		return Document{}, services.Wrap(services.ErrNotFound, "analysis", "get", "analysis "+id+" not found", nil)
	}
	return DecodeDocument(rec)
}

// List returns stored analyses, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.Summary, error) {
	if err := s.requireHistory("list"); err != nil {
		return nil, err
	}
	return s.history.List(ctx, limit)
}

// Delete removes a stored analysis.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.requireHistory("delete"); err != nil {
		return err
	}
	removed, err := s.history.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "analysis", "delete", "analysis "+id+" not found", nil)
	}
	return nil
}

func (s *Service) requireHistory(op string) error {
	if s.history == nil {
		return services.Wrap(services.ErrConfiguration, "analysis", op, "analysis history is disabled (pipeline.persist_results = false)", nil)
	}
	return nil
}
