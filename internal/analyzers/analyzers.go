package analyzers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"meetingintel/internal/config"
	"meetingintel/internal/logging"
	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/services/asr"
	"meetingintel/internal/services/llm"
	"meetingintel/internal/stage"
)

// Analyzer names accepted in stage definitions.
const (
	TemplateTranscriber  = "template-transcriber"
	RemoteTranscriber    = "remote-transcriber"
	EnergyDiarizer       = "energy-diarizer"
	LexiconEmotion       = "lexicon-emotion"
	SignalAuthenticity   = "signal-authenticity"
	KeywordClassifier    = "keyword-classifier"
	ExtractiveSummarizer = "extractive-summarizer"
	LLMSummarizer        = "llm-summarizer"
)

// Transcriber is the remote speech recognition boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, wav []byte) (asr.Transcription, error)
}

// Summarizer is the language-model boundary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, tone string) (llm.Summary, error)
}

// healthProbe is implemented by remote clients that can report reachability.
type healthProbe interface {
	HealthCheck(ctx context.Context) error
}

// Deps carries what analyzers need from the outside.
type Deps struct {
	Transcription config.Transcription
	Diarization   config.Diarization
	// DefaultTimeout applies to stage definitions without their own timeout.
	DefaultTimeout time.Duration
	ASR            Transcriber
	LLM            Summarizer
	Logger         *slog.Logger
}

// NewDeps derives analyzer dependencies from configuration, constructing the
// remote clients.
func NewDeps(cfg *config.Config, logger *slog.Logger) Deps {
	return Deps{
		Transcription:  cfg.Transcription,
		Diarization:    cfg.Diarization,
		DefaultTimeout: cfg.Pipeline.DefaultTimeoutDuration(),
		ASR: asr.NewClient(asr.Config{
			URL:               cfg.Transcription.ASRURL,
			APIKey:            cfg.Transcription.ASRAPIKey,
			Model:             cfg.Transcription.ASRModel,
			Language:          cfg.Transcription.Language,
			TimeoutSeconds:    cfg.Transcription.RequestTimeout,
			MaxElapsedSeconds: cfg.Transcription.MaxElapsed,
		}),
		LLM: llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}),
		Logger: logger,
	}
}

type factory struct {
	kind  report.Kind
	build func(Deps) (stage.Analyzer, error)
}

var factories = map[string]factory{
	TemplateTranscriber:  {report.KindTranscript, newTemplateTranscriber},
	RemoteTranscriber:    {report.KindTranscript, newRemoteTranscriber},
	EnergyDiarizer:       {report.KindSpeakers, newEnergyDiarizer},
	LexiconEmotion:       {report.KindEmotion, func(Deps) (stage.Analyzer, error) { return lexiconEmotion{}, nil }},
	SignalAuthenticity:   {report.KindAuthenticity, func(Deps) (stage.Analyzer, error) { return signalAuthenticity{}, nil }},
	KeywordClassifier:    {report.KindClassification, func(Deps) (stage.Analyzer, error) { return keywordClassifier{}, nil }},
	ExtractiveSummarizer: {report.KindSummary, func(Deps) (stage.Analyzer, error) { return extractiveSummarizer{sentences: 3}, nil }},
	LLMSummarizer:        {report.KindSummary, newLLMSummarizer},
}

// Names lists the known analyzer names in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New constructs the named analyzer and returns the report kind it fills.
func New(name string, deps Deps) (stage.Analyzer, report.Kind, error) {
	f, ok := factories[name]
	if !ok {
		return nil, "", services.Wrap(services.ErrConfiguration, "analyzers", "new", fmt.Sprintf("unknown analyzer %q", name), nil)
	}
	analyzer, err := f.build(deps)
	if err != nil {
		return nil, "", err
	}
	return analyzer, f.kind, nil
}

// BuildRegistry registers one stage per definition, in order, and checks that
// the resulting graph resolves.
func BuildRegistry(defs []config.StageDefinition, deps Deps) (*stage.Registry, error) {
	if err := config.ValidateStageDefinitions(defs); err != nil {
		return nil, err
	}
	fallback := deps.DefaultTimeout
	if fallback <= 0 {
		fallback = config.Default().Pipeline.DefaultTimeoutDuration()
	}
	reg := stage.NewRegistry()
	for _, def := range defs {
		analyzer, kind, err := New(def.Analyzer, deps)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", def.ID, err)
		}
		timeout, err := def.TimeoutDuration(fallback)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "analyzers", "stage "+def.ID, "invalid timeout", err)
		}
		if err := reg.Register(stage.Spec{
			ID:        def.ID,
			Kind:      kind,
			DependsOn: def.DependsOn,
			Analyzer:  analyzer,
			Timeout:   timeout,
		}); err != nil {
			return nil, err
		}
	}
	if _, err := reg.ResolveOrder(); err != nil {
		return nil, err
	}
	logging.NewComponentLogger(deps.Logger, "analyzers").Debug(
		"stage registry built",
		logging.Int("stages", reg.Len()),
	)
	return reg, nil
}

type configuredClient interface {
	Configured() bool
}

// isConfigured reports whether a remote client is present and has the
// settings it needs.
func isConfigured(client any) bool {
	if client == nil {
		return false
	}
	if c, ok := client.(configuredClient); ok {
		return c.Configured()
	}
	return true
}

func probeHealth(ctx context.Context, name string, client any) stage.Health {
	if !isConfigured(client) {
		return stage.Unhealthy(name, "not configured")
	}
	probe, ok := client.(healthProbe)
	if !ok {
		return stage.Healthy(name)
	}
	if err := probe.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, services.Reason(err))
	}
	return stage.Healthy(name)
}

func canceled(ctx context.Context, stageName string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stageName, err)
	}
	return nil
}
