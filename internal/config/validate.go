package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"meetingintel/internal/audio"
	"meetingintel/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if _, err := c.EnhancementMethods(); err != nil {
		return err
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return invalid("llm.timeout_seconds must be positive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return invalid("paths.data_dir must be set")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return invalid("paths.api_bind must be host:port, got %q", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	timeout, err := time.ParseDuration(c.Pipeline.DefaultTimeout)
	if err != nil {
		return invalid("pipeline.default_timeout: %v", err)
	}
	if timeout <= 0 {
		return invalid("pipeline.default_timeout must be positive")
	}
	defs, err := c.ResolveStages()
	if err != nil {
		return err
	}
	return ValidateStageDefinitions(defs)
}

// ValidateStageDefinitions checks each definition in isolation. Graph-level
// problems (unknown dependencies, cycles) are reported by the stage registry.
func ValidateStageDefinitions(defs []StageDefinition) error {
	if len(defs) == 0 {
		return invalid("pipeline must define at least one stage")
	}
	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return invalid("pipeline.stages[%d].id must be set", i)
		}
		if _, dup := seen[def.ID]; dup {
			return invalid("pipeline.stages[%d]: duplicate stage id %q", i, def.ID)
		}
		seen[def.ID] = struct{}{}
		if def.Analyzer == "" {
			return invalid("pipeline stage %q: analyzer must be set", def.ID)
		}
		for _, dep := range def.DependsOn {
			if dep == "" {
				return invalid("pipeline stage %q: depends_on contains a blank id", def.ID)
			}
		}
		if _, err := def.TimeoutDuration(time.Second); err != nil {
			return invalid("pipeline stage %q: %v", def.ID, err)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.RequestTimeout <= 0 {
		return invalid("transcription.request_timeout must be positive")
	}
	if c.Transcription.MaxElapsed < 0 {
		return invalid("transcription.max_elapsed must be zero or positive")
	}
	return nil
}

// EnhancementMethods returns the configured enhancement steps, or nil when
// enhancement is disabled.
func (c *Config) EnhancementMethods() ([]audio.Method, error) {
	if !c.Enhancement.Enabled {
		return nil, nil
	}
	methods := make([]audio.Method, 0, len(c.Enhancement.Methods))
	for _, name := range c.Enhancement.Methods {
		m, err := audio.ParseMethod(name)
		if err != nil {
			return nil, invalid("enhancement.methods: unknown method %q (valid: %s)", name, joinMethods(audio.Methods()))
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func joinMethods(methods []audio.Method) string {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func (c *Config) validateDiarization() error {
	if c.Diarization.MinGapSeconds <= 0 {
		return invalid("diarization.min_gap_seconds must be positive")
	}
	if c.Diarization.SilenceThreshold <= 0 || c.Diarization.SilenceThreshold >= 1 {
		return invalid("diarization.silence_threshold must be between 0 and 1")
	}
	return nil
}

// DefaultTimeoutDuration returns the parsed pipeline default stage timeout.
func (p Pipeline) DefaultTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.DefaultTimeout)
	if err != nil || d <= 0 {
		return defaultStageTimeout
	}
	return d
}

// TimeoutDuration resolves the stage timeout, using fallback when blank.
func (d StageDefinition) TimeoutDuration(fallback time.Duration) (time.Duration, error) {
	if d.Timeout == "" {
		return fallback, nil
	}
	timeout, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if timeout < 0 {
		return 0, errors.New("timeout must not be negative")
	}
	return timeout, nil
}
