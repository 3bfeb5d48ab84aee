package config

import (
	"time"

	"meetingintel/internal/audio"
)

const (
	defaultConfigPath         = "~/.config/meetingintel/config.toml"
	defaultDataDir            = "~/.local/share/meetingintel"
	defaultLogDir             = "~/.local/share/meetingintel/logs"
	defaultAPIBind            = "127.0.0.1:8000"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultStageTimeout       = 30 * time.Second
	defaultTemplateText       = "Meeting audio received. Detailed transcription requires a speech recognition backend; configure a remote transcriber to replace this template."
	defaultLanguage           = "en"
	defaultASRRequestTimeout  = 120
	defaultASRMaxElapsed      = 300
	defaultDiarizationMinGap  = 1.5
	defaultDiarizationSilence = 0.01
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/meetingintel/meetingintel"
	defaultLLMTitle           = "Meeting Intelligence Summarizer"
	defaultLLMTimeoutSeconds  = 60
	envLLMAPIKey              = "MEETINGINTEL_LLM_API_KEY"
	envOpenRouterAPIKey       = "OPENROUTER_API_KEY"
	envASRURL                 = "MEETINGINTEL_ASR_URL"
	envASRAPIKey              = "MEETINGINTEL_ASR_API_KEY"
	envAPIBind                = "MEETINGINTEL_API_BIND"
	envAPIToken               = "MEETINGINTEL_API_TOKEN"
	envLogLevel               = "MEETINGINTEL_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Pipeline: Pipeline{
			DefaultTimeout: defaultStageTimeout.String(),
			PersistResults: true,
		},
		Transcription: Transcription{
			TemplateText:   defaultTemplateText,
			Language:       defaultLanguage,
			RequestTimeout: defaultASRRequestTimeout,
			MaxElapsed:     defaultASRMaxElapsed,
		},
		Diarization: Diarization{
			MinGapSeconds:    defaultDiarizationMinGap,
			SilenceThreshold: defaultDiarizationSilence,
		},
		Enhancement: Enhancement{
			Enabled: true,
			Methods: defaultEnhancementMethods(),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
	}
}

// defaultEnhancementMethods only adjusts level and length. The bandpass and
// noise gate alter the zero-crossing features the diarizer and authenticity
// analyzers read, so they are opt-in.
func defaultEnhancementMethods() []string {
	return []string{string(audio.MethodNormalize), string(audio.MethodTrimSilence)}
}

// DefaultStages is the registry used when neither inline stages nor a
// definition file are configured.
func DefaultStages() []StageDefinition {
	return []StageDefinition{
		{ID: "transcription", Analyzer: "template-transcriber"},
		{ID: "diarization", Analyzer: "energy-diarizer"},
		{ID: "emotion", Analyzer: "lexicon-emotion", DependsOn: []string{"transcription"}},
		{ID: "authenticity", Analyzer: "signal-authenticity"},
		{ID: "classification", Analyzer: "keyword-classifier", DependsOn: []string{"transcription"}},
		{ID: "summary", Analyzer: "extractive-summarizer", DependsOn: []string{"transcription", "emotion"}},
	}
}
