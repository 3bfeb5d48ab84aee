package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeEnhancement()
	c.normalizeLLM()
	return nil
}

func (c *Config) normalizeEnhancement() {
	methods := make([]string, 0, len(c.Enhancement.Methods))
	for _, m := range c.Enhancement.Methods {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			methods = append(methods, m)
		}
	}
	if c.Enhancement.Enabled && len(methods) == 0 {
		methods = defaultEnhancementMethods()
	}
	c.Enhancement.Methods = methods
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := lookupEnv(envAPIBind); ok {
		c.Paths.APIBind = value
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := lookupEnv(envAPIToken); ok {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := lookupEnv(envLogLevel); ok {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizePipeline() error {
	c.Pipeline.DefaultTimeout = strings.TrimSpace(c.Pipeline.DefaultTimeout)
	if c.Pipeline.DefaultTimeout == "" {
		c.Pipeline.DefaultTimeout = defaultStageTimeout.String()
	}
	if file := strings.TrimSpace(c.Pipeline.DefinitionFile); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("pipeline.definition_file: %w", err)
		}
		c.Pipeline.DefinitionFile = expanded
	}
	c.Pipeline.Stages = normalizeStageDefinitions(c.Pipeline.Stages)
	return nil
}

func normalizeStageDefinitions(defs []StageDefinition) []StageDefinition {
	if len(defs) == 0 {
		return nil
	}
	out := make([]StageDefinition, 0, len(defs))
	for _, def := range defs {
		def.ID = strings.TrimSpace(def.ID)
		def.Analyzer = strings.ToLower(strings.TrimSpace(def.Analyzer))
		def.Timeout = strings.TrimSpace(def.Timeout)
		deps := make([]string, 0, len(def.DependsOn))
		for _, dep := range def.DependsOn {
			deps = append(deps, strings.TrimSpace(dep))
		}
		def.DependsOn = deps
		out = append(out, def)
	}
	return out
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.ASRURL == "" {
		if value, ok := lookupEnv(envASRURL); ok {
			c.Transcription.ASRURL = value
		}
	}
	if c.Transcription.ASRAPIKey == "" {
		if value, ok := lookupEnv(envASRAPIKey); ok {
			c.Transcription.ASRAPIKey = value
		}
	}
	c.Transcription.ASRURL = strings.TrimSpace(c.Transcription.ASRURL)
	c.Transcription.ASRAPIKey = strings.TrimSpace(c.Transcription.ASRAPIKey)
	c.Transcription.ASRModel = strings.TrimSpace(c.Transcription.ASRModel)
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	if strings.TrimSpace(c.Transcription.TemplateText) == "" {
		c.Transcription.TemplateText = defaultTemplateText
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := lookupEnv(envLLMAPIKey); ok {
			c.LLM.APIKey = value
		} else if value, ok := lookupEnv(envOpenRouterAPIKey); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
