package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineFile is the YAML shape of a pipeline definition file:
//
//	stages:
//	  - id: transcription
//	    analyzer: template-transcriber
//	    timeout: 60s
//	  - id: emotion
//	    analyzer: lexicon-emotion
//	    depends_on: [transcription]
type PipelineFile struct {
	Stages []StageDefinition `yaml:"stages"`
}

// LoadPipelineFile reads and normalizes a YAML stage list.
func LoadPipelineFile(path string) ([]StageDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalid("read pipeline definition %s: %v", path, err)
	}
	var file PipelineFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, invalid("parse pipeline definition %s: %v", path, err)
	}
	return normalizeStageDefinitions(file.Stages), nil
}

// ResolveStages returns the effective registry definition: the definition file
// when configured, otherwise inline stages, otherwise the built-in defaults.
func (c *Config) ResolveStages() ([]StageDefinition, error) {
	if c.Pipeline.DefinitionFile != "" {
		defs, err := LoadPipelineFile(c.Pipeline.DefinitionFile)
		if err != nil {
			return nil, err
		}
		return defs, nil
	}
	if len(c.Pipeline.Stages) > 0 {
		out := make([]StageDefinition, len(c.Pipeline.Stages))
		copy(out, c.Pipeline.Stages)
		return out, nil
	}
	return DefaultStages(), nil
}

// WritePipelineFile renders defs as a YAML definition file.
func WritePipelineFile(path string, defs []StageDefinition) error {
	data, err := yaml.Marshal(PipelineFile{Stages: defs})
	if err != nil {
		return fmt.Errorf("encode pipeline definition: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pipeline definition: %w", err)
	}
	return nil
}
