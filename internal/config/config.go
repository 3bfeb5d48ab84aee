package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration. APIToken enables
// bearer authentication on /api routes when set.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Pipeline describes the stage registry and how it executes.
type Pipeline struct {
	// DefaultTimeout applies to stages whose own timeout is blank.
	DefaultTimeout string `toml:"default_timeout"`
	Sequential     bool   `toml:"sequential"`
	PersistResults bool   `toml:"persist_results"`
	// DefinitionFile points at a YAML stage list that replaces Stages when set.
	DefinitionFile string            `toml:"definition_file"`
	Stages         []StageDefinition `toml:"stages"`
}

// StageDefinition declares one registry entry.
type StageDefinition struct {
	ID        string   `toml:"id" yaml:"id"`
	Analyzer  string   `toml:"analyzer" yaml:"analyzer"`
	DependsOn []string `toml:"depends_on" yaml:"depends_on,omitempty"`
	// Timeout is a Go duration string. Blank inherits the pipeline default and
	// "0s" makes the stage time out unconditionally.
	Timeout string `toml:"timeout" yaml:"timeout,omitempty"`
}

// Transcription configures the template and remote transcribers.
type Transcription struct {
	TemplateText   string `toml:"template_text"`
	Language       string `toml:"language"`
	ASRURL         string `toml:"asr_url"`
	ASRAPIKey      string `toml:"asr_api_key"`
	ASRModel       string `toml:"asr_model"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxElapsed     int    `toml:"max_elapsed"`
}

// Diarization configures the energy diarizer.
type Diarization struct {
	MinGapSeconds    float64 `toml:"min_gap_seconds"`
	SilenceThreshold float64 `toml:"silence_threshold"`
}

// Enhancement selects the audio clean-up applied before the pipeline runs.
type Enhancement struct {
	Enabled bool     `toml:"enabled"`
	Methods []string `toml:"methods"`
}

// LLM contains connection settings for the model-backed summarizer.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config encapsulates all configuration values for meetingintel.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Logging: log format and level
//   - Pipeline: stage registry definition and per-stage timeouts
//   - Transcription: template text and remote ASR service
//   - Diarization: voiced-region segmentation thresholds
//   - Enhancement: audio clean-up steps run before analysis
//   - LLM: chat-completions endpoint for the llm summarizer
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Transcription Transcription `toml:"transcription"`
	Diarization   Diarization   `toml:"diarization"`
	Enhancement   Enhancement   `toml:"enhancement"`
	LLM           LLM           `toml:"llm"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Missing files are not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv imports .env files from the config directory and the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" && configDir != "." {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			_ = godotenv.Load(candidate)
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("meetingintel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the analysis history database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "analyses.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "meetingd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
