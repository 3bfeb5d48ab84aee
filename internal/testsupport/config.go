package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"meetingintel/internal/config"
	"meetingintel/internal/store"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Pipeline.Stages = config.DefaultStages()

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStages replaces the inline stage list.
func WithStages(defs ...config.StageDefinition) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Stages = defs
	}
}

// WithDefinitionFile writes defs to a YAML file under the base directory and
// points the pipeline at it.
func WithDefinitionFile(defs ...config.StageDefinition) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "pipeline.yaml")
		if err := config.WritePipelineFile(path, defs); err != nil {
			b.t.Fatalf("write pipeline file: %v", err)
		}
		b.cfg.Pipeline.DefinitionFile = path
	}
}

// WithASR points the remote transcriber at url.
func WithASR(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.ASRURL = url
		b.cfg.Transcription.RequestTimeout = 5
		b.cfg.Transcription.MaxElapsed = 1
	}
}

// WithLLM points the llm summarizer at baseURL with a dummy key.
func WithLLM(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = "test-key"
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.TimeoutSeconds = 5
	}
}

// WithoutPersistence disables history storage.
func WithoutPersistence() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.PersistResults = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// MustOpenStore opens the history database for cfg and closes it when the
// test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
