package preflight

import (
	"context"
	"strings"

	"meetingintel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckPipeline(cfg),
	}
	if cfg.Pipeline.PersistResults {
		results = append(results, CheckHistory(ctx, cfg.DatabasePath()))
	}
	if strings.TrimSpace(cfg.Transcription.ASRURL) != "" {
		results = append(results, CheckASR(ctx, cfg.Transcription))
	}
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "LLM", cfg.LLM))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
