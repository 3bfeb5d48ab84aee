package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"meetingintel/internal/analysis"
	"meetingintel/internal/config"
	"meetingintel/internal/services"
	"meetingintel/internal/services/asr"
	"meetingintel/internal/services/llm"
	"meetingintel/internal/store"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryPolicy(services.RetryPolicy{MaxAttempts: 1}))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckASR probes the transcription service's health endpoint.
func CheckASR(ctx context.Context, cfg config.Transcription) Result {
	const name = "Speech recognition"

	if strings.TrimSpace(cfg.ASRURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := asr.NewClient(asr.Config{
		URL:            cfg.ASRURL,
		APIKey:         cfg.ASRAPIKey,
		Model:          cfg.ASRModel,
		Language:       cfg.Language,
		TimeoutSeconds: 5,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		var status *services.HTTPStatusError
		if errors.As(err, &status) {
			return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", status.StatusCode)}
		}
		return Result{Name: name, Detail: summarizeRemoteError("ASR service", err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckPipeline resolves the stage definitions and builds the registry.
func CheckPipeline(cfg *config.Config) Result {
	const name = "Pipeline"

	reg, err := analysis.BuildRegistry(cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: services.Reason(err)}
	}
	order, err := reg.ResolveOrder()
	if err != nil {
		return Result{Name: name, Detail: services.Reason(err)}
	}
	source := "built-in defaults"
	switch {
	case cfg.Pipeline.DefinitionFile != "":
		source = cfg.Pipeline.DefinitionFile
	case len(cfg.Pipeline.Stages) > 0:
		source = "inline stages"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d stages from %s: %s", len(order), source, strings.Join(order, " → "))}
}

// CheckHistory opens the history database and counts stored analyses.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History database"

	st, err := store.Open(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer st.Close()
	count, err := st.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d analyses)", path, count)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeRemoteError produces a human-readable summary for health check failures.
func summarizeRemoteError(service string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", service)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", service)
	}
	return services.Reason(err)
}
