package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meetingintel/internal/config"
	"meetingintel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckASR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckASR(context.Background(), config.Transcription{ASRURL: srv.URL + "/v1/transcribe"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckASR_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckASR(context.Background(), config.Transcription{ASRURL: srv.URL})
	if result.Passed || !strings.Contains(result.Detail, "503") {
		t.Fatalf("expected 503 failure, got %+v", result)
	}
}

func TestCheckASR_MissingURL(t *testing.T) {
	if result := CheckASR(context.Background(), config.Transcription{}); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLM{BaseURL: "http://localhost"})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckPipeline(cfg)
	if !result.Passed || !strings.HasPrefix(result.Detail, "6 stages from inline stages") {
		t.Fatalf("unexpected result %+v", result)
	}

	broken := testsupport.NewConfig(t, testsupport.WithStages(
		config.StageDefinition{ID: "summary", Analyzer: "extractive-summarizer", DependsOn: []string{"missing"}},
	))
	if result := CheckPipeline(broken); result.Passed {
		t.Fatalf("expected failure for unknown dependency, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg)
	// data dir, log dir, pipeline, history
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %+v", len(results), results)
	}
	if n := Failed(results); n != 0 {
		t.Fatalf("expected all checks to pass, %d failed: %+v", n, results)
	}
}

func TestRunAll_IncludesRemoteChecksWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithoutPersistence(), testsupport.WithASR(srv.URL), testsupport.WithLLM(srv.URL))
	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "Data directory,Log directory,Pipeline,Speech recognition,LLM" {
		t.Fatalf("unexpected checks %v", names)
	}
	if n := Failed(results); n != 2 {
		t.Fatalf("expected both remote checks to fail, got %d: %+v", n, results)
	}
}
