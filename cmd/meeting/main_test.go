package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meetingintel/internal/analysis"
	"meetingintel/internal/store"
	"meetingintel/internal/testsupport"
)

const rate = 16000

type cliTestEnv struct {
	baseDir    string
	configPath string
	wavPath    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"MEETINGINTEL_ASR_URL", "MEETINGINTEL_LLM_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, base)

	wavPath := filepath.Join(base, "standup.wav")
	testsupport.WriteWAV(t, wavPath, testsupport.Conversation(rate), rate, 1)

	return &cliTestEnv{baseDir: base, configPath: configPath, wavPath: wavPath}
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = \"127.0.0.1:0\"\n\n[pipeline]\npersist_results = true\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func analyzeJSON(t *testing.T, env *cliTestEnv, extra ...string) analysis.Document {
	t.Helper()
	args := append([]string{"analyze", env.wavPath, "--format", "json"}, extra...)
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var doc analysis.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode analyze output: %v\n%s", err, out)
	}
	return doc
}

func TestAnalyzeHistoryShowExportCalendar(t *testing.T) {
	env := setupCLITestEnv(t)

	doc := analyzeJSON(t, env)
	if doc.AnalysisID == "" || doc.Source.Name != "standup.wav" || len(doc.Manifest) != 6 {
		t.Fatalf("unexpected document %+v", doc.Result)
	}
	if doc.Analytics.Meeting.SpeakerCount != 2 {
		t.Fatalf("expected analytics in json output, got %+v", doc.Analytics.Meeting)
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var items []store.Summary
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(items) != 1 || items[0].ID != doc.AnalysisID {
		t.Fatalf("unexpected history %+v", items)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, doc.AnalysisID)
	requireContains(t, out, "standup.wav")

	out, _, err = runCLI(t, []string{"show", doc.AnalysisID}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Overview")
	requireContains(t, out, "normalization")
	requireContains(t, out, "Stages")
	requireContains(t, out, "transcription")

	target := filepath.Join(env.baseDir, "report.csv")
	out, _, err = runCLI(t, []string{"export", doc.AnalysisID, "--format", "csv", "--output", target}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Section,Field,Value\n") {
		t.Fatalf("unexpected csv header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}

	out, _, err = runCLI(t, []string{"calendar", doc.AnalysisID}, env.configPath)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	requireContains(t, out, "BEGIN:VCALENDAR")
	requireContains(t, out, "PRODID:-//Meeting Intelligence//Calendar//EN")
}

func TestAnalyzeNoSaveSkipsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	analyzeJSON(t, env, "--no-save")

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No analyses stored")
}

func TestAnalyzeTableAndFileOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"analyze", env.wavPath, "--no-save"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Overview")
	requireContains(t, out, "Findings")
	requireContains(t, out, "succeeded")

	target := filepath.Join(env.baseDir, "report.xlsx")
	if _, _, err := runCLI(t, []string{"analyze", env.wavPath, "--no-save", "--format", "xlsx", "--output", target}, env.configPath); err != nil {
		t.Fatalf("analyze xlsx: %v", err)
	}
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Fatalf("expected xlsx file, stat=%v err=%v", info, err)
	}

	_, _, err = runCLI(t, []string{"analyze", env.wavPath, "--no-save", "--format", "xlsx"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--output") {
		t.Fatalf("expected xlsx to require --output, got %v", err)
	}
	_, _, err = runCLI(t, []string{"analyze", env.wavPath, "--no-save", "--format", "pdf"}, env.configPath)
	if err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestAnalyzeRejectsNonWAV(t *testing.T) {
	env := setupCLITestEnv(t)
	notes := filepath.Join(env.baseDir, "notes.wav")
	if err := os.WriteFile(notes, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"analyze", notes}, env.configPath); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestShowUnknownID(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"show", "does-not-exist"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestStagesCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stages", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	var rows []stageRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode stages: %v", err)
	}
	if len(rows) != 6 || rows[0].ID != "transcription" || rows[0].Batch != 1 {
		t.Fatalf("unexpected stages %+v", rows)
	}
	last := rows[len(rows)-1]
	if last.ID != "summary" || last.Batch != 3 || !last.Ready {
		t.Fatalf("unexpected summary row %+v", last)
	}
	if last.Timeout != (30 * time.Second).String() {
		t.Fatalf("summary timeout = %s, want default", last.Timeout)
	}

	out, _, err = runCLI(t, []string{"stages"}, env.configPath)
	if err != nil {
		t.Fatalf("stages table: %v", err)
	}
	requireContains(t, out, "DEPENDS ON")
	requireContains(t, out, "transcription, emotion")
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Data directory")
	requireContains(t, out, "Pipeline")
	requireContains(t, out, "History database")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "transcription → diarization")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}
