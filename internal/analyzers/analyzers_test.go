package analyzers_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"meetingintel/internal/analyzers"
	"meetingintel/internal/audio"
	"meetingintel/internal/config"
	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/services/asr"
	"meetingintel/internal/services/llm"
	"meetingintel/internal/stage"
	"meetingintel/internal/testsupport"
)

const rate = 16000

func conversation(t *testing.T) *audio.Handle {
	t.Helper()
	h, err := audio.New(testsupport.Conversation(rate), rate, 1, audio.WithSource("standup.wav"))
	if err != nil {
		t.Fatalf("audio.New: %v", err)
	}
	return h
}

func localDeps() analyzers.Deps {
	cfg := config.Default()
	return analyzers.Deps{
		Transcription:  cfg.Transcription,
		Diarization:    cfg.Diarization,
		DefaultTimeout: time.Second,
	}
}

func analyze(t *testing.T, name string, deps analyzers.Deps, in stage.Input) report.Payload {
	t.Helper()
	analyzer, kind, err := analyzers.New(name, deps)
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	payload, err := analyzer.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("%s: Analyze: %v", name, err)
	}
	if payload.Kind() != kind {
		t.Fatalf("%s: payload kind %s, want %s", name, payload.Kind(), kind)
	}
	if err := payload.Validate(); err != nil {
		t.Fatalf("%s: invalid payload: %v", name, err)
	}
	return payload
}

func withTranscript(h *audio.Handle, text string, extra ...report.Payload) stage.Input {
	payloads := map[string]report.Payload{"transcription": report.Transcript{Text: text, Words: []report.Word{}}}
	order := []string{"transcription"}
	for i, p := range extra {
		id := string(p.Kind()) + string(rune('a'+i))
		payloads[id] = p
		order = append(order, id)
	}
	return stage.Input{Audio: h, Prior: stage.NewPrior(order, payloads)}
}

func TestNamesAndUnknownAnalyzer(t *testing.T) {
	names := analyzers.Names()
	if len(names) != 8 || !slices.IsSorted(names) {
		t.Fatalf("unexpected names %v", names)
	}
	_, _, err := analyzers.New("crystal-ball", localDeps())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildRegistryFromDefaults(t *testing.T) {
	reg, err := analyzers.BuildRegistry(config.DefaultStages(), localDeps())
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	order, err := reg.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder: %v", err)
	}
	want := []string{"transcription", "diarization", "emotion", "authenticity", "classification", "summary"}
	if !slices.Equal(order, want) {
		t.Fatalf("unexpected order %v", order)
	}
	spec, _ := reg.Lookup("summary")
	if spec.Kind != report.KindSummary || spec.Timeout != time.Second {
		t.Fatalf("unexpected summary spec %+v", spec)
	}
}

func TestBuildRegistryRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []config.StageDefinition
	}{
		{"unknown analyzer", []config.StageDefinition{{ID: "x", Analyzer: "nope"}}},
		{"cycle", []config.StageDefinition{
			{ID: "a", Analyzer: analyzers.LexiconEmotion, DependsOn: []string{"b"}},
			{ID: "b", Analyzer: analyzers.KeywordClassifier, DependsOn: []string{"a"}},
		}},
		{"unknown dependency", []config.StageDefinition{{ID: "emotion", Analyzer: analyzers.LexiconEmotion, DependsOn: []string{"transcription"}}}},
		{"remote without url", []config.StageDefinition{{ID: "t", Analyzer: analyzers.RemoteTranscriber}}},
		{"llm without key", []config.StageDefinition{{ID: "s", Analyzer: analyzers.LLMSummarizer}}},
		{"empty", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := analyzers.BuildRegistry(tc.defs, localDeps())
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestBuildRegistryZeroTimeout(t *testing.T) {
	reg, err := analyzers.BuildRegistry([]config.StageDefinition{{ID: "t", Analyzer: analyzers.TemplateTranscriber, Timeout: "0s"}}, localDeps())
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	spec, _ := reg.Lookup("t")
	if spec.Timeout != 0 {
		t.Fatalf("expected zero timeout, got %v", spec.Timeout)
	}
}

func TestTemplateTranscriberTimesWordsInVoicedAudio(t *testing.T) {
	deps := localDeps()
	deps.Transcription.TemplateText = "alpha beta gamma delta"
	h := conversation(t)
	tr := analyze(t, analyzers.TemplateTranscriber, deps, stage.Input{Audio: h}).(report.Transcript)

	if tr.Text != "alpha beta gamma delta" || len(tr.Words) != 4 || tr.Language != "en" {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if _, ok := tr.Confidence(); ok {
		t.Fatal("template transcript must not report confidence")
	}
	for i := 1; i < len(tr.Words); i++ {
		if tr.Words[i].Start < tr.Words[i-1].Start {
			t.Fatalf("word timings not monotonic: %+v", tr.Words)
		}
	}
	if last := tr.Words[3]; last.End > h.Seconds() || last.Start < 8 {
		t.Fatalf("expected last word in the final voiced region, got %+v", last)
	}
}

func TestEnergyDiarizerSeparatesSpeakers(t *testing.T) {
	sp := analyze(t, analyzers.EnergyDiarizer, localDeps(), stage.Input{Audio: conversation(t)}).(report.Speakers)
	if sp.SpeakerCount != 2 || len(sp.Segments) != 3 {
		t.Fatalf("expected 2 speakers over 3 segments, got %+v", sp)
	}
	labels := []string{sp.Segments[0].Speaker, sp.Segments[1].Speaker, sp.Segments[2].Speaker}
	if labels[0] != "SPEAKER_00" || labels[1] != "SPEAKER_01" || labels[2] != "SPEAKER_00" {
		t.Fatalf("unexpected labels %v", labels)
	}
	if sp.Segments[1].Start < 3.9 || sp.Segments[1].End > 6.1 {
		t.Fatalf("unexpected middle segment %+v", sp.Segments[1])
	}
}

func TestEnergyDiarizerSingleSpeakerAndSilence(t *testing.T) {
	tone, _ := audio.New(testsupport.Tone(200, 3, rate, 0.5), rate, 1)
	sp := analyze(t, analyzers.EnergyDiarizer, localDeps(), stage.Input{Audio: tone}).(report.Speakers)
	if sp.SpeakerCount != 1 || len(sp.Segments) != 1 {
		t.Fatalf("expected a single speaker, got %+v", sp)
	}

	quiet, _ := audio.New(testsupport.Silence(1, rate), rate, 1)
	sp = analyze(t, analyzers.EnergyDiarizer, localDeps(), stage.Input{Audio: quiet}).(report.Speakers)
	if sp.SpeakerCount != 0 || len(sp.Segments) != 0 {
		t.Fatalf("expected no speakers in silence, got %+v", sp)
	}
}

func TestLexiconEmotion(t *testing.T) {
	h := conversation(t)
	positive := analyze(t, analyzers.LexiconEmotion, localDeps(), withTranscript(h, "Great progress, thanks team. I am happy with the excellent results.")).(report.Emotion)
	if positive.Sentiment.Label != analyzers.EmotionPositive || positive.Sentiment.Score <= 0 {
		t.Fatalf("expected positive sentiment, got %+v", positive)
	}
	if positive.Label != analyzers.EmotionPositive && positive.Label != analyzers.EmotionExcited {
		t.Fatalf("unexpected label %q", positive.Label)
	}

	negative := analyze(t, analyzers.LexiconEmotion, localDeps(), withTranscript(h, "The release failed again and we are blocked by a terrible bug.")).(report.Emotion)
	if negative.Sentiment.Label != analyzers.EmotionNegative {
		t.Fatalf("expected negative sentiment, got %+v", negative)
	}

	neutral := analyze(t, analyzers.LexiconEmotion, localDeps(), withTranscript(h, "The meeting starts at nine.")).(report.Emotion)
	if neutral.Label != analyzers.EmotionNeutral || neutral.ConfidenceScore != 0.4 {
		t.Fatalf("expected neutral low-confidence result, got %+v", neutral)
	}
}

func TestTranscriptConsumersFailWithoutTranscript(t *testing.T) {
	in := stage.Input{Audio: conversation(t)}
	for _, name := range []string{analyzers.LexiconEmotion, analyzers.KeywordClassifier, analyzers.ExtractiveSummarizer} {
		analyzer, _, err := analyzers.New(name, localDeps())
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		if _, err := analyzer.Analyze(context.Background(), in); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestSignalAuthenticity(t *testing.T) {
	steady, _ := audio.New(pureSine(440, 2), rate, 1)
	synthetic := analyze(t, analyzers.SignalAuthenticity, localDeps(), stage.Input{Audio: steady}).(report.Authenticity)
	if !synthetic.Synthetic || synthetic.Undetermined {
		t.Fatalf("expected a perfectly steady tone to look synthetic, got %+v", synthetic)
	}
	for _, feature := range []string{"jitter", "shimmer", "crest_factor", "silence_ratio"} {
		if _, ok := synthetic.Features[feature]; !ok {
			t.Fatalf("missing feature %s in %+v", feature, synthetic.Features)
		}
	}

	short, _ := audio.New(pureSine(440, 0.1), rate, 1)
	undetermined := analyze(t, analyzers.SignalAuthenticity, localDeps(), stage.Input{Audio: short}).(report.Authenticity)
	if !undetermined.Undetermined || undetermined.Score != report.UndeterminedScore {
		t.Fatalf("expected undetermined result for short audio, got %+v", undetermined)
	}
	if _, ok := undetermined.Confidence(); ok {
		t.Fatal("undetermined result must stay out of the overall confidence")
	}
}

func TestKeywordClassifier(t *testing.T) {
	h := conversation(t)
	spam := analyze(t, analyzers.KeywordClassifier, localDeps(), withTranscript(h, "Congratulations winner! Claim your prize now with a gift card.")).(report.Classification)
	if spam.Label != analyzers.ContentSpam || spam.ConfidenceScore <= 0.5 {
		t.Fatalf("expected spam, got %+v", spam)
	}

	meeting := analyze(t, analyzers.KeywordClassifier, localDeps(), withTranscript(h, "Let's review the agenda and the project deadline. Next steps for the team.")).(report.Classification)
	if meeting.Label != analyzers.ContentMeeting {
		t.Fatalf("expected meeting, got %+v", meeting)
	}

	empty := analyze(t, analyzers.KeywordClassifier, localDeps(), withTranscript(h, "")).(report.Classification)
	if empty.Label != analyzers.ContentMeeting || empty.ConfidenceScore != 0.5 || empty.Reasoning == "" {
		t.Fatalf("expected default meeting label, got %+v", empty)
	}
}

func TestExtractiveSummarizer(t *testing.T) {
	h := conversation(t)
	text := "We reviewed the budget for the launch. The budget is tight. Maria will send the revised budget by Friday. " +
		"We agreed to delay the launch by one week. The weather was nice."
	mood := report.Emotion{Label: "positive", Breakdown: map[string]float64{}, Sentiment: report.Sentiment{Label: "positive"}}
	sum := analyze(t, analyzers.ExtractiveSummarizer, localDeps(), withTranscript(h, text, mood)).(report.Summary)

	if len(sum.ActionItems) != 1 || sum.ActionItems[0] != "Maria will send the revised budget by Friday." {
		t.Fatalf("unexpected action items %v", sum.ActionItems)
	}
	if len(sum.Decisions) != 1 || sum.Decisions[0] != "We agreed to delay the launch by one week." {
		t.Fatalf("unexpected decisions %v", sum.Decisions)
	}
	if sum.Text == "" || !strings.HasSuffix(sum.Text, "Overall tone: positive.") {
		t.Fatalf("expected tone suffix, got %q", sum.Text)
	}
	if _, ok := sum.Confidence(); ok {
		t.Fatal("extractive summary must not report confidence")
	}
}

type fakeASR struct {
	reply asr.Transcription
	err   error
	got   []byte
}

func (f *fakeASR) Transcribe(_ context.Context, _ string, wav []byte) (asr.Transcription, error) {
	f.got = wav
	return f.reply, f.err
}

func (f *fakeASR) Configured() bool { return true }

func (f *fakeASR) HealthCheck(context.Context) error { return f.err }

func TestRemoteTranscriberMapsReply(t *testing.T) {
	fake := &fakeASR{reply: asr.Transcription{
		Text:       " hello team ",
		Confidence: report.Confidence(0.9),
		Words:      []asr.Word{{Text: "hello", Start: 0, End: 0.5}},
	}}
	deps := localDeps()
	deps.ASR = fake
	tr := analyze(t, analyzers.RemoteTranscriber, deps, stage.Input{Audio: conversation(t)}).(report.Transcript)
	if tr.Text != "hello team" || tr.Language != "en" || len(tr.Words) != 1 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if c, ok := tr.Confidence(); !ok || c != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v %v", c, ok)
	}
	if len(fake.got) < 44 || string(fake.got[:4]) != "RIFF" {
		t.Fatal("expected a WAV upload")
	}
}

func TestRemoteTranscriberHealth(t *testing.T) {
	fake := &fakeASR{err: services.Wrap(services.ErrTransient, "asr", "health", "connection refused", nil)}
	deps := localDeps()
	deps.ASR = fake
	reg, err := analyzers.BuildRegistry([]config.StageDefinition{{ID: "transcription", Analyzer: analyzers.RemoteTranscriber}}, deps)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	health := reg.Health(context.Background())
	if len(health) != 1 || health[0].Ready || health[0].Name != "transcription" {
		t.Fatalf("expected unhealthy transcription stage, got %+v", health)
	}
}

type fakeLLM struct {
	tone string
}

func (f *fakeLLM) Summarize(_ context.Context, transcript, tone string) (llm.Summary, error) {
	f.tone = tone
	return llm.Summary{Summary: "Summary of " + transcript, Confidence: 0.75}, nil
}

func TestLLMSummarizerPassesTone(t *testing.T) {
	fake := &fakeLLM{}
	deps := localDeps()
	deps.LLM = fake
	mood := report.Emotion{Label: "tense", Breakdown: map[string]float64{}, Sentiment: report.Sentiment{Label: "negative"}}
	sum := analyze(t, analyzers.LLMSummarizer, deps, withTranscript(conversation(t), "budget", mood)).(report.Summary)
	if fake.tone != "tense" || sum.Text != "Summary of budget" {
		t.Fatalf("unexpected summary %+v (tone %q)", sum, fake.tone)
	}
	if c, ok := sum.Confidence(); !ok || c != 0.75 {
		t.Fatalf("expected confidence 0.75, got %v %v", c, ok)
	}
	if sum.ActionItems == nil || sum.Decisions == nil {
		t.Fatal("expected non-nil lists")
	}
}

func pureSine(freq, seconds float64) []float64 {
	n := int(seconds * rate)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}
