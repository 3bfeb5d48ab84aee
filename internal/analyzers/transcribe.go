package analyzers

import (
	"context"
	"strings"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
)

// templateTranscriber emits configured text, timed across the voiced part of
// the recording. It stands in when no recognition backend is available.
type templateTranscriber struct {
	text      string
	language  string
	threshold float64
}

func newTemplateTranscriber(deps Deps) (stage.Analyzer, error) {
	threshold := deps.Diarization.SilenceThreshold
	if threshold <= 0 {
		threshold = audio.SilenceFloor
	}
	return templateTranscriber{
		text:      strings.TrimSpace(deps.Transcription.TemplateText),
		language:  deps.Transcription.Language,
		threshold: threshold,
	}, nil
}

func (t templateTranscriber) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "template transcriber"); err != nil {
		return nil, err
	}
	tokens := strings.Fields(t.text)
	return report.Transcript{
		Text:     t.text,
		Words:    spreadWords(tokens, in.Audio, t.threshold),
		Language: t.language,
	}, nil
}

// spreadWords assigns each token a contiguous run of voiced frames. With no
// voiced frames the tokens share the whole duration evenly.
func spreadWords(tokens []string, h *audio.Handle, threshold float64) []report.Word {
	out := make([]report.Word, 0, len(tokens))
	if len(tokens) == 0 {
		return out
	}
	duration := h.Seconds()
	frame := audio.FrameDuration.Seconds()

	var voiced []float64
	for _, f := range h.Envelope() {
		if f.Voiced(threshold) {
			voiced = append(voiced, f.Start.Seconds())
		}
	}
	n := len(tokens)
	if len(voiced) == 0 {
		step := duration / float64(n)
		for i, tok := range tokens {
			out = append(out, report.Word{Text: tok, Start: float64(i) * step, End: float64(i+1) * step})
		}
		return out
	}
	for i, tok := range tokens {
		lo := min(i*len(voiced)/n, len(voiced)-1)
		hi := min(max((i+1)*len(voiced)/n, lo+1), len(voiced))
		start := voiced[lo]
		end := min(voiced[hi-1]+frame, duration)
		out = append(out, report.Word{Text: tok, Start: start, End: max(end, start)})
	}
	return out
}

// remoteTranscriber uploads the audio to an ASR service.
type remoteTranscriber struct {
	client   Transcriber
	language string
}

func newRemoteTranscriber(deps Deps) (stage.Analyzer, error) {
	if !isConfigured(deps.ASR) {
		return nil, services.Wrap(services.ErrConfiguration, RemoteTranscriber, "new", "transcription.asr_url is not configured", nil)
	}
	return remoteTranscriber{client: deps.ASR, language: deps.Transcription.Language}, nil
}

func (r remoteTranscriber) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	wav, err := audio.EncodeWAV(in.Audio)
	if err != nil {
		return nil, err
	}
	name := in.Audio.Source()
	if name == "" {
		name = "meeting.wav"
	}
	reply, err := r.client.Transcribe(ctx, name, wav)
	if err != nil {
		return nil, err
	}
	language := strings.TrimSpace(reply.Language)
	if language == "" {
		language = r.language
	}
	out := report.Transcript{
		Text:            strings.TrimSpace(reply.Text),
		Words:           make([]report.Word, 0, len(reply.Words)),
		Language:        language,
		ConfidenceScore: reply.Confidence,
	}
	for _, w := range reply.Words {
		out.Words = append(out.Words, report.Word{Text: w.Text, Start: w.Start, End: w.End})
	}
	return out, nil
}

func (r remoteTranscriber) HealthCheck(ctx context.Context) stage.Health {
	return probeHealth(ctx, RemoteTranscriber, r.client)
}
