package analyzers

import (
	"context"
	"math"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
	"meetingintel/internal/stage"
)

const (
	authenticityMethod = "signal-heuristics"
	// minVoicedFrames is the least voiced audio (in envelope frames) the
	// heuristics need before they commit to a score.
	minVoicedFrames = 25
	// sineCrest is the crest factor of a pure tone.
	sineCrest = math.Sqrt2
)

// signalAuthenticity estimates whether a voice is live by how much natural
// variation it shows: pitch jitter (zero-crossing variability), amplitude
// shimmer (energy variability), peakiness, and pausing.
type signalAuthenticity struct{}

func (signalAuthenticity) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "signal authenticity"); err != nil {
		return nil, err
	}
	stats := in.Audio.Stats()
	features := map[string]float64{
		"jitter":        round3(stats[audio.StatZCRCV]),
		"shimmer":       round3(stats[audio.StatEnergyCV]),
		"crest_factor":  round3(stats[audio.StatCrestFactor]),
		"silence_ratio": round3(stats[audio.StatSilenceRatio]),
	}

	voiced := 0
	for _, f := range in.Audio.Envelope() {
		if f.Voiced(audio.SilenceFloor) {
			voiced++
		}
	}
	if voiced < minVoicedFrames {
		return report.Authenticity{
			Score:        report.UndeterminedScore,
			Undetermined: true,
			Method:       authenticityMethod,
			Features:     features,
		}, nil
	}

	jitter := clamp01(stats[audio.StatZCRCV] / 0.5)
	shimmer := clamp01(stats[audio.StatEnergyCV] / 0.5)
	crest := clamp01((stats[audio.StatCrestFactor] - sineCrest) / (4 - sineCrest))
	pauses := 0.3
	if ratio := stats[audio.StatSilenceRatio]; ratio >= 0.05 && ratio <= 0.7 {
		pauses = 1
	}
	score := round3(0.3*jitter + 0.3*shimmer + 0.25*crest + 0.15*pauses)
	return report.Authenticity{
		Score:           score,
		Synthetic:       score < 0.5,
		Method:          authenticityMethod,
		Features:        features,
		ConfidenceScore: round3(math.Abs(score-0.5) * 2),
	}, nil
}
