package analyzers

import (
	"context"
	"math"

	"meetingintel/internal/audio"
	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
	"meetingintel/internal/textutil"
)

// Emotion labels produced by lexiconEmotion.
const (
	EmotionPositive = "positive"
	EmotionNegative = "negative"
	EmotionNeutral  = report.NeutralLabel
	EmotionExcited  = "excited"
	EmotionTense    = "tense"
)

var (
	positiveWords = textutil.WordSet(`good great excellent happy glad pleased love enjoy agree agreed success successful
progress win wins thanks thank appreciate awesome fantastic perfect nice positive improve improved improvement
excited opportunity done solved resolved helpful clear confident approve approved`)
	negativeWords = textutil.WordSet(`bad poor terrible sad angry upset hate dislike problem problems issue issues risk risks
concern concerned worried worry fail failed failure delay delayed blocked blocker wrong difficult frustrated
frustrating disappointed negative behind broken bug bugs complaint unfortunately cannot can't won't`)
)

// arousalReference is the RMS level treated as fully aroused speech.
const arousalReference = 0.3

// lexiconEmotion scores transcript polarity with word lists and arousal with
// signal energy.
type lexiconEmotion struct{}

func (lexiconEmotion) Analyze(ctx context.Context, in stage.Input) (report.Payload, error) {
	if err := canceled(ctx, "lexicon emotion"); err != nil {
		return nil, err
	}
	transcript, ok := stage.Find[report.Transcript](in.Prior)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, LexiconEmotion, "analyze", "no transcript available", nil)
	}

	tokens := textutil.Words(transcript.Text)
	var pos, neg int
	for _, w := range tokens {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	level, _ := in.Audio.Stat(audio.StatRMS)
	arousal := clamp01(level / arousalReference)

	var score float64
	if hits := pos + neg; hits > 0 {
		score = float64(pos-neg) / float64(hits)
	}
	sentiment := report.Sentiment{Label: EmotionNeutral, Score: round3(score)}
	switch {
	case score > 0.2:
		sentiment.Label = EmotionPositive
	case score < -0.2:
		sentiment.Label = EmotionNegative
	}

	label := sentiment.Label
	if arousal >= 0.6 {
		switch sentiment.Label {
		case EmotionPositive:
			label = EmotionExcited
		case EmotionNegative:
			label = EmotionTense
		}
	}

	breakdown := map[string]float64{EmotionPositive: 0, EmotionNegative: 0, EmotionNeutral: 1}
	if n := len(tokens); n > 0 {
		breakdown[EmotionPositive] = round3(float64(pos) / float64(n))
		breakdown[EmotionNegative] = round3(float64(neg) / float64(n))
		breakdown[EmotionNeutral] = round3(clamp01(1 - breakdown[EmotionPositive] - breakdown[EmotionNegative]))
	}

	return report.Emotion{
		Label:           label,
		ConfidenceScore: round3(0.4 + 0.6*clamp01(float64(pos+neg)/5)),
		Intensity:       round3(clamp01(0.5*arousal + 0.5*math.Abs(score))),
		Breakdown:       breakdown,
		Sentiment:       sentiment,
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
