package audio

import (
	"math"
	"time"
)

// Derived statistic names.
const (
	StatRMS          = "rms"
	StatZCR          = "zcr"
	StatPeak         = "peak"
	StatCrestFactor  = "crest_factor"
	StatDCOffset     = "dc_offset"
	StatSilenceRatio = "silence_ratio"
	StatEnergyCV     = "energy_cv"
	StatZCRCV        = "zcr_cv"
)

// SilenceFloor is the frame RMS below which a frame counts as silent
// (about -40 dBFS).
const SilenceFloor = 0.01

// FrameDuration is the analysis window used for the envelope.
const FrameDuration = 20 * time.Millisecond

// FrameStat summarises one analysis window.
type FrameStat struct {
	Start time.Duration
	RMS   float64
	ZCR   float64
}

// Voiced reports whether the frame's energy clears threshold.
func (f FrameStat) Voiced(threshold float64) bool {
	return f.RMS >= threshold
}

// frameSamples is the envelope window length in samples.
func frameSamples(sampleRate int) int {
	return max(sampleRate*int(FrameDuration)/int(time.Second), 1)
}

func computeEnvelope(mono []float64, sampleRate int) []FrameStat {
	size := frameSamples(sampleRate)
	frames := make([]FrameStat, 0, len(mono)/size+1)
	for start := 0; start < len(mono); start += size {
		end := min(start+size, len(mono))
		window := mono[start:end]
		frames = append(frames, FrameStat{
			Start: time.Duration(float64(start) / float64(sampleRate) * float64(time.Second)),
			RMS:   rms(window),
			ZCR:   zeroCrossingRate(window),
		})
	}
	return frames
}

func computeStats(mono []float64, envelope []FrameStat) map[string]float64 {
	stats := make(map[string]float64, 8)

	var sum, peak float64
	for _, s := range mono {
		sum += s
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	level := rms(mono)
	stats[StatRMS] = level
	stats[StatZCR] = zeroCrossingRate(mono)
	stats[StatPeak] = peak
	stats[StatDCOffset] = sum / float64(len(mono))
	if level > 0 {
		stats[StatCrestFactor] = peak / level
	} else {
		stats[StatCrestFactor] = 0
	}

	var silent int
	voicedRMS := make([]float64, 0, len(envelope))
	voicedZCR := make([]float64, 0, len(envelope))
	for _, frame := range envelope {
		if !frame.Voiced(SilenceFloor) {
			silent++
			continue
		}
		voicedRMS = append(voicedRMS, frame.RMS)
		voicedZCR = append(voicedZCR, frame.ZCR)
	}
	if len(envelope) > 0 {
		stats[StatSilenceRatio] = float64(silent) / float64(len(envelope))
	}
	stats[StatEnergyCV] = coefficientOfVariation(voicedRMS)
	stats[StatZCRCV] = coefficientOfVariation(voicedZCR)
	return stats
}

func rms(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	var acc float64
	for _, s := range window {
		acc += s * s
	}
	return math.Sqrt(acc / float64(len(window)))
}

// zeroCrossingRate is the fraction of adjacent sample pairs that change sign.
func zeroCrossingRate(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(window); i++ {
		if (window[i-1] >= 0) != (window[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(window)-1)
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}
