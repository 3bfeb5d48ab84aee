package audio

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"meetingintel/internal/services"
)

// Method names one enhancement step.
type Method string

const (
	MethodNoiseReduction Method = "noise_reduction"
	MethodNormalize      Method = "normalization"
	MethodTrimSilence    Method = "trim_silence"
	MethodBandpass       Method = "bandpass_filter"
)

const (
	// Voice band kept by the bandpass filter.
	bandLowHz  = 300.0
	bandHighHz = 3400.0
	butterQ    = math.Sqrt2 / 2

	// Leading and trailing frames more than 20 dB below the loudest frame
	// are trimmed.
	trimRatio = 0.1

	// Frames quieter than noiseGateRatio times the noise floor are
	// attenuated by the square of their distance below the gate.
	noiseGateRatio   = 2.0
	noisePercentile  = 0.1
	signalPercentile = 0.9

	// maxSNR caps the estimate for recordings with a digitally silent floor.
	maxSNR = 96.0
)

// Methods lists every enhancement step in the order a full pass applies them.
func Methods() []Method {
	return []Method{MethodNoiseReduction, MethodNormalize, MethodTrimSilence, MethodBandpass}
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return slices.Contains(Methods(), m)
}

// ParseMethod resolves a configured method name.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", services.Wrap(services.ErrValidation, "audio", "parse enhancement method",
			fmt.Sprintf("unknown enhancement method %q", name), nil)
	}
	return m, nil
}

// ParseMethods resolves every name, failing on the first unknown one.
func ParseMethods(names []string) ([]Method, error) {
	out := make([]Method, 0, len(names))
	for _, name := range names {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// QualityStats describes a signal before or after enhancement. SNR is the
// 90th over the 10th percentile of frame RMS in dB; Clarity approximates the
// spectral centroid of voiced frames in Hz.
type QualityStats struct {
	SNR             float64 `json:"snr"`
	Clarity         float64 `json:"clarity"`
	RMS             float64 `json:"rms"`
	DurationSeconds float64 `json:"duration"`
}

// EnhancementReport records what Enhance did. AppliedMethods lists only the
// steps that changed the signal.
type EnhancementReport struct {
	AppliedMethods     []string     `json:"applied_methods"`
	Original           QualityStats `json:"original_stats"`
	Enhanced           QualityStats `json:"enhanced_stats"`
	SNRImprovement     float64      `json:"snr_improvement"`
	ClarityImprovement float64      `json:"clarity_improvement"`
}

// Quality measures h.
func Quality(h *Handle) QualityStats {
	env := h.Envelope()
	levels := make([]float64, len(env))
	var voiced int
	var zcr float64
	for i, frame := range env {
		levels[i] = frame.RMS
		if frame.Voiced(SilenceFloor) {
			voiced++
			zcr += frame.ZCR
		}
	}
	signal := percentile(levels, signalPercentile)
	noise := percentile(levels, noisePercentile)
	var snr float64
	switch {
	case signal == 0:
	case noise == 0:
		snr = maxSNR
	default:
		snr = min(20*math.Log10(signal/noise), maxSNR)
	}
	var clarity float64
	if voiced > 0 {
		clarity = zcr / float64(voiced) * float64(h.sampleRate) / 2
	}
	rmsLevel, _ := h.Stat(StatRMS)
	return QualityStats{
		SNR:             roundTo(snr, 2),
		Clarity:         roundTo(clarity, 2),
		RMS:             roundTo(rmsLevel, 4),
		DurationSeconds: roundTo(h.Seconds(), 3),
	}
}

// Enhance applies methods in order and returns a new Handle; h is never
// modified. The result keeps h's source name and fingerprint so analysis ids
// still identify the uploaded file. With no methods, or when no step changes
// the signal, h itself is returned.
func Enhance(h *Handle, methods ...Method) (*Handle, EnhancementReport, error) {
	if h == nil {
		return nil, EnhancementReport{}, services.Wrap(services.ErrValidation, "audio", "enhance", "audio handle is nil", nil)
	}
	for _, m := range methods {
		if !m.Valid() {
			return nil, EnhancementReport{}, services.Wrap(services.ErrValidation, "audio", "enhance",
				fmt.Sprintf("unknown enhancement method %q", m), nil)
		}
	}

	rep := EnhancementReport{AppliedMethods: []string{}, Original: Quality(h)}
	w := newWorkBuffer(h)
	seen := make(map[Method]bool, len(methods))
	for _, m := range methods {
		if seen[m] {
			continue
		}
		seen[m] = true
		var changed bool
		switch m {
		case MethodNoiseReduction:
			changed = w.reduceNoise()
		case MethodNormalize:
			changed = w.normalize()
		case MethodTrimSilence:
			changed = w.trimSilence()
		case MethodBandpass:
			changed = w.bandpass()
		}
		if changed {
			rep.AppliedMethods = append(rep.AppliedMethods, string(m))
		}
	}
	if len(rep.AppliedMethods) == 0 {
		rep.Enhanced = rep.Original
		return h, rep, nil
	}

	out, err := New(w.interleave(), h.sampleRate, h.channels, WithSource(h.source), WithFingerprint(h.Fingerprint()))
	if err != nil {
		return nil, EnhancementReport{}, err
	}
	rep.Enhanced = Quality(out)
	rep.SNRImprovement = roundTo(rep.Enhanced.SNR-rep.Original.SNR, 2)
	rep.ClarityImprovement = roundTo(rep.Enhanced.Clarity-rep.Original.Clarity, 2)
	return out, rep, nil
}

// workBuffer holds a deinterleaved copy of the samples being enhanced.
type workBuffer struct {
	channels   [][]float64
	sampleRate int
}

func newWorkBuffer(h *Handle) *workBuffer {
	channels := make([][]float64, h.channels)
	for c := range channels {
		channels[c] = make([]float64, h.frames)
	}
	for i, s := range h.samples {
		channels[i%h.channels][i/h.channels] = s
	}
	return &workBuffer{channels: channels, sampleRate: h.sampleRate}
}

func (w *workBuffer) frames() int { return len(w.channels[0]) }

func (w *workBuffer) mono() []float64 {
	if len(w.channels) == 1 {
		return w.channels[0]
	}
	out := make([]float64, w.frames())
	for _, ch := range w.channels {
		for i, s := range ch {
			out[i] += s
		}
	}
	for i := range out {
		out[i] /= float64(len(w.channels))
	}
	return out
}

func (w *workBuffer) interleave() []float64 {
	n := len(w.channels)
	out := make([]float64, w.frames()*n)
	for c, ch := range w.channels {
		for i, s := range ch {
			out[i*n+c] = math.Max(-1, math.Min(1, s))
		}
	}
	return out
}

func (w *workBuffer) normalize() bool {
	var peak float64
	for _, ch := range w.channels {
		for _, s := range ch {
			peak = max(peak, math.Abs(s))
		}
	}
	if peak == 0 || peak == 1 {
		return false
	}
	for _, ch := range w.channels {
		for i := range ch {
			ch[i] /= peak
		}
	}
	return true
}

func (w *workBuffer) trimSilence() bool {
	env := computeEnvelope(w.mono(), w.sampleRate)
	var loudest float64
	for _, frame := range env {
		loudest = max(loudest, frame.RMS)
	}
	if loudest == 0 {
		return false
	}
	threshold := loudest * trimRatio
	first, last := -1, -1
	for i, frame := range env {
		if frame.RMS >= threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	size := frameSamples(w.sampleRate)
	start := first * size
	end := min((last+1)*size, w.frames())
	if start == 0 && end == w.frames() {
		return false
	}
	for c, ch := range w.channels {
		w.channels[c] = ch[start:end]
	}
	return true
}

func (w *workBuffer) bandpass() bool {
	nyquist := float64(w.sampleRate) / 2
	if nyquist <= bandLowHz {
		return false
	}
	high := newBiquad(highPass, bandLowHz, float64(w.sampleRate))
	low := newBiquad(lowPass, bandHighHz, float64(w.sampleRate))
	for _, ch := range w.channels {
		high.zeroPhase(ch)
		if nyquist > bandHighHz {
			low.zeroPhase(ch)
		}
	}
	return true
}

func (w *workBuffer) reduceNoise() bool {
	env := computeEnvelope(w.mono(), w.sampleRate)
	levels := make([]float64, len(env))
	for i, frame := range env {
		levels[i] = frame.RMS
	}
	floor := percentile(levels, noisePercentile)
	if floor == 0 {
		return false
	}
	gate := floor * noiseGateRatio
	size := frameSamples(w.sampleRate)
	var changed bool
	for i, frame := range env {
		if frame.RMS >= gate {
			continue
		}
		gain := (frame.RMS / gate) * (frame.RMS / gate)
		start := i * size
		end := min(start+size, w.frames())
		for _, ch := range w.channels {
			for j := start; j < end; j++ {
				ch[j] *= gain
			}
		}
		changed = true
	}
	return changed
}

type filterKind int

const (
	lowPass filterKind = iota
	highPass
)

// biquad is a second-order Butterworth section (RBJ cookbook coefficients).
type biquad struct {
	b0, b1, b2, a1, a2 float64
}

func newBiquad(kind filterKind, cutoff, sampleRate float64) biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterQ)
	a0 := 1 + alpha
	var b0, b1 float64
	switch kind {
	case highPass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
	default:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
	}
	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b0 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f biquad) run(x []float64) {
	var x1, x2, y1, y2 float64
	for i, in := range x {
		out := f.b0*in + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, in
		y2, y1 = y1, out
		x[i] = out
	}
}

// zeroPhase filters forward then backward so the passband is not delayed.
func (f biquad) zeroPhase(x []float64) {
	f.run(x)
	slices.Reverse(x)
	f.run(x)
	slices.Reverse(x)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[int(p*float64(len(sorted)-1))]
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
