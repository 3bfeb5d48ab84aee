package audio

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"maps"
	"math"
	"sync"
	"time"

	"meetingintel/internal/services"
)

// Handle is an immutable reference to decoded audio.
type Handle struct {
	samples    []float64
	sampleRate int
	channels   int
	frames     int
	source     string

	fingerprintOnce sync.Once
	fingerprint     string

	monoOnce sync.Once
	mono     []float64

	statsOnce sync.Once
	stats     map[string]float64
	envelope  []FrameStat
}

// Option customises a Handle at construction time.
type Option func(*Handle)

// WithSource records the originating file name.
func WithSource(name string) Option {
	return func(h *Handle) { h.source = name }
}

// WithFingerprint sets the content fingerprint, typically a digest of the
// encoded file, instead of hashing the decoded samples.
func WithFingerprint(fingerprint string) Option {
	return func(h *Handle) {
		if fingerprint == "" {
			return
		}
		h.fingerprintOnce.Do(func() { h.fingerprint = fingerprint })
	}
}

// New validates and wraps interleaved samples. The slice is retained, not
// copied; callers must not modify it afterwards.
func New(samples []float64, sampleRate, channels int, opts ...Option) (*Handle, error) {
	switch {
	case sampleRate <= 0:
		return nil, services.Wrap(services.ErrValidation, "audio", "new handle", "sample rate must be positive", nil)
	case channels < 1:
		return nil, services.Wrap(services.ErrValidation, "audio", "new handle", "channel count must be at least 1", nil)
	case len(samples) == 0:
		return nil, services.Wrap(services.ErrValidation, "audio", "new handle", "no samples", nil)
	case len(samples)%channels != 0:
		return nil, services.Wrap(services.ErrValidation, "audio", "new handle", "sample count is not a multiple of the channel count", nil)
	}
	h := &Handle{
		samples:    samples,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     len(samples) / channels,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *Handle) SampleRate() int { return h.sampleRate }

func (h *Handle) Channels() int { return h.channels }

// Frames is the number of samples per channel.
func (h *Handle) Frames() int { return h.frames }

func (h *Handle) Source() string { return h.source }

// Duration is always positive for a constructed Handle.
func (h *Handle) Duration() time.Duration {
	return time.Duration(float64(h.frames) / float64(h.sampleRate) * float64(time.Second))
}

// Seconds returns the duration as fractional seconds.
func (h *Handle) Seconds() float64 {
	return float64(h.frames) / float64(h.sampleRate)
}

// Samples returns the interleaved buffer. The slice is shared and must be
// treated as read-only.
func (h *Handle) Samples() []float64 { return h.samples }

// Mono returns the channel-averaged signal, computed once. The slice is shared
// and must be treated as read-only.
func (h *Handle) Mono() []float64 {
	h.monoOnce.Do(func() {
		if h.channels == 1 {
			h.mono = h.samples
			return
		}
		mono := make([]float64, h.frames)
		for i := range mono {
			var sum float64
			base := i * h.channels
			for c := 0; c < h.channels; c++ {
				sum += h.samples[base+c]
			}
			mono[i] = sum / float64(h.channels)
		}
		h.mono = mono
	})
	return h.mono
}

// Fingerprint is a hex sha256 identifying the audio content.
func (h *Handle) Fingerprint() string {
	h.fingerprintOnce.Do(func() {
		digest := sha256.New()
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(h.sampleRate))
		digest.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(h.channels))
		digest.Write(buf[:])
		for _, s := range h.samples {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s))
			digest.Write(buf[:])
		}
		h.fingerprint = hex.EncodeToString(digest.Sum(nil))
	})
	return h.fingerprint
}

// Stat returns one derived statistic by name.
func (h *Handle) Stat(name string) (float64, bool) {
	h.ensureStats()
	v, ok := h.stats[name]
	return v, ok
}

// Stats returns a copy of every derived statistic.
func (h *Handle) Stats() map[string]float64 {
	h.ensureStats()
	return maps.Clone(h.stats)
}

// Envelope returns per-frame energy and zero-crossing measurements. The slice
// is shared and must be treated as read-only.
func (h *Handle) Envelope() []FrameStat {
	h.ensureStats()
	return h.envelope
}

func (h *Handle) ensureStats() {
	h.statsOnce.Do(func() {
		h.envelope = computeEnvelope(h.Mono(), h.sampleRate)
		h.stats = computeStats(h.Mono(), h.envelope)
	})
}
