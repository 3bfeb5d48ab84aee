package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone synthesises a sine wave with a slow amplitude wobble so frame energy
// varies the way speech does.
func Tone(freq, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		wobble := 0.75 + 0.25*math.Sin(2*math.Pi*3*t)
		out[i] = amplitude * wobble * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

// Silence returns seconds of zero samples.
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// Conversation concatenates two alternating "speakers" (a low and a high tone)
// separated by two-second pauses: A, B, A.
func Conversation(sampleRate int) []float64 {
	var out []float64
	out = append(out, Tone(140, 2, sampleRate, 0.5)...)
	out = append(out, Silence(2, sampleRate)...)
	out = append(out, Tone(1400, 2, sampleRate, 0.4)...)
	out = append(out, Silence(2, sampleRate)...)
	out = append(out, Tone(140, 2, sampleRate, 0.5)...)
	return out
}

// WriteWAV encodes mono or interleaved samples as 16-bit PCM at path.
func WriteWAV(t testing.TB, path string, samples []float64, sampleRate, channels int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}
	encoder := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

// WAVBytes returns the encoded WAV for samples.
func WAVBytes(t testing.TB, samples []float64, sampleRate, channels int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	WriteWAV(t, path, samples, sampleRate, channels)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
