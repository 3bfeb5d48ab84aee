package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"

	"meetingintel/internal/services"
)

// DecodeWAV reads a PCM WAV stream into a Handle. The fingerprint is a digest
// of the encoded bytes, so identical uploads share an identity.
func DecodeWAV(r io.ReadSeeker, name string) (*Handle, error) {
	digest := sha256.New()
	if _, err := io.Copy(digest, r); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "read", "unable to read audio stream", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "read", "unable to rewind audio stream", err)
	}

	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "not a valid PCM WAV file", decoder.Err())
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "unable to read PCM data", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "missing PCM format", nil)
	}

	channels := buf.Format.NumChannels
	if channels > 0 {
		// Drop a trailing partial frame from truncated uploads.
		buf.Data = buf.Data[:len(buf.Data)-len(buf.Data)%channels]
	}
	samples, err := normalise(buf.Data, buf.SourceBitDepth)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "unsupported sample format", err)
	}
	return New(samples, buf.Format.SampleRate, channels,
		WithSource(name),
		WithFingerprint(hex.EncodeToString(digest.Sum(nil))),
	)
}

// Open decodes the WAV file at path.
func Open(path string) (*Handle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "audio", "open", path, err)
	}
	defer file.Close()
	return DecodeWAV(file, filepath.Base(path))
}

func normalise(data []int, bitDepth int) ([]float64, error) {
	out := make([]float64, len(data))
	switch bitDepth {
	case 8:
		for i, v := range data {
			out[i] = (float64(v) - 128) / 128
		}
	case 16, 24, 32:
		scale := float64(int64(1) << (bitDepth - 1))
		for i, v := range data {
			out[i] = float64(v) / scale
		}
	default:
		return nil, fmt.Errorf("bit depth %d", bitDepth)
	}
	return out, nil
}
