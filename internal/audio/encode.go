package audio

import (
	"errors"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"meetingintel/internal/services"
)

// EncodeWAV renders h as 16-bit PCM WAV. Remote collaborators that need the
// audio in a file format use this instead of the original upload, so they see
// exactly what the local stages analysed.
func EncodeWAV(h *Handle) ([]byte, error) {
	if h == nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "encode", "audio handle is required", nil)
	}
	data := make([]int, len(h.samples))
	for i, s := range h.samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * math.MaxInt16))
	}
	var out memoryFile
	encoder := wav.NewEncoder(&out, h.sampleRate, 16, h.channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: h.channels, SampleRate: h.sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "encode", "write pcm", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "encode", "finalise header", err)
	}
	return out.buf, nil
}

// memoryFile is the in-memory io.WriteSeeker the WAV encoder needs to patch
// chunk sizes after the samples are written.
type memoryFile struct {
	buf []byte
	pos int
}

func (m *memoryFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memoryFile) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(next)
	return next, nil
}
