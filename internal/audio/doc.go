// Package audio provides the immutable audio handle shared by every pipeline
// stage, plus the WAV decoder that constructs it.
//
// A Handle owns interleaved samples normalised to [-1, 1] and lazily computes
// derived signal statistics (RMS energy, zero-crossing rate, and related
// measures) exactly once. After the first access the statistics are read-only,
// so concurrently running stages may share one Handle without locking.
package audio
