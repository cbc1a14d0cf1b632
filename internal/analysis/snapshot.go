// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"

	"spectrum/internal/fft"
	"spectrum/internal/stream"
)

// Snapshot keeps a copy of the latest spectrum for readers on other
// goroutines, such as a status reporter, and forwards every spectrum to
// the next sink.
type Snapshot struct {
	next       stream.Sink
	sampleRate float64

	mu       sync.RWMutex // Protects spectrum and frames.
	spectrum []float64
	frames   uint64
}

// Compile-time checks for interface implementations.
var (
	_ SpectrumProvider = (*Snapshot)(nil)
	_ Analyser         = (*Snapshot)(nil)
)

// NewSnapshot returns a Snapshot for spectra computed at sampleRate. next
// may be nil.
func NewSnapshot(sampleRate float64, next stream.Sink) (*Snapshot, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	return &Snapshot{next: next, sampleRate: sampleRate}, nil
}

// Send stores a copy of spectrum and forwards it.
func (s *Snapshot) Send(spectrum []float64) error {
	s.mu.Lock()
	if cap(s.spectrum) < len(spectrum) {
		s.spectrum = make([]float64, len(spectrum))
	}
	s.spectrum = s.spectrum[:len(spectrum)]
	copy(s.spectrum, spectrum)
	s.frames++
	s.mu.Unlock()

	if s.next == nil {
		return nil
	}
	return s.next.Send(spectrum)
}

// Next returns the downstream sink.
func (s *Snapshot) Next() stream.Sink { return s.next }

// SpectrumInto copies the latest spectrum into dst, reusing its storage
// when large enough. It reports false before the first spectrum.
func (s *Snapshot) SpectrumInto(dst []float64) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.frames == 0 {
		return dst[:0], false
	}
	if cap(dst) < len(s.spectrum) {
		dst = make([]float64, len(s.spectrum))
	}
	dst = dst[:len(s.spectrum)]
	copy(dst, s.spectrum)
	return dst, true
}

// Frames returns the number of spectra seen.
func (s *Snapshot) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Size returns the length of the latest spectrum.
func (s *Snapshot) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spectrum)
}

// SampleRate returns the configured sample rate.
func (s *Snapshot) SampleRate() float64 {
	return s.sampleRate // Immutable after creation, no lock needed.
}

// FrequencyForBin returns the offset from the centre frequency of a bin of
// the latest spectrum. Out-of-range bins return 0.
func (s *Snapshot) FrequencyForBin(bin int) float64 {
	size := s.Size()
	if bin < 0 || bin >= size {
		return 0
	}
	return fft.BinOffset(bin, size, s.sampleRate)
}

// Peak returns the strongest bin of the latest spectrum as an offset in Hz
// and its level.
func (s *Snapshot) Peak() (offsetHz, level float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.frames == 0 || len(s.spectrum) == 0 {
		return 0, 0, false
	}
	peak := 0
	for i, v := range s.spectrum {
		if v > s.spectrum[peak] {
			peak = i
		}
	}
	return fft.BinOffset(peak, len(s.spectrum), s.sampleRate), s.spectrum[peak], true
}
