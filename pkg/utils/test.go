// SPDX-License-Identifier: MIT
//
// Package utils holds IQ signal generators and spectrum helpers shared by
// the package tests.
package utils

import (
	"math"
	"sync"
)

// MockSink records the spectra it receives. It copies every frame because
// senders reuse their buffers.
type MockSink struct {
	mu       sync.Mutex
	Frames   int
	LastData []float64
	Sizes    []int
	Err      error // Returned from every Send when set.
}

// Send stores a copy of data for later inspection instead of transmitting.
func (m *MockSink) Send(data []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Frames++
	m.Sizes = append(m.Sizes, len(data))
	m.LastData = make([]float64, len(data))
	copy(m.LastData, data)
	return m.Err
}

// Count returns the number of frames received so far.
func (m *MockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Frames
}

// GenerateTone returns n interleaved I/Q pairs of a complex exponential that
// completes cycles full turns over n samples, so with a transform of size n
// it lands exactly on bin cycles. Negative cycles give negative frequencies.
func GenerateTone(n int, cycles float64, amplitude float64) []int32 {
	buffer := make([]int32, 2*n)
	for i := range n {
		phase := 2 * math.Pi * cycles * float64(i) / float64(n)
		buffer[2*i] = int32(math.Round(amplitude * math.Cos(phase)))
		buffer[2*i+1] = int32(math.Round(amplitude * math.Sin(phase)))
	}
	return buffer
}

// GenerateDC returns n interleaved pairs with a constant real part and a
// zero imaginary part.
func GenerateDC(n int, level int32) []int32 {
	buffer := make([]int32, 2*n)
	for i := range n {
		buffer[2*i] = level
	}
	return buffer
}

// FillTone writes a floating point complex tone into re and im.
func FillTone(re, im []float64, cycles, amplitude float64) {
	n := len(re)
	for i := range n {
		phase := 2 * math.Pi * cycles * float64(i) / float64(n)
		re[i] = amplitude * math.Cos(phase)
		im[i] = amplitude * math.Sin(phase)
	}
}

// FindPeakBin returns the index of the largest value in [startBin, endBin].
// Both bounds are clamped to the slice; an empty range yields startBin.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}
	if startBin >= len(magnitudes) {
		startBin = len(magnitudes) - 1
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
