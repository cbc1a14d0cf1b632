// SPDX-License-Identifier: MIT
package stream

import (
	"math"

	"spectrum/internal/fft"
)

// Sink receives every spectrum the Assembler computes. The slice is owned
// by the engine and rewritten by the next transform; implementations that
// keep values must copy them before returning.
type Sink interface {
	Send(spectrum []float64) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(spectrum []float64) error

// Send calls f(spectrum).
func (f SinkFunc) Send(spectrum []float64) error { return f(spectrum) }

// Scaling holds the per-computation factors handed to the FFT engine.
type Scaling struct {
	PreScale   float64 // Applied with the window before the transform.
	PostScale  float64 // Multiplies ln(magnitude).
	LostEnergy float64 // Added after scaling.

	// Normalize adds the engine's full-scale correction to LostEnergy so a
	// full-scale tone reads 0 whatever the resolution or window.
	Normalize bool
}

// DefaultScaling returns decibel scaling for samples of the given bit depth
// with full scale at amplitude 1.
func DefaultScaling(bitDepth int) Scaling {
	return Scaling{
		PreScale:  PreScaleFor(bitDepth, 1),
		PostScale: fft.DecibelScale,
		Normalize: true,
	}
}

// PreScaleFor returns the factor that maps integer samples of bitDepth bits
// onto [-1/fullScale, 1/fullScale).
func PreScaleFor(bitDepth int, fullScale float64) float64 {
	if bitDepth <= 0 || fullScale <= 0 {
		return 1
	}
	return 1 / (fullScale * math.Ldexp(1, bitDepth-1))
}
