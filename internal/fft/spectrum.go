// SPDX-License-Identifier: MIT
package fft

import "math"

// DecibelScale converts a natural-log magnitude to decibels (20/ln 10).
const DecibelScale = 20 / math.Ln10

// MinMagnitude replaces zero or negative magnitudes before the logarithm.
// An empty bin is expected, not a fault.
const MinMagnitude = 1e-30

// LogPower writes ln(m)*postScale + lostEnergy for every magnitude m into
// dst. dst and mag must have the same length and may alias.
func LogPower(dst, mag []float64, postScale, lostEnergy float64) {
	for i, m := range mag {
		if m <= 0 {
			m = MinMagnitude
		}
		dst[i] = math.Log(m)*postScale + lostEnergy
	}
}

// CenterInPlace swaps the two halves of s so the zero-frequency bin moves to
// index len(s)/2: afterwards s[i] holds the old s[(i+N/2)%N].
func CenterInPlace(s []float64) {
	half := len(s) / 2
	for i := range half {
		s[i], s[i+half] = s[i+half], s[i]
	}
}

// BinOffset returns the frequency offset in Hz of centered bin i for a
// transform of size points sampled at sampleRate complex samples per second.
func BinOffset(i, size int, sampleRate float64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(i-size/2) * sampleRate / float64(size)
}
