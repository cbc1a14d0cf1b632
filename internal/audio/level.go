// SPDX-License-Identifier: MIT
package audio

import "math"

// DefaultClipThreshold is the fraction of full scale above which a buffer
// counts as clipped.
const DefaultClipThreshold = 0.999

// PeakAmplitude returns the largest absolute sample value without
// branching. math.MinInt32 maps to math.MaxInt32.
func PeakAmplitude(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		amplitude ^= amplitude >> 31 // |MinInt32| overflows to negative.
		diff := amplitude - maxAmplitude
		maxAmplitude += diff &^ (diff >> 31)
	}
	return maxAmplitude
}

// SetClipThreshold adjusts the overload threshold.
// The value is in the range of 0.0-1.0 of full scale.
func (e *Engine) SetClipThreshold(threshold float64) {
	threshold = min(max(threshold, 0), 1)
	e.clipThreshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// ClipThreshold returns the current overload threshold as a fraction of
// full scale.
func (e *Engine) ClipThreshold() float64 {
	return float64(e.clipThreshold.Load()) / float64(math.MaxInt32)
}

// Clips returns the number of input buffers that reached the threshold.
func (e *Engine) Clips() uint64 {
	return e.clips.Load()
}

// PeakLevel returns the peak of the last input buffer as a fraction of
// full scale.
func (e *Engine) PeakLevel() float64 {
	return float64(e.peak.Load()) / float64(math.MaxInt32)
}

// updateLevel records the buffer peak and counts overloads.
func (e *Engine) updateLevel(buffer []int32) {
	peak := PeakAmplitude(buffer)
	e.peak.Store(peak)
	if peak >= e.clipThreshold.Load() {
		if e.clips.Add(1) == 1 {
			e.logClip(peak)
		}
	}
}
