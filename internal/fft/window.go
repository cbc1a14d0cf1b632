// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied to samples before the transform.
type WindowFunc int

// Available window functions. Blackman is the default taper; Flat disables
// windowing while keeping the same apply step.
const (
	Blackman WindowFunc = iota
	Flat
	Hann
	Hamming
	Nuttall
	BlackmanNuttall
	BlackmanHarris
)

// Blackman coefficients (three-term, -67 dB sidelobes).
const (
	blackmanA0 = 0.42323
	blackmanA1 = 0.49755
	blackmanA2 = 0.07922
)

// String returns the config name of the window.
func (w WindowFunc) String() string {
	switch w {
	case Blackman:
		return "blackman"
	case Flat:
		return "flat"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Nuttall:
		return "nuttall"
	case BlackmanNuttall:
		return "blackmannuttall"
	case BlackmanHarris:
		return "blackmanharris"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Unknown names return Blackman and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blackman", "":
		return Blackman, nil
	case "flat", "none", "rectangular", "off":
		return Flat, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "nuttall":
		return Nuttall, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "blackmanharris":
		return BlackmanHarris, nil
	default:
		return Blackman, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// BlackmanWindow returns the Blackman coefficients for size points:
//
//	w[n] = a0 - a1*cos(2πn/(N-1)) + a2*cos(4πn/(N-1))
func BlackmanWindow(size int) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1
		return coeffs
	}

	den := float64(size - 1)
	for n := range coeffs {
		arg := 2 * math.Pi * float64(n) / den
		coeffs[n] = blackmanA0 - blackmanA1*math.Cos(arg) + blackmanA2*math.Cos(2*arg)
	}
	return coeffs
}

// FlatWindow returns size coefficients of 1.
func FlatWindow(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1
	}
	return coeffs
}

// NewWindow builds the coefficient table for w. The gonum tapers scale a
// slice in place, so they start from a flat window.
func NewWindow(w WindowFunc, size int) ([]float64, error) {
	switch w {
	case Blackman:
		return BlackmanWindow(size), nil
	case Flat:
		return FlatWindow(size), nil
	}

	var taper func([]float64) []float64
	switch w {
	case Hann:
		taper = window.Hann
	case Hamming:
		taper = window.Hamming
	case Nuttall:
		taper = window.Nuttall
	case BlackmanNuttall:
		taper = window.BlackmanNuttall
	case BlackmanHarris:
		taper = window.BlackmanHarris
	default:
		return nil, fmt.Errorf("unknown FFT window function %d", int(w))
	}

	coeffs := FlatWindow(size)
	if size > 1 {
		taper(coeffs)
	}
	return coeffs, nil
}

// CoherentGain returns the mean window coefficient, i.e. the amplitude
// scaling a windowed tone sees at its bin.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}
