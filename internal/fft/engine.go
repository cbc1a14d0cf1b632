// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"sync/atomic"

	applog "spectrum/internal/log"
)

// workspace holds the buffers owned by the active plan. They are reused by
// every transform and reallocated only when the plan changes.
type workspace struct {
	real      []float64 // Real parts, transformed in place.
	imag      []float64 // Imaginary parts, transformed in place.
	magnitude []float64 // Linear magnitude in natural bin order.
	result    []float64 // Log-power, centered on the zero-frequency bin.
}

// Engine computes power spectra of complex buffers with a fixed
// power-of-two length.
//
// Thread Safety:
//   - The transform methods must be driven by a single goroutine.
//   - The plan is published through an atomic pointer, so Size and Window
//     may be read from other goroutines while a transform runs.
type Engine struct {
	plan      atomic.Pointer[Plan]
	window    WindowFunc
	workspace workspace
}

// NewEngine returns an unconfigured engine that will build its plans with
// the given window. Configure must succeed before any transform call.
func NewEngine(w WindowFunc) *Engine {
	return &Engine{window: w}
}

// Configure prepares the engine for size points. It is a no-op when the
// active plan already matches size and window.
func (e *Engine) Configure(size int) error {
	return e.configure(size, e.window)
}

// SetWindow switches the window function, rebuilding the plan for the
// current size if one is active.
func (e *Engine) SetWindow(w WindowFunc) error {
	p := e.plan.Load()
	if p == nil {
		if _, err := NewWindow(w, 1); err != nil {
			return err
		}
		e.window = w
		return nil
	}
	return e.configure(p.size, w)
}

// ConfigureWith applies a size and a window in one plan rebuild.
func (e *Engine) ConfigureWith(size int, w WindowFunc) error {
	return e.configure(size, w)
}

func (e *Engine) configure(size int, w WindowFunc) error {
	if p := e.plan.Load(); p != nil && p.size == size && p.wfunc == w {
		return nil
	}

	p, err := NewPlan(size, w)
	if err != nil {
		return err
	}

	e.window = w
	e.workspace = workspace{
		real:      make([]float64, size),
		imag:      make([]float64, size),
		magnitude: make([]float64, size),
		result:    make([]float64, size),
	}
	e.plan.Store(p)

	applog.Debugf("FFT: Configured plan (Size: %d, Order: %d, Window: %s)", p.size, p.order, w)
	return nil
}

// Size returns the active transform size, or 0 before Configure.
func (e *Engine) Size() int {
	if p := e.plan.Load(); p != nil {
		return p.size
	}
	return 0
}

// Plan returns the active plan, or nil before Configure.
func (e *Engine) Plan() *Plan {
	return e.plan.Load()
}

// Window returns the window function used for new plans.
func (e *Engine) Window() WindowFunc {
	if p := e.plan.Load(); p != nil {
		return p.wfunc
	}
	return e.window
}

// Real returns the real-part input buffer. The caller fills it before
// Calculate or RunTransform; it is invalidated by a plan change.
func (e *Engine) Real() []float64 { return e.workspace.real }

// Imag returns the imaginary-part input buffer.
func (e *Engine) Imag() []float64 { return e.workspace.imag }

// ApplyWindow scales both input buffers by window[i]*preScale.
func (e *Engine) ApplyWindow(preScale float64) {
	p := e.plan.Load()
	re, im := e.workspace.real, e.workspace.imag
	for i, w := range p.window {
		c := w * preScale
		re[i] *= c
		im[i] *= c
	}
}

// RunTransform performs the forward transform in place. Input is in
// natural order and output is left in bit-reversed order; read it through
// CalculateMagnitudeSpectrum.
//
// Each stage pairs k with k+half inside blocks of 2*half points, starting
// with half = N/2. The pair is rotated by e^{-j2πp/N} with
// p = perm[k >> shift], so every block of a stage shares one twiddle.
func (e *Engine) RunTransform() {
	p := e.plan.Load()
	re, im := e.workspace.real, e.workspace.imag
	n := p.size

	half := n / 2
	shift := p.order - 1
	for stage := 0; stage < p.order; stage++ {
		for k := 0; k < n; k += half {
			for end := k + half; k < end; k++ {
				sin, cos := p.sincos(p.perm[k>>shift])
				j := k + half
				tr := re[j]*cos + im[j]*sin
				ti := im[j]*cos - re[j]*sin
				re[j] = re[k] - tr
				im[j] = im[k] - ti
				re[k] += tr
				im[k] += ti
			}
		}
		half /= 2
		shift--
	}
}

// CalculateMagnitudeSpectrum undoes the bit-reversed ordering left by
// RunTransform and returns sqrt(re²+im²) per bin in natural order. The
// returned slice is owned by the engine.
func (e *Engine) CalculateMagnitudeSpectrum() []float64 {
	p := e.plan.Load()
	re, im := e.workspace.real, e.workspace.imag
	mag := e.workspace.magnitude
	for i, j := range p.perm {
		mag[i] = math.Sqrt(re[j]*re[j] + im[j]*im[j])
	}
	return mag
}

// Calculate windows and scales the input buffers, transforms them and
// returns the centered log-power spectrum:
//
//	out = ln(max(m, MinMagnitude))*postScale + lostEnergy
//
// The result is owned by the engine and overwritten by the next call.
func (e *Engine) Calculate(preScale, postScale, lostEnergy float64) []float64 {
	e.ApplyWindow(preScale)
	e.RunTransform()
	mag := e.CalculateMagnitudeSpectrum()

	out := e.workspace.result
	LogPower(out, mag, postScale, lostEnergy)
	CenterInPlace(out)
	return out
}

// FullScaleCorrection returns the lostEnergy offset that maps a full-scale
// complex tone to 0 on the active plan for the given postScale. A tone of
// unit amplitude reaches N*coherentGain at its bin after windowing.
func (e *Engine) FullScaleCorrection(postScale float64) float64 {
	p := e.plan.Load()
	if p == nil {
		return 0
	}
	return -postScale * math.Log(float64(p.size)*CoherentGain(p.window))
}
