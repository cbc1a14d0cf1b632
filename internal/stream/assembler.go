// SPDX-License-Identifier: MIT
/*
Package stream turns a continuous flow of interleaved I/Q samples into
spectra at a bounded rate.

The Assembler fills the FFT engine's buffers one sample pair at a time.
When the buffer is full it either applies a pending reconfiguration
(discarding the frame), drops the frame to bound CPU usage, or runs the
transform and hands the spectrum to a Sink.

Thread Safety:
  - PushSamples must be driven by a single producer goroutine.
  - SetResolution, SetWindow and SetFramesToDrop may be called from any
    goroutine. They only touch atomics; the producer picks the request up
    at the next full buffer, so a fill never mixes two configurations.
  - Stats and Resolution are safe from any goroutine.
*/
package stream

import (
	"fmt"
	"sync/atomic"

	"spectrum/internal/fft"
	applog "spectrum/internal/log"
)

// Stats counts what happened to completed buffers.
type Stats struct {
	Transforms uint64 // Buffers transformed and sent to the sink.
	Dropped    uint64 // Buffers skipped by the frames-to-drop policy.
	Discarded  uint64 // Buffers thrown away because a reconfiguration was pending.
	SinkErrors uint64 // Sink.Send failures.
}

// Assembler accumulates I/Q pairs into fixed-size frames and drives the
// FFT engine.
type Assembler struct {
	engine  *fft.Engine
	sink    Sink
	scaling Scaling

	// Producer-owned state.
	index       int     // Write position in the engine buffers.
	dropCounter int     // Full buffers seen since the last transform.
	correction  float64 // Full-scale correction for the active plan.

	// Cross-goroutine requests.
	framesToDrop    atomic.Int64
	requestedSize   atomic.Int64
	requestedWindow atomic.Int64
	pending         atomic.Bool

	transforms atomic.Uint64
	dropped    atomic.Uint64
	discarded  atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewAssembler returns an assembler whose engine is configured for
// resolution and window. sink may be nil, in which case spectra are
// computed and counted but not delivered.
func NewAssembler(resolution int, w fft.WindowFunc, scaling Scaling, sink Sink) (*Assembler, error) {
	if !IsValidResolution(resolution) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}

	engine := fft.NewEngine(w)
	if err := engine.Configure(resolution); err != nil {
		return nil, err
	}

	a := &Assembler{
		engine:  engine,
		sink:    sink,
		scaling: scaling,
	}
	a.requestedSize.Store(int64(resolution))
	a.requestedWindow.Store(int64(w))
	a.updateCorrection()

	applog.Infof("Assembler: Initialized (Resolution: %d, Window: %s, PreScale: %g, PostScale: %g)",
		resolution, w, scaling.PreScale, scaling.PostScale)
	return a, nil
}

// SetFramesToDrop sets how many full buffers are skipped between two
// transforms. Zero transforms every buffer.
func (a *Assembler) SetFramesToDrop(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFramesToDrop, n)
	}
	a.framesToDrop.Store(int64(n))
	return nil
}

// FramesToDrop returns the current drop threshold.
func (a *Assembler) FramesToDrop() int {
	return int(a.framesToDrop.Load())
}

// SetResolution requests a new transform size. The buffer being filled
// keeps its size; the change is applied when it completes, and that
// buffer is discarded.
func (a *Assembler) SetResolution(size int) error {
	if !IsValidResolution(size) {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, size)
	}
	a.requestedSize.Store(int64(size))
	a.pending.Store(true)
	return nil
}

// SetWindow requests a new window function, applied like SetResolution.
func (a *Assembler) SetWindow(w fft.WindowFunc) error {
	if _, err := fft.NewWindow(w, 1); err != nil {
		return err
	}
	a.requestedWindow.Store(int64(w))
	a.pending.Store(true)
	return nil
}

// SetScaling replaces the scaling factors. Producer goroutine only.
func (a *Assembler) SetScaling(s Scaling) {
	a.scaling = s
	a.updateCorrection()
}

// Resolution returns the size of the buffer currently being filled.
func (a *Assembler) Resolution() int {
	return a.engine.Size()
}

// RequestedResolution returns the most recently requested size, which may
// still be pending.
func (a *Assembler) RequestedResolution() int {
	return int(a.requestedSize.Load())
}

// Pending reports whether a reconfiguration waits for the next full buffer.
func (a *Assembler) Pending() bool {
	return a.pending.Load()
}

// Index returns the number of pairs in the current buffer. Producer
// goroutine only.
func (a *Assembler) Index() int {
	return a.index
}

// Window returns the active window function.
func (a *Assembler) Window() fft.WindowFunc {
	return a.engine.Window()
}

// Stats returns a snapshot of the frame counters.
func (a *Assembler) Stats() Stats {
	return Stats{
		Transforms: a.transforms.Load(),
		Dropped:    a.dropped.Load(),
		Discarded:  a.discarded.Load(),
		SinkErrors: a.sinkErrors.Load(),
	}
}

// PushSamples feeds interleaved I/Q values (I0, Q0, I1, Q1, ...). Odd
// lengths are rejected without touching the buffer. The sink is called
// synchronously for every transformed frame.
func (a *Assembler) PushSamples(samples []int32) error {
	if len(samples)%2 != 0 {
		return fmt.Errorf("%w, got %d values", ErrInvalidInput, len(samples))
	}

	re, im := a.engine.Real(), a.engine.Imag()
	size := len(re)
	for i := 0; i < len(samples); i += 2 {
		re[a.index] = float64(samples[i])
		im[a.index] = float64(samples[i+1])
		a.index++

		if a.index == size {
			a.frameComplete()
			// A reconfiguration swaps the buffers.
			re, im = a.engine.Real(), a.engine.Imag()
			size = len(re)
		}
	}
	return nil
}

// frameComplete runs when the buffer holds a full frame.
func (a *Assembler) frameComplete() {
	a.index = 0

	if a.pending.Swap(false) {
		a.reconfigure()
		a.discarded.Add(1)
		return
	}

	a.dropCounter++
	if int64(a.dropCounter) <= a.framesToDrop.Load() {
		a.dropped.Add(1)
		return
	}
	a.dropCounter = 0

	out := a.engine.Calculate(a.scaling.PreScale, a.scaling.PostScale, a.scaling.LostEnergy+a.correction)
	a.transforms.Add(1)

	if a.sink == nil {
		return
	}
	if err := a.sink.Send(out); err != nil {
		// Log the first failure and then every hundredth to keep the
		// producer goroutine from flooding stderr.
		if n := a.sinkErrors.Add(1); n == 1 || n%100 == 0 {
			applog.Warnf("Assembler: Sink error (%d so far): %v", n, err)
		}
	}
}

func (a *Assembler) reconfigure() {
	size := int(a.requestedSize.Load())
	w := fft.WindowFunc(a.requestedWindow.Load())

	if err := a.engine.ConfigureWith(size, w); err != nil {
		// Requests are validated when made, so this is a programming error.
		applog.Errorf("Assembler: Reconfiguration to %d/%s failed: %v", size, w, err)
		return
	}
	a.dropCounter = 0
	a.updateCorrection()
	applog.Infof("Assembler: Reconfigured (Resolution: %d, Window: %s)", size, w)
}

func (a *Assembler) updateCorrection() {
	a.correction = 0
	if a.scaling.Normalize {
		a.correction = a.engine.FullScaleCorrection(a.scaling.PostScale)
	}
}
