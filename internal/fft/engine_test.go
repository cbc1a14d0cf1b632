// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"spectrum/pkg/utils"
)

const testFFTSize = 1024

func newTestEngine(t testing.TB, size int, w WindowFunc) *Engine {
	t.Helper()
	e := NewEngine(w)
	if err := e.Configure(size); err != nil {
		t.Fatalf("Configure(%d) error: %v", size, err)
	}
	return e
}

func TestConfigureValidSizes(t *testing.T) {
	for size := 1; size <= 16384; size *= 2 {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			e := newTestEngine(t, size, Blackman)
			p := e.Plan()
			if p.Size() != size || len(p.perm) != size || len(p.sine) != size || len(p.window) != size {
				t.Errorf("table lengths = (%d, %d, %d), want %d", len(p.perm), len(p.sine), len(p.window), size)
			}
			if 1<<p.Order() != size {
				t.Errorf("Order() = %d for size %d", p.Order(), size)
			}
			if len(e.Real()) != size || len(e.Imag()) != size {
				t.Errorf("buffers not sized to %d", size)
			}
		})
	}
}

func TestConfigureInvalidSizes(t *testing.T) {
	for _, size := range []int{300, 0, -8, 3, 1000} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			e := NewEngine(Blackman)
			err := e.Configure(size)
			if !errors.Is(err, ErrInvalidSize) {
				t.Fatalf("Configure(%d) error = %v, want ErrInvalidSize", size, err)
			}
			if e.Size() != 0 {
				t.Errorf("Size() = %d after failed Configure, want 0", e.Size())
			}
		})
	}
}

func TestConfigureIdempotent(t *testing.T) {
	e := newTestEngine(t, testFFTSize, Blackman)
	before := e.Plan()
	re := e.Real()

	if err := e.Configure(testFFTSize); err != nil {
		t.Fatalf("Configure error: %v", err)
	}
	if e.Plan() != before {
		t.Error("Configure with the same size rebuilt the plan")
	}
	if &e.Real()[0] != &re[0] {
		t.Error("Configure with the same size reallocated the buffers")
	}

	if err := e.Configure(2 * testFFTSize); err != nil {
		t.Fatalf("Configure error: %v", err)
	}
	if e.Plan() == before || e.Size() != 2*testFFTSize {
		t.Error("Configure with a new size kept the old plan")
	}
}

func TestPermutationTable(t *testing.T) {
	p, err := NewPlan(8, Flat)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 4, 2, 6, 1, 5, 3, 7}
	for i, v := range want {
		if p.perm[i] != v {
			t.Errorf("perm[%d] = %d, want %d", i, p.perm[i], v)
		}
	}
}

func TestQuarterOffsetCosine(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8, 256, 16384} {
		p, err := NewPlan(size, Flat)
		if err != nil {
			t.Fatal(err)
		}
		for k := range size {
			sin, cos := p.sincos(k)
			wantSin, wantCos := math.Sincos(2 * math.Pi * float64(k) / float64(size))
			if math.Abs(sin-wantSin) > 1e-12 || math.Abs(cos-wantCos) > 1e-12 {
				t.Fatalf("size %d k %d: sincos = (%g, %g), want (%g, %g)", size, k, sin, cos, wantSin, wantCos)
			}
		}
	}
}

func TestToneLandsOnBin(t *testing.T) {
	const bin = 37
	const amplitude = 1000.0

	e := newTestEngine(t, testFFTSize, Flat)
	utils.FillTone(e.Real(), e.Imag(), bin, amplitude)
	e.RunTransform()
	mag := e.CalculateMagnitudeSpectrum()

	peak := utils.FindPeakBin(mag, 0, len(mag)-1)
	if peak != bin {
		t.Fatalf("peak bin = %d, want %d", peak, bin)
	}
	if want := amplitude * testFFTSize; math.Abs(mag[bin]-want) > want*1e-9 {
		t.Errorf("peak magnitude = %g, want %g", mag[bin], want)
	}
	for i, m := range mag {
		if i != bin && m > mag[bin]*1e-9 {
			t.Fatalf("bin %d magnitude %g above noise floor", i, m)
		}
	}
}

func TestToneCenteredPeak(t *testing.T) {
	tests := []struct {
		name   string
		cycles float64
	}{
		{"Positive", 100},
		{"Negative", -100},
		{"Between bins", 100.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testFFTSize, Blackman)
			utils.FillTone(e.Real(), e.Imag(), tt.cycles, 1)
			out := e.Calculate(1, DecibelScale, 0)

			want := testFFTSize/2 + int(math.Floor(tt.cycles))
			if got := utils.FindPeakBin(out, 0, len(out)-1); got < want-1 || got > want+1 {
				t.Errorf("centered peak = %d, want %d±1", got, want)
			}
		})
	}
}

func TestDCInput(t *testing.T) {
	const level = 250.0

	e := newTestEngine(t, testFFTSize, Flat)
	for i := range e.Real() {
		e.Real()[i] = level
	}
	e.RunTransform()
	mag := e.CalculateMagnitudeSpectrum()

	if want := level * testFFTSize; math.Abs(mag[0]-want) > want*1e-12 {
		t.Errorf("DC magnitude = %g, want %g", mag[0], want)
	}
	for i := 1; i < len(mag); i++ {
		if mag[i] > 1e-9 {
			t.Fatalf("bin %d magnitude %g, want ~0", i, mag[i])
		}
	}

	for i := range e.Real() {
		e.Real()[i], e.Imag()[i] = level, 0
	}
	out := e.Calculate(1, DecibelScale, 0)
	if got := utils.FindPeakBin(out, 0, len(out)-1); got != testFFTSize/2 {
		t.Errorf("centered DC bin = %d, want %d", got, testFFTSize/2)
	}
}

func TestAmplitudeDoubling(t *testing.T) {
	const bin = 12
	const postScale = DecibelScale
	e := newTestEngine(t, testFFTSize, Flat)

	utils.FillTone(e.Real(), e.Imag(), bin, 500)
	e.RunTransform()
	single := e.CalculateMagnitudeSpectrum()[bin]

	utils.FillTone(e.Real(), e.Imag(), bin, 500)
	low := e.Calculate(1, postScale, 3)[testFFTSize/2+bin]

	utils.FillTone(e.Real(), e.Imag(), bin, 1000)
	e.RunTransform()
	double := e.CalculateMagnitudeSpectrum()[bin]

	utils.FillTone(e.Real(), e.Imag(), bin, 1000)
	high := e.Calculate(1, postScale, 3)[testFFTSize/2+bin]

	if ratio := double / single; math.Abs(ratio-2) > 1e-9 {
		t.Errorf("linear magnitude ratio = %g, want 2", ratio)
	}
	if diff := high - low; math.Abs(diff-math.Ln2*postScale) > 1e-9 {
		t.Errorf("log-power step = %g, want %g", diff, math.Ln2*postScale)
	}
}

func TestCalculateIsCenteredLogOfMagnitude(t *testing.T) {
	const postScale, lostEnergy = 2.5, -7.0
	rng := rand.New(rand.NewSource(7))

	e := newTestEngine(t, 256, Blackman)
	re := make([]float64, 256)
	im := make([]float64, 256)
	for i := range re {
		re[i], im[i] = rng.NormFloat64(), rng.NormFloat64()
	}

	copy(e.Real(), re)
	copy(e.Imag(), im)
	e.ApplyWindow(1)
	e.RunTransform()
	raw := make([]float64, 256)
	LogPower(raw, e.CalculateMagnitudeSpectrum(), postScale, lostEnergy)

	copy(e.Real(), re)
	copy(e.Imag(), im)
	out := e.Calculate(1, postScale, lostEnergy)

	for i := range out {
		if out[i] != raw[(i+128)%256] {
			t.Fatalf("out[%d] = %g, want raw[%d] = %g", i, out[i], (i+128)%256, raw[(i+128)%256])
		}
	}
}

func referenceInput(n int, seed int64) []complex128 {
	rng := rand.New(rand.NewSource(seed))
	seq := make([]complex128, n)
	for i := range seq {
		seq[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return seq
}

// transformed reads bin k of the engine output in natural order.
func transformed(e *Engine, k int) complex128 {
	j := e.Plan().perm[k]
	return complex(e.Real()[j], e.Imag()[j])
}

func TestMatchesGonum(t *testing.T) {
	for _, size := range []int{2, 4, 64, 2048} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			seq := referenceInput(size, int64(size))
			want := fourier.NewCmplxFFT(size).Coefficients(nil, seq)

			e := newTestEngine(t, size, Flat)
			for i, v := range seq {
				e.Real()[i], e.Imag()[i] = real(v), imag(v)
			}
			e.RunTransform()

			for k := range size {
				if d := cmplx.Abs(transformed(e, k) - want[k]); d > 1e-9*float64(size) {
					t.Fatalf("bin %d = %v, gonum %v (|diff| %g)", k, transformed(e, k), want[k], d)
				}
			}
		})
	}
}

func TestMatchesGoDSP(t *testing.T) {
	const size = 512
	seq := referenceInput(size, 99)
	want := dspfft.FFT(seq)

	e := newTestEngine(t, size, Flat)
	for i, v := range seq {
		e.Real()[i], e.Imag()[i] = real(v), imag(v)
	}
	e.RunTransform()
	mag := e.CalculateMagnitudeSpectrum()

	for k := range size {
		if d := math.Abs(mag[k] - cmplx.Abs(want[k])); d > 1e-9 {
			t.Fatalf("bin %d magnitude = %g, go-dsp %g", k, mag[k], cmplx.Abs(want[k]))
		}
	}
}

func TestFullScaleCorrection(t *testing.T) {
	for _, w := range []WindowFunc{Blackman, Flat, Hann} {
		t.Run(w.String(), func(t *testing.T) {
			e := newTestEngine(t, 4096, w)
			utils.FillTone(e.Real(), e.Imag(), 300, 1)
			out := e.Calculate(1, DecibelScale, e.FullScaleCorrection(DecibelScale))

			if peak := out[4096/2+300]; math.Abs(peak) > 1e-6 {
				t.Errorf("full-scale tone = %g dB, want 0", peak)
			}
		})
	}
}

func TestSetWindow(t *testing.T) {
	e := NewEngine(Blackman)
	if err := e.SetWindow(Hann); err != nil {
		t.Fatalf("SetWindow before Configure: %v", err)
	}
	if e.Window() != Hann {
		t.Errorf("Window() = %s, want hann", e.Window())
	}

	if err := e.Configure(256); err != nil {
		t.Fatal(err)
	}
	before := e.Plan()
	if err := e.SetWindow(Flat); err != nil {
		t.Fatal(err)
	}
	if e.Plan() == before || e.Plan().Window() != Flat || e.Size() != 256 {
		t.Errorf("SetWindow did not rebuild the plan for size 256")
	}
	if err := e.SetWindow(WindowFunc(99)); err == nil {
		t.Error("SetWindow accepted an unknown window")
	}
}

func TestCalculateZeroAllocs(t *testing.T) {
	e := newTestEngine(t, testFFTSize, Blackman)
	tone := make([]float64, testFFTSize)
	utils.FillTone(tone, e.Imag(), 40, 1)

	// Warm-up call so lazy runtime work is not counted.
	e.Calculate(1, DecibelScale, 0)
	allocs := testing.AllocsPerRun(100, func() {
		copy(e.Real(), tone)
		e.Calculate(1, DecibelScale, 0)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Calculate hot path, got %.1f", allocs)
	}
}

func BenchmarkCalculate(b *testing.B) {
	for _, size := range []int{256, 2048, 16384} {
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			e := newTestEngine(b, size, Blackman)
			b.ReportAllocs()
			for b.Loop() {
				utils.FillTone(e.Real(), e.Imag(), 17, 1)
				e.Calculate(1, DecibelScale, 0)
			}
		})
	}
}
