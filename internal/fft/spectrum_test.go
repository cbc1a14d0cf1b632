// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"testing"
)

func TestCenterInPlace(t *testing.T) {
	for _, n := range []int{1, 2, 8, 256} {
		raw := make([]float64, n)
		s := make([]float64, n)
		for i := range raw {
			raw[i] = float64(i)
		}
		copy(s, raw)

		CenterInPlace(s)
		for i := range s {
			if s[i] != raw[(i+n/2)%n] {
				t.Fatalf("n=%d: s[%d] = %g, want %g", n, i, s[i], raw[(i+n/2)%n])
			}
		}

		// Two swaps restore the original order.
		CenterInPlace(s)
		for i := range s {
			if s[i] != raw[i] {
				t.Fatalf("n=%d: double swap changed s[%d]", n, i)
			}
		}
	}
}

func TestLogPower(t *testing.T) {
	mag := []float64{1, math.E, 0, -3, 100}
	dst := make([]float64, len(mag))
	LogPower(dst, mag, 2, 5)

	want := []float64{5, 7, math.Log(MinMagnitude)*2 + 5, math.Log(MinMagnitude)*2 + 5, math.Log(100)*2 + 5}
	for i := range want {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want[i])
		}
		if math.IsInf(dst[i], 0) || math.IsNaN(dst[i]) {
			t.Errorf("dst[%d] is not finite", i)
		}
	}
}

func TestDecibelScale(t *testing.T) {
	// 20*log10(10) == 20
	if got := math.Log(10) * DecibelScale; math.Abs(got-20) > 1e-12 {
		t.Errorf("ln(10)*DecibelScale = %g, want 20", got)
	}
}

func TestBinOffset(t *testing.T) {
	tests := []struct {
		bin, size  int
		sampleRate float64
		want       float64
	}{
		{512, 1024, 48000, 0},
		{0, 1024, 48000, -24000},
		{1023, 1024, 48000, 24000 - 46.875},
		{768, 1024, 48000, 12000},
		{3, 0, 48000, 0},
	}

	for _, tt := range tests {
		if got := BinOffset(tt.bin, tt.size, tt.sampleRate); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BinOffset(%d, %d, %g) = %g, want %g", tt.bin, tt.size, tt.sampleRate, got, tt.want)
		}
	}
}
