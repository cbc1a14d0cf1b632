// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"

	"spectrum/pkg/bitint"
)

// Plan holds the lookup tables for one transform size. A Plan is never
// mutated after NewPlan returns; a size or window change builds a new one.
type Plan struct {
	size   int        // Transform size N (power of 2).
	order  int        // log2(N), the number of butterfly stages.
	perm   []int      // perm[i] is i bit-reversed over order bits.
	sine   []float64  // sine[i] = sin(2πi/N); cosine reads it a quarter period ahead.
	window []float64  // Window coefficients.
	wfunc  WindowFunc // Window the coefficients were built from.
}

// NewPlan computes the permutation, sine and window tables for size.
func NewPlan(size int, w WindowFunc) (*Plan, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}

	coeffs, err := NewWindow(w, size)
	if err != nil {
		return nil, err
	}

	order := bitint.Log2(size)
	perm := make([]int, size)
	sine := make([]float64, size)
	for i := range size {
		perm[i] = bitint.ReverseBits(i, order)
		sine[i] = math.Sin(float64(i) * 2 * math.Pi / float64(size))
	}

	return &Plan{
		size:   size,
		order:  order,
		perm:   perm,
		sine:   sine,
		window: coeffs,
		wfunc:  w,
	}, nil
}

// Size returns N.
func (p *Plan) Size() int { return p.size }

// Order returns log2(N).
func (p *Plan) Order() int { return p.order }

// Window returns the window function the plan was built with.
func (p *Plan) Window() WindowFunc { return p.wfunc }

// sincos returns sin and cos of 2πk/N from the sine table. The cosine is
// sin shifted by N/4, which only exists as a table index for N >= 4.
func (p *Plan) sincos(k int) (sin, cos float64) {
	if p.size < 4 {
		return math.Sincos(2 * math.Pi * float64(k) / float64(p.size))
	}
	return p.sine[k], p.sine[(k+p.size/4)%p.size]
}
