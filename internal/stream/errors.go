// SPDX-License-Identifier: MIT
package stream

import "errors"

// Errors returned by the Assembler. All of them are raised before any
// state is mutated.
var (
	ErrInvalidResolution   = errors.New("stream: resolution is not a supported FFT size")
	ErrInvalidInput        = errors.New("stream: interleaved I/Q input must have an even length")
	ErrInvalidFramesToDrop = errors.New("stream: frames to drop must not be negative")
)
