// SPDX-License-Identifier: MIT
package fft

import "errors"

// ErrInvalidSize is returned when a transform size is not a positive power of two.
var ErrInvalidSize = errors.New("fft: transform size must be a positive power of 2")
