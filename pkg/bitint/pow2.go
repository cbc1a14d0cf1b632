/*
Package bitint provides the integer bit helpers used to size and index
radix-2 transforms.

Design Principles:
- Zero Allocations: every helper works on registers only
- Predictable Performance: O(1) or O(bits) with no branches on data
- Real-Time Safe: no locks, syscalls, or blocking operations

Usage:

	// Reject transform sizes that cannot be split in halves
	if !bitint.IsPowerOfTwo(size) { ... }

	// Number of butterfly stages for a 1024 point transform
	order := bitint.Log2(1024) // 10

	// Bit-reversed position of index 1 in an 8 point transform
	j := bitint.ReverseBits(1, 3) // 4

----------------------------------------------------------------------

Why (size-1) in NextPowerOfTwo:

	bits.Len(8) is 4 because 1000 has its top bit at 2^3, so 1<<4
	would double a value that is already a power of two. Using
	bits.Len(8-1) = bits.Len(0111) = 3 keeps 8 as 8 and still rounds
	every other value up to the next power.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
// A power of two has exactly one bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
//	-8     false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two, which is the
// transform order (number of butterfly stages). The result for values
// that are not powers of two is floor(log2(n)); zero and negatives give 0.
func Log2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// ReverseBits mirrors the low width bits of v, e.g. with width 3:
//
//	001 -> 100
//	110 -> 011
//
// Bits above width are discarded.
func ReverseBits(v, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(v)) >> (bits.UintSize - width))
}
