// SPDX-License-Identifier: MIT
package stream

// Resolutions lists the transform sizes a stream may select.
var Resolutions = [...]int{256, 512, 1024, 2048, 4096, 8192, 16384}

// DefaultResolution is the size used when none is configured.
const DefaultResolution = 2048

// IsValidResolution reports whether size is one of Resolutions.
func IsValidResolution(size int) bool {
	for _, r := range Resolutions {
		if r == size {
			return true
		}
	}
	return false
}
