// SPDX-License-Identifier: MIT
//
// Package analysis derives readings from the centered spectra produced by
// the stream assembler. Every analyser is a stream.Sink so it can sit in
// front of the transports.
package analysis

import "spectrum/internal/stream"

// SpectrumProvider is implemented by components that hold the latest
// spectrum for readers outside the assembler goroutine.
type SpectrumProvider interface {
	SpectrumInto(dst []float64) ([]float64, bool) // SpectrumInto copies the latest spectrum into dst, growing it if needed.
	FrequencyForBin(bin int) float64               // FrequencyForBin returns the offset from the centre frequency (Hz) for a bin.
	Size() int                                     // Size returns the length of the latest spectrum.
	SampleRate() float64                           // SampleRate returns the IQ sample rate, which is also the displayed bandwidth.
}

// Analyser is a sink that forwards every spectrum to the next sink after
// looking at it.
type Analyser interface {
	stream.Sink
	Next() stream.Sink
}
