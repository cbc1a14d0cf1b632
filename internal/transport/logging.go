// SPDX-License-Identifier: MIT
package transport

import (
	"math"
	"sync/atomic"

	applog "spectrum/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of one spectrum out of every N at debug level.
type LoggingTransport struct {
	every  uint64
	frames atomic.Uint64
	closed atomic.Bool
}

// NewLoggingTransport creates a new LoggingTransport instance. every values
// below 1 log every spectrum.
func NewLoggingTransport(every int) *LoggingTransport {
	if every < 1 {
		every = 1
	}
	applog.Infof("LoggingTransport: Logging one spectrum in %d", every)
	return &LoggingTransport{every: uint64(every)}
}

// Send logs the peak bin and mean level of the spectrum.
func (lt *LoggingTransport) Send(spectrum []float64) error {
	if lt.closed.Load() {
		return ErrClosed
	}
	n := lt.frames.Add(1)
	if (n-1)%lt.every != 0 || len(spectrum) == 0 || !applog.Enabled(applog.LevelDebug) {
		return nil
	}

	peak, peakBin, sum := math.Inf(-1), 0, 0.0
	for i, v := range spectrum {
		sum += v
		if v > peak {
			peak, peakBin = v, i
		}
	}
	applog.Debugf("LoggingTransport: Spectrum %d (Size: %d, Peak: %.2f @ bin %d, Mean: %.2f)",
		n, len(spectrum), peak, peakBin, sum/float64(len(spectrum)))
	return nil
}

// Publish logs the event.
func (lt *LoggingTransport) Publish(event any) error {
	if lt.closed.Load() {
		return ErrClosed
	}
	applog.Debugf("LoggingTransport: Event %+v", event)
	return nil
}

// Frames returns the number of spectra received.
func (lt *LoggingTransport) Frames() uint64 { return lt.frames.Load() }

// Close marks the transport closed.
func (lt *LoggingTransport) Close() error {
	if lt.closed.Swap(true) {
		return nil
	}
	applog.Debugf("LoggingTransport: Closed after %d spectra", lt.frames.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interfaces at compile time.
var (
	_ Transport      = (*LoggingTransport)(nil)
	_ EventPublisher = (*LoggingTransport)(nil)
)
