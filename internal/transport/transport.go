// SPDX-License-Identifier: MIT
package transport

import (
	"errors"

	"spectrum/internal/stream"
)

// ErrClosed is returned by Send and Publish after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers spectra to viewers. It is a stream.Sink with a
// lifecycle. Send must copy the spectrum if it keeps it past the call.
type Transport interface {
	stream.Sink
	Close() error
}

// EventPublisher is implemented by transports that also carry
// non-spectrum messages, such as band power readings.
type EventPublisher interface {
	Publish(event any) error
}

// Fanout delivers every spectrum and event to a fixed set of transports.
// A failing transport does not stop delivery to the others.
type Fanout struct {
	transports []Transport
}

// NewFanout returns a fan-out over transports. Nil entries are skipped.
func NewFanout(transports ...Transport) *Fanout {
	f := &Fanout{transports: make([]Transport, 0, len(transports))}
	for _, t := range transports {
		if t != nil {
			f.transports = append(f.transports, t)
		}
	}
	return f
}

// Len returns the number of transports.
func (f *Fanout) Len() int { return len(f.transports) }

// Send forwards spectrum to every transport and joins their errors.
func (f *Fanout) Send(spectrum []float64) error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Send(spectrum); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish forwards event to every transport that accepts events.
func (f *Fanout) Publish(event any) error {
	var errs []error
	for _, t := range f.transports {
		if p, ok := t.(EventPublisher); ok {
			if err := p.Publish(event); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure Fanout satisfies the interfaces at compile time.
var (
	_ Transport      = (*Fanout)(nil)
	_ EventPublisher = (*Fanout)(nil)
)
