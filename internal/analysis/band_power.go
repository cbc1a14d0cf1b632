// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	applog "spectrum/internal/log"
	"spectrum/internal/stream"
	"spectrum/internal/transport"
)

// Band is a frequency range relative to the centre of the spectrum. Low is
// inclusive and High exclusive.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// BandReading is the level of one band in one spectrum.
type BandReading struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
	Mean   float64 `json:"mean"`    // Mean of the bins' log-power values.
	Peak   float64 `json:"peak"`    // Highest bin in the band.
	PeakHz float64 `json:"peak_hz"` // Offset of the highest bin.
	Bins   int     `json:"bins"`    // Bins inside the band; 0 means the nearest bin was used.
}

// BandPowerEvent is published once per spectrum.
type BandPowerEvent struct {
	Type  string        `json:"type"` // Always "band_power".
	Seq   uint64        `json:"seq"`
	Bands []BandReading `json:"bands"`
}

// BandPower measures configured bands in every spectrum, publishes the
// readings as a band_power event and forwards the spectrum unchanged.
type BandPower struct {
	next       stream.Sink
	publisher  transport.EventPublisher
	bands      []Band
	sampleRate float64
	readings   []BandReading
	seq        uint64
}

// Compile-time checks for interface implementations.
var _ Analyser = (*BandPower)(nil)

// NewBandPower creates a band power analyser. next and publisher may be nil.
func NewBandPower(bands []Band, sampleRate float64, next stream.Sink, publisher transport.EventPublisher) (*BandPower, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	for i, b := range bands {
		if b.LowHz >= b.HighHz {
			return nil, fmt.Errorf("band %d (%s): low %g Hz must be below high %g Hz", i, b.Name, b.LowHz, b.HighHz)
		}
	}

	applog.Infof("Analysis: Initializing BandPower with %d bands (SampleRate: %.1f Hz)", len(bands), sampleRate)
	return &BandPower{
		next:       next,
		publisher:  publisher,
		bands:      append([]Band(nil), bands...),
		sampleRate: sampleRate,
		readings:   make([]BandReading, len(bands)),
	}, nil
}

// Next returns the downstream sink.
func (p *BandPower) Next() stream.Sink { return p.next }

// Measure computes the readings for spectrum, a centered spectrum whose
// bin i sits at (i - N/2) * sampleRate / N. The returned slice is reused
// by the next call.
func (p *BandPower) Measure(spectrum []float64) []BandReading {
	n := len(spectrum)
	if n == 0 {
		return p.readings[:0]
	}
	binHz := p.sampleRate / float64(n)

	for i, band := range p.bands {
		r := BandReading{Name: band.Name, LowHz: band.LowHz, HighHz: band.HighHz, Peak: math.Inf(-1)}

		first := max(int(math.Ceil(band.LowHz/binHz))+n/2, 0)
		last := min(int(math.Ceil(band.HighHz/binHz))+n/2-1, n-1)

		sum := 0.0
		for bin := first; bin <= last; bin++ {
			v := spectrum[bin]
			sum += v
			if v > r.Peak {
				r.Peak = v
				r.PeakHz = float64(bin-n/2) * binHz
			}
			r.Bins++
		}

		if r.Bins > 0 {
			r.Mean = sum / float64(r.Bins)
		} else {
			// Narrower than a bin, or outside the spectrum: use the bin
			// nearest the band centre.
			centre := (band.LowHz + band.HighHz) / 2
			bin := min(max(int(math.Round(centre/binHz))+n/2, 0), n-1)
			r.Mean, r.Peak = spectrum[bin], spectrum[bin]
			r.PeakHz = float64(bin-n/2) * binHz
		}
		p.readings[i] = r
	}
	return p.readings
}

// Send measures spectrum, publishes the readings and forwards the spectrum.
// A publish failure is logged and does not stop forwarding.
func (p *BandPower) Send(spectrum []float64) error {
	if len(p.bands) > 0 && p.publisher != nil {
		readings := p.Measure(spectrum)
		p.seq++
		// Publishers may queue the event, so it gets its own slice.
		event := BandPowerEvent{
			Type:  "band_power",
			Seq:   p.seq,
			Bands: append([]BandReading(nil), readings...),
		}
		if err := p.publisher.Publish(event); err != nil {
			applog.Warnf("Analysis: Error publishing band power: %v", err)
		}
	}

	if p.next == nil {
		return nil
	}
	return p.next.Send(spectrum)
}
