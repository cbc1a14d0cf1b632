// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/stream"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
)

// Pipeline is the spectrum path shared by live capture and replay:
//
//	Assembler -> Snapshot -> [BandPower] -> Fanout(WebSocket, UDP, log)
type Pipeline struct {
	Assembler *stream.Assembler
	Snapshot  *analysis.Snapshot
	Bands     *analysis.BandPower // nil unless analysis is enabled.
	WebSocket *transport.WebSocketTransport

	transports *transport.Fanout
}

// NewPipeline builds the sink chain and starts the network transports.
// sampleRate and bitDepth describe the sample source.
func NewPipeline(cfg *config.Config, sampleRate float64, bitDepth int) (*Pipeline, error) {
	p := &Pipeline{}
	var outputs []transport.Transport

	if ws := cfg.Transport.WebSocket; ws.Enabled {
		wst, err := transport.NewWebSocketTransport(transport.WebSocketOptions{
			Address:     ws.Address,
			Path:        ws.Path,
			MinInterval: ws.MinInterval,
			BufferSize:  ws.BufferSize,
		})
		if err != nil {
			return nil, err
		}
		p.WebSocket = wst
		outputs = append(outputs, wst)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			transport.NewFanout(outputs...).Close()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			transport.NewFanout(outputs...).Close()
			return nil, err
		}
		publisher.Start()
		outputs = append(outputs, publisher)
	}

	if cfg.Transport.LogEnabled {
		outputs = append(outputs, transport.NewLoggingTransport(cfg.Transport.LogEvery))
	}

	p.transports = transport.NewFanout(outputs...)

	// Build the chain back to front.
	var next stream.Sink = p.transports
	if cfg.Analysis.Enabled && len(cfg.Analysis.Bands) > 0 {
		bands := make([]analysis.Band, len(cfg.Analysis.Bands))
		for i, b := range cfg.Analysis.Bands {
			bands[i] = analysis.Band{Name: b.Name, LowHz: b.Low, HighHz: b.High}
		}
		bp, err := analysis.NewBandPower(bands, sampleRate, next, p.transports)
		if err != nil {
			p.transports.Close()
			return nil, err
		}
		p.Bands = bp
		next = bp
	}

	snapshot, err := analysis.NewSnapshot(sampleRate, next)
	if err != nil {
		p.transports.Close()
		return nil, err
	}
	p.Snapshot = snapshot

	assembler, err := stream.NewAssembler(cfg.Spectrum.Resolution, cfg.WindowFunc(), cfg.Scaling(bitDepth), snapshot)
	if err != nil {
		p.transports.Close()
		return nil, err
	}
	if err := assembler.SetFramesToDrop(cfg.Spectrum.FramesToDrop); err != nil {
		p.transports.Close()
		return nil, err
	}
	p.Assembler = assembler

	applog.Infof("Pipeline: Resolution %d, window %s, dropping %d, %d transport(s), analysis %t",
		cfg.Spectrum.Resolution, assembler.Window(), cfg.Spectrum.FramesToDrop, p.transports.Len(), p.Bands != nil)
	return p, nil
}

// LogStatus logs the assembler counters and the current peak.
func (p *Pipeline) LogStatus() {
	st := p.Assembler.Stats()
	if hz, level, ok := p.Snapshot.Peak(); ok {
		applog.Infof("Pipeline: %d transforms, %d dropped, %d discarded, %d sink errors; peak %.1f at %+.0f Hz",
			st.Transforms, st.Dropped, st.Discarded, st.SinkErrors, level, hz)
		return
	}
	applog.Infof("Pipeline: Waiting for the first spectrum (%d samples buffered)", p.Assembler.Index())
}

// Monitor calls LogStatus and then extra, if non-nil, every interval until
// ctx is done.
func (p *Pipeline) Monitor(ctx context.Context, interval time.Duration, extra func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.LogStatus()
			if extra != nil {
				extra()
			}
		}
	}
}

// Close stops every transport.
func (p *Pipeline) Close() error {
	if p.transports == nil {
		return nil
	}
	err := p.transports.Close()
	if errors.Is(err, transport.ErrClosed) {
		return nil
	}
	return err
}
