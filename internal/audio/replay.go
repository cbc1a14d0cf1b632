// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectrum/internal/log"
)

// ErrNotIQ is returned for WAV files that are not two-channel.
var ErrNotIQ = errors.New("WAV file is not a stereo I/Q recording")

// DefaultReplayFrames is the number of I/Q pairs read per chunk.
const DefaultReplayFrames = 4096

// ReplayOptions controls how a file is streamed.
type ReplayOptions struct {
	Frames int  // I/Q pairs per chunk; 0 selects DefaultReplayFrames.
	Paced  bool // Sleep between chunks to match the file's sample rate.
}

// ReplayStats summarizes a finished replay.
type ReplayStats struct {
	Frames   int           // I/Q pairs pushed.
	Chunks   int           // PushSamples calls.
	Duration time.Duration // Wall time spent.
}

// Replay streams an I/Q WAV file (I = left, Q = right) into a SampleSink.
type Replay struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleRate int
	bitDepth   int
}

// OpenReplay opens path and checks that it holds stereo PCM.
func OpenReplay(path string) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	if int(decoder.NumChans) != IQChannels {
		file.Close()
		return nil, fmt.Errorf("%w: %s has %d channels", ErrNotIQ, path, decoder.NumChans)
	}

	r := &Replay{
		file:       file,
		decoder:    decoder,
		sampleRate: int(decoder.SampleRate),
		bitDepth:   int(decoder.BitDepth),
	}
	applog.Infof("Replay: Opened %s (SampleRate: %d Hz, BitDepth: %d)", path, r.sampleRate, r.bitDepth)
	return r, nil
}

// SampleRate returns the file's sample rate in Hz.
func (r *Replay) SampleRate() int { return r.sampleRate }

// BitDepth returns the file's sample size, which sets the pre-scale.
func (r *Replay) BitDepth() int { return r.bitDepth }

// Run pushes the whole file into sink in chunks. It stops early, returning
// ctx.Err(), when ctx is cancelled.
func (r *Replay) Run(ctx context.Context, sink SampleSink, opts ReplayOptions) (ReplayStats, error) {
	frames := opts.Frames
	if frames <= 0 {
		frames = DefaultReplayFrames
	}

	buf := &audio.IntBuffer{
		Format: r.decoder.Format(),
		Data:   make([]int, frames*IQChannels),
	}
	samples := make([]int32, frames*IQChannels)

	var ticker *time.Ticker
	if opts.Paced && r.sampleRate > 0 {
		period := time.Duration(float64(frames) / float64(r.sampleRate) * float64(time.Second))
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	var stats ReplayStats
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		buf.Data = buf.Data[:cap(buf.Data)]
		n, err := r.decoder.PCMBuffer(buf)
		if n == 0 {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to decode WAV data: %w", err)
		}

		// The last chunk may be short; keep whole pairs only.
		n -= n % IQChannels
		for i, v := range buf.Data[:n] {
			samples[i] = int32(v)
		}
		if err := sink.PushSamples(samples[:n]); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		stats.Frames += n / IQChannels
		stats.Chunks++

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				stats.Duration = time.Since(start)
				return stats, ctx.Err()
			}
		}
	}

	stats.Duration = time.Since(start)
	applog.Infof("Replay: Pushed %d frames in %d chunks (%s)", stats.Frames, stats.Chunks, stats.Duration)
	return stats, nil
}

// Close closes the underlying file.
func (r *Replay) Close() error {
	return r.file.Close()
}
