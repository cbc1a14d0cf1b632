// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"spectrum/internal/audio"
	applog "spectrum/internal/log"
	"spectrum/internal/tui"
)

// statusInterval is the period of the status log line while streaming.
const statusInterval = 10 * time.Second

// Execute runs the command selected by ParseArgs. Live capture runs until
// ctx is cancelled; replay stops early on cancellation. Commands that use
// the sound card initialize PortAudio themselves.
func Execute(ctx context.Context, opts *Options, out io.Writer) error {
	switch opts.Command {
	case "":
		return nil
	case CommandReplay:
		return replay(ctx, opts)
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	switch opts.Command {
	case CommandRun:
		return capture(ctx, opts)
	case CommandList:
		return audio.ListDevices(out)
	case CommandDevices:
		return pickDevice(opts, out)
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}

// capture streams the sound card until ctx is done.
func capture(ctx context.Context, opts *Options) error {
	cfg := opts.Config
	pipeline, err := NewPipeline(cfg, cfg.Audio.SampleRate, audio.RecordingBitDepth)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	engine, err := audio.NewEngine(cfg, pipeline.Assembler)
	if err != nil {
		return err
	}

	// The first call to StartInputStream starts the PortAudio callbacks.
	if err := engine.StartInputStream(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(opts.OutputFile); err != nil {
			engine.Close()
			return err
		}
	}

	pipeline.Monitor(ctx, statusInterval, func() {
		applog.Infof("Engine: %d buffers, input peak %.3f FS, %d overloads",
			engine.Buffers(), engine.PeakLevel(), engine.Clips())
	})

	if err := engine.Close(); err != nil {
		return fmt.Errorf("failed to close audio engine: %w", err)
	}
	if cfg.Recording.Enabled {
		applog.Infof("Engine: Recording saved to %s", opts.OutputFile)
	}
	pipeline.LogStatus()
	return nil
}

// replay streams a WAV file through the pipeline.
func replay(ctx context.Context, opts *Options) error {
	r, err := audio.OpenReplay(opts.ReplayFile)
	if err != nil {
		return err
	}
	defer r.Close()

	pipeline, err := NewPipeline(opts.Config, float64(r.SampleRate()), r.BitDepth())
	if err != nil {
		return err
	}
	defer pipeline.Close()

	monitorCtx, stop := context.WithCancel(ctx)
	defer stop()
	go pipeline.Monitor(monitorCtx, statusInterval, nil)

	stats, err := r.Run(ctx, pipeline.Assembler, audio.ReplayOptions{
		Frames: opts.ReplayFrames,
		Paced:  opts.Paced,
	})
	pipeline.LogStatus()
	if errors.Is(err, context.Canceled) {
		applog.Infof("Replay: Interrupted after %d frames", stats.Frames)
		return nil
	}
	return err
}

// pickDevice runs the interactive picker and prints the resulting
// configuration.
func pickDevice(opts *Options, out io.Writer) error {
	cfg := opts.Config
	sel, err := tui.Pick(audio.HostDevices, cfg.Spectrum.Resolution, cfg.Spectrum.FramesToDrop)
	if errors.Is(err, tui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	sel.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s at %d bins; save as config.yaml\n%s", sel.Device.Name, sel.Resolution, data)
	return nil
}
