// SPDX-License-Identifier: MIT
/*
Package audio captures I/Q streams from sound cards and WAV files and feeds
them to the spectrum pipeline:
- Stereo capture using PortAudio (I = left, Q = right)
- Input level tracking with a branchless peak detector
- WAV recording of the raw I/Q stream with atomic state management
- WAV replay, optionally paced at the file's sample rate

Thread Safety:
- Uses atomic operations for state shared with the PortAudio callback
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectrum/internal/config"
	applog "spectrum/internal/log"
)

// IQChannels is the number of interleaved channels of an I/Q stream.
const IQChannels = 2

// SampleSink consumes interleaved I/Q samples. *stream.Assembler is the
// production implementation.
type SampleSink interface {
	PushSamples(samples []int32) error
}

// Engine runs a PortAudio input stream and pushes every callback buffer
// into a SampleSink.
type Engine struct {
	// Core configuration and state.
	config *config.Config
	sink   SampleSink

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Input level tracking.
	clipThreshold atomic.Int32
	peak          atomic.Int32
	clips         atomic.Uint64
	buffers       atomic.Uint64
	pushErrors    atomic.Uint64

	// Recording state and buffers.
	isRecording  int32      // Atomic flag for thread-safe state
	recMu        sync.Mutex // Serializes encoder writes with Start/Stop
	outputFile   *os.File
	wavEncoder   *wav.Encoder
	sampleBuf    *audio.IntBuffer // Reusable buffer for format conversion
	recordFrames int              // Frames written to the current recording
	maxFrames    int              // Recording limit in frames, 0 for unlimited
}

// NewEngine resolves the configured input device and prepares buffers. It
// does not open the stream; PortAudio must be initialized.
func NewEngine(cfg *config.Config, sink SampleSink) (*Engine, error) {
	if sink == nil {
		return nil, errors.New("audio engine requires a sample sink")
	}
	if cfg.Audio.InputChannels != IQChannels {
		return nil, fmt.Errorf("I/Q capture needs %d input channels, got %d", IQChannels, cfg.Audio.InputChannels)
	}

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < IQChannels {
		return nil, fmt.Errorf("device %q has %d input channels, I/Q capture needs %d",
			inputDevice.Name, inputDevice.MaxInputChannels, IQChannels)
	}

	engine := newEngine(cfg, sink)
	engine.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Engine: Using input device %q (SampleRate: %.0f Hz, FramesPerBuffer: %d, Latency: %s)",
		inputDevice.Name, cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer, engine.inputLatency)
	return engine, nil
}

// newEngine builds an engine without touching PortAudio.
func newEngine(cfg *config.Config, sink SampleSink) *Engine {
	e := &Engine{
		config:      cfg,
		sink:        sink,
		inputBuffer: make([]int32, cfg.Audio.FramesPerBuffer*IQChannels),
	}
	e.SetClipThreshold(DefaultClipThreshold)
	return e
}

// StartInputStream opens and starts the PortAudio input stream.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: IQChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	applog.Infof("Engine: Input stream started")
	return nil
}

// StopInputStream stops and closes the input stream if it is open.
func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
		applog.Infof("Engine: Input stream stopped after %d buffers", e.buffers.Load())
	}

	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer[:n])
}

// processBuffer handles one interleaved I/Q buffer: level tracking,
// recording, then the sample sink.
func (e *Engine) processBuffer(buffer []int32) {
	e.buffers.Add(1)
	e.updateLevel(buffer)

	if atomic.LoadInt32(&e.isRecording) == 1 {
		e.writeRecording(buffer)
	}

	if err := e.sink.PushSamples(buffer); err != nil {
		if e.pushErrors.Add(1) == 1 {
			applog.Errorf("Engine: Failed to push samples: %v", err)
		}
	}
}

// Buffers returns the number of input buffers processed.
func (e *Engine) Buffers() uint64 {
	return e.buffers.Load()
}

func (e *Engine) logClip(peak int32) {
	applog.Warnf("Engine: Input overload (peak %d); reduce the input gain", peak)
}

// Close stops recording and the input stream.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
