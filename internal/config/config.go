package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the capture and spectrum pipeline.
const (
	// Audio device defaults
	DefaultDeviceID        = MinDeviceID // System default input
	DefaultSampleRate      = 48000       // Common IQ sound-card rate
	DefaultFramesPerBuffer = 1024        // Balanced latency/performance
	DefaultInputChannels   = 2           // I on the left channel, Q on the right

	// Spectrum defaults
	DefaultResolution   = 2048
	DefaultFramesToDrop = 0
	DefaultWindow       = "blackman"
	DefaultFullScale    = 1.0

	// Recording defaults
	DefaultRecordingDir = "./recordings"
	DefaultFormat       = "wav"

	// Transport defaults
	DefaultWSAddress        = ":8080"
	DefaultWSPath           = "/ws"
	DefaultWSMinInterval    = 33 * time.Millisecond
	DefaultWSBufferSize     = 8
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond
	DefaultLogEvery         = 50

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 384000 // IQ sound cards run up to 384 kHz
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// Default returns the built-in configuration used when no file is found.
// The spectrum post scale is left at zero, which selects decibels.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
		},
		Spectrum: SpectrumConfig{
			Resolution:   DefaultResolution,
			FramesToDrop: DefaultFramesToDrop,
			Window:       DefaultWindow,
			FullScale:    DefaultFullScale,
			Normalize:    true,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			Format:    DefaultFormat,
		},
		Transport: TransportConfig{
			WebSocket: WebSocketConfig{
				Address:     DefaultWSAddress,
				Path:        DefaultWSPath,
				MinInterval: DefaultWSMinInterval,
				BufferSize:  DefaultWSBufferSize,
			},
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			LogEvery:         DefaultLogEvery,
		},
	}
}
