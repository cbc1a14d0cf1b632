// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spectrum/internal/fft"
	applog "spectrum/internal/log"
	"spectrum/internal/stream"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces the debug log level).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Sound-card capture settings.
	Spectrum  SpectrumConfig  `yaml:"spectrum"`  // Transform size, frame dropping and scaling.
	Recording RecordingConfig `yaml:"recording"` // Raw IQ recording settings.
	Transport TransportConfig `yaml:"transport"` // Spectrum delivery settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Band power analysis.
}

// AudioConfig holds settings related to IQ capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz; also the displayed bandwidth.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback, independent of the FFT size.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
	InputChannels   int     `yaml:"input_channels"`    // Must be 2: I on the left channel, Q on the right.
}

// SpectrumConfig holds the assembler and engine settings.
type SpectrumConfig struct {
	Resolution   int     `yaml:"resolution"`     // FFT size, one of stream.Resolutions.
	FramesToDrop int     `yaml:"frames_to_drop"` // Full buffers skipped between transforms.
	Window       string  `yaml:"window"`         // Window function name (e.g., "blackman", "hann", "flat").
	FullScale    float64 `yaml:"full_scale"`     // Sample amplitude treated as full scale, as a fraction of the integer range.
	PostScale    float64 `yaml:"post_scale"`     // Multiplier for ln(magnitude); 0 selects decibels.
	LostEnergy   float64 `yaml:"lost_energy"`    // Offset added after scaling.
	Normalize    bool    `yaml:"normalize"`      // Add the full-scale correction so a full-scale tone reads 0.
}

// RecordingConfig holds settings related to raw IQ recording.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the captured IQ stream to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recordings.
	Format      string `yaml:"format"`               // File format for recordings ("wav").
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum duration of a recording in seconds (0 for unlimited).
}

// TransportConfig holds settings related to sending spectra to viewers.
type TransportConfig struct {
	WebSocket        WebSocketConfig `yaml:"websocket"`
	UDPEnabled       bool            `yaml:"udp_enabled"`        // Enable sending spectra over UDP.
	UDPTargetAddress string          `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration   `yaml:"udp_send_interval"`  // Interval between UDP packets.
	LogEnabled       bool            `yaml:"log_enabled"`        // Log a summary of spectra at debug level.
	LogEvery         int             `yaml:"log_every"`          // Log one spectrum out of this many.
}

// WebSocketConfig holds the settings of the spectrum WebSocket server.
type WebSocketConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Address     string        `yaml:"address"`      // Listen address (e.g., ":8080").
	Path        string        `yaml:"path"`         // Upgrade endpoint (e.g., "/ws").
	MinInterval time.Duration `yaml:"min_interval"` // Frames arriving faster than this are dropped.
	BufferSize  int           `yaml:"buffer_size"`  // Broadcast queue length.
}

// AnalysisConfig holds the band power settings.
type AnalysisConfig struct {
	Enabled bool         `yaml:"enabled"`
	Bands   []BandConfig `yaml:"bands"`
}

// BandConfig is a frequency range relative to the centre of the spectrum.
type BandConfig struct {
	Name string  `yaml:"name"`
	Low  float64 `yaml:"low_hz"`
	High float64 `yaml:"high_hz"`
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the working directory for "config.yaml", then "spectrum.yaml". If no file
// is found, it uses built-in defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"spectrum.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		fail("log_level %q is not recognized", c.LogLevel)
	}

	// Audio
	if c.Audio.InputChannels != 2 {
		fail("audio.input_channels must be 2 for I/Q capture, got %d", c.Audio.InputChannels)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		fail("audio.sample_rate %g outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		fail("audio.frames_per_buffer %d outside [1, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.InputDevice < MinDeviceID {
		fail("audio.input_device %d is below %d", c.Audio.InputDevice, MinDeviceID)
	}

	// Spectrum
	if !stream.IsValidResolution(c.Spectrum.Resolution) {
		fail("spectrum.resolution %d is not one of %v", c.Spectrum.Resolution, stream.Resolutions)
	}
	if c.Spectrum.FramesToDrop < 0 {
		fail("spectrum.frames_to_drop must not be negative, got %d", c.Spectrum.FramesToDrop)
	}
	if _, err := fft.ParseWindowFunc(c.Spectrum.Window); err != nil {
		fail("spectrum.window: %v", err)
	}
	if c.Spectrum.FullScale <= 0 {
		fail("spectrum.full_scale must be positive, got %g", c.Spectrum.FullScale)
	}

	// Recording
	if c.Recording.Enabled {
		if c.Recording.Format != DefaultFormat {
			fail("recording.format %q is not supported", c.Recording.Format)
		}
		if c.Recording.MaxDuration < 0 {
			fail("recording.max_duration_seconds must not be negative")
		}
	}

	// Transport
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			fail("transport.udp_target_address %q: %v", c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			fail("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if ws := c.Transport.WebSocket; ws.Enabled {
		if _, _, err := net.SplitHostPort(ws.Address); err != nil {
			fail("transport.websocket.address %q: %v", ws.Address, err)
		}
		if ws.BufferSize <= 0 {
			fail("transport.websocket.buffer_size must be positive")
		}
	}

	// Analysis
	for i, b := range c.Analysis.Bands {
		if b.Low >= b.High {
			fail("analysis.bands[%d] (%s): low_hz %g must be below high_hz %g", i, b.Name, b.Low, b.High)
		}
	}

	return errors.Join(errs...)
}

// WindowFunc returns the parsed spectrum window. Call after Validate.
func (c *Config) WindowFunc() fft.WindowFunc {
	w, _ := fft.ParseWindowFunc(c.Spectrum.Window)
	return w
}

// Scaling returns the engine factors for samples of the given bit depth.
func (c *Config) Scaling(bitDepth int) stream.Scaling {
	post := c.Spectrum.PostScale
	if post == 0 {
		post = fft.DecibelScale
	}
	return stream.Scaling{
		PreScale:   stream.PreScaleFor(bitDepth, c.Spectrum.FullScale),
		PostScale:  post,
		LostEnergy: c.Spectrum.LostEnergy,
		Normalize:  c.Spectrum.Normalize,
	}
}

// Level returns the effective log level. Debug mode wins over log_level.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Malformed values are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_{RESOLUTION,FRAMES_TO_DROP}
	// These are specific to the spectrum pipeline.

	if val, ok := os.LookupEnv("ENV_RESOLUTION"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Spectrum.Resolution = n
			applog.Infof("Config: Overriding spectrum.resolution from env: %d", n)
		} else {
			applog.Warnf("Config: Ignoring ENV_RESOLUTION=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_FRAMES_TO_DROP"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Spectrum.FramesToDrop = n
			applog.Infof("Config: Overriding spectrum.frames_to_drop from env: %d", n)
		} else {
			applog.Warnf("Config: Ignoring ENV_FRAMES_TO_DROP=%q: %v", val, err)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			applog.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("Config: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	// ENV_WS_ADDRESS enables the WebSocket server on the given address.
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocket.Enabled = true
		cfg.Transport.WebSocket.Address = val
		applog.Infof("Config: Overriding transport.websocket.address from env: %s", val)
	}
}
