// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/pkg/build"
)

// Commands selected by ParseArgs.
const (
	CommandRun     = "run"
	CommandReplay  = "replay"
	CommandList    = "list"
	CommandDevices = "devices"
)

// Options is the parsed command line: the command to execute and the
// configuration it runs with.
type Options struct {
	Command      string
	Config       *config.Config
	OutputFile   string // Recording file; set when recording is enabled.
	ReplayFile   string
	Paced        bool
	ReplayFrames int
}

// cliFlags holds persistent flag values until the config file is loaded;
// only flags set on the command line override it.
type cliFlags struct {
	configPath   string
	logLevel     string
	resolution   int
	framesToDrop int
	window       string
	deviceID     int
	record       bool
	outputFile   string
}

func (f *cliFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("resolution") {
		cfg.Spectrum.Resolution = f.resolution
	}
	if flags.Changed("drop") {
		cfg.Spectrum.FramesToDrop = f.framesToDrop
	}
	if flags.Changed("window") {
		cfg.Spectrum.Window = f.window
	}
	if flags.Changed("device") {
		cfg.Audio.InputDevice = f.deviceID
	}
	if f.record {
		cfg.Recording.Enabled = true
	}
}

// ParseArgs parses args (without the program name). A nil error with an
// empty Command means cobra already handled the request (--help, --version).
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.Get()
	options := &Options{}
	var flags cliFlags

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			applog.SetLevel(cfg.Level())

			options.Config = cfg
			if cfg.Recording.Enabled {
				options.OutputFile = flags.outputFile
				if options.OutputFile == "" {
					options.OutputFile = audio.RecordingPath(cfg.Recording.OutputDir, time.Now().UTC())
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Run command; the root command does the same.
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Capture I/Q from a sound card and stream spectra",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}
	rootCmd.AddCommand(runCmd)

	// Replay command
	replayCmd := &cobra.Command{
		Use:   "replay FILE.wav",
		Short: "Stream a stereo I/Q WAV recording through the spectrum pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.ReplayFrames < 0 {
				return fmt.Errorf("--frames must not be negative, got %d", options.ReplayFrames)
			}
			options.Command = CommandReplay
			options.ReplayFile = args[0]
			return nil
		},
	}
	replayCmd.Flags().BoolVarP(&options.Paced, "paced", "p", false,
		"Replay in real time at the file's sample rate")
	replayCmd.Flags().IntVar(&options.ReplayFrames, "frames", audio.DefaultReplayFrames,
		"I/Q pairs read per chunk")
	rootCmd.AddCommand(replayCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// Devices command
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Pick a device and resolution interactively and print the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandDevices
			return nil
		},
	}
	rootCmd.AddCommand(devicesCmd)

	// Configuration
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml or ./spectrum.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")

	// Spectrum Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.resolution, "resolution", "n", config.DefaultResolution,
		"FFT size: 256, 512, 1024, 2048, 4096, 8192 or 16384")
	rootCmd.PersistentFlags().IntVar(&flags.framesToDrop, "drop", config.DefaultFramesToDrop,
		"Full frames to skip between transforms")
	rootCmd.PersistentFlags().StringVarP(&flags.window, "window", "w", config.DefaultWindow,
		"Window function (blackman, hann, hamming, nuttall, blackmannuttall, blackmanharris, flat)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.record, "record", "r", false,
		"Record the raw I/Q stream while capturing")
	rootCmd.PersistentFlags().StringVarP(&flags.outputFile, "output", "o", "",
		"Recording file name. Default is <output_dir>/iq-YYYYMMDD-HHMMSS.wav")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
