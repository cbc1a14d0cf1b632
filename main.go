package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"spectrum/cmd"
	"spectrum/pkg/build"
)

// main is the entry point for the spectrum analyser.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load the configuration
//
// 2. Streaming Phase (Hot Path):
//   - Initialize PortAudio for commands that use the sound card
//   - Push I/Q samples through the assembler to the transports
//
// 3. Shutdown Phase (Cold Path):
//   - SIGINT/SIGTERM cancel the context
//   - Recording is finalized and transports are closed
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	// One thread for the audio callback and transform, one for the
	// transports and I/O.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// ==================== STREAMING PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute covers the shutdown phase too: it returns once ctx is
	// cancelled or the command finishes, after closing everything it opened.
	if err := cmd.Execute(ctx, opts, os.Stdout); err != nil {
		stop()
		log.Fatal(err)
	}
}
