// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"math"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectrum/internal/config"
	"spectrum/internal/transport/udp"
	"spectrum/pkg/utils"
)

const testRate = 48000.0

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Spectrum.Resolution = 1024
	cfg.Transport.LogEnabled = true
	cfg.Transport.LogEvery = 1
	return &cfg
}

func TestPipelineChain(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Enabled = true
	cfg.Analysis.Bands = []config.BandConfig{{Name: "tone", Low: 4000, High: 6000}}

	p, err := NewPipeline(cfg, testRate, 16)
	if err != nil {
		t.Fatalf("NewPipeline error: %v", err)
	}
	defer p.Close()

	if p.Bands == nil || p.WebSocket != nil {
		t.Fatalf("Bands = %v, WebSocket = %v", p.Bands, p.WebSocket)
	}

	p.LogStatus()
	// 107 cycles over 1024 samples at 48 kHz is 5015.625 Hz.
	if err := p.Assembler.PushSamples(utils.GenerateTone(1024, 107, 16000)); err != nil {
		t.Fatal(err)
	}
	p.LogStatus()

	hz, _, ok := p.Snapshot.Peak()
	if !ok || math.Abs(hz-107*testRate/1024) > 1e-9 {
		t.Errorf("peak at %g Hz (ok %v)", hz, ok)
	}
	if st := p.Assembler.Stats(); st.Transforms != 1 || st.SinkErrors != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPipelineRejectsBadBands(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Enabled = true
	cfg.Analysis.Bands = []config.BandConfig{{Name: "inverted", Low: 10, High: -10}}
	if _, err := NewPipeline(cfg, testRate, 16); err == nil {
		t.Error("NewPipeline accepted an inverted band")
	}
}

func TestPipelineUDP(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	cfg := testConfig()
	cfg.Spectrum.Resolution = 256
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = listener.LocalAddr().String()
	cfg.Transport.UDPSendInterval = 5 * time.Millisecond
	cfg.Transport.WebSocket.Enabled = true
	cfg.Transport.WebSocket.Address = "127.0.0.1:0"

	p, err := NewPipeline(cfg, testRate, 16)
	if err != nil {
		t.Fatalf("NewPipeline error: %v", err)
	}
	defer p.Close()
	if p.WebSocket == nil || p.WebSocket.Addr() == nil {
		t.Fatal("WebSocket transport not started")
	}

	if err := p.Assembler.PushSamples(utils.GenerateTone(256, 32, 16000)); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64*1024)
	_ = listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("no packet received: %v", err)
	}
	pkt, err := udp.DecodePacket(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if len(pkt.Bins) != 256 {
		t.Fatalf("packet carries %d bins, want 256", len(pkt.Bins))
	}
	// Bin 32 after centering sits at index 128+32.
	if peak := utils.FindPeakBin(float32To64(pkt.Bins), 0, 255); peak != 160 {
		t.Errorf("peak at index %d, want 160", peak)
	}
}

func float32To64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// writeIQ writes frames of a 16-bit stereo tone to a WAV file.
func writeIQ(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iq.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tone := utils.GenerateTone(frames, 64, 12000)
	data := make([]int, len(tone))
	for i, v := range tone {
		data[i] = int(v)
	}

	enc := wav.NewEncoder(f, int(testRate), 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: int(testRate)},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteReplay(t *testing.T) {
	opts, err := ParseArgs([]string{"--resolution", "1024", "replay", writeIQ(t, 4096), "--frames", "512"})
	if err != nil {
		t.Fatal(err)
	}
	if err := Execute(context.Background(), opts, os.Stdout); err != nil {
		t.Errorf("Execute(replay) error: %v", err)
	}

	opts.ReplayFile = filepath.Join(t.TempDir(), "missing.wav")
	if err := Execute(context.Background(), opts, os.Stdout); err == nil {
		t.Error("Execute(replay) of a missing file succeeded")
	}
}

func TestExecuteReplayCancelled(t *testing.T) {
	opts, err := ParseArgs([]string{"replay", writeIQ(t, 4096), "--frames", "256", "--paced"})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Execute(ctx, opts, os.Stdout); err != nil {
		t.Errorf("cancelled replay returned %v, want nil", err)
	}
}

func TestExecuteNoCommand(t *testing.T) {
	if err := Execute(context.Background(), &Options{}, os.Stdout); err != nil {
		t.Errorf("Execute with no command = %v", err)
	}
}
