// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spectrum/pkg/utils"
)

func TestRecordingStartStopHotPath(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	engine := newTestEngine(nil)

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if atomic.LoadInt32(&engine.isRecording) != 1 {
		t.Error("Engine should be in recording state")
	}
	if engine.outputFile == nil || engine.wavEncoder == nil || engine.sampleBuf == nil {
		t.Fatal("Recording state should be initialized")
	}
	if engine.sampleBuf.Format.NumChannels != IQChannels {
		t.Errorf("Buffer channels mismatch: got %d, want %d", engine.sampleBuf.Format.NumChannels, IQChannels)
	}
	if engine.sampleBuf.Format.SampleRate != testSampleRate {
		t.Errorf("Buffer sample rate mismatch: got %d, want %d", engine.sampleBuf.Format.SampleRate, testSampleRate)
	}
	if len(engine.sampleBuf.Data) != testFrameSize*IQChannels {
		t.Errorf("Buffer size mismatch: got %d, want %d", len(engine.sampleBuf.Data), testFrameSize*IQChannels)
	}

	outputFile := engine.outputFile

	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if atomic.LoadInt32(&engine.isRecording) != 0 {
		t.Error("Engine should not be in recording state after stopping")
	}
	if engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording state should be cleared after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		desc          string
		filename      string
		isRecording   int32
		expectError   bool
		errorContains string
	}{
		{"Already recording", "valid.wav", 1, true, "already recording"},
		{"Invalid path", "/dev/null/file.wav", 0, true, ""},
		{"Valid path", filepath.Join(dir, "test.wav"), 0, false, ""},
		{"Nested directory", filepath.Join(dir, "a", "b", "test.wav"), 0, false, ""},
		{"Stop when not recording", "", 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var err error
			engine := newTestEngine(nil)

			atomic.StoreInt32(&engine.isRecording, tt.isRecording)

			if tt.filename == "" {
				err = engine.StopRecording()
			} else {
				err = engine.StartRecording(tt.filename)
				if err == nil {
					_ = engine.StopRecording()
				}
			}

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.errorContains != "" && err != nil && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Error %q does not contain %q", err.Error(), tt.errorContains)
			}
		})
	}
}

func TestCloseEngineWithRecording(t *testing.T) {
	engine := newTestEngine(nil)

	if err := engine.StartRecording(filepath.Join(t.TempDir(), "close.wav")); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close engine: %v", err)
	}
	if atomic.LoadInt32(&engine.isRecording) != 0 || engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Close should stop the recording")
	}
}

func TestRecordingMaxDuration(t *testing.T) {
	engine := newTestEngine(nil)
	engine.config.Audio.SampleRate = 1000
	engine.config.Recording.MaxDuration = 1

	if err := engine.StartRecording(filepath.Join(t.TempDir(), "max.wav")); err != nil {
		t.Fatal(err)
	}
	buffer := utils.GenerateDC(testFrameSize, 7)
	for range 6 {
		engine.processBuffer(buffer)
	}
	if got := engine.RecordedFrames(); got != 1000 {
		t.Errorf("RecordedFrames = %d, want 1000", got)
	}
	if err := engine.StopRecording(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordingPath(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	got := RecordingPath("recordings", now)
	if got != filepath.Join("recordings", "iq-20240309-140507.wav") {
		t.Errorf("RecordingPath = %q", got)
	}
}
