// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectrum/internal/log"
)

// RecordingBitDepth is the sample size of recordings. PortAudio delivers
// int32 samples, so recordings keep the full width.
const RecordingBitDepth = 32

// RecordingPath returns a timestamped file name inside dir.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "iq-"+now.Format("20060102-150405")+".wav")
}

// StartRecording starts writing the raw I/Q stream to filename as a
// 32-bit stereo WAV file.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	e.outputFile = file
	sampleRate := int(e.config.Audio.SampleRate)
	e.wavEncoder = wav.NewEncoder(file, sampleRate, RecordingBitDepth, IQChannels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: IQChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*IQChannels),
		SourceBitDepth: RecordingBitDepth,
	}
	e.recordFrames = 0
	e.maxFrames = e.config.Recording.MaxDuration * sampleRate

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Engine: Recording I/Q to %s", filename)

	return nil
}

// writeRecording appends buffer to the recording. Runs on the audio thread.
func (e *Engine) writeRecording(buffer []int32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	frames := len(buffer) / IQChannels
	if e.maxFrames > 0 && e.recordFrames+frames > e.maxFrames {
		frames = e.maxFrames - e.recordFrames
		if frames <= 0 {
			return
		}
		buffer = buffer[:frames*IQChannels]
		applog.Infof("Engine: Recording reached its maximum duration of %ds", e.config.Recording.MaxDuration)
	}

	if cap(e.sampleBuf.Data) < len(buffer) {
		e.sampleBuf.Data = make([]int, len(buffer))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(buffer)]
	for i, sample := range buffer {
		e.sampleBuf.Data[i] = int(sample)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Engine: Error writing to WAV file: %v", err)
		return
	}
	e.recordFrames += frames
}

// RecordedFrames returns the number of frames written to the current or
// last recording.
func (e *Engine) RecordedFrames() int {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	return e.recordFrames
}

// StopRecording finalizes the WAV header and closes the file.
func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		name := e.outputFile.Name()
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
		applog.Infof("Engine: Recording %s closed (%d frames)", name, e.recordFrames)
	}

	return nil
}
