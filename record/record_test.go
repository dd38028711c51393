// SPDX-License-Identifier: EPL-2.0

package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sepzie/sezoaudio/audio"
	"github.com/sepzie/sezoaudio/formats/wav"
	"github.com/sepzie/sezoaudio/internal/audiotest"
)

func testRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.RegisterDecoder("wav", wav.Decoder{})
	r.RegisterEncoder("wav", func() audio.Encoder { return wav.NewEncoder() })
	return r
}

func TestPipeline_RecordToFile(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testRegistry(), nil)
	capture := audiotest.NewMockCapture(audiotest.NewSineSource(48000, 2, 4800, 440))
	out := filepath.Join(t.TempDir(), "take.wav")

	cfg := Config{Format: "wav", SampleRate: 48000, BitsPerSample: 16}
	if err := p.Start(capture, out, cfg, 12000); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRecording() {
		t.Error("IsRecording() = false after Start()")
	}

	time.Sleep(100 * time.Millisecond)

	result, err := p.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("recording failed: %s", result.ErrorMessage)
	}
	if result.StartFrame != 12000 {
		t.Errorf("StartFrame = %d, want 12000", result.StartFrame)
	}
	if result.DurationFrames != 4800 {
		t.Errorf("DurationFrames = %d, want 4800", result.DurationFrames)
	}

	src, err := wav.Decoder{}.Open(out)
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	defer src.Close()
	if got := src.Format().TotalFrames; got != 4800 {
		t.Errorf("recorded TotalFrames = %d, want 4800", got)
	}
}

func TestPipeline_StateErrors(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testRegistry(), nil)

	if _, err := p.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop() without Start error = %v, want ErrNotRecording", err)
	}
	if err := p.Start(nil, "x.wav", Config{Format: "wav"}, 0); !errors.Is(err, ErrNilCapture) {
		t.Errorf("Start(nil) error = %v, want ErrNilCapture", err)
	}

	capture := audiotest.NewMockCapture(audiotest.NewSilentSource(48000, 1, 48000))
	out := filepath.Join(t.TempDir(), "take.wav")
	cfg := Config{Format: "wav", SampleRate: 48000, BitsPerSample: 16}
	if err := p.Start(capture, out, cfg, 0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	second := audiotest.NewMockCapture(audiotest.NewSilentSource(48000, 1, 48000))
	if err := p.Start(second, out, cfg, 0); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Start() while recording error = %v, want ErrAlreadyRecording", err)
	}
}

func TestPipeline_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testRegistry(), nil)
	capture := audiotest.NewMockCapture(audiotest.NewSilentSource(48000, 1, 4800))

	out := filepath.Join(t.TempDir(), "x.flac")
	err := p.Start(capture, out, Config{Format: "flac"}, 0)
	if !errors.Is(err, ErrUnsupportedRecordFormat) {
		t.Errorf("Start() error = %v, want ErrUnsupportedRecordFormat", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("failed Start() left a file behind: stat err = %v", statErr)
	}
}

func TestPipeline_InputLevel(t *testing.T) {
	t.Parallel()

	p := NewPipeline(testRegistry(), nil)
	if got := p.InputLevel(); got != 0 {
		t.Errorf("InputLevel() while idle = %v, want 0", got)
	}

	capture := audiotest.NewMockCapture(audiotest.NewConstantSource(48000, 1, 48000, 0.5))
	out := filepath.Join(t.TempDir(), "take.wav")
	cfg := Config{Format: "wav", SampleRate: 48000, BitsPerSample: 16}
	if err := p.Start(capture, out, cfg, 0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := p.InputLevel(); got < 0.4 {
		t.Errorf("InputLevel() = %v, want ≈0.5", got)
	}

	p.Stop()
}
