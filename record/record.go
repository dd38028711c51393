// SPDX-License-Identifier: EPL-2.0

package record

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sepzie/sezoaudio/audio"
)

const (
	drainChunkFrames = 1024
	drainStopTimeout = 500 * time.Millisecond
)

// Capture abstracts a live audio input. Implementations wrap a platform
// input device; tests use an in-memory source. ReadSamples blocks until
// samples are available and returns io.EOF once the capture is stopped and
// drained.
type Capture interface {
	Start() error
	Stop() error
	IsRunning() bool
	// InputLevel reports the recent peak input level in [0, 1].
	InputLevel() float64
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
}

// Config selects the container and encoding for a recording.
type Config struct {
	Format        string
	SampleRate    int
	BitsPerSample int
	Bitrate       int
}

// Result describes a finished recording.
type Result struct {
	OutputPath     string
	StartFrame     int64 // timeline position the recording began at
	DurationFrames int64
	FileSize       int64
	Success        bool
	ErrorMessage   string
}

// Pipeline drains a Capture into an encoder on its own goroutine. One
// recording at a time; Stop waits a bounded interval for the drain
// goroutine to flush and exit.
type Pipeline struct {
	registry *audio.Registry
	logger   *slog.Logger

	mu         sync.Mutex
	capture    Capture
	enc        audio.Encoder
	outputPath string
	startFrame int64
	recording  bool

	stop *atomic.Bool
	done chan struct{}

	// errMu guards drainErr separately from mu: the drain goroutine may
	// fail while Stop holds mu waiting on done.
	errMu    sync.Mutex
	drainErr error
}

func NewPipeline(registry *audio.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{registry: registry, logger: logger}
}

// Start opens the encoder and begins draining capture into it. startFrame
// records where on the shared timeline the recording begins, so the caller
// can later place the result as a track.
func (p *Pipeline) Start(capture Capture, outputPath string, cfg Config, startFrame int64) error {
	if capture == nil {
		return ErrNilCapture
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recording {
		return ErrAlreadyRecording
	}

	enc, ok := p.registry.NewEncoder(strings.ToLower(cfg.Format))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedRecordFormat, cfg.Format)
	}

	encCfg := audio.EncoderConfig{
		SampleRate:    cfg.SampleRate,
		Channels:      capture.Channels(),
		Bitrate:       cfg.Bitrate,
		BitsPerSample: cfg.BitsPerSample,
	}
	if err := enc.Open(outputPath, encCfg); err != nil {
		return fmt.Errorf("open encoder: %w", err)
	}

	if err := capture.Start(); err != nil {
		enc.Close()
		return fmt.Errorf("start capture: %w", err)
	}

	p.capture = capture
	p.enc = enc
	p.outputPath = outputPath
	p.startFrame = startFrame
	p.recording = true
	p.takeDrainErr()
	p.stop = &atomic.Bool{}
	p.done = make(chan struct{})

	go p.drainLoop(capture, enc, p.stop, p.done)

	p.logger.Info("recording started", "output", outputPath, "startFrame", startFrame)
	return nil
}

// Stop ends the recording, flushes the encoder, and returns the result.
func (p *Pipeline) Stop() (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.recording {
		return Result{}, ErrNotRecording
	}

	p.stop.Store(true)
	if err := p.capture.Stop(); err != nil {
		p.logger.Warn("capture stop failed", "error", err)
	}

	select {
	case <-p.done:
	case <-time.After(drainStopTimeout):
		p.logger.Warn("recording drain did not stop in time", "output", p.outputPath)
	}

	result := Result{
		OutputPath: p.outputPath,
		StartFrame: p.startFrame,
	}

	closeErr := p.enc.Close()
	result.DurationFrames = p.enc.FramesWritten()
	result.FileSize = p.enc.FileSize()

	drainErr := p.takeDrainErr()
	switch {
	case drainErr != nil:
		result.ErrorMessage = drainErr.Error()
	case closeErr != nil:
		result.ErrorMessage = fmt.Sprintf("finalize encoder: %v", closeErr)
	default:
		result.Success = true
	}

	p.recording = false
	p.capture = nil
	p.enc = nil

	p.logger.Info("recording stopped",
		"output", result.OutputPath,
		"frames", result.DurationFrames,
		"success", result.Success)

	if !result.Success {
		return result, fmt.Errorf("recording failed: %s", result.ErrorMessage)
	}
	return result, nil
}

func (p *Pipeline) IsRecording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recording
}

// InputLevel reports the capture's recent peak level, or 0 when idle.
func (p *Pipeline) InputLevel() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.recording {
		return 0
	}
	return p.capture.InputLevel()
}

func (p *Pipeline) drainLoop(capture Capture, enc audio.Encoder, stop *atomic.Bool, done chan struct{}) {
	defer close(done)

	channels := capture.Channels()
	buf := make([]float32, drainChunkFrames*channels)

	for {
		n, err := capture.ReadSamples(buf)
		if n > 0 {
			if werr := enc.Write(buf[:n], n/channels); werr != nil {
				p.setDrainErr(fmt.Errorf("encode: %w", werr))
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				p.setDrainErr(fmt.Errorf("capture read: %w", err))
			}
			return
		}
		if n == 0 && stop.Load() {
			return
		}
	}
}

func (p *Pipeline) setDrainErr(err error) {
	p.errMu.Lock()
	if p.drainErr == nil {
		p.drainErr = err
	}
	p.errMu.Unlock()
}

func (p *Pipeline) takeDrainErr() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	err := p.drainErr
	p.drainErr = nil
	return err
}
