// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/sepzie/sezoaudio/audio"
)

// Encoder writes PCM WAV files (16 or 24 bit) through go-audio/wav. The
// container's RIFF sizes are patched on Close, so the file is not valid
// until Close returns.
type Encoder struct {
	f      *os.File
	enc    *gowav.Encoder
	cfg    audio.EncoderConfig
	path   string
	frames int64
	scale  float32
	intBuf *goaudio.IntBuffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Open(path string, cfg audio.EncoderConfig) error {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return ErrInvalidEncoderConfig
	}

	switch cfg.BitsPerSample {
	case 16:
		e.scale = 32767.0
	case 24:
		e.scale = 8388607.0
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrInvalidEncoderConfig, cfg.BitsPerSample)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	e.f = f
	e.path = path
	e.cfg = cfg
	e.frames = 0
	// audio format tag 1 = integer PCM
	e.enc = gowav.NewEncoder(f, cfg.SampleRate, cfg.BitsPerSample, cfg.Channels, 1)
	e.intBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: cfg.Channels,
			SampleRate:  cfg.SampleRate,
		},
		SourceBitDepth: cfg.BitsPerSample,
	}
	return nil
}

func (e *Encoder) Write(samples []float32, frames int) error {
	if e.enc == nil {
		return ErrEncoderClosed
	}
	if frames == 0 {
		return nil
	}

	count := frames * e.cfg.Channels
	if cap(e.intBuf.Data) < count {
		e.intBuf.Data = make([]int, count)
	}
	e.intBuf.Data = e.intBuf.Data[:count]

	for i := 0; i < count; i++ {
		x := samples[i]
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
		e.intBuf.Data[i] = int(x * e.scale)
	}

	if err := e.enc.Write(e.intBuf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	e.frames += int64(frames)
	return nil
}

func (e *Encoder) Close() error {
	if e.enc == nil {
		return nil
	}

	encErr := e.enc.Close()
	fileErr := e.f.Close()
	e.enc = nil
	e.f = nil

	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close wav: %w", fileErr)
	}
	return nil
}

func (e *Encoder) FramesWritten() int64 {
	return e.frames
}

func (e *Encoder) FileSize() int64 {
	info, err := os.Stat(e.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
