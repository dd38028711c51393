// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/sepzie/sezoaudio/audio"
	"github.com/sepzie/sezoaudio/utils"
)

// go-mp3 always produces 16-bit stereo output, 4 bytes per frame.
const bytesPerFrame = 4

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Length() int64
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	f          *os.File
	sampleRate int
	buf        []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return 2 }

func (s *source) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

func (s *source) Format() audio.Format {
	return audio.Format{
		SampleRate:  s.sampleRate,
		Channels:    2,
		TotalFrames: s.dec.Length() / bytesPerFrame,
	}
}

func (s *source) Seek(frame int64) error {
	if frame < 0 {
		return audio.ErrNegativeSeek
	}
	if _, err := s.dec.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	// go-mp3 returns 16-bit little-endian PCM bytes (stereo interleaved)
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		low := uint16(s.buf[2*i])
		high := uint16(s.buf[2*i+1])
		dst[i] = utils.Int16ToFloat32(int16(low | (high << 8)))
	}

	return samples, err
}

// Decoder opens MP3 files as seekable track sources.
type Decoder struct{}

func (Decoder) Open(path string) (audio.TrackSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	return &source{
		dec:        dec,
		f:          f,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
