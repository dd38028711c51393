package vorbis

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/sepzie/sezoaudio/audio"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	SetPosition(pos int64) error
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	f          *os.File
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }

func (s *source) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

func (s *source) Format() audio.Format {
	return audio.Format{
		SampleRate:  s.sampleRate,
		Channels:    s.channels,
		TotalFrames: s.dec.Length(),
	}
}

func (s *source) Seek(frame int64) error {
	if frame < 0 {
		return audio.ErrNegativeSeek
	}
	if total := s.dec.Length(); total > 0 && frame > total {
		frame = total
	}
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis seek: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(dst)%s.channels != 0 {
		dst = dst[:len(dst)-len(dst)%s.channels]
	}

	// oggvorbis reads interleaved float32 samples directly.
	return s.dec.Read(dst)
}

// Decoder opens Ogg Vorbis files as seekable track sources.
type Decoder struct{}

func (Decoder) Open(path string) (audio.TrackSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vorbis: %w", err)
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode vorbis: %w", err)
	}

	return &source{
		dec:        dec,
		f:          f,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
