package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sepzie/sezoaudio/audio"
	"github.com/sepzie/sezoaudio/utils"
)

type wavSource struct {
	f          *os.File
	sampleRate int
	channels   int
	dataStart  int64
	dataSize   int64
	pos        int64 // bytes consumed within the data chunk
	// assume PCM 16-bit
	buf []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return s.f.Close() }

func (s *wavSource) Format() audio.Format {
	return audio.Format{
		SampleRate:  s.sampleRate,
		Channels:    s.channels,
		TotalFrames: s.dataSize / int64(2*s.channels),
	}
}

func (s *wavSource) Seek(frame int64) error {
	if frame < 0 {
		return audio.ErrNegativeSeek
	}

	offset := s.dataStart + frame*int64(2*s.channels)
	end := s.dataStart + s.dataSize
	if offset > end {
		offset = end
	}
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("wav seek: %w", err)
	}
	s.pos = offset - s.dataStart
	return nil
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	// Read int16 interleaved bytes, convert to float32. Reads are bounded
	// by the data chunk so trailing metadata chunks never decode as audio.
	want := int64(len(dst) * 2)
	if remain := s.dataSize - s.pos; remain < want {
		want = remain - remain%2
	}
	if want <= 0 {
		return 0, io.EOF
	}
	if int64(len(s.buf)) < want {
		s.buf = make([]byte, want)
	}

	n, err := io.ReadFull(s.f, s.buf[:want])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("wav read: %w", err)
	}
	s.pos += int64(n)

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
		dst[i] = utils.Int16ToFloat32(v)
	}

	if samples == 0 {
		return 0, io.EOF
	}
	return samples, nil
}

// Decoder opens PCM 16-bit WAV files as seekable track sources.
type Decoder struct{}

func (Decoder) Open(path string) (audio.TrackSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}

	src, err := parseHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.f = f
	return src, nil
}

// parseHeader walks the RIFF chunk list up to the data chunk, recording its
// byte range so Seek can address frames directly.
func parseHeader(f *os.File) (*wavSource, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(f, riff); err != nil {
		return nil, fmt.Errorf("wav header: %w", err)
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWavFile
	}

	src := &wavSource{buf: make([]byte, 4096)}
	haveFmt := false
	offset := int64(12)

	for {
		chunk := make([]byte, 8)
		if _, err := io.ReadFull(f, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrUnsupportedWavLayout
			}
			return nil, fmt.Errorf("wav chunk header: %w", err)
		}
		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, fmt.Errorf("wav fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			src.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			src.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample := int(binary.LittleEndian.Uint16(body[14:16]))
			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, ErrOnlyPCM16bitSupported
			}
			haveFmt = true
			offset += size
		case "data":
			if !haveFmt || src.channels <= 0 {
				return nil, ErrUnsupportedWavLayout
			}
			src.dataStart = offset
			src.dataSize = size
			return src, nil
		default:
			// Skip LIST, fact and other metadata chunks. Chunk bodies are
			// word-aligned.
			if size%2 == 1 {
				size++
			}
			if _, err := f.Seek(size, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("wav chunk skip: %w", err)
			}
			offset += size
		}
	}
}
