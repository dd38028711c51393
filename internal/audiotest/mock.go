// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides mock sources, captures, and file fixtures for
// tests. It deliberately avoids importing the engine packages so any of
// them can depend on it without cycles.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates audio data on demand. It satisfies both the Source
// and TrackSource shapes (ReadSamples, Format, Seek) without importing the
// audio package.
type MockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	position    int // frames generated so far
	waveform    func(frame, channel int) float32
}

// NewMockSource creates a mock source generating totalFrames frames from
// the given waveform function.
func NewMockSource(sampleRate, channels, totalFrames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
	}
}

// NewSilentSource creates a mock source that generates silence.
func NewSilentSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame, channel int) float32 {
		return 0.0
	})
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalFrames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame, channel int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with a constant sample value.
func NewConstantSource(sampleRate, channels, totalFrames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame, channel int) float32 {
		return value
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) Close() error    { return nil }

// TotalFrames reports the declared length of the source.
func (m *MockSource) TotalFrames() int64 { return int64(m.totalFrames) }

// Position reports the current frame position.
func (m *MockSource) Position() int64 { return int64(m.position) }

// Seek repositions generation at the given frame.
func (m *MockSource) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if frame > int64(m.totalFrames) {
		frame = int64(m.totalFrames)
	}
	m.position = int(frame)
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.position >= m.totalFrames {
		return 0, io.EOF
	}

	framesRequested := len(dst) / m.channels
	framesAvailable := m.totalFrames - m.position
	framesToWrite := framesRequested
	if framesToWrite > framesAvailable {
		framesToWrite = framesAvailable
	}

	for frame := 0; frame < framesToWrite; frame++ {
		frameIndex := m.position + frame
		for ch := 0; ch < m.channels; ch++ {
			dst[frame*m.channels+ch] = m.waveform(frameIndex, ch)
		}
	}

	m.position += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.position >= m.totalFrames {
		return samplesWritten, io.EOF
	}
	return samplesWritten, nil
}
