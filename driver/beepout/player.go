// SPDX-License-Identifier: EPL-2.0

// Package beepout implements the engine's Player interface on the gopxl
// beep speaker, giving audible output on desktop platforms.
package beepout

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/sepzie/sezoaudio"
)

const pullChunkFrames = 2048

// Player drives the speaker from the engine's render callback. The speaker
// buffer is sized at 1/10 s, matching the latency the rest of the engine's
// buffering assumes.
type Player struct {
	sampleRate beep.SampleRate

	mu      sync.Mutex
	inited  bool
	running bool
}

func New(sampleRate int) *Player {
	return &Player{sampleRate: beep.SampleRate(sampleRate)}
}

// Start initializes the speaker on first use and begins pulling render into
// it. The stream runs until Stop.
func (p *Player) Start(render sezoaudio.RenderFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("player already running")
	}
	if !p.inited {
		if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("init speaker: %w", err)
		}
		p.inited = true
	}

	speaker.Play(&renderStreamer{
		render: render,
		buf:    make([]float32, pullChunkFrames*2),
	})
	p.running = true
	return nil
}

// Stop silences output. The engine keeps its transport state; Start may be
// called again.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	speaker.Clear()
	p.running = false
	return nil
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		speaker.Clear()
		p.running = false
	}
	if p.inited {
		speaker.Close()
		p.inited = false
	}
	return nil
}

func (p *Player) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// renderStreamer adapts the engine render callback to a beep.Streamer. It
// never reports end-of-stream; the engine emits silence when stopped.
type renderStreamer struct {
	render sezoaudio.RenderFunc
	buf    []float32
}

func (s *renderStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		frames := len(samples) - filled
		if frames > pullChunkFrames {
			frames = pullChunkFrames
		}
		s.render(s.buf[:frames*2], frames)
		for i := range frames {
			samples[filled+i][0] = float64(s.buf[i*2])
			samples[filled+i][1] = float64(s.buf[i*2+1])
		}
		filled += frames
	}
	return len(samples), true
}

func (s *renderStreamer) Err() error { return nil }
