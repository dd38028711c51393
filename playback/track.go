// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sepzie/sezoaudio/audio"
)

const (
	fillChunkFrames = 1024
	fillIdleSleep   = 5 * time.Millisecond
	fillStopTimeout = 500 * time.Millisecond
	prefillTimeout  = 2 * time.Second

	// prefillTarget is the fraction of the ring that must be buffered
	// before Load returns and the track is considered ready.
	prefillTarget = 0.75
)

// Track owns one audio source: its decoder, its streaming ring buffer, the
// background fill goroutine that keeps the ring topped up, and the
// per-track control and effects state. ReadSamples is the render-path
// entry; it drains the ring and never blocks, substituting silence on
// underrun.
type Track struct {
	id   string
	path string

	registry *audio.Registry
	logger   *slog.Logger

	src    audio.TrackSource
	format audio.Format
	ring   *audio.Ring

	stretcher *TimeStretch

	startFrame atomic.Int64
	volumeBits atomic.Uint64
	panBits    atomic.Uint64
	muted      atomic.Bool
	solo       atomic.Bool
	loaded     atomic.Bool

	// Fill goroutine lifecycle. fillMu serializes Load/Seek/Unload; the
	// goroutine itself only checks fillStop and closes fillDone.
	fillMu   sync.Mutex
	fillStop *atomic.Bool
	fillDone chan struct{}

	// Render-context scratch for the stretch input path; sized at Load so
	// the callback never allocates.
	stretchIn  []float32
	inFraction float64
}

// NewTrack creates an unloaded track. The registry selects the decoder by
// the path's extension at Load.
func NewTrack(id, path string, registry *audio.Registry, logger *slog.Logger) *Track {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Track{
		id:       id,
		path:     path,
		registry: registry,
		logger:   logger,
	}
	t.volumeBits.Store(math.Float64bits(1.0))
	t.panBits.Store(math.Float64bits(0.0))
	return t
}

// Load opens the decoder, allocates one second of ring buffer, starts the
// fill goroutine and blocks until the ring is roughly 75% pre-filled (or
// the source turned out shorter than that).
func (t *Track) Load() error {
	if t.loaded.Load() {
		return nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(t.path)), ".")
	dec, ok := t.registry.Decoder(ext)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	src, err := dec.Open(t.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecoderOpenFailed, err)
	}

	format := src.Format()
	if format.SampleRate <= 0 || format.Channels <= 0 {
		src.Close()
		return fmt.Errorf("%w: %+v", ErrDecoderOpenFailed, format)
	}

	t.src = src
	t.format = format
	t.ring = audio.NewRing(format.SampleRate * format.Channels)
	t.stretcher = NewTimeStretch(format.SampleRate, format.Channels)
	t.stretchIn = make([]float32, 2*maxBlockFrames*format.Channels)
	t.inFraction = 0

	t.startFill()
	t.waitPrefill()
	t.loaded.Store(true)

	t.logger.Debug("track loaded",
		"id", t.id,
		"path", t.path,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"total_frames", format.TotalFrames)
	return nil
}

// Unload stops the fill goroutine and releases the decoder. Idempotent.
func (t *Track) Unload() {
	if !t.loaded.Swap(false) {
		return
	}

	t.stopFill()
	if t.src != nil {
		t.src.Close()
		t.src = nil
	}
	t.logger.Debug("track unloaded", "id", t.id)
}

// ReadSamples fills out with exactly frames frames from the ring, routing
// through the time stretcher when pitch or speed is engaged. On underrun
// the missing tail is silence; it never blocks and never raises. Render
// context only.
func (t *Track) ReadSamples(out []float32, frames int) int {
	samples := frames * t.format.Channels
	if !t.loaded.Load() {
		zeroFill(out[:samples])
		return frames
	}

	if t.stretcher.IsActive() {
		// Convert the requested output frames into input frames at the
		// current stretch factor, carrying the fractional remainder so the
		// long-run consumption ratio holds exactly.
		want := float64(frames)*t.stretcher.StretchFactor() + t.inFraction
		inFrames := int(want)
		t.inFraction = want - float64(inFrames)

		inSamples := inFrames * t.format.Channels
		if inSamples > len(t.stretchIn) {
			inSamples = len(t.stretchIn) / t.format.Channels * t.format.Channels
			inFrames = inSamples / t.format.Channels
		}

		got := t.ring.Read(t.stretchIn[:inSamples])
		zeroFill(t.stretchIn[got:inSamples])
		t.stretcher.Process(t.stretchIn[:inSamples], inFrames, out, frames)
		return frames
	}

	got := t.ring.Read(out[:samples])
	zeroFill(out[got:samples])
	return frames
}

// Seek repositions the track at the given source frame: the fill goroutine
// is stopped, the ring and stretcher state are discarded, the decoder
// seeks, and filling restarts. Call with the transport paused or stopped to
// avoid racing the render path over the ring.
func (t *Track) Seek(frame int64) error {
	if !t.loaded.Load() {
		return ErrTrackNotLoaded
	}
	if frame < 0 {
		frame = 0
	}
	if t.format.TotalFrames > 0 && frame > t.format.TotalFrames {
		frame = t.format.TotalFrames
	}

	t.stopFill()
	t.ring.Reset()
	t.stretcher.Reset()
	t.inFraction = 0

	if err := t.src.Seek(frame); err != nil {
		t.startFill()
		return fmt.Errorf("%w: %v", ErrSeekFailed, err)
	}

	t.startFill()
	t.waitPrefill()
	return nil
}

func (t *Track) startFill() {
	t.fillMu.Lock()
	defer t.fillMu.Unlock()

	stop := &atomic.Bool{}
	done := make(chan struct{})
	t.fillStop = stop
	t.fillDone = done

	go t.fillLoop(stop, done)
}

// stopFill requests a cooperative stop and waits with a bound; a stuck
// decoder must not hang teardown.
func (t *Track) stopFill() {
	t.fillMu.Lock()
	stop, done := t.fillStop, t.fillDone
	t.fillMu.Unlock()

	if stop == nil {
		return
	}
	stop.Store(true)

	select {
	case <-done:
	case <-time.After(fillStopTimeout):
		t.logger.Warn("fill goroutine did not stop in time", "id", t.id)
	}
}

func (t *Track) fillLoop(stop *atomic.Bool, done chan struct{}) {
	defer close(done)

	buf := make([]float32, fillChunkFrames*t.format.Channels)
	for {
		if stop.Load() {
			return
		}

		if t.ring.Free() < len(buf) {
			time.Sleep(fillIdleSleep)
			continue
		}

		n, err := t.src.ReadSamples(buf)
		if n > 0 {
			t.ring.Write(buf[:n])
		}
		if err != nil {
			// EOF or a decode failure: either way there is nothing more to
			// stream. The render path drains what is buffered and then
			// reads silence.
			return
		}
	}
}

// waitPrefill blocks until the ring holds the pre-fill target, the source
// ran out first, or the deadline passes.
func (t *Track) waitPrefill() {
	target := int(float64(t.ring.Capacity()) * prefillTarget)
	deadline := time.Now().Add(prefillTimeout)

	for t.ring.Available() < target {
		select {
		case <-t.fillDone:
			return
		default:
		}
		if time.Now().After(deadline) {
			t.logger.Warn("prefill timed out", "id", t.id, "buffered", t.ring.Available())
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (t *Track) ID() string   { return t.id }
func (t *Track) Path() string { return t.path }

func (t *Track) IsLoaded() bool { return t.loaded.Load() }

func (t *Track) SampleRate() int { return t.format.SampleRate }
func (t *Track) Channels() int   { return t.format.Channels }

// Duration returns the source length in frames.
func (t *Track) Duration() int64 { return t.format.TotalFrames }

func (t *Track) SetStartFrame(frame int64) {
	if frame < 0 {
		frame = 0
	}
	t.startFrame.Store(frame)
}

// StartFrame is the timeline position where this source begins.
func (t *Track) StartFrame() int64 { return t.startFrame.Load() }

func (t *Track) SetVolume(volume float64) {
	t.volumeBits.Store(math.Float64bits(clampRange(volume, 0, 2)))
}

func (t *Track) Volume() float64 {
	return math.Float64frombits(t.volumeBits.Load())
}

func (t *Track) SetPan(pan float64) {
	t.panBits.Store(math.Float64bits(clampRange(pan, -1, 1)))
}

func (t *Track) Pan() float64 {
	return math.Float64frombits(t.panBits.Load())
}

func (t *Track) SetMuted(muted bool) { t.muted.Store(muted) }
func (t *Track) IsMuted() bool       { return t.muted.Load() }

func (t *Track) SetSolo(solo bool) { t.solo.Store(solo) }
func (t *Track) IsSolo() bool      { return t.solo.Load() }

func (t *Track) SetPitchSemitones(semitones float64) {
	if t.stretcher != nil {
		t.stretcher.SetPitchSemitones(semitones)
	}
}

func (t *Track) PitchSemitones() float64 {
	if t.stretcher == nil {
		return 0
	}
	return t.stretcher.PitchSemitones()
}

func (t *Track) SetStretchFactor(factor float64) {
	if t.stretcher != nil {
		t.stretcher.SetStretchFactor(factor)
	}
}

func (t *Track) StretchFactor() float64 {
	if t.stretcher == nil {
		return 1
	}
	return t.stretcher.StretchFactor()
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
