// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sepzie/sezoaudio/utils"
)

// Mixer sums the active tracks into a stereo interleaved output block.
//
// The track set is held as an immutable snapshot behind an atomic pointer:
// Add/Remove/Clear build a fresh slice under the mutex (control context)
// and swap it in, so Mix, called from the render callback, always
// iterates a stable view without taking a lock.
type Mixer struct {
	mu     sync.Mutex
	tracks atomic.Pointer[[]*Track]

	masterBits atomic.Uint64

	// Render-context scratch, sized for the largest render block.
	trackBuf []float32
}

func NewMixer() *Mixer {
	m := &Mixer{
		trackBuf: make([]float32, maxBlockFrames*2),
	}
	empty := make([]*Track, 0)
	m.tracks.Store(&empty)
	m.masterBits.Store(math.Float64bits(1.0))
	return m
}

func (m *Mixer) AddTrack(t *Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := *m.tracks.Load()
	next := make([]*Track, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, t)
	m.tracks.Store(&next)
}

func (m *Mixer) RemoveTrack(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := *m.tracks.Load()
	next := make([]*Track, 0, len(current))
	found := false
	for _, t := range current {
		if t.ID() == id {
			found = true
			continue
		}
		next = append(next, t)
	}
	if found {
		m.tracks.Store(&next)
	}
	return found
}

func (m *Mixer) ClearTracks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	empty := make([]*Track, 0)
	m.tracks.Store(&empty)
}

func (m *Mixer) Track(id string) *Track {
	for _, t := range *m.tracks.Load() {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// Tracks returns the current snapshot. Callers must not mutate it.
func (m *Mixer) Tracks() []*Track {
	return *m.tracks.Load()
}

func (m *Mixer) SetMasterVolume(volume float64) {
	m.masterBits.Store(math.Float64bits(clampRange(volume, 0, 2)))
}

func (m *Mixer) MasterVolume() float64 {
	return math.Float64frombits(m.masterBits.Load())
}

// Mix renders frames stereo frames covering the timeline range
// [timelineStart, timelineStart+frames) into out. Tracks whose start offset
// falls inside the block contribute only past their offset; solo/mute is
// resolved per the engine rule (any solo present mutes every non-solo
// track, and a muted track stays silent even when soloed). The block is
// always filled completely: exhausted or underrunning tracks contribute
// silence. Render context only.
func (m *Mixer) Mix(out []float32, frames int, timelineStart int64) {
	zeroFill(out[:frames*2])

	tracks := *m.tracks.Load()
	if len(tracks) == 0 {
		return
	}

	hasSolo := false
	for _, t := range tracks {
		if t.IsSolo() {
			hasSolo = true
			break
		}
	}

	for _, t := range tracks {
		if !t.IsLoaded() {
			continue
		}
		if hasSolo && !t.IsSolo() {
			continue
		}
		if t.IsMuted() {
			continue
		}

		trackFrame := timelineStart - t.StartFrame()
		if trackFrame < 0 && trackFrame+int64(frames) <= 0 {
			continue // block ends before the track starts
		}

		offsetFrames := 0
		if trackFrame < 0 {
			offsetFrames = int(-trackFrame)
		}
		framesToRead := frames - offsetFrames
		if framesToRead <= 0 {
			continue
		}

		channels := t.Channels()
		if channels <= 0 {
			continue
		}

		volume := t.Volume()
		leftGain, rightGain := utils.EqualPowerGains(float32(t.Pan()))
		left := float32(volume) * leftGain
		right := float32(volume) * rightGain

		// Wide tracks can exceed the scratch buffer at a full block, so
		// fold in sub-chunks that fit it.
		outBase := offsetFrames * 2
		for framesToRead > 0 {
			chunk := framesToRead
			if limit := len(m.trackBuf) / channels; chunk > limit {
				chunk = limit
			}
			if chunk <= 0 {
				break
			}

			t.ReadSamples(m.trackBuf, chunk)

			switch channels {
			case 1:
				for i := 0; i < chunk; i++ {
					s := m.trackBuf[i]
					out[outBase+2*i] += s * left
					out[outBase+2*i+1] += s * right
				}
			default:
				// Stereo and wider: fold the first two channels.
				for i := 0; i < chunk; i++ {
					out[outBase+2*i] += m.trackBuf[i*channels] * left
					out[outBase+2*i+1] += m.trackBuf[i*channels+1] * right
				}
			}

			outBase += chunk * 2
			framesToRead -= chunk
		}
	}

	master := float32(m.MasterVolume())
	for i := 0; i < frames*2; i++ {
		out[i] = utils.Clamp(out[i] * master)
	}
}
