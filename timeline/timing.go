// SPDX-License-Identifier: EPL-2.0

package timeline

import "sync/atomic"

// Timing converts between frames and milliseconds at one fixed reference
// sample rate, and tracks the total duration across all loaded tracks.
type Timing struct {
	sampleRate     int
	durationFrames atomic.Int64
}

// NewTiming creates a Timing for the given sample rate. The rate is fixed
// for the lifetime of the engine.
func NewTiming(sampleRate int) *Timing {
	return &Timing{sampleRate: sampleRate}
}

func (t *Timing) SampleRate() int {
	return t.sampleRate
}

// SamplesToMs converts a frame count to milliseconds.
func (t *Timing) SamplesToMs(frames int64) float64 {
	return float64(frames) * 1000.0 / float64(t.sampleRate)
}

// MsToSamples converts milliseconds to the nearest lower frame count.
func (t *Timing) MsToSamples(ms float64) int64 {
	return int64(ms * float64(t.sampleRate) / 1000.0)
}

// SetDurationFrames records the total timeline length. Recomputed by the
// engine whenever tracks are loaded or unloaded.
func (t *Timing) SetDurationFrames(frames int64) {
	t.durationFrames.Store(frames)
}

func (t *Timing) DurationFrames() int64 {
	return t.durationFrames.Load()
}

func (t *Timing) DurationMs() float64 {
	return t.SamplesToMs(t.DurationFrames())
}
