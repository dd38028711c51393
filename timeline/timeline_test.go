// SPDX-License-Identifier: EPL-2.0

package timeline

import (
	"math"
	"testing"
)

func TestClock_Advance(t *testing.T) {
	t.Parallel()

	c := NewClock()
	c.Advance(480)
	c.Advance(960)

	if got := c.Position(); got != 1440 {
		t.Errorf("Position() = %d, want 1440", got)
	}
}

func TestClock_SetPosition(t *testing.T) {
	t.Parallel()

	c := NewClock()
	c.Advance(1000)
	c.SetPosition(250)

	if got := c.Position(); got != 250 {
		t.Errorf("Position() = %d, want 250", got)
	}
}

func TestClock_Reset(t *testing.T) {
	t.Parallel()

	c := NewClock()
	c.Advance(48000)
	c.Reset()

	if got := c.Position(); got != 0 {
		t.Errorf("Position() = %d, want 0", got)
	}
}

func TestTransport_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ops  func(tr *Transport)
		want State
	}{
		{"initial", func(tr *Transport) {}, StateStopped},
		{"play", func(tr *Transport) { tr.Play() }, StatePlaying},
		{"pause from stopped is no-op", func(tr *Transport) { tr.Pause() }, StateStopped},
		{"play pause", func(tr *Transport) { tr.Play(); tr.Pause() }, StatePaused},
		{"play pause play", func(tr *Transport) { tr.Play(); tr.Pause(); tr.Play() }, StatePlaying},
		{"pause from paused stays paused", func(tr *Transport) { tr.Play(); tr.Pause(); tr.Pause() }, StatePaused},
		{"stop from playing", func(tr *Transport) { tr.Play(); tr.Stop() }, StateStopped},
		{"stop from paused", func(tr *Transport) { tr.Play(); tr.Pause(); tr.Stop() }, StateStopped},
		{"record", func(tr *Transport) { tr.Record() }, StateRecording},
		{"pause from recording", func(tr *Transport) { tr.Record(); tr.Pause() }, StatePaused},
		{"stop from recording", func(tr *Transport) { tr.Record(); tr.Stop() }, StateStopped},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := NewTransport()
			tt.ops(tr)
			if got := tr.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransport_IsPlaying(t *testing.T) {
	t.Parallel()

	tr := NewTransport()
	if tr.IsPlaying() {
		t.Error("IsPlaying() = true on a fresh transport")
	}

	tr.Play()
	if !tr.IsPlaying() {
		t.Error("IsPlaying() = false after Play()")
	}

	tr.Record()
	if !tr.IsPlaying() {
		t.Error("IsPlaying() = false while recording")
	}

	tr.Pause()
	if tr.IsPlaying() {
		t.Error("IsPlaying() = true while paused")
	}
}

func TestTiming_RoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTiming(48000)

	for _, frames := range []int64{0, 1, 479, 480, 48000, 123456789} {
		ms := tm.SamplesToMs(frames)
		back := tm.MsToSamples(ms)
		if diff := back - frames; diff < -1 || diff > 1 {
			t.Errorf("MsToSamples(SamplesToMs(%d)) = %d, want within one sample", frames, back)
		}
	}
}

func TestTiming_Conversions(t *testing.T) {
	t.Parallel()

	tm := NewTiming(48000)

	if got := tm.SamplesToMs(48000); math.Abs(got-1000) > 1e-9 {
		t.Errorf("SamplesToMs(48000) = %v, want 1000", got)
	}
	if got := tm.MsToSamples(250); got != 12000 {
		t.Errorf("MsToSamples(250) = %d, want 12000", got)
	}
}

func TestTiming_Duration(t *testing.T) {
	t.Parallel()

	tm := NewTiming(44100)
	tm.SetDurationFrames(44100)

	if got := tm.DurationFrames(); got != 44100 {
		t.Errorf("DurationFrames() = %d, want 44100", got)
	}
	if got := tm.DurationMs(); math.Abs(got-1000) > 1e-9 {
		t.Errorf("DurationMs() = %v, want 1000", got)
	}
}
