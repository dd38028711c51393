// SPDX-License-Identifier: EPL-2.0

package timeline

import "sync/atomic"

// State is the transport state machine's current mode.
type State int32

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Transport gates playback. Safe to drive from any goroutine; the render
// callback only ever loads the single atomic state scalar.
type Transport struct {
	state atomic.Int32
}

func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) Play() {
	t.state.Store(int32(StatePlaying))
}

// Pause transitions to paused only from playing or recording; from any
// other state it is a no-op.
func (t *Transport) Pause() {
	current := State(t.state.Load())
	if current == StatePlaying || current == StateRecording {
		t.state.Store(int32(StatePaused))
	}
}

// Stop is reachable from any state and always lands on stopped.
func (t *Transport) Stop() {
	t.state.Store(int32(StateStopped))
}

func (t *Transport) Record() {
	t.state.Store(int32(StateRecording))
}

func (t *Transport) State() State {
	return State(t.state.Load())
}

// IsPlaying reports whether audio should advance: playing or recording.
func (t *Transport) IsPlaying() bool {
	current := t.State()
	return current == StatePlaying || current == StateRecording
}
