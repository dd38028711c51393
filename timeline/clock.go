// SPDX-License-Identifier: EPL-2.0

package timeline

import "sync/atomic"

// Clock tracks the shared timeline position in frames. All tracks sync
// against this single scalar, so every access is one atomic operation and
// the render callback can advance it without locking.
type Clock struct {
	position atomic.Int64
}

func NewClock() *Clock {
	return &Clock{}
}

// Advance adds frames to the position. Called from the render path.
func (c *Clock) Advance(frames int64) {
	c.position.Add(frames)
}

// Position returns the current position in frames.
func (c *Clock) Position() int64 {
	return c.position.Load()
}

// SetPosition overwrites the position (seek).
func (c *Clock) SetPosition(position int64) {
	c.position.Store(position)
}

// Reset rewinds the clock to zero.
func (c *Clock) Reset() {
	c.position.Store(0)
}
