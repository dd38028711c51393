// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"sync"
)

// MockCapture simulates a live input device fed from a MockSource. Reads
// block-free: once the underlying source is exhausted or the capture is
// stopped, ReadSamples reports io.EOF.
type MockCapture struct {
	src *MockSource

	mu      sync.Mutex
	running bool
	level   float64
}

func NewMockCapture(src *MockSource) *MockCapture {
	return &MockCapture{src: src}
}

func (c *MockCapture) Start() error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	return nil
}

func (c *MockCapture) Stop() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

func (c *MockCapture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MockCapture) InputLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

func (c *MockCapture) SampleRate() int { return c.src.SampleRate() }
func (c *MockCapture) Channels() int   { return c.src.Channels() }

func (c *MockCapture) ReadSamples(dst []float32) (int, error) {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return 0, io.EOF
	}

	n, err := c.src.ReadSamples(dst)

	var peak float64
	for _, s := range dst[:n] {
		if v := float64(s); v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	c.mu.Lock()
	c.level = peak
	c.mu.Unlock()
	return n, err
}
