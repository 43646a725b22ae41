// Package counter implements a bounded running-window average with O(1)
// memory and update cost.
//
// No sample history is kept. Until the window fills, Counter is an exact
// arithmetic mean. Once full, each new sample first removes one average-sized
// contribution from the running sum and then adds itself, which behaves like
// an exponential moving average with weight 1/window. The result always stays
// inside the range of the samples seen.
package counter

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned for a window size below one.
var ErrInvalidWindow = errors.New("counter: window must be > 0")

// Counter is a running-window average. It is not safe for concurrent use.
type Counter struct {
	window int
	count  int
	sum    float64
}

// New creates a Counter averaging over window samples.
func New(window int) (*Counter, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}

	return &Counter{window: window}, nil
}

// Increment adds a sample.
func (c *Counter) Increment(v float64) {
	if c.count >= c.window {
		c.sum -= c.Avg()
		c.sum += v

		return
	}

	c.sum += v
	c.count++
}

// Clear drops every sample.
func (c *Counter) Clear() {
	c.sum = 0
	c.count = 0
}

// Avg returns the current average, or 0 when empty.
func (c *Counter) Avg() float64 {
	if c.count <= 0 {
		return 0
	}

	return c.sum / float64(c.count)
}

// Sum returns the running sum.
func (c *Counter) Sum() float64 {
	return c.sum
}

// Size returns the number of samples in the window, capped at Window.
func (c *Counter) Size() int {
	return c.count
}

// Window returns the configured window size.
func (c *Counter) Window() int {
	return c.window
}
