// Package pulse measures the frequency of an edge-triggered input, such as a
// crank or wheel-speed sensor, from the periods between pulses.
package pulse

import (
	"sync"
	"time"

	"github.com/atlas-tuning/arduino/pkg/counter"
)

// FrequencySuffix is appended to the input name to name its frequency value.
const FrequencySuffix = "_freq"

// Option configures an Input.
type Option func(*Input)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(in *Input) {
		if now != nil {
			in.now = now
		}
	}
}

// Input averages pulse periods over a window. HandlePulse may be called from
// a different goroutine than the readers.
type Input struct {
	name string
	now  func() time.Time

	mu        sync.Mutex
	periods   *counter.Counter
	lastPulse time.Time
	armed     bool
}

// New creates an input averaging the last window periods.
func New(name string, window int, opts ...Option) (*Input, error) {
	periods, err := counter.New(window)
	if err != nil {
		return nil, err
	}

	in := &Input{
		name:    name,
		now:     time.Now,
		periods: periods,
	}

	for _, opt := range opts {
		opt(in)
	}

	return in, nil
}

// Name returns the input name.
func (in *Input) Name() string {
	return in.name
}

// HandlePulse records one edge. The first edge only arms the input.
func (in *Input) HandlePulse() {
	now := in.now()

	in.mu.Lock()
	defer in.mu.Unlock()

	if in.armed {
		in.periods.Increment(now.Sub(in.lastPulse).Seconds())
	}

	in.lastPulse = now
	in.armed = true
}

// Frequency returns pulses per second. It is zero before two pulses have been
// seen and once the input has been silent for a whole window's worth of
// average periods.
func (in *Input) Frequency() float64 {
	now := in.now()

	in.mu.Lock()
	defer in.mu.Unlock()

	avg := in.periods.Avg()
	if avg == 0 {
		return 0
	}

	if now.Sub(in.lastPulse).Seconds() >= float64(in.periods.Size())*avg {
		return 0
	}

	return 1 / avg
}

// Count returns the number of periods in the window.
func (in *Input) Count() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.periods.Size()
}

// Reset forgets every period and disarms the input.
func (in *Input) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.periods.Clear()
	in.armed = false
}

// FrequencyValue exposes Frequency as a Value for table dimensions.
func (in *Input) FrequencyValue() *Frequency {
	return &Frequency{input: in}
}

// Frequency is the Value view of an Input.
type Frequency struct {
	input *Input
}

// Name is the input name with FrequencySuffix.
func (f *Frequency) Name() string {
	return f.input.name + FrequencySuffix
}

// Get returns the input frequency in Hz.
func (f *Frequency) Get() float64 {
	return f.input.Frequency()
}

// IsStatic is false: pulses arrive outside the control loop.
func (f *Frequency) IsStatic() bool {
	return false
}
