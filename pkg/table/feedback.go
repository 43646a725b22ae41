package table

import (
	"fmt"

	"github.com/atlas-tuning/arduino/pkg/value"
)

// FeedbackTable multiplies a base table by a per-cell correction learned from
// the error between a real and a target value.
//
// Every evaluation adds (target-real)/target to the accumulator of the cell
// nearest the current coordinates. Once that cell has seen window samples the
// accumulator's average is folded into the correction table and subtracted
// from the accumulator. The sample count is not reset after the first fold,
// so from then on every evaluation of the cell folds again; this behaves like
// exponential smoothing of the error with weight 1/window.
//
// A zero target makes the error ratio NaN or Inf; it is not guarded and
// propagates into the correction and the output.
type FeedbackTable struct {
	*Table

	real       value.Value
	target     value.Value
	correction *Table

	accumulator []float64
	samples     []int
	window      int
}

// NewFeedbackTable creates a feedback table. data is the base table, seed the
// initial correction over the same shape. The accumulator starts at seed and
// every cell's sample count at one.
func NewFeedbackTable(name string, dimensions []*Dimension, data []float64,
	real, target value.Value, seed []float64, window int, opts ...Option) (*FeedbackTable, error) {
	if real == nil || target == nil {
		return nil, fmt.Errorf("%s: real/target: %w", name, ErrNilValue)
	}

	if window <= 0 {
		return nil, fmt.Errorf("%s: %w: %d", name, ErrInvalidWindow, window)
	}

	base, err := New(name, dimensions, data, opts...)
	if err != nil {
		return nil, err
	}

	if len(seed) != base.Len() {
		return nil, fmt.Errorf("%s: %w: got %d cells, want %d", name, ErrSeedLength, len(seed), base.Len())
	}

	correction, err := New(name+"_correction", dimensions, seed, opts...)
	if err != nil {
		return nil, err
	}

	samples := make([]int, len(seed))
	for i := range samples {
		samples[i] = 1
	}

	return &FeedbackTable{
		Table:       base,
		real:        real,
		target:      target,
		correction:  correction,
		accumulator: append([]float64(nil), seed...),
		samples:     samples,
		window:      window,
	}, nil
}

// Correction returns the learned correction table.
func (f *FeedbackTable) Correction() *Table {
	return f.correction
}

// Window returns the averaging window.
func (f *FeedbackTable) Window() int {
	return f.window
}

// Accumulated returns the error accumulator of cell i.
func (f *FeedbackTable) Accumulated(i int) (float64, error) {
	if i < 0 || i >= len(f.accumulator) {
		return 0, fmt.Errorf("%s: %w: %d", f.name, ErrIndexOutOfRange, i)
	}

	return f.accumulator[i], nil
}

// Samples returns the sample count of cell i.
func (f *FeedbackTable) Samples(i int) (int, error) {
	if i < 0 || i >= len(f.samples) {
		return 0, fmt.Errorf("%s: %w: %d", f.name, ErrIndexOutOfRange, i)
	}

	return f.samples[i], nil
}

// IsStatic is false: the output changes as corrections are learned.
func (f *FeedbackTable) IsStatic() bool {
	return false
}

// Get reads the dimension sources, learns from the current error and returns
// the corrected output.
func (f *FeedbackTable) Get() float64 {
	return f.integrate(f.read())
}

// Preview returns the corrected output at the current dimension sources
// without learning from the error.
func (f *FeedbackTable) Preview() float64 {
	coordinates := f.read()

	return f.Table.integrate(coordinates) * f.correction.integrate(coordinates)
}

// Integrate is Get at explicit coordinates.
func (f *FeedbackTable) Integrate(coordinates []float64) (float64, error) {
	if len(coordinates) != len(f.dimensions) {
		return 0, fmt.Errorf("%s: %w: got %d, want %d", f.name, ErrCoordinateCount, len(coordinates), len(f.dimensions))
	}

	return f.integrate(coordinates), nil
}

func (f *FeedbackTable) integrate(coordinates []float64) float64 {
	actual := f.real.Get()
	target := f.target.Get()

	output := f.Table.integrate(coordinates)
	ratio := (target - actual) / target

	offset := f.nearestOffset(coordinates)
	f.accumulator[offset] += ratio

	if f.samples[offset] >= f.window {
		average := f.accumulator[offset] / float64(f.samples[offset])
		f.accumulator[offset] -= average
		f.correction.data[offset] = average
	} else {
		f.samples[offset]++
	}

	return output * f.correction.integrate(coordinates)
}
