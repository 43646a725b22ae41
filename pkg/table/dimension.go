package table

import (
	"fmt"

	"github.com/atlas-tuning/arduino/pkg/value"
)

// Dimension is one axis of a table: a non-decreasing anchor sequence, the
// value that supplies the coordinate, and the integration used to blend along
// the axis.
//
// The reestimate search caches the low index of the last bracket it found.
// That cache is plain single-writer state; a Dimension must not be searched
// from two goroutines at once.
type Dimension struct {
	source      value.Value
	integration Integration
	anchors     []float64

	lastLookup int
}

// NewDimension creates a Dimension. The anchors slice is copied.
func NewDimension(source value.Value, integration Integration, anchors []float64) (*Dimension, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	if len(anchors) == 0 {
		return nil, ErrEmptyAnchors
	}

	d := &Dimension{
		source:      source,
		integration: integration,
		anchors:     append([]float64(nil), anchors...),
	}
	d.lastLookup = (len(d.anchors) - 1) / 2

	return d, nil
}

// MustDimension is NewDimension for static configuration that is known to be
// valid; it panics on error.
func MustDimension(source value.Value, integration Integration, anchors ...float64) *Dimension {
	d, err := NewDimension(source, integration, anchors)
	if err != nil {
		panic(fmt.Sprintf("table: invalid dimension: %v", err))
	}

	return d
}

// Source returns the coordinate source.
func (d *Dimension) Source() value.Value {
	return d.source
}

// Integration returns the blend used along this axis.
func (d *Dimension) Integration() Integration {
	return d.integration
}

// Anchors returns the anchor values. The slice must not be modified.
func (d *Dimension) Anchors() []float64 {
	return d.anchors
}

// Size returns the anchor count.
func (d *Dimension) Size() int {
	return len(d.anchors)
}

// LastLookup returns the cached low index of the last reestimate search.
func (d *Dimension) LastLookup() int {
	return d.lastLookup
}

// Find returns the anchor indices bracketing coordinate using strategy.
// low == high only at or beyond the ends of the axis, on an exact anchor hit
// (for some strategies), or for a single-anchor axis. Both indices are always
// within [0, Size()-1].
func (d *Dimension) Find(coordinate float64, strategy Search) (low, high int) {
	switch strategy {
	case SearchLinear:
		low, high = findLinear(d.anchors, coordinate)
	case SearchEstimate:
		low, high = findEstimate(d.anchors, coordinate)
	default:
		low, high = d.findReestimate(coordinate)
	}

	return d.clamp(low), d.clamp(high)
}

// gradient returns the fractional position of coordinate between the anchors
// at low and high. Degenerate brackets yield exactly 1.
func (d *Dimension) gradient(coordinate float64, low, high int) float64 {
	if low == high {
		return 1
	}

	lowValue, highValue := d.anchors[low], d.anchors[high]
	if lowValue == highValue {
		return 1
	}

	return (coordinate - lowValue) / (highValue - lowValue)
}

// nearest returns the index of the anchor closest to coordinate, preferring
// the higher index on a tie.
func (d *Dimension) nearest(coordinate float64, strategy Search) int {
	low, high := d.Find(coordinate, strategy)
	if low == high {
		return low
	}

	if coordinate-d.anchors[low] < d.anchors[high]-coordinate {
		return low
	}

	return high
}

func (d *Dimension) clamp(index int) int {
	last := len(d.anchors) - 1

	switch {
	case index < 0:
		return 0
	case index > last:
		return last
	default:
		return index
	}
}
