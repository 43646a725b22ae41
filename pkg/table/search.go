package table

import (
	"fmt"
	"strings"
)

// Search selects the breakpoint search strategy of a table.
type Search int

const (
	// SearchReestimate is a stateful weighted bisection seeded from the
	// previous lookup.
	SearchReestimate Search = iota

	// SearchEstimate projects a start index and walks to the bracket.
	SearchEstimate

	// SearchLinear scans from the first anchor.
	SearchLinear
)

// ParseSearch maps a configuration name to a Search.
func ParseSearch(name string) (Search, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reestimate":
		return SearchReestimate, nil
	case "estimate":
		return SearchEstimate, nil
	case "linear":
		return SearchLinear, nil
	default:
		return 0, fmt.Errorf("table: unknown search strategy %q", name)
	}
}

// String returns the configuration name.
func (s Search) String() string {
	switch s {
	case SearchEstimate:
		return "estimate"
	case SearchLinear:
		return "linear"
	default:
		return "reestimate"
	}
}

// findLinear scans anchors from index 0. The first anchor above coordinate
// closes the bracket; an exact hit returns that index twice.
func findLinear(anchors []float64, coordinate float64) (low, high int) {
	for index, anchor := range anchors {
		if anchor <= coordinate {
			low, high = index, index
		}

		if anchor == coordinate {
			break
		}

		if anchor > coordinate {
			return index - 1, index
		}
	}

	return low, high
}

// findEstimate clamps out-of-range coordinates to the ends, projects a start
// index from the coordinate's position between the first and last anchors
// and walks one interval at a time toward the bracket.
func findEstimate(anchors []float64, coordinate float64) (low, high int) {
	last := len(anchors) - 1
	if last == 0 {
		return 0, 0
	}

	first, final := anchors[0], anchors[last]

	switch {
	case coordinate <= first || coordinate != coordinate:
		return 0, 0
	case coordinate >= final:
		return last, last
	}

	gradient := (coordinate - first) / (final - first)

	index := int(gradient * float64(last))
	if index > last-1 {
		index = last - 1
	}

	if index < 0 {
		index = 0
	}

	// Bounded by the interval count; sorted anchors bracket well before that.
	for step := 0; step < last; step++ {
		switch {
		case anchors[index] > coordinate && index > 0:
			index--
		case anchors[index+1] < coordinate && index < last-1:
			index++
		default:
			return index, index + 1
		}
	}

	return index, index + 1
}

// findReestimate narrows [low, high] with gradient-weighted probes until the
// bounds are adjacent. The first probe is the interval found by the previous
// call; an exact anchor hit short-circuits. The resulting low index is cached.
func (d *Dimension) findReestimate(coordinate float64) (low, high int) {
	anchors := d.anchors

	last := len(anchors) - 1
	if last == 0 {
		return 0, 0
	}

	switch {
	case coordinate <= anchors[0] || coordinate != coordinate:
		return 0, 0
	case coordinate >= anchors[last]:
		return last, last
	}

	// Invariant: anchors[low] < coordinate < anchors[high].
	low, high = 0, last
	probe := d.lastLookup
	neighbour := true

	for high-low > 1 {
		if probe <= low || probe >= high {
			span := anchors[high] - anchors[low]
			probe = low + int((coordinate-anchors[low])/span*float64(high-low))
		}

		if probe <= low {
			probe = low + 1
		} else if probe >= high {
			probe = high - 1
		}

		anchor := anchors[probe]

		switch {
		case anchor == coordinate:
			d.lastLookup = probe

			return probe, probe
		case anchor < coordinate:
			low = probe
		default:
			high = probe
		}

		probe = -1

		// The cached interval usually still brackets, so the anchor next to
		// the first probe is tried before falling back to weighted probes.
		if neighbour {
			neighbour = false

			if anchor < coordinate {
				probe = low + 1
			} else {
				probe = high - 1
			}
		}
	}

	d.lastLookup = low

	return low, high
}
