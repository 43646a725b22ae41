package table

import (
	"fmt"
)

// Option configures a table at construction.
type Option func(*options)

type options struct {
	search Search
}

// WithSearch selects the breakpoint search strategy (default SearchReestimate).
func WithSearch(s Search) Option {
	return func(o *options) {
		o.search = s
	}
}

func applyOptions(opts []Option) options {
	o := options{search: SearchReestimate}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Table is an N-dimensional breakpoint table. It implements value.Value.
//
// Evaluation reuses scratch buffers held by the table, so a Table must only
// be evaluated from one goroutine at a time.
type Table struct {
	name       string
	dimensions []*Dimension
	data       []float64
	strides    []int
	search     Search

	coordinates []float64
	lows        []int
	highs       []int
	gradients   []float64
	corners     []float64
}

// New creates a table over dimensions with a flat data buffer in mixed-radix
// order (dimension 0 fastest). The data slice is copied.
func New(name string, dimensions []*Dimension, data []float64, opts ...Option) (*Table, error) {
	if len(dimensions) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoDimensions)
	}

	strides := make([]int, len(dimensions))
	size := 1

	for i, d := range dimensions {
		if d == nil || d.Size() == 0 {
			return nil, fmt.Errorf("%s: dimension %d: %w", name, i, ErrEmptyAnchors)
		}

		strides[i] = size
		size *= d.Size()
	}

	if len(data) != size {
		return nil, fmt.Errorf("%s: %w: got %d cells, want %d", name, ErrDataLength, len(data), size)
	}

	o := applyOptions(opts)
	n := len(dimensions)

	return &Table{
		name:        name,
		dimensions:  append([]*Dimension(nil), dimensions...),
		data:        append([]float64(nil), data...),
		strides:     strides,
		search:      o.search,
		coordinates: make([]float64, n),
		lows:        make([]int, n),
		highs:       make([]int, n),
		gradients:   make([]float64, n),
		corners:     make([]float64, 1<<n),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Search returns the configured search strategy.
func (t *Table) Search() Search {
	return t.search
}

// NumDimensions returns N.
func (t *Table) NumDimensions() int {
	return len(t.dimensions)
}

// Dimension returns dimension i.
func (t *Table) Dimension(i int) *Dimension {
	return t.dimensions[i]
}

// Dimensions returns the dimensions. The slice must not be modified.
func (t *Table) Dimensions() []*Dimension {
	return t.dimensions
}

// Shape returns the anchor count of every dimension.
func (t *Table) Shape() []int {
	shape := make([]int, len(t.dimensions))
	for i, d := range t.dimensions {
		shape[i] = d.Size()
	}

	return shape
}

// Len returns the number of cells.
func (t *Table) Len() int {
	return len(t.data)
}

// IsStatic reports whether every dimension source is static.
func (t *Table) IsStatic() bool {
	for _, d := range t.dimensions {
		if !d.Source().IsStatic() {
			return false
		}
	}

	return true
}

// Data returns the cell at flat offset i.
func (t *Table) Data(i int) (float64, error) {
	if i < 0 || i >= len(t.data) {
		return 0, fmt.Errorf("%s: %w: %d", t.name, ErrIndexOutOfRange, i)
	}

	return t.data[i], nil
}

// SetData stores v at flat offset i and returns the previous value.
func (t *Table) SetData(i int, v float64) (float64, error) {
	if i < 0 || i >= len(t.data) {
		return 0, fmt.Errorf("%s: %w: %d", t.name, ErrIndexOutOfRange, i)
	}

	old := t.data[i]
	t.data[i] = v

	return old, nil
}

// Cells returns a copy of the flat data buffer.
func (t *Table) Cells() []float64 {
	return append([]float64(nil), t.data...)
}

// Offset converts per-dimension indices into a flat offset.
func (t *Table) Offset(indices []int) (int, error) {
	if len(indices) != len(t.dimensions) {
		return 0, fmt.Errorf("%s: %w: got %d, want %d", t.name, ErrCoordinateCount, len(indices), len(t.dimensions))
	}

	for i, index := range indices {
		if index < 0 || index >= t.dimensions[i].Size() {
			return 0, fmt.Errorf("%s: %w: dimension %d index %d", t.name, ErrIndexOutOfRange, i, index)
		}
	}

	return t.offset(indices), nil
}

func (t *Table) offset(indices []int) int {
	offset := 0
	for i, index := range indices {
		offset += index * t.strides[i]
	}

	return offset
}

// Index snaps coordinates to the nearest anchor on every dimension.
func (t *Table) Index(coordinates []float64) ([]int, error) {
	if len(coordinates) != len(t.dimensions) {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", t.name, ErrCoordinateCount, len(coordinates), len(t.dimensions))
	}

	return t.index(coordinates), nil
}

func (t *Table) index(coordinates []float64) []int {
	indices := make([]int, len(t.dimensions))
	for i, d := range t.dimensions {
		indices[i] = d.nearest(coordinates[i], t.search)
	}

	return indices
}

// nearestOffset is the flat offset of the cell nearest to coordinates.
func (t *Table) nearestOffset(coordinates []float64) int {
	offset := 0
	for i, d := range t.dimensions {
		offset += d.nearest(coordinates[i], t.search) * t.strides[i]
	}

	return offset
}

// Coordinates reads every dimension source once.
func (t *Table) Coordinates() []float64 {
	return append([]float64(nil), t.read()...)
}

func (t *Table) read() []float64 {
	for i, d := range t.dimensions {
		t.coordinates[i] = d.Source().Get()
	}

	return t.coordinates
}

// Get reads the dimension sources and interpolates. This is the per-cycle
// entry point.
func (t *Table) Get() float64 {
	return t.integrate(t.read())
}

// Integrate interpolates the table at coordinates, one per dimension.
func (t *Table) Integrate(coordinates []float64) (float64, error) {
	if len(coordinates) != len(t.dimensions) {
		return 0, fmt.Errorf("%s: %w: got %d, want %d", t.name, ErrCoordinateCount, len(coordinates), len(t.dimensions))
	}

	return t.integrate(coordinates), nil
}

func (t *Table) integrate(coordinates []float64) float64 {
	for i, d := range t.dimensions {
		low, high := d.Find(coordinates[i], t.search)
		t.lows[i] = low
		t.highs[i] = high
		t.gradients[i] = d.gradient(coordinates[i], low, high)
	}

	t.fill()

	return t.reduce()
}

// fill gathers the 2^N corner cells. Bit d of a corner number selects the
// high index on dimension d.
func (t *Table) fill() {
	for corner := range t.corners {
		offset := 0

		for d := range t.dimensions {
			index := t.lows[d]
			if corner&(1<<d) != 0 {
				index = t.highs[d]
			}

			offset += index * t.strides[d]
		}

		t.corners[corner] = t.data[offset]
	}
}

// reduce collapses the corners in place: pairs (2k, 2k+1) blend along
// dimension 0, the halves along dimension 1, and so on.
func (t *Table) reduce() float64 {
	n := len(t.corners)

	for d := 0; n > 1; d++ {
		integration := t.dimensions[d].integration
		gradient := t.gradients[d]

		for k := 0; k < n/2; k++ {
			a, b := t.corners[2*k], t.corners[2*k+1]
			if a == b {
				t.corners[k] = a

				continue
			}

			t.corners[k] = integration.Blend(a, b, gradient)
		}

		n /= 2
	}

	return t.corners[0]
}
