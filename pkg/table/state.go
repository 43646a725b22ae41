package table

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Operation codes carried by negative StateTable cells. A cell is floored
// before dispatch, so -1.3 selects OpIncrement.
const (
	OpNoop       = -1
	OpIncrement  = -2
	OpDecrement  = -3
	OpSquare     = -4
	OpReciprocal = -5
	OpSqrt       = -6
	OpMark       = -7
	OpElapsed    = -8
)

// StateStore persists state scalars by key.
type StateStore interface {
	Load(key string) (v float64, ok bool, err error)
	Save(key string, v float64) error
}

// Clock returns high-resolution seconds since startup.
type Clock func() float64

var startup = time.Now()

// SinceStartup is the default Clock.
func SinceStartup() float64 {
	return time.Since(startup).Seconds()
}

// stateCell holds the scalar of a state table.
type stateCell interface {
	load() float64
	store(v float64)
}

type memoryCell struct {
	v float64
}

func (c *memoryCell) load() float64 {
	return c.v
}

func (c *memoryCell) store(v float64) {
	c.v = v
}

// durableCell mirrors the scalar in memory and writes through to a store
// only when it changes. Until the store has been read successfully nothing is
// written, so an unreadable store never has its value replaced by one derived
// from the zero start.
type durableCell struct {
	key     string
	v       float64
	loaded  bool
	backend StateStore
	logger  *zap.Logger
}

func (c *durableCell) load() float64 {
	return c.v
}

func (c *durableCell) store(v float64) {
	if !c.loaded {
		persisted, ok, err := c.backend.Load(c.key)
		if err != nil {
			c.v = v
			c.logger.Warn("state store unreadable, value not persisted",
				zap.String("table", c.key), zap.Float64("value", v), zap.Error(err))

			return
		}

		c.loaded = true

		if ok {
			c.logger.Warn("state store readable again, adopting persisted value",
				zap.String("table", c.key), zap.Float64("persisted", persisted), zap.Float64("discarded", v))
			c.v = persisted

			return
		}
	}

	if c.v == v || math.IsNaN(c.v) && math.IsNaN(v) {
		return
	}

	c.v = v

	if err := c.backend.Save(c.key, v); err != nil {
		c.logger.Warn("failed to persist state value",
			zap.String("table", c.key), zap.Float64("value", v), zap.Error(err))
	}
}

// StateTableOption configures a StateTable.
type StateTableOption func(*StateTable)

// WithClock overrides the clock used by OpMark and OpElapsed.
func WithClock(clock Clock) StateTableOption {
	return func(s *StateTable) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTableOptions forwards options to the underlying Table.
func WithTableOptions(opts ...Option) StateTableOption {
	return func(s *StateTable) {
		s.tableOpts = append(s.tableOpts, opts...)
	}
}

// StateTable interprets its interpolated cell as an instruction on one state
// scalar.
//
//	cell >= 0  state = cell, return cell
//	-1         no-op
//	-2         state = state + 1
//	-3         state = state - 1
//	-4         state = state * state
//	-5         state = 1 / state
//	-6         state = sqrt(state)
//	-7         state = seconds since startup
//	-8         return (seconds since startup) - state; state is not updated
//
// Every other negative code is a no-op. Except for -8 the state after the
// operation is returned. 1/0 and sqrt of a negative yield Inf and NaN.
type StateTable struct {
	*Table

	cell      stateCell
	clock     Clock
	tableOpts []Option
}

func newStateTable(name string, dimensions []*Dimension, data []float64, cell stateCell,
	opts []StateTableOption) (*StateTable, error) {
	s := &StateTable{cell: cell, clock: SinceStartup}
	for _, opt := range opts {
		opt(s)
	}

	t, err := New(name, dimensions, data, s.tableOpts...)
	if err != nil {
		return nil, err
	}

	s.Table = t

	return s, nil
}

// NewMemoryStateTable creates a state table whose scalar lives in process
// memory and starts at zero.
func NewMemoryStateTable(name string, dimensions []*Dimension, data []float64,
	opts ...StateTableOption) (*StateTable, error) {
	return newStateTable(name, dimensions, data, &memoryCell{}, opts)
}

// NewDurableStateTable creates a state table whose scalar is persisted in
// store under name. The initial value is read from the store (zero when
// absent). Writes happen only when the value changes; failures are logged
// and the in-memory value is kept. When the initial read fails the table runs
// from zero without writing, retrying the read on every change; the first
// successful read replaces the in-memory value with the persisted one.
func NewDurableStateTable(name string, dimensions []*Dimension, data []float64, store StateStore,
	logger *zap.Logger, opts ...StateTableOption) (*StateTable, error) {
	if store == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNilStore)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	initial, _, err := store.Load(name)
	if err != nil {
		logger.Warn("failed to load state value, starting at zero", zap.String("table", name), zap.Error(err))

		initial = 0
	}

	cell := &durableCell{key: name, v: initial, loaded: err == nil, backend: store, logger: logger}

	return newStateTable(name, dimensions, data, cell, opts)
}

// Value returns the current state scalar.
func (s *StateTable) Value() float64 {
	return s.cell.load()
}

// IsStatic is false: the output depends on mutable state.
func (s *StateTable) IsStatic() bool {
	return false
}

// Get evaluates at the current dimension sources and commits the new state.
func (s *StateTable) Get() float64 {
	return s.apply(s.read(), true)
}

// Preview evaluates at the current dimension sources without committing.
func (s *StateTable) Preview() float64 {
	return s.apply(s.read(), false)
}

// Integrate evaluates at coordinates and commits the new state.
func (s *StateTable) Integrate(coordinates []float64) (float64, error) {
	if len(coordinates) != len(s.dimensions) {
		return 0, fmt.Errorf("%s: %w: got %d, want %d", s.name, ErrCoordinateCount, len(coordinates), len(s.dimensions))
	}

	return s.apply(coordinates, true), nil
}

// IntegrateStateless evaluates at coordinates like Integrate but never
// writes the state back.
func (s *StateTable) IntegrateStateless(coordinates []float64) (float64, error) {
	if len(coordinates) != len(s.dimensions) {
		return 0, fmt.Errorf("%s: %w: got %d, want %d", s.name, ErrCoordinateCount, len(coordinates), len(s.dimensions))
	}

	return s.apply(coordinates, false), nil
}

func (s *StateTable) apply(coordinates []float64, commit bool) float64 {
	cell := s.Table.integrate(coordinates)
	v := s.cell.load()

	set := func(next float64) float64 {
		if commit {
			s.cell.store(next)
		}

		return next
	}

	if cell >= 0 {
		return set(cell)
	}

	switch math.Floor(cell) {
	case OpIncrement:
		return set(v + 1)
	case OpDecrement:
		return set(v - 1)
	case OpSquare:
		return set(v * v)
	case OpReciprocal:
		return set(1 / v)
	case OpSqrt:
		return set(math.Sqrt(v))
	case OpMark:
		return set(s.clock())
	case OpElapsed:
		return s.clock() - v
	default:
		return v
	}
}
