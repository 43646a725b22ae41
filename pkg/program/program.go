// Package program assembles values, pulse inputs and tables from a program
// definition and runs them one control cycle at a time.
//
// Tables that read other tables are evaluated after them. Each table's output
// is latched once per cycle and downstream tables read the latched value, so
// a feedback or state table learns or commits exactly once per cycle no
// matter how many tables consume it.
package program

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/atlas-tuning/arduino/pkg/profiler"
	"github.com/atlas-tuning/arduino/pkg/pulse"
	"github.com/atlas-tuning/arduino/pkg/reader"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option configures Build.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	store     table.StateStore
	search    *table.Search
	profiler  *profiler.Profiler
	baseDir   string
	image     io.ReadSeeker
	clock     table.Clock
	pulseOpts []pulse.Option
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStateStore backs persistent state tables.
func WithStateStore(store table.StateStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithSearch forces one search strategy on every table.
func WithSearch(s table.Search) Option {
	return func(o *options) {
		o.search = &s
	}
}

// WithProfiler records cycle timings into p instead of a private root.
func WithProfiler(p *profiler.Profiler) Option {
	return func(o *options) {
		o.profiler = p
	}
}

// WithBaseDir resolves a relative image path against dir.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// WithImage supplies the calibration image directly.
func WithImage(r io.ReadSeeker) Option {
	return func(o *options) {
		o.image = r
	}
}

// WithClock sets the clock of every state table.
func WithClock(clock table.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithPulseOptions is passed to every pulse input.
func WithPulseOptions(opts ...pulse.Option) Option {
	return func(o *options) {
		o.pulseOpts = append(o.pulseOpts, opts...)
	}
}

// Result is the output of one table in one cycle.
type Result struct {
	Table string  `json:"table"`
	Value float64 `json:"value"`
}

// Program is a built program. It is not safe for concurrent use except for
// Set and Pulse, which only touch atomic values and locked inputs.
type Program struct {
	name      string
	logger    *zap.Logger
	profiler  *profiler.Profiler
	values    map[string]value.Value
	variables map[string]*value.Variable
	inputs    map[string]*pulse.Input
	nodes     map[string]*Node
	order     []*Node
	cycles    int64
}

// Build validates cfg and constructs every value, input and table.
func Build(cfg *models.ProgramConfig, opts ...Option) (*Program, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if o.profiler == nil {
		o.profiler = profiler.New("main")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	image, closeImage, err := openImage(cfg, &o)
	if err != nil {
		return nil, err
	}
	defer closeImage()

	p := &Program{
		name:      cfg.Name,
		logger:    o.logger.With(zap.String("program", cfg.Name)),
		profiler:  o.profiler,
		values:    make(map[string]value.Value),
		variables: make(map[string]*value.Variable),
		inputs:    make(map[string]*pulse.Input),
		nodes:     make(map[string]*Node),
	}

	if err := p.buildValues(cfg, image); err != nil {
		return nil, err
	}

	if err := p.buildInputs(cfg, &o); err != nil {
		return nil, err
	}

	// Every table output is addressable before any table is built.
	for _, t := range cfg.Tables {
		n := &Node{config: t}
		n.output = &latch{node: n}
		p.values[t.Name] = n.output
		p.nodes[t.Name] = n
	}

	if err := p.checkSources(cfg); err != nil {
		return nil, err
	}

	order, err := evaluationOrder(cfg.Tables)
	if err != nil {
		return nil, err
	}

	programSearch, err := table.ParseSearch(cfg.Search)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(cfg.Tables))
	for _, t := range cfg.Tables {
		names[t.Name] = true
	}

	for _, i := range order {
		t := &cfg.Tables[i]
		n := p.nodes[t.Name]
		n.deps = tableDependencies(t, names)

		if err := p.buildTable(n, programSearch, image, &o); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}

		p.order = append(p.order, n)
	}

	return p, nil
}

func openImage(cfg *models.ProgramConfig, o *options) (io.ReadSeeker, func(), error) {
	if o.image != nil || cfg.Image == "" {
		return o.image, func() {}, nil
	}

	path := cfg.Image
	if !filepath.IsAbs(path) && o.baseDir != "" {
		path = filepath.Join(o.baseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}

	return f, func() { f.Close() }, nil
}

func readImage(image io.ReadSeeker, cell *models.CellConfig, n int) ([]float64, error) {
	if image == nil {
		return nil, ErrNoImage
	}

	return reader.ReadCells(image, *cell, n)
}

func (p *Program) buildValues(cfg *models.ProgramConfig, image io.ReadSeeker) error {
	var err error

	for _, vc := range cfg.Values {
		initial := float64(vc.Value)

		if vc.Image != nil {
			cells, rerr := readImage(image, vc.Image, 1)
			if rerr != nil {
				err = multierr.Append(err, fmt.Errorf("value %s: %w", vc.Name, rerr))

				continue
			}

			initial = cells[0]
		}

		if vc.Kind == models.ValueKindVariable {
			v := value.NewVariable(initial)
			p.variables[vc.Name] = v
			p.values[vc.Name] = v
		} else {
			p.values[vc.Name] = value.Constant(initial)
		}
	}

	return err
}

func (p *Program) buildInputs(cfg *models.ProgramConfig, o *options) error {
	for _, ic := range cfg.Inputs {
		in, err := pulse.New(ic.Name, ic.Window, o.pulseOpts...)
		if err != nil {
			return fmt.Errorf("input %s: %w", ic.Name, err)
		}

		freq := in.FrequencyValue()
		p.inputs[ic.Name] = in
		p.values[freq.Name()] = freq
	}

	return nil
}

func (p *Program) checkSources(cfg *models.ProgramConfig) error {
	var err error

	check := func(owner, source string) {
		if _, ok := p.values[source]; !ok {
			err = multierr.Append(err, fmt.Errorf("%w: table %s reads %q", ErrUnknownSource, owner, source))
		}
	}

	for _, t := range cfg.Tables {
		for _, d := range t.Dimensions {
			check(t.Name, d.Source)
		}

		if t.Feedback != nil {
			check(t.Name, t.Feedback.Real)
			check(t.Name, t.Feedback.Target)
		}
	}

	return err
}

func (p *Program) buildTable(n *Node, programSearch table.Search, image io.ReadSeeker, o *options) error {
	cfg := &n.config

	search := programSearch
	if cfg.Search != "" {
		s, err := table.ParseSearch(cfg.Search)
		if err != nil {
			return err
		}

		search = s
	}

	if o.search != nil {
		search = *o.search
	}

	dims := make([]*table.Dimension, len(cfg.Dimensions))

	for i, dc := range cfg.Dimensions {
		integration, err := table.ParseIntegration(dc.Integration)
		if err != nil {
			return err
		}

		d, err := table.NewDimension(p.values[dc.Source], integration, models.Floats(dc.Anchors))
		if err != nil {
			return err
		}

		dims[i] = d
	}

	data := models.Floats(cfg.Data)
	if cfg.Image != nil {
		cells, err := readImage(image, cfg.Image, cfg.Cells())
		if err != nil {
			return err
		}

		data = cells
	}

	p.logger.Debug("configuring table",
		zap.String("table", cfg.Name),
		zap.String("type", cfg.Kind()),
		zap.Int("dimensions", len(dims)),
		zap.Int("cells", len(data)),
		zap.Stringer("search", search))

	tableOpts := []table.Option{table.WithSearch(search)}

	switch cfg.Kind() {
	case models.TableTypeFeedback:
		seed := models.Floats(cfg.Feedback.Seed)
		if len(seed) == 0 {
			seed = make([]float64, len(data))
			for i := range seed {
				seed[i] = 1
			}
		}

		fb, err := table.NewFeedbackTable(cfg.Name, dims, data,
			p.values[cfg.Feedback.Real], p.values[cfg.Feedback.Target], seed, cfg.Feedback.Window, tableOpts...)
		if err != nil {
			return err
		}

		n.feedback, n.table, n.eval = fb, fb.Table, fb
	case models.TableTypeState:
		stateOpts := []table.StateTableOption{table.WithTableOptions(tableOpts...)}
		if o.clock != nil {
			stateOpts = append(stateOpts, table.WithClock(o.clock))
		}

		var (
			st  *table.StateTable
			err error
		)

		if cfg.State != nil && cfg.State.Persist {
			if o.store == nil {
				return ErrNoStore
			}

			st, err = table.NewDurableStateTable(cfg.Name, dims, data, o.store, p.logger, stateOpts...)
		} else {
			st, err = table.NewMemoryStateTable(cfg.Name, dims, data, stateOpts...)
		}

		if err != nil {
			return err
		}

		n.state, n.table, n.eval = st, st.Table, st
	default:
		t, err := table.New(cfg.Name, dims, data, tableOpts...)
		if err != nil {
			return err
		}

		n.table, n.eval = t, t
	}

	return nil
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.name
}

// Profiler returns the root of the cycle timing tree.
func (p *Program) Profiler() *profiler.Profiler {
	return p.profiler
}

// Cycles returns the number of completed cycles.
func (p *Program) Cycles() int64 {
	return p.cycles
}

// Cycle evaluates every table once in dependency order.
func (p *Program) Cycle() []Result {
	cycle := p.profiler.Push("cycle")
	results := make([]Result, 0, len(p.order))

	for _, n := range p.order {
		timer := cycle.Push(n.Name())
		v := n.eval.Get()
		timer.Pop()

		n.output.Set(v)
		results = append(results, Result{Table: n.Name(), Value: v})
	}

	cycle.Pop()
	p.cycles++

	return results
}

// Preview evaluates one table at the current inputs without learning or
// committing state. Upstream tables contribute their last cycle's output.
func (p *Program) Preview(name string) (float64, error) {
	n, ok := p.nodes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	return n.preview(), nil
}

// Set changes a variable and returns its previous value.
func (p *Program) Set(name string, v float64) (float64, error) {
	variable, ok := p.variables[name]
	if !ok {
		if _, exists := p.values[name]; exists {
			return 0, fmt.Errorf("%w: %q", ErrNotVariable, name)
		}

		return 0, fmt.Errorf("%w: %q", ErrUnknownValue, name)
	}

	return variable.Set(v), nil
}

// Pulse records an edge on a pulse input.
func (p *Program) Pulse(name string) error {
	in, ok := p.inputs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}

	in.HandlePulse()

	return nil
}

// Value reads any named value, including table outputs and input
// frequencies.
func (p *Program) Value(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownValue, name)
	}

	return v.Get(), nil
}

// Node returns a table by name.
func (p *Program) Node(name string) (*Node, error) {
	n, ok := p.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	return n, nil
}

// Nodes returns the tables in evaluation order.
func (p *Program) Nodes() []*Node {
	return p.order
}

// Variables returns the names of the settable values, sorted.
func (p *Program) Variables() []string {
	names := make([]string, 0, len(p.variables))
	for name := range p.variables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Inputs returns the pulse input names, sorted.
func (p *Program) Inputs() []string {
	names := make([]string, 0, len(p.inputs))
	for name := range p.inputs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
