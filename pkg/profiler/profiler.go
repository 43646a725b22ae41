// Package profiler times nested sections of a control cycle.
//
// A Profiler is a tree node. Push starts a named child and returns it; Pop
// stops the node and returns its parent. Nodes are created on first use and
// accumulate across cycles.
package profiler

import (
	"time"
)

// Profiler is one node of the timing tree. It is not safe for concurrent use.
type Profiler struct {
	name     string
	parent   *Profiler
	children []*Profiler
	now      func() time.Time

	executions int64
	total      time.Duration
	begin      time.Time
}

// Option configures a root Profiler.
type Option func(*Profiler)

// WithClock replaces time.Now for the whole tree.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a root node.
func New(name string, opts ...Option) *Profiler {
	p := &Profiler{name: name, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the node name.
func (p *Profiler) Name() string {
	return p.name
}

// Parent returns the enclosing node, nil for the root.
func (p *Profiler) Parent() *Profiler {
	return p.parent
}

// Children returns the child nodes in creation order.
func (p *Profiler) Children() []*Profiler {
	return p.children
}

// Child returns the named child, creating it when missing.
func (p *Profiler) Child(name string) *Profiler {
	for _, c := range p.children {
		if c.name == name {
			return c
		}
	}

	c := &Profiler{name: name, parent: p, now: p.now}
	p.children = append(p.children, c)

	return c
}

// Push starts timing the named child and returns it.
func (p *Profiler) Push(name string) *Profiler {
	c := p.Child(name)
	c.Begin()

	return c
}

// Pop stops timing p and returns its parent, or p itself at the root.
func (p *Profiler) Pop() *Profiler {
	p.End()

	if p.parent != nil {
		return p.parent
	}

	return p
}

// Begin starts one execution.
func (p *Profiler) Begin() {
	p.begin = p.now()
}

// End closes the execution started by Begin.
func (p *Profiler) End() {
	p.total += p.now().Sub(p.begin)
	p.executions++
}

// Executions counts completed Begin/End pairs.
func (p *Profiler) Executions() int64 {
	return p.executions
}

// TotalTime is the time spent in this node, children included.
func (p *Profiler) TotalTime() time.Duration {
	return p.total
}

// ChildTime is the sum of the children's total time.
func (p *Profiler) ChildTime() time.Duration {
	var d time.Duration
	for _, c := range p.children {
		d += c.total
	}

	return d
}

// SelfTime is the total time not spent in children.
func (p *Profiler) SelfTime() time.Duration {
	return p.total - p.ChildTime()
}

// AvgTotalTime is TotalTime per execution, zero before the first one.
func (p *Profiler) AvgTotalTime() time.Duration {
	return p.avg(p.total)
}

// AvgSelfTime is SelfTime per execution.
func (p *Profiler) AvgSelfTime() time.Duration {
	return p.avg(p.SelfTime())
}

// AvgChildTime is ChildTime per execution.
func (p *Profiler) AvgChildTime() time.Duration {
	return p.avg(p.ChildTime())
}

func (p *Profiler) avg(d time.Duration) time.Duration {
	if p.executions == 0 {
		return 0
	}

	return d / time.Duration(p.executions)
}

// Reset zeroes the counters of p and every descendant. The tree shape is
// kept.
func (p *Profiler) Reset() {
	p.executions = 0
	p.total = 0

	for _, c := range p.children {
		c.Reset()
	}
}

// Walk visits p and its descendants depth first.
func (p *Profiler) Walk(fn func(node *Profiler, depth int)) {
	p.walk(fn, 0)
}

func (p *Profiler) walk(fn func(*Profiler, int), depth int) {
	fn(p, depth)

	for _, c := range p.children {
		c.walk(fn, depth+1)
	}
}

// Snapshot is a serializable copy of a profiler subtree.
type Snapshot struct {
	Name       string        `json:"name"`
	Executions int64         `json:"executions"`
	Total      time.Duration `json:"total_ns"`
	Self       time.Duration `json:"self_ns"`
	Children   []Snapshot    `json:"children,omitempty"`
}

// Snapshot copies the subtree rooted at p.
func (p *Profiler) Snapshot() Snapshot {
	s := Snapshot{
		Name:       p.name,
		Executions: p.executions,
		Total:      p.total,
		Self:       p.SelfTime(),
	}

	for _, c := range p.children {
		s.Children = append(s.Children, c.Snapshot())
	}

	return s
}
