// Package value defines the Value capability: anything that produces a number
// once per control cycle (a sensor reading, a constant, a table output) and
// can therefore feed a table dimension.
package value

import (
	"go.uber.org/atomic"
)

// Value is a source of one scalar per cycle.
//
// IsStatic reports whether the value never changes without external
// mutation; callers may cache static values.
type Value interface {
	Get() float64
	IsStatic() bool
}

// Constant is a fixed value.
type Constant float64

// Get returns the constant.
func (c Constant) Get() float64 {
	return float64(c)
}

// IsStatic is always true for a constant.
func (c Constant) IsStatic() bool {
	return true
}

// Variable is a value mutated from outside the control loop, typically by an
// input driver or an interrupt handler. Reads and writes are single atomic
// word operations so a reader never observes a torn value.
type Variable struct {
	v atomic.Float64
}

// NewVariable creates a Variable holding initial.
func NewVariable(initial float64) *Variable {
	v := &Variable{}
	v.v.Store(initial)

	return v
}

// Get returns the current value.
func (v *Variable) Get() float64 {
	return v.v.Load()
}

// Set stores value and returns the previous one.
func (v *Variable) Set(value float64) float64 {
	return v.v.Swap(value)
}

// IsStatic is true: a Variable only changes through Set.
func (v *Variable) IsStatic() bool {
	return true
}

// Reference reads its value through a callback on every Get.
type Reference struct {
	callback func() float64
}

// NewReference wraps callback as a Value.
func NewReference(callback func() float64) *Reference {
	return &Reference{callback: callback}
}

// Get invokes the callback.
func (r *Reference) Get() float64 {
	return r.callback()
}

// IsStatic is false; the callback may return anything.
func (r *Reference) IsStatic() bool {
	return false
}

// Func adapts a plain function to Value. It is never static.
type Func func() float64

// Get calls f.
func (f Func) Get() float64 {
	return f()
}

// IsStatic is false.
func (f Func) IsStatic() bool {
	return false
}
