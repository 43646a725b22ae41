// Package table implements N-dimensional breakpoint tables evaluated once per
// control cycle against live values.
//
// A Table owns an ordered list of Dimensions and a flat data buffer laid out
// in mixed radix with dimension 0 varying fastest:
//
//	offset(i0, i1, i2, ...) = i0 + i1*len(d0) + i2*len(d0)*len(d1) + ...
//
// Evaluation searches every dimension for the pair of anchors bracketing its
// coordinate, gathers the 2^N surrounding corner cells and collapses them
// pairwise, dimension by dimension, with that dimension's Integration.
// Coordinates outside an axis clamp to its edge cell; nothing extrapolates.
//
// Three search strategies give identical results on sorted anchors:
//
//   - SearchLinear      scan from the first anchor; baseline only.
//   - SearchEstimate    project a start index from the coordinate's position
//     between the first and last anchors, then walk to the bracket.
//   - SearchReestimate  weighted bisection that starts from the interval found
//     on the previous call (default; control inputs move gradually).
//
// A Table is itself a value.Value, so tables chain into a DAG by using one
// table as another's dimension source.
//
// FeedbackTable multiplies a base table by a per-cell correction that it
// learns online from a real/target pair. StateTable treats negative cells as
// operation codes on a persisted state scalar.
//
// Concurrency: nothing in this package takes a lock. Dimensions cache their
// last lookup, tables keep scratch buffers, and feedback/state tables mutate
// per-cell state, so every table must be evaluated from one goroutine at a
// time. Numeric degeneracies (division by zero, sqrt of a negative) produce
// NaN or Inf and flow through; only configuration mismatches return errors.
package table
