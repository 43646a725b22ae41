package program

import (
	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
)

// latch holds a table's output between cycles. It is static only when the
// table producing it is.
type latch struct {
	value.Variable
	node *Node
}

func (l *latch) IsStatic() bool {
	if l.node.eval == nil {
		return false
	}

	return l.node.eval.IsStatic()
}

// Node is one configured table inside a program.
type Node struct {
	config   models.TableConfig
	table    *table.Table
	feedback *table.FeedbackTable
	state    *table.StateTable
	eval     value.Value
	output   *latch
	deps     []string
}

// Name returns the table name.
func (n *Node) Name() string {
	return n.config.Name
}

// Kind is one of the models.TableType* constants.
func (n *Node) Kind() string {
	return n.config.Kind()
}

// Config returns the table's configuration.
func (n *Node) Config() models.TableConfig {
	return n.config
}

// Table returns the plain table view. For a feedback table this is the base
// table without correction.
func (n *Node) Table() *table.Table {
	return n.table
}

// Feedback is nil unless the node is a feedback table.
func (n *Node) Feedback() *table.FeedbackTable {
	return n.feedback
}

// State is nil unless the node is a state table.
func (n *Node) State() *table.StateTable {
	return n.state
}

// Output returns the value produced by the last cycle.
func (n *Node) Output() float64 {
	return n.output.Get()
}

// IsStatic reports whether the table's output can only change through
// external mutation.
func (n *Node) IsStatic() bool {
	return n.output.IsStatic()
}

// Dependencies lists the tables this node reads.
func (n *Node) Dependencies() []string {
	return n.deps
}

// preview evaluates without learning or committing state.
func (n *Node) preview() float64 {
	switch {
	case n.feedback != nil:
		return n.feedback.Preview()
	case n.state != nil:
		return n.state.Preview()
	default:
		return n.table.Get()
	}
}
