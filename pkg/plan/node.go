package plan

import (
	"fmt"
	"sync"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
)

// Operator is the kind-specific part of a plan node. Operators are values:
// they hold parameters only, never children.
type Operator interface {
	Kind() Kind
	// DeriveSchema computes the output schema from the input schemas.
	DeriveSchema(inputs []database.Schema) (database.Schema, error)
	// Explain describes the operator and its parameters for plan dumps.
	Explain() string
	// Digest identifies the operator parameters. Two operators of the same
	// kind with equal digests are interchangeable.
	Digest() string
}

// Node represents an immutable node of a query plan. Nodes are built bottom
// up with New; rewriting a plan means building new nodes.
type Node struct {
	op       Operator
	conv     Convention
	children []*Node
	schema   database.Schema

	once sync.Once
	rows float64
	cost float64
}

// New builds a node over already built children. It fails with a schema
// mismatch when the children do not fit the operator, and with a plan error
// when an edge changes convention without a converter.
func New(op Operator, conv Convention, children ...*Node) (*Node, error) {
	if c, ok := op.(*Converter); ok && c.To != conv {
		return nil, errorx.NewPlanError("converter to %s placed in convention %s", c.To, conv)
	}
	want := RequiredInput(op, conv)
	inputs := make([]database.Schema, len(children))
	for i, c := range children {
		if c == nil {
			return nil, errorx.NewPlanError("%s has a nil input", op.Kind())
		}
		if c.conv != want {
			return nil, errorx.NewPlanError("%s[%s] cannot take a %s[%s] input", op.Kind(), conv, c.op.Kind(), c.conv)
		}
		inputs[i] = c.schema
	}
	schema, err := op.DeriveSchema(inputs)
	if err != nil {
		return nil, err
	}
	return &Node{op: op, conv: conv, children: children, schema: schema}, nil
}

// MustNew is like New but panics on error. It is meant for tests and
// statically known plans.
func MustNew(op Operator, conv Convention, children ...*Node) *Node {
	n, err := New(op, conv, children...)
	if err != nil {
		panic(err)
	}
	return n
}

// WithEstimates returns a copy of n carrying the given estimates instead of
// lazily computed ones.
func (n *Node) WithEstimates(rows, cost float64) *Node {
	c := &Node{op: n.op, conv: n.conv, children: n.children, schema: n.schema, rows: rows, cost: cost}
	c.once.Do(func() {})
	return c
}

func (n *Node) Operator() Operator      { return n.op }
func (n *Node) Kind() Kind              { return n.op.Kind() }
func (n *Node) Convention() Convention  { return n.conv }
func (n *Node) Schema() database.Schema { return n.schema }
func (n *Node) Children() []*Node       { return n.children }

// Rows returns the estimated output row count.
func (n *Node) Rows() float64 {
	n.estimate()
	return n.rows
}

// Cost returns the estimated cumulative cost of the subtree.
func (n *Node) Cost() float64 {
	n.estimate()
	return n.cost
}

func (n *Node) estimate() {
	n.once.Do(func() {
		inRows := make([]float64, len(n.children))
		cost := 0.0
		for i, c := range n.children {
			inRows[i] = c.Rows()
			cost += c.Cost()
		}
		n.rows = EstimateRows(n.op, inRows)
		if n.conv != None {
			cost += DefaultCostModel.Local(n.op, n.conv, n.rows, inRows)
		}
		n.cost = cost
	})
}

// Explain renders the node line used by FormatPlan.
func (n *Node) Explain() string {
	return fmt.Sprintf("%s[%s] rows=%.1f cost=%.2f", n.op.Explain(), n.conv, n.Rows(), n.Cost())
}

// Validate checks that n is a fully physical plan rooted in want: no
// logical node remains and every edge respects conventions.
func (n *Node) Validate(want Convention) error {
	if n.conv != want {
		return errorx.NewPlanError("%s is in convention %s, want %s", n.op.Kind(), n.conv, want)
	}
	if n.conv == None {
		return errorx.NewPlanError("logical operator %s left in physical plan", n.op.Kind())
	}
	for _, c := range n.children {
		if err := c.Validate(RequiredInput(n.op, n.conv)); err != nil {
			return err
		}
	}
	return nil
}

// WalkTree visits n and its descendants depth first, parents before
// children. Returning false from fn skips the children of that node.
func WalkTree(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		WalkTree(c, fn)
	}
}

// CountNodes returns how many nodes of kind k appear in the tree.
func CountNodes(n *Node, k Kind) int {
	count := 0
	WalkTree(n, func(c *Node) bool {
		if c.Kind() == k {
			count++
		}
		return true
	})
	return count
}

// Equal reports whether two trees have the same shape, operators and
// conventions.
func Equal(a, b *Node) bool {
	if a.Kind() != b.Kind() || a.conv != b.conv || a.op.Digest() != b.op.Digest() || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
