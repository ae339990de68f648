package memo

import (
	"github.com/bisegni/idxq/pkg/plan"
)

// Alt is an alternative proposed for a group: either a reference to an
// existing group or an operator over further alternatives.
type Alt struct {
	Group  GroupID
	Op     plan.Operator
	Conv   plan.Convention
	Inputs []Alt
}

// Ref refers to an existing group.
func Ref(g GroupID) Alt {
	return Alt{Group: g}
}

// NewAlt builds an operator alternative.
func NewAlt(op plan.Operator, conv plan.Convention, inputs ...Alt) Alt {
	return Alt{Group: NoGroup, Op: op, Conv: conv, Inputs: inputs}
}

func (a Alt) IsRef() bool {
	return a.Op == nil
}

// FromNode converts a plan tree into an alternative.
func FromNode(n *plan.Node) Alt {
	inputs := make([]Alt, len(n.Children()))
	for i, c := range n.Children() {
		inputs[i] = FromNode(c)
	}
	return NewAlt(n.Operator(), n.Convention(), inputs...)
}
