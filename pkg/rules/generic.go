package rules

import (
	"fmt"

	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
)

// genericRule implements a logical operator of kind k as the same operator
// running row by row over generic inputs.
func genericRule(k plan.Kind) *Rule {
	return &Rule{
		Name:    fmt.Sprintf("Generic%sRule", k),
		Kind:    Conversion,
		Pattern: Pattern{Kind: k, Conv: plan.None},
		Apply: func(call *Call) ([]memo.Alt, error) {
			return []memo.Alt{generic(call)}, nil
		},
	}
}

func generic(call *Call) memo.Alt {
	e := call.Root()
	inputs := make([]memo.Alt, len(e.Inputs))
	for i := range e.Inputs {
		inputs[i] = memo.Ref(call.Input(i).ID)
	}
	return memo.NewAlt(e.Op, plan.Generic, inputs...)
}

var (
	GenericFilterRule  = genericRule(plan.KindFilter)
	GenericProjectRule = genericRule(plan.KindProject)
	GenericSortRule    = genericRule(plan.KindSort)
	GenericLimitRule   = genericRule(plan.KindLimit)
	GenericValuesRule  = genericRule(plan.KindValues)
)

// GenericJoinRule implements inner and left joins as hash joins. Right and
// full joins have no executable form.
var GenericJoinRule = &Rule{
	Name:    "GenericJoinRule",
	Kind:    Conversion,
	Pattern: Pattern{Kind: plan.KindJoin, Conv: plan.None},
	Apply: func(call *Call) ([]memo.Alt, error) {
		switch call.Root().Op.(*plan.Join).Type {
		case plan.InnerJoin, plan.LeftJoin:
			return []memo.Alt{generic(call)}, nil
		}
		return nil, errorx.ErrRuleDeclined
	},
}
