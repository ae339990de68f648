package rules

import (
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/query"
)

// FilterMergeRule folds two stacked filters into one over their common
// input. Conjuncts are deduplicated so repeated merging reaches a fixpoint.
var FilterMergeRule = &Rule{
	Name: "FilterMergeRule",
	Kind: Transformation,
	Pattern: Pattern{Kind: plan.KindFilter, Conv: plan.None, Inputs: []Pattern{
		{Kind: plan.KindFilter, Conv: plan.None},
	}},
	Apply: func(call *Call) ([]memo.Alt, error) {
		if call.Group(0).ID == call.Group(1).ID {
			// the outer filter is a no-op over its own group
			return nil, errorx.ErrRuleDeclined
		}
		outer := call.Exprs[0].Op.(*plan.Filter)
		inner := call.Exprs[1].Op.(*plan.Filter)
		merged := mergeConjuncts(inner.Predicate, outer.Predicate)
		below := memo.Ref(call.Memo.Input(call.Exprs[1], 0).ID)
		return []memo.Alt{memo.NewAlt(&plan.Filter{Predicate: merged}, plan.None, below)}, nil
	},
}

func mergeConjuncts(preds ...query.Expression) query.Expression {
	seen := map[string]bool{}
	var out []query.Expression
	for _, p := range preds {
		for _, c := range query.Conjuncts(p) {
			if b, ok := c.(query.BoolLiteral); ok && bool(b) {
				continue
			}
			if key := c.String(); !seen[key] {
				seen[key] = true
				out = append(out, c)
			}
		}
	}
	return query.And(out...)
}

// FilterReduceRule simplifies filters with constant conjuncts: a filter that
// always holds is its input, one that never holds is the empty relation.
var FilterReduceRule = &Rule{
	Name:    "FilterReduceRule",
	Kind:    Transformation,
	Pattern: Pattern{Kind: plan.KindFilter, Conv: plan.None},
	Apply: func(call *Call) ([]memo.Alt, error) {
		filter := call.Root().Op.(*plan.Filter)
		var rest []query.Expression
		constant := false
		for _, c := range query.Conjuncts(filter.Predicate) {
			b, ok := c.(query.BoolLiteral)
			if !ok {
				rest = append(rest, c)
				continue
			}
			if !b {
				empty := &plan.Values{Columns: call.Group(0).Schema}
				return []memo.Alt{memo.NewAlt(empty, plan.None)}, nil
			}
			constant = true
		}
		input := memo.Ref(call.Input(0).ID)
		switch {
		case !constant:
			return nil, errorx.ErrRuleDeclined
		case len(rest) == 0:
			return []memo.Alt{input}, nil
		}
		return []memo.Alt{memo.NewAlt(&plan.Filter{Predicate: query.And(rest...)}, plan.None, input)}, nil
	},
}

// ProjectMergeRule composes two stacked projections into one over the
// inner input.
var ProjectMergeRule = &Rule{
	Name: "ProjectMergeRule",
	Kind: Transformation,
	Pattern: Pattern{Kind: plan.KindProject, Conv: plan.None, Inputs: []Pattern{
		{Kind: plan.KindProject, Conv: plan.None},
	}},
	Apply: func(call *Call) ([]memo.Alt, error) {
		if call.Group(0).ID == call.Group(1).ID {
			return nil, errorx.ErrRuleDeclined
		}
		outer := call.Exprs[0].Op.(*plan.Project)
		inner := call.Exprs[1].Op.(*plan.Project)
		innerSchema := call.Group(1).Schema
		below := call.Memo.Input(call.Exprs[1], 0)

		fields := make([]query.Field, len(outer.Fields))
		for i, f := range outer.Fields {
			pos, err := innerSchema.IndexOf(f.Path)
			if err != nil {
				return nil, errorx.ErrRuleDeclined
			}
			src := inner.Fields[pos]
			alias := f.Alias
			if alias == "" {
				alias = src.Alias
			}
			fields[i] = query.Field{Path: src.Path, Alias: alias}
		}
		merged := &plan.Project{Fields: fields}
		schema, err := merged.DeriveSchema([]database.Schema{below.Schema})
		if err != nil || !schema.Equal(call.Group(0).Schema) || !sameQualifiers(schema, call.Group(0).Schema) {
			return nil, errorx.ErrRuleDeclined
		}
		return []memo.Alt{memo.NewAlt(merged, plan.None, memo.Ref(below.ID))}, nil
	},
}

func sameQualifiers(a, b database.Schema) bool {
	for i := range a {
		if !strings.EqualFold(a[i].Table, b[i].Table) {
			return false
		}
	}
	return true
}
