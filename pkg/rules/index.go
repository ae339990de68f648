package rules

import (
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/pushdown"
)

// IndexScanRule implements a logical scan of an index-backed table as a
// match-all index scan. Plain tables have no executable scan.
var IndexScanRule = &Rule{
	Name:    "IndexScanRule",
	Kind:    Conversion,
	Pattern: Pattern{Kind: plan.KindScan, Conv: plan.None},
	Apply: func(call *Call) ([]memo.Alt, error) {
		scan := call.Root().Op.(*plan.Scan)
		if _, ok := scan.Table.(index.Handle); !ok {
			return nil, errorx.ErrRuleDeclined
		}
		return []memo.Alt{memo.NewAlt(&plan.Scan{Table: scan.Table, Native: scan.Native, Pushdown: scan.Pushdown}, plan.Index)}, nil
	},
}

// IndexFilterRule pushes a filter into the index scan below it. The scan
// takes the native part of the predicate; a logical filter keeps the
// residual when the translation is not exact.
var IndexFilterRule = &Rule{
	Name: "IndexFilterRule",
	Kind: Conversion,
	Pattern: Pattern{Kind: plan.KindFilter, Conv: plan.None, Inputs: []Pattern{
		{Kind: plan.KindScan, Conv: plan.Index},
	}},
	Apply: func(call *Call) ([]memo.Alt, error) {
		filter := call.Exprs[0].Op.(*plan.Filter)
		scan := call.Exprs[1].Op.(*plan.Scan)
		h, ok := scan.Table.(index.Handle)
		if !ok || !index.IsMatchAll(scan.Native) {
			return nil, errorx.ErrRuleDeclined
		}
		d := pushdown.Translate(filter.Predicate, h.Capabilities())
		if !d.Pushed() {
			call.Log.Tracef("Nothing of %s is native for %s", filter.Predicate, h.Name())
			return nil, errorx.ErrRuleDeclined
		}
		native := memo.NewAlt(&plan.Scan{Table: scan.Table, Native: d.Native, Pushdown: d}, plan.Index)
		if d.Exact() {
			return []memo.Alt{native}, nil
		}
		return []memo.Alt{memo.NewAlt(&plan.Filter{Predicate: d.Residual}, plan.None, native)}, nil
	},
}

// IndexToGenericRule makes index results consumable row by row by putting a
// converter on top of the group.
var IndexToGenericRule = &Rule{
	Name:    "IndexToGenericRule",
	Kind:    Conversion,
	Pattern: Pattern{AnyKind: true, Conv: plan.Index},
	Apply: func(call *Call) ([]memo.Alt, error) {
		conv := &plan.Converter{From: plan.Index, To: plan.Generic}
		return []memo.Alt{memo.NewAlt(conv, plan.Generic, memo.Ref(call.Group(0).ID))}, nil
	},
}
