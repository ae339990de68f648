package pushdown

import (
	"github.com/golang-collections/collections/stack"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/query"
)

// Descriptor is the outcome of translating a filter predicate for an index.
// For every row, Native accepting it and Residual accepting it holds exactly
// when Original accepts it. Native may over-approximate Original; it never
// under-approximates it.
type Descriptor struct {
	Original query.Expression
	Native   index.Query
	Residual query.Expression // nil when Native alone is exact
}

// Exact reports whether no row-wise re-check is needed.
func (d *Descriptor) Exact() bool {
	return d.Residual == nil
}

// Pushed reports whether the native query restricts anything at all.
func (d *Descriptor) Pushed() bool {
	return !index.IsMatchAll(d.Native)
}

// Accepts evaluates the pushed form on one row.
func (d *Descriptor) Accepts(row database.Row) bool {
	if !d.Native.Matches(row) {
		return false
	}
	return d.Residual == nil || d.Residual.Evaluate(row)
}

// Translate splits pred into a native query supported by caps and a
// residual predicate.
//
// Top-level conjuncts are translated one by one: exact ones move entirely
// to the index, inexact ones contribute their over-approximation to the
// native query and stay in the residual. Without native AND only the first
// restricting conjunct is pushed.
func Translate(pred query.Expression, caps index.Capabilities) *Descriptor {
	t := translator{caps: caps}

	var native index.Query = index.MatchAll{}
	var residual []query.Expression
	kept := false
	for _, c := range conjuncts(pred) {
		n, exact := t.translate(c)
		switch {
		case index.IsMatchAll(n):
			// nothing pushed for c
		case caps.And:
			native = andQuery(native, n)
		case !kept:
			native, kept = n, true
		default:
			exact = false
		}
		if !exact {
			residual = append(residual, c)
		}
	}

	d := &Descriptor{Original: pred, Native: native}
	if len(residual) > 0 {
		d.Residual = query.And(residual...)
	}
	return d
}

// Check verifies the descriptor invariant on one row.
func Check(d *Descriptor, row database.Row) error {
	if d.Accepts(row) != d.Original.Evaluate(row) {
		return errorx.NewPushdownUnsound("native %s with residual %v disagrees with %s on row %v",
			d.Native, d.Residual, d.Original, row.Primitive())
	}
	return nil
}

// conjuncts flattens the top-level AND tree, keeping source order.
func conjuncts(pred query.Expression) []query.Expression {
	var out []query.Expression
	exp := stack.New()
	exp.Push(pred)
	for exp.Len() > 0 {
		here := exp.Pop().(query.Expression)
		if and, ok := here.(*query.AndExpression); ok {
			exp.Push(and.Right)
			exp.Push(and.Left)
			continue
		}
		out = append(out, here)
	}
	return out
}

type translator struct {
	caps index.Capabilities
}

// translate returns a native query implied by e, and whether it is
// equivalent to e. MatchAll means nothing could be pushed.
func (t translator) translate(e query.Expression) (index.Query, bool) {
	switch v := e.(type) {
	case query.BoolLiteral:
		if v {
			return index.MatchAll{}, true
		}
		return index.MatchNone{}, true
	case *query.Condition:
		if term := t.leaf(v); term != nil {
			return term, true
		}
		return index.MatchAll{}, false
	case *query.AndExpression:
		l, le := t.translate(v.Left)
		r, re := t.translate(v.Right)
		if t.caps.And {
			return andQuery(l, r), le && re
		}
		switch {
		case index.IsMatchAll(l):
			return r, le && re
		case index.IsMatchAll(r):
			return l, le && re
		}
		return l, false
	case *query.OrExpression:
		l, le := t.translate(v.Left)
		r, re := t.translate(v.Right)
		switch {
		case index.IsMatchNone(l):
			return r, le && re
		case index.IsMatchNone(r):
			return l, le && re
		case index.IsMatchAll(l) || index.IsMatchAll(r):
			return index.MatchAll{}, le && re
		case t.caps.Or:
			return &index.Or{Left: l, Right: r}, le && re
		}
		return index.MatchAll{}, false
	case *query.NotExpression:
		inner, exact := t.translate(v.Inner)
		if !exact {
			return index.MatchAll{}, false
		}
		switch {
		case index.IsMatchAll(inner):
			return index.MatchNone{}, true
		case index.IsMatchNone(inner):
			return index.MatchAll{}, true
		case t.caps.Not:
			return &index.Not{Inner: inner}, true
		}
		return index.MatchAll{}, false
	}
	return index.MatchAll{}, false
}

// leaf translates column-op-literal, flipping literal-op-column.
func (t translator) leaf(c *query.Condition) index.Query {
	col, lcol := c.Left.(*query.ColumnRef)
	lit, rlit := c.Right.(*query.Literal)
	op := c.Op
	if !lcol || !rlit {
		var ok bool
		col, lcol = c.Right.(*query.ColumnRef)
		lit, rlit = c.Left.(*query.Literal)
		if !lcol || !rlit {
			return nil
		}
		if op, ok = op.Flip(); !ok {
			return nil
		}
	}
	if !t.caps.Supports(col.Name, op) {
		return nil
	}
	return &index.Term{Column: col.Name, Op: op, Value: lit.Val}
}

func andQuery(a, b index.Query) index.Query {
	switch {
	case index.IsMatchNone(a) || index.IsMatchNone(b):
		return index.MatchNone{}
	case index.IsMatchAll(a):
		return b
	case index.IsMatchAll(b):
		return a
	}
	return &index.And{Left: a, Right: b}
}
