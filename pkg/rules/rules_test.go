package rules

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/query"
	"github.com/bisegni/idxq/pkg/value"
)

var tSchema = database.Schema{
	{Table: "t", Name: "a", Type: value.Int},
	{Table: "t", Name: "b", Type: value.String},
}

func idx() *index.MemoryIndex {
	return index.NewMemoryIndex("t", tSchema, index.FullCapabilities(tSchema), [][]interface{}{{int64(1), "x"}, {int64(20), "y"}})
}

func aGt(n int64) query.Expression {
	return query.Cmp(query.Col("a"), value.Gt, query.Lit(n))
}

func lengthB() query.Expression {
	return query.Cmp(&query.Call{Name: "length", Args: []query.Operand{query.Col("b")}}, value.Eq, query.Lit(int64(1)))
}

// fire inserts the bound shape, binds rule at the expression registered for
// root and applies it.
func fire(t *testing.T, m *memo.Memo, rule *Rule, root memo.Alt) ([]memo.Alt, error) {
	t.Helper()
	g, err := m.Insert(root, memo.NoGroup)
	require.NoError(t, err)
	var bound []*memo.Expr
	for _, id := range m.Group(g).Exprs {
		if b := rule.Pattern.Bindings(m, m.Expr(id)); len(b) > 0 {
			bound = b[0]
			break
		}
	}
	require.NotNil(t, bound, "pattern %s does not bind", rule.Pattern)
	return rule.Apply(&Call{Rule: rule, Memo: m, Exprs: bound, Log: logrus.NewEntry(logrus.New())})
}

func TestRegistry(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Depth())
	assert.Len(t, r.Rules(), len(DefaultRuleSet()))

	names := func(rules []*Rule) []string {
		var out []string
		for _, rule := range rules {
			out = append(out, rule.Name)
		}
		return out
	}
	assert.Equal(t, []string{"FilterReduceRule", "FilterMergeRule", "IndexFilterRule", "GenericFilterRule"}, names(r.ForRoot(plan.KindFilter, plan.None)))
	assert.Equal(t, []string{"FilterMergeRule"}, names(r.ForChild(plan.KindFilter, plan.None)))
	assert.Equal(t, []string{"IndexFilterRule"}, names(r.ForChild(plan.KindScan, plan.Index)))
	assert.Equal(t, []string{"IndexToGenericRule"}, names(r.ForRoot(plan.KindScan, plan.Index)))
	assert.Empty(t, r.ForRoot(plan.KindConverter, plan.Generic))

	require.NoError(t, r.Disable("FilterMergeRule"))
	assert.Empty(t, r.ForChild(plan.KindFilter, plan.None))
	assert.Contains(t, r.String(), "FilterMergeRule transformation Filter[NONE](Filter[NONE]) (disabled)")

	assert.True(t, errorx.IsNotFound(r.Disable("NoSuchRule")))
	assert.Error(t, r.Register(IndexScanRule))
	assert.Error(t, r.Register(&Rule{Name: "NoApply"}))
	_, err = DefaultRegistry("Typo")
	assert.Error(t, err)
}

func TestBindingsEnumerateInputExprs(t *testing.T) {
	m := memo.New()
	tbl := idx()
	scan, err := m.Insert(memo.NewAlt(&plan.Scan{Table: tbl}, plan.Index), memo.NoGroup)
	require.NoError(t, err)
	_, err = m.Insert(memo.NewAlt(&plan.Scan{Table: tbl, Native: index.MatchNone{}}, plan.Index), scan)
	require.NoError(t, err)
	_, err = m.Insert(memo.NewAlt(&plan.Scan{Table: tbl}, plan.None), scan)
	require.NoError(t, err)
	f, err := m.Insert(memo.NewAlt(&plan.Filter{Predicate: aGt(1)}, plan.None, memo.Ref(scan)), memo.NoGroup)
	require.NoError(t, err)

	root := m.Expr(m.Group(f).Exprs[0])
	b := IndexFilterRule.Pattern.Bindings(m, root)
	require.Len(t, b, 2, "one binding per index scan in the input group")
	for _, binding := range b {
		assert.Equal(t, root, binding[0])
		assert.Equal(t, plan.Index, binding[1].Conv)
	}
	assert.Nil(t, IndexFilterRule.Pattern.Bindings(m, m.Expr(m.Group(scan).Exprs[0])))
}

func TestIndexScanRule(t *testing.T) {
	alts, err := fire(t, memo.New(), IndexScanRule, memo.NewAlt(&plan.Scan{Table: idx()}, plan.None))
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, plan.Index, alts[0].Conv)

	_, err = fire(t, memo.New(), IndexScanRule, memo.NewAlt(&plan.Scan{Table: database.NewMemTable("t", tSchema, nil)}, plan.None))
	assert.ErrorIs(t, err, errorx.ErrRuleDeclined)
}

func TestIndexFilterRule(t *testing.T) {
	tbl := idx()
	filterOver := func(pred query.Expression, native index.Query) memo.Alt {
		return memo.NewAlt(&plan.Filter{Predicate: pred}, plan.None, memo.NewAlt(&plan.Scan{Table: tbl, Native: native}, plan.Index))
	}

	t.Run("exact", func(t *testing.T) {
		alts, err := fire(t, memo.New(), IndexFilterRule, filterOver(query.And(aGt(10), query.Cmp(query.Col("b"), value.Eq, query.Lit("x"))), nil))
		require.NoError(t, err)
		require.Len(t, alts, 1)
		scan := alts[0].Op.(*plan.Scan)
		assert.Equal(t, plan.Index, alts[0].Conv)
		assert.Equal(t, `+(a:>10) +(b:"x")`, scan.Native.String())
		require.NotNil(t, scan.Pushdown)
		assert.True(t, scan.Pushdown.Exact())
	})
	t.Run("residual", func(t *testing.T) {
		alts, err := fire(t, memo.New(), IndexFilterRule, filterOver(query.And(aGt(10), lengthB()), nil))
		require.NoError(t, err)
		require.Len(t, alts, 1)
		assert.Equal(t, "length(b) = 1", alts[0].Op.(*plan.Filter).Predicate.String())
		assert.Equal(t, plan.None, alts[0].Conv)
		require.Len(t, alts[0].Inputs, 1)
		assert.Equal(t, "a:>10", alts[0].Inputs[0].Op.(*plan.Scan).Native.String())
	})
	t.Run("nothing native", func(t *testing.T) {
		_, err := fire(t, memo.New(), IndexFilterRule, filterOver(query.Or(aGt(10), lengthB()), nil))
		assert.ErrorIs(t, err, errorx.ErrRuleDeclined)
	})
	t.Run("already pushed", func(t *testing.T) {
		_, err := fire(t, memo.New(), IndexFilterRule, filterOver(aGt(1), &index.Term{Column: "a", Op: value.Lt, Value: int64(5)}))
		assert.ErrorIs(t, err, errorx.ErrRuleDeclined)
	})
}

func TestIndexToGenericRule(t *testing.T) {
	m := memo.New()
	alts, err := fire(t, m, IndexToGenericRule, memo.NewAlt(&plan.Scan{Table: idx()}, plan.Index))
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, plan.Generic, alts[0].Conv)
	assert.Equal(t, &plan.Converter{From: plan.Index, To: plan.Generic}, alts[0].Op)
	require.Len(t, alts[0].Inputs, 1)
	assert.True(t, alts[0].Inputs[0].IsRef())
	assert.Equal(t, memo.GroupID(0), alts[0].Inputs[0].Group)
}

func TestGenericJoinRule(t *testing.T) {
	uSchema := database.Schema{{Table: "u", Name: "a", Type: value.Int}}
	join := func(jt plan.JoinType) memo.Alt {
		return memo.NewAlt(&plan.Join{Type: jt, LeftKey: "t.a", RightKey: "u.a"}, plan.None,
			memo.NewAlt(&plan.Scan{Table: idx()}, plan.None),
			memo.NewAlt(&plan.Scan{Table: database.NewMemTable("u", uSchema, nil)}, plan.None))
	}
	for _, jt := range []plan.JoinType{plan.InnerJoin, plan.LeftJoin} {
		alts, err := fire(t, memo.New(), GenericJoinRule, join(jt))
		require.NoError(t, err)
		assert.Equal(t, plan.Generic, alts[0].Conv)
		assert.Len(t, alts[0].Inputs, 2)
	}
	for _, jt := range []plan.JoinType{plan.RightJoin, plan.FullJoin} {
		_, err := fire(t, memo.New(), GenericJoinRule, join(jt))
		assert.ErrorIs(t, err, errorx.ErrRuleDeclined)
	}
}

func TestFilterMergeRule(t *testing.T) {
	scan := memo.NewAlt(&plan.Scan{Table: idx()}, plan.None)
	inner := memo.NewAlt(&plan.Filter{Predicate: query.And(aGt(1), query.True)}, plan.None, scan)
	alts, err := fire(t, memo.New(), FilterMergeRule, memo.NewAlt(&plan.Filter{Predicate: query.And(lengthB(), aGt(1))}, plan.None, inner))
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, "(a > 1 AND length(b) = 1)", alts[0].Op.(*plan.Filter).Predicate.String())
	assert.True(t, alts[0].Inputs[0].IsRef())
}

func TestFilterReduceRule(t *testing.T) {
	scan := memo.NewAlt(&plan.Scan{Table: idx()}, plan.None)
	tests := []struct {
		name   string
		pred   query.Expression
		check  func(t *testing.T, alt memo.Alt)
		denied bool
	}{
		{name: "true", pred: query.True, check: func(t *testing.T, alt memo.Alt) {
			assert.True(t, alt.IsRef())
		}},
		{name: "false", pred: query.And(aGt(1), query.False), check: func(t *testing.T, alt memo.Alt) {
			v := alt.Op.(*plan.Values)
			assert.Empty(t, v.Rows)
			assert.Equal(t, tSchema, v.Columns)
		}},
		{name: "true conjunct dropped", pred: query.And(query.True, aGt(1)), check: func(t *testing.T, alt memo.Alt) {
			assert.Equal(t, "a > 1", alt.Op.(*plan.Filter).Predicate.String())
		}},
		{name: "nothing constant", pred: aGt(1), denied: true},
		{name: "nested constant is not reduced", pred: query.Or(aGt(1), query.True), denied: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alts, err := fire(t, memo.New(), FilterReduceRule, memo.NewAlt(&plan.Filter{Predicate: tt.pred}, plan.None, scan))
			if tt.denied {
				assert.ErrorIs(t, err, errorx.ErrRuleDeclined)
				return
			}
			require.NoError(t, err)
			require.Len(t, alts, 1)
			tt.check(t, alts[0])
		})
	}
}

func TestProjectMergeRule(t *testing.T) {
	scan := memo.NewAlt(&plan.Scan{Table: idx()}, plan.None)
	inner := memo.NewAlt(&plan.Project{Fields: []query.Field{{Path: "t.b", Alias: "label"}, {Path: "a"}}}, plan.None, scan)

	alts, err := fire(t, memo.New(), ProjectMergeRule, memo.NewAlt(&plan.Project{Fields: []query.Field{{Path: "label"}, {Path: "a", Alias: "n"}}}, plan.None, inner))
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, []query.Field{{Path: "t.b", Alias: "label"}, {Path: "a", Alias: "n"}}, alts[0].Op.(*plan.Project).Fields)

	// the inner projection renames nothing the outer one could see through
	passthrough := memo.NewAlt(&plan.Project{Fields: []query.Field{{Path: "a"}}}, plan.None, scan)
	alts, err = fire(t, memo.New(), ProjectMergeRule, memo.NewAlt(&plan.Project{Fields: []query.Field{{Path: "t.a", Alias: "a"}}}, plan.None, passthrough))
	require.NoError(t, err)
	assert.Equal(t, []query.Field{{Path: "a", Alias: "a"}}, alts[0].Op.(*plan.Project).Fields)
}
