package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/query"
	"github.com/bisegni/idxq/pkg/value"
)

var tSchema = database.Schema{
	{Table: "t", Name: "a", Type: value.Int},
	{Table: "t", Name: "b", Type: value.String},
}

func table() database.Table {
	return database.NewMemTable("t", tSchema, nil)
}

func aGt(n int64) *query.Condition {
	return query.Cmp(query.Col("a"), value.Gt, query.Lit(n))
}

func TestInsertTreeDeduplicates(t *testing.T) {
	tbl := table()
	build := func() *plan.Node {
		return plan.MustNew(&plan.Filter{Predicate: aGt(1)}, plan.None, plan.MustNew(&plan.Scan{Table: tbl}, plan.None))
	}

	m := New()
	g1, err := m.InsertTree(build())
	require.NoError(t, err)
	assert.Len(t, m.TakeAdded(), 2)

	g2, err := m.InsertTree(build())
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
	assert.Equal(t, 2, m.NumExprs())
	assert.Empty(t, m.TakeAdded())

	root := m.Group(g1)
	assert.Equal(t, tSchema, root.Schema)
	assert.InDelta(t, plan.DefaultTableRows*0.3, root.Rows, 1e-9)
	require.Len(t, root.Exprs, 1)
	in := m.Input(m.Expr(root.Exprs[0]), 0)
	assert.Equal(t, []ExprID{root.Exprs[0]}, m.Parents(in.ID))
}

func TestInsertIntoTarget(t *testing.T) {
	tbl := table()
	m := New()
	g, err := m.Insert(NewAlt(&plan.Scan{Table: tbl}, plan.None), NoGroup)
	require.NoError(t, err)

	got, err := m.Insert(NewAlt(&plan.Scan{Table: tbl}, plan.Index), g)
	require.NoError(t, err)
	assert.Equal(t, g, got)
	assert.Len(t, m.Group(g).Exprs, 2)

	// registering the same alternative again adds nothing
	_, err = m.Insert(NewAlt(&plan.Scan{Table: tbl}, plan.Index), g)
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumExprs())
}

func TestInsertSchemaMismatch(t *testing.T) {
	m := New()
	g, err := m.Insert(NewAlt(&plan.Scan{Table: table()}, plan.None), NoGroup)
	require.NoError(t, err)

	proj := NewAlt(&plan.Project{Fields: []query.Field{{Path: "a", Alias: "a"}}}, plan.None, Ref(g))
	_, err = m.Insert(proj, g)
	assert.True(t, errorx.IsSchemaMismatch(err), "got %v", err)
	assert.Equal(t, 1, m.NumExprs())
}

func TestMergeCascadesToParents(t *testing.T) {
	tbl := table()
	m := New()

	plain, err := m.Insert(NewAlt(&plan.Scan{Table: tbl}, plan.None), NoGroup)
	require.NoError(t, err)
	native, err := m.Insert(NewAlt(&plan.Scan{Table: tbl, Native: &index.Term{Column: "a", Op: value.Gt, Value: int64(0)}}, plan.Index), NoGroup)
	require.NoError(t, err)
	require.NotEqual(t, plain, native)

	f1, err := m.Insert(NewAlt(&plan.Filter{Predicate: aGt(5)}, plan.None, Ref(plain)), NoGroup)
	require.NoError(t, err)
	f2, err := m.Insert(NewAlt(&plan.Filter{Predicate: aGt(5)}, plan.None, Ref(native)), NoGroup)
	require.NoError(t, err)
	require.NotEqual(t, m.Find(f1), m.Find(f2))
	m.TakeMerged()

	rep, err := m.Insert(Ref(native), plain)
	require.NoError(t, err)
	assert.Equal(t, plain, rep, "older group survives")
	assert.Equal(t, m.Find(plain), m.Find(native))
	assert.Equal(t, m.Find(f1), m.Find(f2), "identical filters over merged inputs merge too")

	merged := m.TakeMerged()
	assert.Contains(t, merged, m.Find(plain))
	assert.Contains(t, merged, m.Find(f1))
	assert.Len(t, m.Group(plain).Exprs, 2)
	assert.Len(t, m.Group(f1).Exprs, 2)
}

func TestWinners(t *testing.T) {
	tbl := table()
	m := New()
	g1, err := m.Insert(NewAlt(&plan.Scan{Table: tbl}, plan.Index), NoGroup)
	require.NoError(t, err)
	g2, err := m.Insert(NewAlt(&plan.Scan{Table: tbl, Native: index.MatchNone{}}, plan.Index), NoGroup)
	require.NoError(t, err)

	grp := m.Group(g1)
	assert.True(t, grp.Offer(plan.Index, 0, 10))
	assert.False(t, grp.Offer(plan.Index, 0, 10), "ties keep the incumbent")
	assert.True(t, grp.Offer(plan.Index, 0, 4))
	w, ok := grp.Best(plan.Index)
	require.True(t, ok)
	assert.Equal(t, Winner{Expr: 0, Cost: 4}, w)
	_, ok = grp.Best(plan.Generic)
	assert.False(t, ok)

	assert.True(t, m.Group(g2).Offer(plan.Index, 1, 4))
	_, err = m.Insert(Ref(g2), g1)
	require.NoError(t, err)
	w, _ = m.Group(g2).Best(plan.Index)
	assert.Equal(t, Winner{Expr: 0, Cost: 4}, w, "merge ties keep the surviving group's winner")
}

func TestMergeDropsSelfLoopWinners(t *testing.T) {
	tests := []struct {
		name      string
		incumbent bool
	}{
		{"surviving group keeps its own winner", true},
		{"self loop is the only candidate", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			scan, err := m.Insert(NewAlt(&plan.Scan{Table: table()}, plan.Index), NoGroup)
			require.NoError(t, err)
			_, err = m.Insert(NewAlt(&plan.Converter{From: plan.Index, To: plan.Generic}, plan.Generic, Ref(scan)), scan)
			require.NoError(t, err)
			outer, err := m.Insert(NewAlt(&plan.Filter{Predicate: aGt(0)}, plan.Generic, Ref(scan)), NoGroup)
			require.NoError(t, err)

			conv, filter := m.Expr(1), m.Expr(2)
			assert.False(t, m.SelfLoop(conv), "a converter reads its own group in another convention")
			assert.False(t, m.SelfLoop(filter))

			if tt.incumbent {
				require.True(t, m.Group(scan).Offer(plan.Generic, conv.ID, 5))
			}
			require.True(t, m.Group(outer).Offer(plan.Generic, filter.ID, 5))

			_, err = m.Insert(Ref(outer), scan)
			require.NoError(t, err)
			assert.True(t, m.SelfLoop(filter))
			w, ok := m.Group(outer).Best(plan.Generic)
			if !tt.incumbent {
				assert.False(t, ok, "a winner reading its own group is dropped")
				return
			}
			require.True(t, ok)
			assert.Equal(t, Winner{Expr: conv.ID, Cost: 5}, w)
		})
	}
}
