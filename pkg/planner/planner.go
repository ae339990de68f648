package planner

import (
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/query"
)

// CreatePlan converts a Query IR into a logical plan over the tables of cat.
//
// The tree is built bottom up as Scan, Join, Filter, Sort, Limit and
// Project, every node in the None convention. SELECT * adds no Project.
func CreatePlan(q *query.SelectQuery, cat *database.Catalog) (*plan.Node, error) {
	if q == nil {
		return nil, errorx.NewPlanError("no query")
	}

	// 1. Resolve Input (FROM)
	current, err := scan(q.FromTable, cat)
	if err != nil {
		return nil, err
	}

	// 2. Joins, left deep in source order
	for _, j := range q.Joins {
		jt, err := plan.ParseJoinType(strings.ToUpper(j.Type))
		if err != nil {
			return nil, err
		}
		right, err := scan(j.Table, cat)
		if err != nil {
			return nil, err
		}
		left, rightKey := j.LeftKey, j.RightKey
		// ON may name the new table first
		if !resolves(current.Schema(), left) && resolves(right.Schema(), left) {
			left, rightKey = rightKey, left
		}
		current, err = plan.New(&plan.Join{Type: jt, LeftKey: left, RightKey: rightKey}, plan.None, current, right)
		if err != nil {
			return nil, err
		}
	}

	// 3. Apply WHERE (Filter)
	if q.Filter != nil {
		if current, err = plan.New(&plan.Filter{Predicate: q.Filter}, plan.None, current); err != nil {
			return nil, err
		}
	}

	// 4. ORDER BY, resolving output aliases to their source columns
	if len(q.OrderBy) > 0 {
		keys := make([]plan.SortKey, len(q.OrderBy))
		for i, k := range q.OrderBy {
			keys[i] = plan.SortKey{Column: sourceOf(k.Column, q.Fields, current.Schema()), Desc: k.Desc}
		}
		if current, err = plan.New(&plan.Sort{Keys: keys}, plan.None, current); err != nil {
			return nil, err
		}
	}

	// 5. LIMIT
	if q.Limit >= 0 {
		if current, err = plan.New(&plan.Limit{Count: q.Limit}, plan.None, current); err != nil {
			return nil, err
		}
	}

	// 6. Projection
	if len(q.Fields) > 0 {
		if current, err = plan.New(&plan.Project{Fields: q.Fields}, plan.None, current); err != nil {
			return nil, err
		}
	}
	return current, nil
}

func scan(name string, cat *database.Catalog) (*plan.Node, error) {
	if cat == nil {
		return nil, errorx.NewPlanError("no catalog to resolve '%s'", name)
	}
	t, err := cat.ResolveTable(name)
	if err != nil {
		return nil, err
	}
	return plan.New(&plan.Scan{Table: t}, plan.None)
}

func resolves(s database.Schema, ref string) bool {
	_, err := s.IndexOf(ref)
	return err == nil
}

// sourceOf maps an ORDER BY reference naming a select alias to the column
// behind it. Input columns take precedence over aliases.
func sourceOf(ref string, fields []query.Field, input database.Schema) string {
	if resolves(input, ref) {
		return ref
	}
	for _, f := range fields {
		if f.Alias != "" && strings.EqualFold(f.Alias, ref) {
			return f.Path
		}
	}
	return ref
}
