package engine

import (
	"context"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/plan"
)

// Interpret evaluates a plan of any convention row at a time, reading
// tables directly. Native queries of scans are applied as row predicates
// and converters are transparent. It defines the results every optimized
// plan must reproduce.
func Interpret(ctx context.Context, p *plan.Node) (database.RowIterator, error) {
	if p == nil {
		return nil, errorx.NewPlanError("nothing to execute")
	}
	b := &builder{ctx: ctx, interpret: true}
	it, err := b.build(p)
	if err != nil {
		return nil, err
	}
	return &rootIterator{ctx: ctx, source: it}, nil
}

// Collect drains it, closes it and returns the rows read.
func Collect(it database.RowIterator) ([]database.Row, error) {
	defer it.Close()
	var rows []database.Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Error()
}
