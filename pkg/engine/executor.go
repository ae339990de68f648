package engine

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/bisegni/idxq/pkg/conf"
	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/metrics"
	"github.com/bisegni/idxq/pkg/plan"
)

// Context carries the per-execution settings.
type Context struct {
	// VerifyPushdown re-checks every row fetched through a pushed-down scan
	// against the original predicate. A disagreement is fatal.
	VerifyPushdown bool
	Metrics        *metrics.Metrics
	Log            *logrus.Entry
}

func (rc *Context) logger() *logrus.Entry {
	if rc == nil || rc.Log == nil {
		return logrus.NewEntry(conf.Log)
	}
	return rc.Log
}

func (rc *Context) metrics() *metrics.Metrics {
	if rc == nil {
		return nil
	}
	return rc.Metrics
}

// Execute compiles a physical plan rooted in the generic convention into a
// pull iterator. Nothing is read before the first call to Next; errors
// raised while iterating carry the executor error code.
func Execute(ctx context.Context, p *plan.Node, rctx *Context) (database.RowIterator, error) {
	if p == nil {
		return nil, errorx.NewPlanError("nothing to execute")
	}
	if err := p.Validate(plan.Generic); err != nil {
		return nil, err
	}
	b := &builder{ctx: ctx, rctx: rctx}
	it, err := b.build(p)
	if err != nil {
		return nil, err
	}
	return &rootIterator{ctx: ctx, source: it, rctx: rctx}, nil
}

type builder struct {
	ctx  context.Context
	rctx *Context
	// reference evaluation of logical plans
	interpret bool
}

func (b *builder) build(n *plan.Node) (database.RowIterator, error) {
	if _, ok := n.Operator().(*plan.Converter); ok && !b.interpret {
		return b.converter(n)
	}
	children := make([]database.RowIterator, len(n.Children()))
	for i, c := range n.Children() {
		it, err := b.build(c)
		if err != nil {
			closeAll(children[:i])
			return nil, err
		}
		children[i] = it
	}

	switch op := n.Operator().(type) {
	case *plan.Converter:
		return children[0], nil
	case *plan.Scan:
		if b.interpret {
			return newScanIterator(op), nil
		}
		return nil, errorx.NewPlanError("scan of %s outside a converter", op.Table.Name())
	case *plan.Filter:
		return &filterIterator{source: children[0], expression: op.Predicate}, nil
	case *plan.Project:
		return newProjectIterator(children[0], n.Children()[0].Schema(), n.Schema(), op)
	case *plan.Sort:
		return newSortIterator(children[0], n.Schema(), op)
	case *plan.Limit:
		return &limitIterator{source: children[0], remaining: op.Count}, nil
	case *plan.Join:
		if !b.interpret && op.Type != plan.InnerJoin && op.Type != plan.LeftJoin {
			closeAll(children)
			return nil, errorx.NewPlanError("%s join has no executable form", op.Type)
		}
		return newHashJoinIterator(children[0], children[1], n.Children()[0].Schema(), n.Children()[1].Schema(), n.Schema(), op)
	case *plan.Values:
		return database.NewSliceIterator(n.Schema(), op.Rows), nil
	}
	closeAll(children)
	return nil, errorx.NewPlanError("no executor for %s", n.Kind())
}

func (b *builder) converter(n *plan.Node) (database.RowIterator, error) {
	child := n.Children()[0]
	scan, ok := child.Operator().(*plan.Scan)
	if !ok {
		return nil, errorx.NewPlanError("converter over %s is not supported", child.Kind())
	}
	h, ok := scan.Table.(index.Handle)
	if !ok {
		return nil, errorx.NewPlanError("table %s is not index backed", scan.Table.Name())
	}
	return &converterIterator{
		ctx:    b.ctx,
		handle: h,
		scan:   scan,
		schema: n.Schema(),
		verify: b.rctx != nil && b.rctx.VerifyPushdown,
		log:    b.rctx.logger().WithField("table", h.Name()),
		stats:  b.rctx.metrics(),
	}, nil
}

func closeAll(its []database.RowIterator) {
	for _, it := range its {
		if it != nil {
			it.Close()
		}
	}
}

// Executor writes query results.
type Executor struct {
	Pretty bool
}

func NewExecutor() *Executor {
	return &Executor{
		Pretty: false,
	}
}

// Write drains it as JSON lines and closes it. It returns the number of
// rows written.
func (e *Executor) Write(it database.RowIterator, w io.Writer) (int, error) {
	defer it.Close()

	// Stream results as JSONL
	encoder := json.NewEncoder(w)
	if e.Pretty {
		encoder.SetIndent("", "  ")
	} else {
		encoder.SetIndent("", "")
	}

	count := 0
	for it.Next() {
		if err := encoder.Encode(it.Row().Primitive()); err != nil {
			return count, err
		}
		count++
	}
	return count, it.Error()
}
