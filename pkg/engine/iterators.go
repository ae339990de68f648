package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/query"
	"github.com/bisegni/idxq/pkg/value"
)

// rootIterator checks cancellation between rows and gives every failure the
// executor error code. After a failure it yields nothing more. The source is
// released as soon as the rows run out.
type rootIterator struct {
	ctx    context.Context
	source database.RowIterator
	rctx   *Context
	err    error
	done   bool
	closed bool
}

func (it *rootIterator) Next() bool {
	if it.done {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}
	if it.source.Next() {
		return true
	}
	if err := it.source.Error(); err != nil {
		it.fail(err)
		return false
	}
	it.done = true
	if err := it.Close(); err != nil {
		it.err = errorx.NewExecutorError(err)
	}
	return false
}

func (it *rootIterator) fail(err error) {
	it.err = errorx.NewExecutorError(err)
	it.done = true
	if m := it.rctx.metrics(); m != nil {
		m.ExecErrors.Inc()
	}
	it.rctx.logger().Debugf("Execution failed: %v", err)
	it.Close()
}

func (it *rootIterator) Row() database.Row {
	return it.source.Row()
}

func (it *rootIterator) Error() error {
	return it.err
}

func (it *rootIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed, it.done = true, true
	return it.source.Close()
}

// scanIterator reads a table directly, keeping the rows the native query
// matches. The table is opened on the first pull.
type scanIterator struct {
	scan    *plan.Scan
	native  interface{ Matches(database.Row) bool }
	source  database.RowIterator
	row     database.Row
	err     error
	started bool
}

func newScanIterator(scan *plan.Scan) *scanIterator {
	return &scanIterator{scan: scan, native: scan.NativeQuery()}
}

func (it *scanIterator) Next() bool {
	if !it.started {
		it.started = true
		src, err := it.scan.Table.Iterate()
		if err != nil {
			it.err = err
			return false
		}
		it.source = src
	}
	if it.source == nil {
		return false
	}
	for it.source.Next() {
		row := it.source.Row()
		if it.native.Matches(row) {
			it.row = row
			return true
		}
	}
	return false
}

func (it *scanIterator) Row() database.Row {
	return it.row
}

func (it *scanIterator) Error() error {
	if it.err != nil || it.source == nil {
		return it.err
	}
	return it.source.Error()
}

func (it *scanIterator) Close() error {
	if it.source == nil {
		return nil
	}
	return it.source.Close()
}

type filterIterator struct {
	source     database.RowIterator
	expression query.Expression
}

func (it *filterIterator) Next() bool {
	for it.source.Next() {
		if it.expression.Evaluate(it.source.Row()) {
			return true
		}
	}
	return false
}

func (it *filterIterator) Row() database.Row {
	return it.source.Row()
}

func (it *filterIterator) Error() error {
	return it.source.Error()
}

func (it *filterIterator) Close() error {
	return it.source.Close()
}

// projectIterator selects and renames columns by position.
type projectIterator struct {
	source    database.RowIterator
	schema    database.Schema
	positions []int
	row       database.Row
}

func newProjectIterator(source database.RowIterator, in, out database.Schema, op *plan.Project) (*projectIterator, error) {
	positions := make([]int, len(op.Fields))
	for i, f := range op.Fields {
		pos, err := in.IndexOf(f.Path)
		if err != nil {
			source.Close()
			return nil, err
		}
		positions[i] = pos
	}
	return &projectIterator{source: source, schema: out, positions: positions}, nil
}

func (it *projectIterator) Next() bool {
	if !it.source.Next() {
		return false
	}
	src := it.source.Row().Values()
	vals := make([]interface{}, len(it.positions))
	for i, pos := range it.positions {
		vals[i] = src[pos]
	}
	it.row = database.NewTupleRow(it.schema, vals)
	return true
}

func (it *projectIterator) Row() database.Row {
	return it.row
}

func (it *projectIterator) Error() error {
	return it.source.Error()
}

func (it *projectIterator) Close() error {
	return it.source.Close()
}

// sortIterator drains its input on the first pull and replays it ordered.
// Equal keys keep their input order.
type sortIterator struct {
	*database.SliceIterator
	source    database.RowIterator
	schema    database.Schema
	keys      []plan.SortKey
	positions []int
	sorted    bool
}

func newSortIterator(source database.RowIterator, schema database.Schema, op *plan.Sort) (*sortIterator, error) {
	positions := make([]int, len(op.Keys))
	for i, k := range op.Keys {
		pos, err := schema.IndexOf(k.Column)
		if err != nil {
			source.Close()
			return nil, err
		}
		positions[i] = pos
	}
	return &sortIterator{source: source, schema: schema, keys: op.Keys, positions: positions}, nil
}

func (it *sortIterator) Next() bool {
	if !it.sorted {
		it.sorted = true
		var rows [][]interface{}
		for it.source.Next() {
			rows = append(rows, it.source.Row().Values())
		}
		if it.source.Error() != nil {
			return false
		}
		sort.SliceStable(rows, func(i, j int) bool {
			for k, pos := range it.positions {
				c := orderValues(rows[i][pos], rows[j][pos])
				if it.keys[k].Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
		it.SliceIterator = database.NewSliceIterator(it.schema, rows)
	}
	if it.SliceIterator == nil {
		return false
	}
	return it.SliceIterator.Next()
}

func (it *sortIterator) Row() database.Row {
	return it.SliceIterator.Row()
}

func (it *sortIterator) Error() error {
	return it.source.Error()
}

func (it *sortIterator) Close() error {
	return it.source.Close()
}

// orderValues is a total order over column values: missing values first,
// then values of the same kind by value.Compare.
func orderValues(a, b interface{}) int {
	if c, ok := value.Compare(a, b); ok {
		return c
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(value.Key(a), value.Key(b))
}

type limitIterator struct {
	source    database.RowIterator
	remaining int
}

func (it *limitIterator) Next() bool {
	if it.remaining <= 0 {
		return false
	}
	if !it.source.Next() {
		return false
	}
	it.remaining--
	return true
}

func (it *limitIterator) Row() database.Row {
	return it.source.Row()
}

func (it *limitIterator) Error() error {
	return it.source.Error()
}

func (it *limitIterator) Close() error {
	return it.source.Close()
}

// hashJoinIterator builds a hash table over the right input on the first
// pull and probes it with the left rows. Missing keys never match.
type hashJoinIterator struct {
	left, right         database.RowIterator
	leftWidth           int
	rightWidth          int
	leftKey, rightKey   int
	schema              database.Schema
	keepLeft, keepRight bool

	built     bool
	table     map[string][]int
	rightRows [][]interface{}
	matched   []bool
	pending   [][]interface{}
	leftDone  bool
	unmatched int
	row       database.Row
	err       error
}

func newHashJoinIterator(left, right database.RowIterator, ls, rs, out database.Schema, op *plan.Join) (*hashJoinIterator, error) {
	lk, err := ls.IndexOf(op.LeftKey)
	if err == nil {
		var rk int
		rk, err = rs.IndexOf(op.RightKey)
		if err == nil {
			return &hashJoinIterator{
				left: left, right: right,
				leftWidth: len(ls), rightWidth: len(rs),
				leftKey: lk, rightKey: rk,
				schema:    out,
				keepLeft:  op.Type == plan.LeftJoin || op.Type == plan.FullJoin,
				keepRight: op.Type == plan.RightJoin || op.Type == plan.FullJoin,
			}, nil
		}
	}
	left.Close()
	right.Close()
	return nil, err
}

func (it *hashJoinIterator) build() bool {
	it.built = true
	it.table = map[string][]int{}
	for it.right.Next() {
		vals := it.right.Row().Values()
		if k := vals[it.rightKey]; k != nil {
			key := value.Key(k)
			it.table[key] = append(it.table[key], len(it.rightRows))
		}
		it.rightRows = append(it.rightRows, vals)
	}
	if err := it.right.Error(); err != nil {
		it.err = err
		return false
	}
	it.matched = make([]bool, len(it.rightRows))
	return true
}

func (it *hashJoinIterator) Next() bool {
	if it.err != nil || (!it.built && !it.build()) {
		return false
	}
	for len(it.pending) == 0 {
		if !it.leftDone {
			if !it.left.Next() {
				if it.err = it.left.Error(); it.err != nil {
					return false
				}
				it.leftDone = true
				continue
			}
			it.probe(it.left.Row().Values())
			continue
		}
		if !it.keepRight {
			return false
		}
		for it.unmatched < len(it.rightRows) && it.matched[it.unmatched] {
			it.unmatched++
		}
		if it.unmatched == len(it.rightRows) {
			return false
		}
		it.pending = append(it.pending, it.combine(make([]interface{}, it.leftWidth), it.rightRows[it.unmatched]))
		it.unmatched++
	}
	it.row = database.NewTupleRow(it.schema, it.pending[0])
	it.pending = it.pending[1:]
	return true
}

func (it *hashJoinIterator) probe(left []interface{}) {
	if k := left[it.leftKey]; k != nil {
		for _, ri := range it.table[value.Key(k)] {
			it.matched[ri] = true
			it.pending = append(it.pending, it.combine(left, it.rightRows[ri]))
		}
	}
	if len(it.pending) == 0 && it.keepLeft {
		it.pending = append(it.pending, it.combine(left, make([]interface{}, it.rightWidth)))
	}
}

func (it *hashJoinIterator) combine(l, r []interface{}) []interface{} {
	out := make([]interface{}, 0, len(l)+len(r))
	return append(append(out, l...), r...)
}

func (it *hashJoinIterator) Row() database.Row {
	return it.row
}

func (it *hashJoinIterator) Error() error {
	return it.err
}

func (it *hashJoinIterator) Close() error {
	lerr := it.left.Close()
	if rerr := it.right.Close(); rerr != nil {
		return rerr
	}
	return lerr
}
