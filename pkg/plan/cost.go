package plan

import (
	"math"

	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/query"
	"github.com/bisegni/idxq/pkg/value"
)

// DefaultTableRows is the row estimate of tables that cannot count rows.
const DefaultTableRows = 1000

// CostModel holds the constants of the static plan-shape cost model. Costs
// are abstract units; only their relative order matters.
type CostModel struct {
	IndexLookup float64 // fixed overhead of running a selective native query
	IndexRow    float64 // per row id produced by the index
	FetchRow    float64 // per row materialized across a converter
	FilterRow   float64 // per input row of a row-wise filter
	ProjectRow  float64 // per input row of a projection
	SortRow     float64 // per n*log(n) unit of a sort
	JoinRow     float64 // per input row of a hash join
	TupleRow    float64 // per row produced by limit, values and join output
	Operator    float64 // lower bound of the local cost of any physical operator
}

// DefaultCostModel makes native filtering strictly cheaper than fetching
// rows and filtering them afterwards.
var DefaultCostModel = CostModel{
	IndexLookup: 10,
	IndexRow:    0.1,
	FetchRow:    1,
	FilterRow:   1,
	ProjectRow:  0.2,
	SortRow:     0.5,
	JoinRow:     1.5,
	TupleRow:    0.1,
	Operator:    0.01,
}

// Local returns the cost of op alone, running in conv, producing rows from
// inputs of the given sizes. Logical operators have no cost; physical ones
// cost at least m.Operator, so an operator always costs more than its input.
func (m CostModel) Local(op Operator, conv Convention, rows float64, inputs []float64) float64 {
	if conv == None {
		return 0
	}
	return math.Max(m.local(op, conv, rows, inputs), m.Operator)
}

func (m CostModel) local(op Operator, conv Convention, rows float64, inputs []float64) float64 {
	in := func(i int) float64 {
		if i < len(inputs) {
			return inputs[i]
		}
		return 0
	}
	switch o := op.(type) {
	case *Scan:
		if conv != Index {
			return rows * m.FetchRow
		}
		cost := rows * m.IndexRow
		if !index.IsMatchAll(o.Native) {
			cost += m.IndexLookup
		}
		return cost
	case *Converter:
		return rows * m.FetchRow
	case *Filter:
		return in(0) * m.FilterRow
	case *Project:
		return in(0) * m.ProjectRow
	case *Sort:
		n := in(0)
		return n * math.Log2(n+2) * m.SortRow
	case *Join:
		return (in(0)+in(1))*m.JoinRow + rows*m.TupleRow
	case *Limit, *Values:
		return rows * m.TupleRow
	}
	return rows
}

// RowCounter is implemented by tables that know their size.
type RowCounter interface {
	RowCount() int
}

// EstimateRows returns the heuristic output size of op over inputs of the
// given sizes.
func EstimateRows(op Operator, inputs []float64) float64 {
	in := func(i int) float64 {
		if i < len(inputs) {
			return inputs[i]
		}
		return 0
	}
	switch o := op.(type) {
	case *Scan:
		base := float64(DefaultTableRows)
		if rc, ok := o.Table.(RowCounter); ok {
			base = float64(rc.RowCount())
		}
		return base * QuerySelectivity(o.NativeQuery())
	case *Filter:
		return in(0) * Selectivity(o.Predicate)
	case *Limit:
		return math.Min(float64(o.Count), in(0))
	case *Values:
		return float64(len(o.Rows))
	case *Join:
		switch o.Type {
		case InnerJoin:
			return math.Max(in(0), in(1))
		case LeftJoin:
			return in(0)
		case RightJoin:
			return in(1)
		}
		return in(0) + in(1)
	}
	return in(0)
}

func opSelectivity(op value.Op) float64 {
	switch op {
	case value.Eq:
		return 0.1
	case value.Ne:
		return 0.9
	case value.Match:
		return 0.05
	case value.Contains:
		return 0.2
	}
	return 0.3
}

// Selectivity estimates the fraction of rows accepted by e.
func Selectivity(e query.Expression) float64 {
	switch v := e.(type) {
	case query.BoolLiteral:
		if v {
			return 1
		}
		return 0
	case *query.Condition:
		return opSelectivity(v.Op)
	case *query.AndExpression:
		return Selectivity(v.Left) * Selectivity(v.Right)
	case *query.OrExpression:
		l, r := Selectivity(v.Left), Selectivity(v.Right)
		return l + r - l*r
	case *query.NotExpression:
		return 1 - Selectivity(v.Inner)
	}
	return 0.5
}

// QuerySelectivity estimates the fraction of rows selected by a native query.
func QuerySelectivity(q index.Query) float64 {
	switch v := q.(type) {
	case index.MatchAll:
		return 1
	case index.MatchNone:
		return 0
	case *index.Term:
		return opSelectivity(v.Op)
	case *index.And:
		return QuerySelectivity(v.Left) * QuerySelectivity(v.Right)
	case *index.Or:
		l, r := QuerySelectivity(v.Left), QuerySelectivity(v.Right)
		return l + r - l*r
	case *index.Not:
		return 1 - QuerySelectivity(v.Inner)
	}
	return 0.5
}
