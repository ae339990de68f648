package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/value"
)

var testSchema = database.Schema{
	{Table: "t", Name: "val", Type: value.Int},
	{Table: "t", Name: "status", Type: value.String},
	{Table: "t", Name: "type", Type: value.String},
}

func testRow(val interface{}, status, typ string) database.Row {
	return database.NewTupleRow(testSchema, []interface{}{val, status, typ})
}

func TestBooleanLogic(t *testing.T) {
	row := testRow(int64(15), "active", "normal")

	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{
			name:     "Simple AND - True",
			query:    "SELECT * FROM t WHERE val > 10 AND status = 'active'",
			expected: true,
		},
		{
			name:     "Simple AND - False",
			query:    "SELECT * FROM t WHERE val > 20 AND status = 'active'",
			expected: false,
		},
		{
			name:     "Simple OR - True",
			query:    "SELECT * FROM t WHERE val > 20 OR status = 'active'",
			expected: true,
		},
		{
			name: "AND with OR - Precedence AND > OR",
			// (True AND False) OR True => True
			query:    "SELECT * FROM t WHERE val > 10 AND status = 'inactive' OR type = 'normal'",
			expected: true,
		},
		{
			name:     "NOT",
			query:    "SELECT * FROM t WHERE NOT status = 'active'",
			expected: false,
		},
		{
			name:     "Literal on the left",
			query:    "SELECT * FROM t WHERE 20 > val",
			expected: true,
		},
		{
			name:     "Function call",
			query:    "SELECT * FROM t WHERE length(status) = 6 AND upper(type) = 'NORMAL'",
			expected: true,
		},
		{
			name:     "Match is token based",
			query:    "SELECT * FROM t WHERE status MATCH 'ACTIVE'",
			expected: true,
		},
		{
			name:     "Constant false",
			query:    "SELECT * FROM t WHERE FALSE OR val = 15.0",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.query)
			require.NoError(t, err)
			require.NotNil(t, q.Filter, "Expected Filter to be populated")
			require.NoError(t, Validate(q.Filter, testSchema))
			assert.Equal(t, tt.expected, q.Filter.Evaluate(row), q.Filter.String())
		})
	}
}

func TestMissingValueNeverMatches(t *testing.T) {
	row := testRow(nil, "active", "normal")
	assert.False(t, Cmp(Col("val"), value.Gt, Lit(1)).Evaluate(row))
	assert.False(t, Cmp(Col("val"), value.Ne, Lit(1)).Evaluate(row))
	assert.True(t, Not(Cmp(Col("val"), value.Gt, Lit(1))).Evaluate(row))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expression
		mismatch bool
		plan     bool
	}{
		{name: "ok", expr: And(Cmp(Col("val"), value.Ge, Lit(1.5)), Cmp(Col("t.type"), value.Contains, Lit("x")))},
		{name: "unknown column", expr: Cmp(Col("nope"), value.Eq, Lit(1)), mismatch: true},
		{name: "type clash", expr: Cmp(Col("val"), value.Eq, Lit("x")), mismatch: true},
		{name: "contains on int", expr: Cmp(Col("val"), value.Contains, Lit("1")), mismatch: true},
		{name: "unknown function", expr: Cmp(&Call{Name: "sqrt", Args: []Operand{Col("val")}}, value.Eq, Lit(1)), plan: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expr, testSchema)
			switch {
			case tt.mismatch:
				assert.True(t, errorx.IsSchemaMismatch(err), "got %v", err)
			case tt.plan:
				assert.True(t, errorx.IsPlanningError(err), "got %v", err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestColumnsAndConjuncts(t *testing.T) {
	e := And(
		Cmp(Col("a"), value.Gt, Lit(1)),
		Or(Cmp(&Call{Name: "length", Args: []Operand{Col("b")}}, value.Eq, Lit(1)), Cmp(Col("a"), value.Lt, Lit(0))),
		Not(Cmp(Col("c"), value.Eq, Lit("x"))),
	)
	assert.Equal(t, []string{"a", "b", "c"}, Columns(e))
	assert.Len(t, Conjuncts(e), 3)
	assert.Equal(t, "((a > 1 AND (length(b) = 1 OR a < 0)) AND NOT c = 'x')", e.String())
}
