package query

import (
	"fmt"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/value"
)

// Expression is a boolean expression that can be evaluated against a row.
// Evaluation is two-valued: a missing or incomparable operand makes a
// comparison false.
type Expression interface {
	Evaluate(row database.Row) bool
	String() string
}

// Operand is a scalar term of a comparison.
type Operand interface {
	Value(row database.Row) interface{}
	String() string
}

// ColumnRef reads a column of the row by (optionally qualified) name.
type ColumnRef struct {
	Name string
}

func (c *ColumnRef) Value(row database.Row) interface{} {
	v, err := row.Get(c.Name)
	if err != nil {
		return nil
	}
	return v
}

func (c *ColumnRef) String() string {
	return c.Name
}

// Literal is a constant operand.
type Literal struct {
	Val interface{}
}

func (l *Literal) Value(database.Row) interface{} {
	return l.Val
}

func (l *Literal) String() string {
	switch v := l.Val.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	return fmt.Sprintf("%v", l.Val)
}

// Call applies a scalar function to its arguments.
type Call struct {
	Name string
	Args []Operand
}

func (c *Call) Value(row database.Row) interface{} {
	fn, ok := functions[strings.ToLower(c.Name)]
	if !ok {
		return nil
	}
	args := make([]interface{}, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Value(row)
	}
	return fn.apply(args)
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", strings.ToLower(c.Name), strings.Join(args, ", "))
}

type function struct {
	arity  int
	result value.Type
	apply  func(args []interface{}) interface{}
}

var functions = map[string]function{
	"length": {arity: 1, result: value.Int, apply: func(args []interface{}) interface{} {
		s, ok := args[0].(string)
		if !ok {
			return nil
		}
		return int64(len([]rune(s)))
	}},
	"lower": {arity: 1, result: value.String, apply: func(args []interface{}) interface{} {
		s, ok := args[0].(string)
		if !ok {
			return nil
		}
		return strings.ToLower(s)
	}},
	"upper": {arity: 1, result: value.String, apply: func(args []interface{}) interface{} {
		s, ok := args[0].(string)
		if !ok {
			return nil
		}
		return strings.ToUpper(s)
	}},
}

// Condition is a comparison leaf: Left Op Right.
type Condition struct {
	Left  Operand
	Op    value.Op
	Right Operand
}

func (c *Condition) Evaluate(row database.Row) bool {
	return value.Apply(c.Op, c.Left.Value(row), c.Right.Value(row))
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// AndExpression represents Logical AND
type AndExpression struct {
	Left  Expression
	Right Expression
}

func (a *AndExpression) Evaluate(row database.Row) bool {
	return a.Left.Evaluate(row) && a.Right.Evaluate(row)
}

func (a *AndExpression) String() string {
	return "(" + a.Left.String() + " AND " + a.Right.String() + ")"
}

// OrExpression represents Logical OR
type OrExpression struct {
	Left  Expression
	Right Expression
}

func (o *OrExpression) Evaluate(row database.Row) bool {
	return o.Left.Evaluate(row) || o.Right.Evaluate(row)
}

func (o *OrExpression) String() string {
	return "(" + o.Left.String() + " OR " + o.Right.String() + ")"
}

// NotExpression represents Logical NOT
type NotExpression struct {
	Inner Expression
}

func (n *NotExpression) Evaluate(row database.Row) bool {
	return !n.Inner.Evaluate(row)
}

func (n *NotExpression) String() string {
	return "NOT " + n.Inner.String()
}

// BoolLiteral is a constant predicate.
type BoolLiteral bool

func (b BoolLiteral) Evaluate(database.Row) bool {
	return bool(b)
}

func (b BoolLiteral) String() string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

const (
	True  = BoolLiteral(true)
	False = BoolLiteral(false)
)

// Col, Lit, Cmp, And, Or and Not build expressions programmatically.

func Col(name string) *ColumnRef { return &ColumnRef{Name: name} }

func Lit(v interface{}) *Literal { return &Literal{Val: v} }

func Cmp(left Operand, op value.Op, right Operand) *Condition {
	return &Condition{Left: left, Op: op, Right: right}
}

// And folds its arguments left to right. With no arguments it is TRUE.
func And(exprs ...Expression) Expression {
	if len(exprs) == 0 {
		return True
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &AndExpression{Left: out, Right: e}
	}
	return out
}

// Or folds its arguments left to right. With no arguments it is FALSE.
func Or(exprs ...Expression) Expression {
	if len(exprs) == 0 {
		return False
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &OrExpression{Left: out, Right: e}
	}
	return out
}

func Not(e Expression) Expression {
	return &NotExpression{Inner: e}
}

// Conjuncts flattens nested ANDs into their operands.
func Conjuncts(e Expression) []Expression {
	if a, ok := e.(*AndExpression); ok {
		return append(Conjuncts(a.Left), Conjuncts(a.Right)...)
	}
	return []Expression{e}
}

// Columns returns the column references used by e, in first-use order.
func Columns(e Expression) []string {
	var out []string
	seen := map[string]bool{}
	var visitOperand func(o Operand)
	visitOperand = func(o Operand) {
		switch v := o.(type) {
		case *ColumnRef:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case *Call:
			for _, a := range v.Args {
				visitOperand(a)
			}
		}
	}
	var visit func(e Expression)
	visit = func(e Expression) {
		switch v := e.(type) {
		case *Condition:
			visitOperand(v.Left)
			visitOperand(v.Right)
		case *AndExpression:
			visit(v.Left)
			visit(v.Right)
		case *OrExpression:
			visit(v.Left)
			visit(v.Right)
		case *NotExpression:
			visit(v.Inner)
		}
	}
	visit(e)
	return out
}

// Validate checks that e only references columns of schema, calls known
// functions and compares operands of compatible types.
func Validate(e Expression, schema database.Schema) error {
	switch v := e.(type) {
	case BoolLiteral:
		return nil
	case *Condition:
		lt, err := operandType(v.Left, schema)
		if err != nil {
			return err
		}
		rt, err := operandType(v.Right, schema)
		if err != nil {
			return err
		}
		if lt == value.Unknown || rt == value.Unknown {
			return nil
		}
		switch v.Op {
		case value.Contains, value.Match:
			if lt != value.String || rt != value.String {
				return errorx.NewSchemaMismatch("operator %s needs string operands in '%s'", v.Op, v)
			}
		default:
			if !value.Comparable(lt, rt) {
				return errorx.NewSchemaMismatch("cannot compare %s with %s in '%s'", lt, rt, v)
			}
		}
		return nil
	case *AndExpression:
		if err := Validate(v.Left, schema); err != nil {
			return err
		}
		return Validate(v.Right, schema)
	case *OrExpression:
		if err := Validate(v.Left, schema); err != nil {
			return err
		}
		return Validate(v.Right, schema)
	case *NotExpression:
		return Validate(v.Inner, schema)
	}
	return errorx.NewPlanError("unsupported expression %T", e)
}

func operandType(o Operand, schema database.Schema) (value.Type, error) {
	switch v := o.(type) {
	case *ColumnRef:
		col, err := schema.Column(v.Name)
		if err != nil {
			return value.Unknown, err
		}
		return col.Type, nil
	case *Literal:
		return value.TypeOf(v.Val), nil
	case *Call:
		fn, ok := functions[strings.ToLower(v.Name)]
		if !ok {
			return value.Unknown, errorx.NewPlanError("unknown function '%s'", v.Name)
		}
		if len(v.Args) != fn.arity {
			return value.Unknown, errorx.NewPlanError("function '%s' takes %d argument(s), got %d", v.Name, fn.arity, len(v.Args))
		}
		for _, a := range v.Args {
			if _, err := operandType(a, schema); err != nil {
				return value.Unknown, err
			}
		}
		return fn.result, nil
	}
	return value.Unknown, errorx.NewPlanError("unsupported operand %T", o)
}
