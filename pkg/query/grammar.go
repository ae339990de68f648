package query

import (
	"strconv"
	"strings"

	"github.com/bisegni/idxq/pkg/value"
)

// AST for Participle Parser

type ASTSelect struct {
	SelectFields []*ASTSelectField `parser:"'SELECT' @@ (',' @@)*"`
	From         string            `parser:"'FROM' (@Ident | @String)"`
	Joins        []*ASTJoin        `parser:"@@*"`
	Where        *ASTExpression    `parser:"('WHERE' @@)?"`
	OrderBy      []*ASTOrderKey    `parser:"('ORDER' 'BY' @@ (',' @@)*)?"`
	Limit        *int              `parser:"('LIMIT' @Number)?"`
}

type ASTSelectField struct {
	Star  bool      `parser:"(  @'*'"`
	Value *ASTValue `parser:"  | @@ )"`
	Alias string    `parser:"('AS' @Ident)?"`
}

type ASTJoin struct {
	Type  string    `parser:"@('INNER' | 'LEFT' | 'RIGHT' | 'FULL')? 'OUTER'? 'JOIN'"`
	Table string    `parser:"(@Ident | @String)"`
	Left  *ASTValue `parser:"'ON' @@"`
	Right *ASTValue `parser:"'=' @@"`
}

type ASTOrderKey struct {
	Column *ASTValue `parser:"@@"`
	Desc   bool      `parser:"('ASC' | @'DESC')?"`
}

type ASTExpression struct {
	Or []*ASTOrCondition `parser:"@@ ('OR' @@)*"`
}

type ASTOrCondition struct {
	And []*ASTCondition `parser:"@@ ('AND' @@)*"`
}

type ASTCondition struct {
	Not     *ASTCondition       `parser:"  'NOT' @@"`
	Grouped *ASTExpression      `parser:"| '(' @@ ')'"`
	Bool    string              `parser:"| @('TRUE' | 'FALSE')"`
	Simple  *ASTSimpleCondition `parser:"| @@"`
}

type ASTSimpleCondition struct {
	Operand *ASTOperand `parser:"@@"`
	Op      string      `parser:"@('=' | '!=' | '>=' | '<=' | '>' | '<' | '~=' | 'CONTAINS' | 'MATCH')"`
	Value   *ASTOperand `parser:"@@"`
}

type ASTOperand struct {
	Function *ASTFunction `parser:"  @@"`
	Literal  *ASTLiteral  `parser:"| @@"`
	Value    *ASTValue    `parser:"| @@"`
}

type ASTFunction struct {
	Name string        `parser:"@Ident"`
	Args []*ASTOperand `parser:"'(' @@ (',' @@)* ')'"`
}

type ASTValue struct {
	// table.column or column
	Parts []string `parser:"@Ident ('.' @Ident)?"`
}

func (v *ASTValue) String() string {
	return strings.Join(v.Parts, ".")
}

type ASTLiteral struct {
	Number *string `parser:"  @Number"`
	StrVal *string `parser:"| @String"`
	Bool   string  `parser:"| @('TRUE' | 'FALSE')"`
}

// Helpers

func (s *ASTSelect) ToSelectQuery() (*SelectQuery, error) {
	sq := &SelectQuery{
		FromTable: s.From,
		Limit:     -1,
	}

	for _, f := range s.SelectFields {
		if f.Star {
			if len(s.SelectFields) > 1 {
				return nil, errParse("'*' cannot be combined with other fields")
			}
			break
		}
		path := f.Value.String()
		alias := f.Alias
		if alias == "" {
			alias = f.Value.Parts[len(f.Value.Parts)-1]
		}
		sq.Fields = append(sq.Fields, Field{Path: path, Alias: alias})
	}

	for _, j := range s.Joins {
		jt := strings.ToUpper(j.Type)
		if jt == "" {
			jt = "INNER"
		}
		sq.Joins = append(sq.Joins, JoinClause{
			Type:     jt,
			Table:    j.Table,
			LeftKey:  j.Left.String(),
			RightKey: j.Right.String(),
		})
	}

	if s.Where != nil {
		filter, err := s.Where.ToExpression()
		if err != nil {
			return nil, err
		}
		sq.Filter = filter
	}

	for _, k := range s.OrderBy {
		sq.OrderBy = append(sq.OrderBy, OrderKey{Column: k.Column.String(), Desc: k.Desc})
	}

	if s.Limit != nil {
		if *s.Limit < 0 {
			return nil, errParse("LIMIT must not be negative")
		}
		sq.Limit = *s.Limit
	}

	return sq, nil
}

// Map AST to Expression interface

func (e *ASTExpression) ToExpression() (Expression, error) {
	var expr Expression
	for _, o := range e.Or {
		right, err := o.ToExpression()
		if err != nil {
			return nil, err
		}
		if expr == nil {
			expr = right
			continue
		}
		expr = &OrExpression{Left: expr, Right: right}
	}
	return expr, nil
}

func (o *ASTOrCondition) ToExpression() (Expression, error) {
	var expr Expression
	for _, a := range o.And {
		right, err := a.ToExpression()
		if err != nil {
			return nil, err
		}
		if expr == nil {
			expr = right
			continue
		}
		expr = &AndExpression{Left: expr, Right: right}
	}
	return expr, nil
}

func (c *ASTCondition) ToExpression() (Expression, error) {
	switch {
	case c.Not != nil:
		inner, err := c.Not.ToExpression()
		if err != nil {
			return nil, err
		}
		return &NotExpression{Inner: inner}, nil
	case c.Grouped != nil:
		return c.Grouped.ToExpression()
	case c.Bool != "":
		return BoolLiteral(strings.EqualFold(c.Bool, "TRUE")), nil
	case c.Simple != nil:
		op, err := value.ParseOp(c.Simple.Op)
		if err != nil {
			return nil, errParse(err.Error())
		}
		left, err := c.Simple.Operand.ToOperand()
		if err != nil {
			return nil, err
		}
		right, err := c.Simple.Value.ToOperand()
		if err != nil {
			return nil, err
		}
		return &Condition{Left: left, Op: op, Right: right}, nil
	}
	return nil, errParse("empty condition")
}

func (o *ASTOperand) ToOperand() (Operand, error) {
	switch {
	case o.Function != nil:
		call := &Call{Name: strings.ToLower(o.Function.Name)}
		for _, a := range o.Function.Args {
			arg, err := a.ToOperand()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		return call, nil
	case o.Literal != nil:
		v, err := o.Literal.ToValue()
		if err != nil {
			return nil, err
		}
		return &Literal{Val: v}, nil
	case o.Value != nil:
		return &ColumnRef{Name: o.Value.String()}, nil
	}
	return nil, errParse("empty operand")
}

// ToValue returns int64 for integral numbers and float64 otherwise.
func (l *ASTLiteral) ToValue() (interface{}, error) {
	switch {
	case l.Number != nil:
		n := *l.Number
		if !strings.Contains(n, ".") {
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, errParse("invalid number " + n)
		}
		return f, nil
	case l.StrVal != nil:
		return *l.StrVal, nil
	case l.Bool != "":
		return strings.EqualFold(l.Bool, "TRUE"), nil
	}
	return nil, nil
}
