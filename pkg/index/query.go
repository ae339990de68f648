package index

import (
	"fmt"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/value"
)

// Query is a native index query. Matches gives the row-level meaning of the
// query; an index must return exactly the ids of the rows it matches.
type Query interface {
	Matches(row database.Row) bool
	String() string
}

// MatchAll selects every row.
type MatchAll struct{}

func (MatchAll) Matches(database.Row) bool { return true }
func (MatchAll) String() string            { return "*:*" }

// MatchNone selects no row.
type MatchNone struct{}

func (MatchNone) Matches(database.Row) bool { return false }
func (MatchNone) String() string            { return "-*:*" }

// Term compares a column with a literal.
type Term struct {
	Column string
	Op     value.Op
	Value  interface{}
}

func (t *Term) Matches(row database.Row) bool {
	v, err := row.Get(t.Column)
	if err != nil {
		return false
	}
	return value.Apply(t.Op, v, t.Value)
}

func (t *Term) String() string {
	if s, ok := t.Value.(string); ok {
		return fmt.Sprintf("%s:%s%q", t.Column, opPrefix(t.Op), s)
	}
	return fmt.Sprintf("%s:%s%v", t.Column, opPrefix(t.Op), t.Value)
}

func opPrefix(op value.Op) string {
	switch op {
	case value.Eq:
		return ""
	case value.Contains:
		return "*"
	case value.Match:
		return "~"
	}
	return string(op)
}

// And matches rows matched by both clauses.
type And struct {
	Left, Right Query
}

func (q *And) Matches(row database.Row) bool {
	return q.Left.Matches(row) && q.Right.Matches(row)
}

func (q *And) String() string {
	return "+(" + q.Left.String() + ") +(" + q.Right.String() + ")"
}

// Or matches rows matched by either clause.
type Or struct {
	Left, Right Query
}

func (q *Or) Matches(row database.Row) bool {
	return q.Left.Matches(row) || q.Right.Matches(row)
}

func (q *Or) String() string {
	return "(" + q.Left.String() + ") (" + q.Right.String() + ")"
}

// Not matches rows the inner query does not match.
type Not struct {
	Inner Query
}

func (q *Not) Matches(row database.Row) bool {
	return !q.Inner.Matches(row)
}

func (q *Not) String() string {
	return "-(" + q.Inner.String() + ")"
}

// IsMatchAll reports whether q selects every row by construction.
func IsMatchAll(q Query) bool {
	if q == nil {
		return true
	}
	_, ok := q.(MatchAll)
	return ok
}

// IsMatchNone reports whether q selects no row by construction.
func IsMatchNone(q Query) bool {
	_, ok := q.(MatchNone)
	return ok
}

// Supported reports whether every term and combinator of q is covered by
// caps. MatchAll and MatchNone are always supported.
func Supported(q Query, caps Capabilities) bool {
	switch v := q.(type) {
	case MatchAll, MatchNone:
		return true
	case *Term:
		return caps.Supports(v.Column, v.Op)
	case *And:
		return caps.And && Supported(v.Left, caps) && Supported(v.Right, caps)
	case *Or:
		return caps.Or && Supported(v.Left, caps) && Supported(v.Right, caps)
	case *Not:
		return caps.Not && Supported(v.Inner, caps)
	}
	return false
}

// Terms returns the columns referenced by q.
func Terms(q Query) []string {
	var out []string
	var visit func(Query)
	visit = func(q Query) {
		switch v := q.(type) {
		case *Term:
			for _, c := range out {
				if strings.EqualFold(c, v.Column) {
					return
				}
			}
			out = append(out, v.Column)
		case *And:
			visit(v.Left)
			visit(v.Right)
		case *Or:
			visit(v.Left)
			visit(v.Right)
		case *Not:
			visit(v.Inner)
		}
	}
	visit(q)
	return out
}
