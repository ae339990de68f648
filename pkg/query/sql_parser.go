package query

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/bisegni/idxq/pkg/errorx"
)

// Field represents a selected column with its output name
type Field struct {
	Path  string
	Alias string
}

func (f Field) String() string {
	s := f.Path
	if f.Alias != "" && f.Alias != f.Path && !strings.HasSuffix(f.Path, "."+f.Alias) {
		s += " AS " + f.Alias
	}
	return s
}

// JoinClause is one JOIN ... ON left = right of the FROM clause.
type JoinClause struct {
	Type     string // INNER, LEFT, RIGHT or FULL
	Table    string
	LeftKey  string
	RightKey string
}

// OrderKey is one ORDER BY item.
type OrderKey struct {
	Column string
	Desc   bool
}

// SelectQuery represents a parsed SQL query IR (Intermediate Representation)
type SelectQuery struct {
	Fields    []Field // empty means '*'
	FromTable string
	Joins     []JoinClause
	Filter    Expression // WHERE clause, nil when absent
	OrderBy   []OrderKey
	Limit     int // -1 when absent
}

func (q *SelectQuery) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Fields) == 0 {
		sb.WriteString("*")
	}
	for i, f := range q.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteString(" FROM " + q.FromTable)
	for _, j := range q.Joins {
		fmt.Fprintf(&sb, " %s JOIN %s ON %s = %s", j.Type, j.Table, j.LeftKey, j.RightKey)
	}
	if q.Filter != nil {
		sb.WriteString(" WHERE " + q.Filter.String())
	}
	for i, k := range q.OrderBy {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(k.Column)
		if k.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String()
}

// Lexer definition
var (
	sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(SELECT|FROM|WHERE|AS|AND|OR|NOT|TRUE|FALSE|CONTAINS|MATCH|JOIN|INNER|LEFT|RIGHT|FULL|OUTER|ON|ORDER|BY|ASC|DESC|LIMIT)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Number", Pattern: `[-+]?\d*\.?\d+`},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
		{Name: "Operator", Pattern: `>=|<=|!=|<>|~=|[=<>]`},
		{Name: "Punct", Pattern: `[,.()*]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	// Participle Parser
	sqlParser = participle.MustBuild[ASTSelect](
		participle.Lexer(sqlLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2), // function call vs column reference
	)
)

// ParseQuery parses a SELECT string using Participle
func ParseQuery(input string) (*SelectQuery, error) {
	input = strings.TrimSuffix(strings.TrimSpace(input), ";")
	if input == "" {
		return nil, errParse("empty query")
	}

	ast, err := sqlParser.ParseString("", input)
	if err != nil {
		return nil, errParse(err.Error())
	}

	return ast.ToSelectQuery()
}

func errParse(msg string) error {
	return errorx.NewParserError("parse error: " + msg)
}
