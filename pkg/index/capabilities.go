package index

import (
	"sort"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/value"
)

// Capabilities declares which predicate shapes an index evaluates natively:
// the operators usable per column and the boolean combinators.
type Capabilities struct {
	Columns map[string][]value.Op
	And     bool
	Or      bool
	Not     bool
}

// Supports reports whether `column op literal` can be answered natively.
// Qualified names are matched by their column part.
func (c Capabilities) Supports(column string, op value.Op) bool {
	if i := strings.LastIndex(column, "."); i >= 0 {
		column = column[i+1:]
	}
	for name, ops := range c.Columns {
		if !strings.EqualFold(name, column) {
			continue
		}
		for _, o := range ops {
			if o == op {
				return true
			}
		}
	}
	return false
}

// FullCapabilities supports every operator that makes sense for each
// column type, plus all combinators.
func FullCapabilities(schema database.Schema) Capabilities {
	caps := Capabilities{Columns: map[string][]value.Op{}, And: true, Or: true, Not: true}
	for _, col := range schema {
		caps.Columns[col.Name] = DefaultOps(col.Type)
	}
	return caps
}

// DefaultOps returns the operators an index provides for a column type.
func DefaultOps(t value.Type) []value.Op {
	switch t {
	case value.String:
		return []value.Op{value.Eq, value.Ne, value.Lt, value.Le, value.Gt, value.Ge, value.Contains, value.Match}
	case value.Bool:
		return []value.Op{value.Eq, value.Ne}
	default:
		return []value.Op{value.Eq, value.Ne, value.Lt, value.Le, value.Gt, value.Ge}
	}
}

func (c Capabilities) String() string {
	names := make([]string, 0, len(c.Columns))
	for name := range c.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString(" ")
		}
		ops := make([]string, len(c.Columns[name]))
		for j, o := range c.Columns[name] {
			ops[j] = string(o)
		}
		sb.WriteString(name + "[" + strings.Join(ops, ",") + "]")
	}
	for _, comb := range []struct {
		name string
		on   bool
	}{{"AND", c.And}, {"OR", c.Or}, {"NOT", c.Not}} {
		if comb.on {
			sb.WriteString(" " + comb.name)
		}
	}
	return sb.String()
}
