package database

import (
	"strings"

	"github.com/bisegni/idxq/pkg/errorx"
)

// Schema is the ordered list of columns produced by a table or operator.
type Schema []Column

// IndexOf resolves a column reference, either `name` or `table.name`.
// Unknown and ambiguous references are schema mismatches.
func (s Schema) IndexOf(ref string) (int, error) {
	table, name := splitRef(ref)
	found := -1
	for i, c := range s {
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if table != "" && !strings.EqualFold(c.Table, table) {
			continue
		}
		if found >= 0 {
			return -1, errorx.NewSchemaMismatch("column reference '%s' is ambiguous", ref)
		}
		found = i
	}
	if found < 0 {
		return -1, errorx.NewSchemaMismatch("column '%s' not found in %s", ref, s.String())
	}
	return found, nil
}

// Column resolves ref and returns the column.
func (s Schema) Column(ref string) (Column, error) {
	i, err := s.IndexOf(ref)
	if err != nil {
		return Column{}, err
	}
	return s[i], nil
}

// Names returns the unqualified column names.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether two schemas have the same names and types.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !strings.EqualFold(s[i].Name, o[i].Name) || s[i].Type != o[i].Type {
			return false
		}
	}
	return true
}

// Concat returns the columns of s followed by the columns of o.
func (s Schema) Concat(o Schema) Schema {
	out := make(Schema, 0, len(s)+len(o))
	out = append(out, s...)
	return append(out, o...)
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.QualifiedName() + ":" + c.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func splitRef(ref string) (string, string) {
	ref = strings.TrimPrefix(ref, ".")
	if i := strings.LastIndex(ref, "."); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}
