package plan

import (
	"fmt"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
)

// SortKey orders by one column.
type SortKey struct {
	Column string
	Desc   bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Column + " DESC"
	}
	return k.Column
}

// Sort orders its input by Keys. Ties keep their input order.
type Sort struct {
	Keys []SortKey
}

func (s *Sort) Kind() Kind { return KindSort }

func (s *Sort) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 1 {
		return nil, errorx.NewSchemaMismatch("sort takes one input, got %d", len(inputs))
	}
	for _, k := range s.Keys {
		if _, err := inputs[0].IndexOf(k.Column); err != nil {
			return nil, err
		}
	}
	return inputs[0], nil
}

func (s *Sort) Explain() string {
	return "Sort(keys: " + s.Digest() + ")"
}

func (s *Sort) Digest() string {
	keys := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		keys[i] = k.String()
	}
	return strings.Join(keys, ", ")
}

// Limit passes through at most Count rows.
type Limit struct {
	Count int
}

func (l *Limit) Kind() Kind { return KindLimit }

func (l *Limit) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 1 {
		return nil, errorx.NewSchemaMismatch("limit takes one input, got %d", len(inputs))
	}
	if l.Count < 0 {
		return nil, errorx.NewPlanError("negative limit %d", l.Count)
	}
	return inputs[0], nil
}

func (l *Limit) Explain() string {
	return fmt.Sprintf("Limit(count: %d)", l.Count)
}

func (l *Limit) Digest() string {
	return fmt.Sprint(l.Count)
}
