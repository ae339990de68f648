package plan

import (
	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/query"
)

// Filter keeps the rows for which Predicate holds
type Filter struct {
	Predicate query.Expression
}

func (f *Filter) Kind() Kind { return KindFilter }

func (f *Filter) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 1 {
		return nil, errorx.NewSchemaMismatch("filter takes one input, got %d", len(inputs))
	}
	if err := query.Validate(f.Predicate, inputs[0]); err != nil {
		return nil, err
	}
	return inputs[0], nil
}

func (f *Filter) Explain() string {
	return "Filter(expression: " + f.Predicate.String() + ")"
}

func (f *Filter) Digest() string {
	return f.Predicate.String()
}
