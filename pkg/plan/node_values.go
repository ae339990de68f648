package plan

import (
	"fmt"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
)

// Values produces constant rows. With no rows it is the empty relation.
type Values struct {
	Columns database.Schema
	Rows    [][]interface{}
}

func (v *Values) Kind() Kind { return KindValues }

func (v *Values) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 0 {
		return nil, errorx.NewSchemaMismatch("values takes no input, got %d", len(inputs))
	}
	for i, r := range v.Rows {
		if len(r) != len(v.Columns) {
			return nil, errorx.NewSchemaMismatch("values row %d has %d fields, schema has %d", i, len(r), len(v.Columns))
		}
	}
	return v.Columns, nil
}

func (v *Values) Explain() string {
	return fmt.Sprintf("Values(rows: %d, columns: %s)", len(v.Rows), v.Columns)
}

func (v *Values) Digest() string {
	return fmt.Sprintf("%s|%v", v.Columns, v.Rows)
}
