package plan

import (
	"fmt"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/pushdown"
)

// Scan reads a table. In the Index convention Native is the query the
// index answers; nil means every row. Pushdown records the translation that
// produced Native so executors can verify fetched rows; it does not take part
// in the scan identity.
type Scan struct {
	Table    database.Table
	Native   index.Query
	Pushdown *pushdown.Descriptor
}

func (s *Scan) Kind() Kind { return KindScan }

func (s *Scan) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 0 {
		return nil, errorx.NewSchemaMismatch("scan takes no input, got %d", len(inputs))
	}
	return s.Table.Schema(), nil
}

// NativeQuery returns the pushed query, MatchAll when nothing was pushed.
func (s *Scan) NativeQuery() index.Query {
	if s.Native == nil {
		return index.MatchAll{}
	}
	return s.Native
}

func (s *Scan) Explain() string {
	if s.Native == nil {
		return fmt.Sprintf("Scan(table: %s)", s.Table.Name())
	}
	return fmt.Sprintf("Scan(table: %s, native: %s)", s.Table.Name(), s.Native)
}

func (s *Scan) Digest() string {
	return s.Table.Name() + "|" + s.NativeQuery().String()
}
