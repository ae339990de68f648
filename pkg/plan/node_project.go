package plan

import (
	"fmt"
	"strings"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/query"
)

// Project selects and renames columns
type Project struct {
	Fields []query.Field
}

func (p *Project) Kind() Kind { return KindProject }

func (p *Project) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 1 {
		return nil, errorx.NewSchemaMismatch("project takes one input, got %d", len(inputs))
	}
	out := make(database.Schema, len(p.Fields))
	for i, f := range p.Fields {
		col, err := inputs[0].Column(f.Path)
		if err != nil {
			return nil, err
		}
		if f.Alias != "" && !strings.EqualFold(f.Alias, col.Name) {
			col = database.Column{Name: f.Alias, Type: col.Type}
		}
		out[i] = col
	}
	return out, nil
}

func (p *Project) Explain() string {
	return fmt.Sprintf("Project(%d fields: %s)", len(p.Fields), p.Digest())
}

func (p *Project) Digest() string {
	parts := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
