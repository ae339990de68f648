package plan

import (
	"fmt"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
)

// Converter moves rows from one convention to another. It is the only
// operator whose input convention differs from its own.
type Converter struct {
	From Convention
	To   Convention
}

func (c *Converter) Kind() Kind { return KindConverter }

func (c *Converter) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 1 {
		return nil, errorx.NewSchemaMismatch("converter takes one input, got %d", len(inputs))
	}
	if c.From == c.To {
		return nil, errorx.NewPlanError("converter from %s to itself", c.From)
	}
	return inputs[0], nil
}

func (c *Converter) Explain() string {
	return fmt.Sprintf("Converter(%s -> %s)", c.From, c.To)
}

func (c *Converter) Digest() string {
	return fmt.Sprintf("%d>%d", c.From, c.To)
}
