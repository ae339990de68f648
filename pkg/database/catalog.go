package database

import (
	"sort"
	"strings"

	"github.com/bisegni/idxq/pkg/errorx"
)

// Catalog is an immutable snapshot of named tables. It is passed explicitly
// to planning calls; nothing in the process holds a global schema.
type Catalog struct {
	tables map[string]Table
}

// NewCatalog creates a catalog holding the given tables. Later tables with
// the same (case-insensitive) name replace earlier ones.
func NewCatalog(tables ...Table) *Catalog {
	c := &Catalog{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		c.tables[strings.ToLower(t.Name())] = t
	}
	return c
}

// With returns a new catalog that also contains t.
func (c *Catalog) With(t Table) *Catalog {
	tables := make([]Table, 0, len(c.tables)+1)
	for _, name := range c.TableNames() {
		tables = append(tables, c.tables[name])
	}
	return NewCatalog(append(tables, t)...)
}

// ResolveTable retrieves a table by name.
func (c *Catalog) ResolveTable(name string) (Table, error) {
	t, ok := c.tables[strings.ToLower(name)]
	if !ok {
		return nil, errorx.NewNotFound("table '%s' not found", name)
	}
	return t, nil
}

// TableNames returns the registered names in sorted order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
