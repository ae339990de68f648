package conf

import (
	"fmt"
	"path/filepath"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/value"
)

// BuildCatalog loads every configured table into an in-memory index and
// returns the catalog snapshot holding them.
func BuildCatalog(c *Config) (*database.Catalog, error) {
	tables := make([]database.Table, 0, len(c.Tables))
	for _, tc := range c.Tables {
		schema, err := tc.Schema()
		if err != nil {
			return nil, err
		}
		caps, err := tc.IndexCapabilities(schema)
		if err != nil {
			return nil, err
		}
		file := tc.File
		if !filepath.IsAbs(file) && c.Dir != "" {
			file = filepath.Join(c.Dir, file)
		}
		idx, err := index.LoadJSON(tc.Name, file, schema, caps)
		if err != nil {
			return nil, fmt.Errorf("loading table %s: %w", tc.Name, err)
		}
		Log.Debugf("Loaded table %s with %d rows, capabilities %s", tc.Name, idx.RowCount(), caps)
		tables = append(tables, idx)
	}
	return database.NewCatalog(tables...), nil
}

// Schema returns the table columns qualified with the table name.
func (tc TableConfig) Schema() (database.Schema, error) {
	if tc.Name == "" {
		return nil, fmt.Errorf("table without name")
	}
	if len(tc.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", tc.Name)
	}
	schema := make(database.Schema, len(tc.Columns))
	for i, col := range tc.Columns {
		t, err := value.ParseType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", tc.Name, col.Name, err)
		}
		schema[i] = database.Column{Table: tc.Name, Name: col.Name, Type: t}
	}
	return schema, nil
}

func (tc TableConfig) IndexCapabilities(schema database.Schema) (index.Capabilities, error) {
	if tc.Capabilities == nil {
		return index.FullCapabilities(schema), nil
	}
	caps := index.Capabilities{
		Columns: map[string][]value.Op{},
		And:     tc.Capabilities.And,
		Or:      tc.Capabilities.Or,
		Not:     tc.Capabilities.Not,
	}
	for col, ops := range tc.Capabilities.Columns {
		if _, err := schema.IndexOf(col); err != nil {
			return index.Capabilities{}, fmt.Errorf("table %s capabilities: %w", tc.Name, err)
		}
		for _, s := range ops {
			op, err := value.ParseOp(s)
			if err != nil {
				return index.Capabilities{}, fmt.Errorf("table %s capabilities: %w", tc.Name, err)
			}
			caps.Columns[col] = append(caps.Columns[col], op)
		}
	}
	return caps, nil
}
