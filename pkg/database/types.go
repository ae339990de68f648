package database

import (
	"github.com/bisegni/idxq/pkg/value"
)

// Row represents a single record flowing through a plan.
type Row interface {
	// Get returns the value of a column, by name or table.name.
	Get(field string) (interface{}, error)
	// Values returns the positional values, aligned with the schema.
	Values() []interface{}
	// Primitive returns a value that encodes the row as a JSON object.
	Primitive() interface{}
}

// RowIterator allows iterating over rows in a table.
type RowIterator interface {
	// Next advances the iterator. Returns false if no more rows or error.
	Next() bool
	// Row returns the current row.
	Row() Row
	// Error returns any error that occurred during iteration.
	Error() error
	// Close releases resources.
	Close() error
}

// Table represents a dataset that can be scanned.
type Table interface {
	// Name is the catalog name of the table.
	Name() string
	// Schema describes the columns of every row.
	Schema() Schema
	// Iterate returns a new iterator for scanning the table.
	Iterate() (RowIterator, error)
}

// Column is a typed, optionally table-qualified column.
type Column struct {
	Table string
	Name  string
	Type  value.Type
}

// QualifiedName returns table.name, or name when the column has no table.
func (c Column) QualifiedName() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}
