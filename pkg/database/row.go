package database

import (
	"encoding/json"
	"fmt"
)

// TupleRow is a positional row bound to the schema that describes it.
type TupleRow struct {
	schema Schema
	values []interface{}
}

// NewTupleRow creates a row; values must be aligned with schema.
func NewTupleRow(schema Schema, values []interface{}) *TupleRow {
	return &TupleRow{schema: schema, values: values}
}

func (r *TupleRow) Get(field string) (interface{}, error) {
	i, err := r.schema.IndexOf(field)
	if err != nil {
		return nil, err
	}
	return r.values[i], nil
}

func (r *TupleRow) Values() []interface{} {
	return r.values
}

func (r *TupleRow) Schema() Schema {
	return r.schema
}

// Primitive returns the row itself: it encodes as a JSON object whose
// members follow the schema order.
func (r *TupleRow) Primitive() interface{} {
	return r
}

func (r *TupleRow) MarshalJSON() ([]byte, error) {
	out := []byte{'{'}
	for i, v := range r.values {
		if i > 0 {
			out = append(out, ',')
		}
		name, err := json.Marshal(r.schema[i].Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", r.schema[i].Name, err)
		}
		out = append(append(append(out, name...), ':'), val...)
	}
	return append(out, '}'), nil
}

func (r *TupleRow) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprint(r.values)
	}
	return string(b)
}

// MemTable is a Table over rows held in memory.
type MemTable struct {
	name   string
	schema Schema
	rows   [][]interface{}
}

func NewMemTable(name string, schema Schema, rows [][]interface{}) *MemTable {
	return &MemTable{name: name, schema: schema, rows: rows}
}

func (t *MemTable) Name() string   { return t.name }
func (t *MemTable) Schema() Schema { return t.schema }

func (t *MemTable) Iterate() (RowIterator, error) {
	return NewSliceIterator(t.schema, t.rows), nil
}

// SliceIterator iterates positional rows held in a slice.
type SliceIterator struct {
	schema Schema
	rows   [][]interface{}
	index  int
}

func NewSliceIterator(schema Schema, rows [][]interface{}) *SliceIterator {
	return &SliceIterator{schema: schema, rows: rows, index: -1}
}

func (it *SliceIterator) Next() bool {
	it.index++
	return it.index < len(it.rows)
}

func (it *SliceIterator) Row() Row {
	if it.index < 0 || it.index >= len(it.rows) {
		return nil
	}
	return NewTupleRow(it.schema, it.rows[it.index])
}

func (it *SliceIterator) Error() error { return nil }
func (it *SliceIterator) Close() error { return nil }
