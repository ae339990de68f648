package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/bisegni/idxq/pkg/parser"
	"github.com/bisegni/idxq/pkg/value"
)

// JSONTable adapts a JSON/JSONL file to the Table interface. Every Iterate
// re-reads the file and coerces each record to the declared schema.
type JSONTable struct {
	name     string
	filename string
	schema   Schema
}

func NewJSONTable(name, filename string, schema Schema) *JSONTable {
	return &JSONTable{name: name, filename: filename, schema: schema}
}

func (t *JSONTable) Name() string   { return t.name }
func (t *JSONTable) Schema() Schema { return t.schema }

func (t *JSONTable) Iterate() (RowIterator, error) {
	p, err := parser.NewParser(t.filename)
	if err != nil {
		return nil, err
	}
	return &jsonIterator{parser: p, schema: t.schema}, nil
}

// RecordValues projects a parsed record onto schema, coercing each field to
// the column type. Missing fields become nil.
func RecordValues(record parser.Record, schema Schema) ([]interface{}, error) {
	values := make([]interface{}, len(schema))
	for i, c := range schema {
		v, err := value.Coerce(record[c.Name], c.Type)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

type jsonIterator struct {
	parser  *parser.Parser
	schema  Schema
	current Row
	err     error
}

func (it *jsonIterator) Next() bool {
	if it.err != nil {
		return false
	}
	record, err := it.parser.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}
	values, err := RecordValues(record, it.schema)
	if err != nil {
		it.err = err
		return false
	}
	it.current = NewTupleRow(it.schema, values)
	return true
}

func (it *jsonIterator) Row() Row {
	return it.current
}

func (it *jsonIterator) Error() error {
	return it.err
}

func (it *jsonIterator) Close() error {
	return it.parser.Close()
}
