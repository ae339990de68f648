package index

import (
	"github.com/bisegni/idxq/pkg/database"
)

// LoadJSON indexes a JSON or JSONL file. Records are coerced to schema;
// fields outside the schema are ignored.
func LoadJSON(name, filename string, schema database.Schema, caps Capabilities) (*MemoryIndex, error) {
	return Build(database.NewJSONTable(name, filename, schema), caps)
}
