package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
planner:
  verifyPushdown: true
cost:
  indexLookup: 0.01
tables:
  - name: docs
    file: docs.jsonl
    columns:
      - {name: id, type: int}
      - {name: title, type: string}
      - {name: author, type: int}
  - name: users
    file: users.json
    columns:
      - {name: id, type: int}
      - {name: name, type: string}
    capabilities:
      columns:
        id: ["="]
`

func useConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"idxq.yaml":  testConfig,
		"docs.jsonl": "{\"id\": 1, \"title\": \"hello world\", \"author\": 1}\n{\"id\": 2, \"title\": \"bye\", \"author\": 2}\n",
		"users.json": `[{"id": 1, "name": "ada"}, {"id": 2, "name": "linus"}]`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	saved := ConfigPath
	ConfigPath = filepath.Join(dir, "idxq.yaml")
	t.Cleanup(func() { ConfigPath = saved })
}

func TestRunQuery(t *testing.T) {
	useConfig(t)
	s, err := openSession()
	require.NoError(t, err)
	assert.True(t, s.config.Planner.VerifyPushdown)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"pushed match", "SELECT id FROM docs WHERE title MATCH 'hello'", "{\"id\":1}\n"},
		{"join", "SELECT title, name FROM docs JOIN users ON docs.author = users.id ORDER BY docs.id DESC", "{\"title\":\"bye\",\"name\":\"linus\"}\n{\"title\":\"hello world\",\"name\":\"ada\"}\n"},
		{"empty", "SELECT * FROM docs WHERE FALSE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RunQuery(s, tt.sql, &buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
	assert.Equal(t, 3.0, s.metrics.Value("optimizations_total", nil))

	var buf bytes.Buffer
	assert.Error(t, RunQuery(s, "SELECT * FROM docs RIGHT JOIN users ON docs.author = users.id", &buf))
	assert.Error(t, RunQuery(s, "SELECT FROM", &buf))
}

func TestExplain(t *testing.T) {
	useConfig(t)
	s, err := openSession()
	require.NoError(t, err)

	QueryExplain = true
	defer func() { QueryExplain = false }()

	var buf bytes.Buffer
	require.NoError(t, RunQuery(s, "SELECT name FROM users WHERE id = 2", &buf))
	out := buf.String()
	assert.Contains(t, out, "Logical Plan:")
	assert.Contains(t, out, "Filter(expression: id = 2)[NONE]")
	assert.Contains(t, out, "Physical Plan:")
	assert.Contains(t, out, "Scan(table: users, native: id:2)[INDEX]")
}

func TestStats(t *testing.T) {
	useConfig(t)
	s, err := openSession()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runStats(s, []string{"users"}, &buf))
	assert.Contains(t, buf.String(), "Table: users")
	assert.Contains(t, buf.String(), "Total records: 2")
	assert.Contains(t, buf.String(), "name: STRING")
	assert.Contains(t, buf.String(), "Capabilities:")

	assert.Error(t, runStats(s, []string{"nope"}, &buf))
}

func TestOpenSessionErrors(t *testing.T) {
	saved := ConfigPath
	defer func() { ConfigPath = saved }()
	ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := openSession()
	assert.Error(t, err)
}
