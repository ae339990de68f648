package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/value"
)

const sampleConfig = `
log:
  level: debug
planner:
  maxRuleFirings: 500
  disabledRules: [FilterMergeRule]
cost:
  indexLookup: 20
tables:
  - name: docs
    file: docs.jsonl
    columns:
      - {name: id, type: int}
      - {name: title, type: string}
    capabilities:
      columns:
        title: [MATCH, "="]
      and: true
  - name: users
    file: users.jsonl
    columns:
      - {name: id, type: int}
`

func writeFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"idxq.yaml":   sampleConfig,
		"docs.jsonl":  "{\"id\": 1, \"title\": \"Hello world\"}\n{\"id\": \"2\", \"title\": \"bye\", \"extra\": true}\n",
		"users.jsonl": "{\"id\": 7}\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "idxq.yaml")
}

func TestLoad(t *testing.T) {
	c, err := Load(writeFiles(t))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 500, c.Planner.MaxRuleFirings)
	assert.Equal(t, []string{"FilterMergeRule"}, c.Planner.DisabledRules)
	assert.False(t, c.Planner.VerifyPushdown)

	model := c.Cost.Model()
	assert.Equal(t, 20.0, model.IndexLookup)
	assert.Equal(t, plan.DefaultCostModel.FetchRow, model.FetchRow, "unset constants keep their default")

	require.Len(t, c.Tables, 2)
	assert.Equal(t, "docs", c.Tables[0].Name)
	assert.Nil(t, c.Tables[1].Capabilities)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IDXQ__PLANNER__VERIFYPUSHDOWN", "true")
	t.Setenv("IDXQ__PLANNER__MAXRULEFIRINGS", "42")
	t.Setenv("IDXQ__COST__SORTROW", "2.5")

	c, err := Load(writeFiles(t))
	require.NoError(t, err)
	assert.True(t, c.Planner.VerifyPushdown)
	assert.Equal(t, 42, c.Planner.MaxRuleFirings)
	assert.Equal(t, 2.5, c.Cost.SortRow)
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRuleFirings, c.Planner.MaxRuleFirings)
	assert.Equal(t, plan.DefaultCostModel, c.Cost.Model())
	assert.Empty(t, c.Tables)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadFiringCap(t *testing.T) {
	t.Setenv("IDXQ__PLANNER__MAXRULEFIRINGS", "0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestBuildCatalog(t *testing.T) {
	c, err := Load(writeFiles(t))
	require.NoError(t, err)
	cat, err := BuildCatalog(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "users"}, cat.TableNames())

	tbl, err := cat.ResolveTable("DOCS")
	require.NoError(t, err)
	h, ok := tbl.(index.Handle)
	require.True(t, ok)
	assert.Equal(t, 2, h.RowCount())
	assert.Equal(t, "(docs.id:INT, docs.title:STRING)", h.Schema().String())

	caps := h.Capabilities()
	assert.True(t, caps.Supports("title", value.Match))
	assert.True(t, caps.Supports("docs.title", value.Eq))
	assert.False(t, caps.Supports("id", value.Eq))
	assert.True(t, caps.And)
	assert.False(t, caps.Or)

	users, err := cat.ResolveTable("users")
	require.NoError(t, err)
	assert.True(t, users.(index.Handle).Capabilities().Supports("id", value.Ge))
}

func TestBuildCatalogErrors(t *testing.T) {
	tests := []struct {
		name  string
		table TableConfig
	}{
		{name: "no columns", table: TableConfig{Name: "t", File: "t.jsonl"}},
		{name: "bad type", table: TableConfig{Name: "t", File: "t.jsonl", Columns: []ColumnConfig{{Name: "a", Type: "blob"}}}},
		{name: "bad op", table: TableConfig{Name: "t", File: "t.jsonl", Columns: []ColumnConfig{{Name: "a", Type: "int"}},
			Capabilities: &CapabilitiesConfig{Columns: map[string][]string{"a": {"LIKE"}}}}},
		{name: "unknown capability column", table: TableConfig{Name: "t", File: "t.jsonl", Columns: []ColumnConfig{{Name: "a", Type: "int"}},
			Capabilities: &CapabilitiesConfig{Columns: map[string][]string{"b": {"="}}}}},
		{name: "missing file", table: TableConfig{Name: "t", File: "nope.jsonl", Columns: []ColumnConfig{{Name: "a", Type: "int"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Dir = t.TempDir()
			c.Tables = []TableConfig{tt.table}
			_, err := BuildCatalog(c)
			assert.Error(t, err)
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(Log.GetLevel())
	require.NoError(t, SetLogLevel("trace"))
	assert.Equal(t, logrus.TraceLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel(""))
	assert.Error(t, SetLogLevel("loud"))
	assert.True(t, IsTesting)
}
