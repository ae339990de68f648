package conf

import (
	"github.com/bisegni/idxq/pkg/plan"
)

// DefaultMaxRuleFirings bounds the rule firings of one optimizer call.
const DefaultMaxRuleFirings = 100000

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

type PlannerConfig struct {
	MaxRuleFirings int      `yaml:"maxRuleFirings" mapstructure:"maxRuleFirings"`
	DisabledRules  []string `yaml:"disabledRules" mapstructure:"disabledRules"`
	VerifyPushdown bool     `yaml:"verifyPushdown" mapstructure:"verifyPushdown"`
}

// CostConfig mirrors plan.CostModel so the constants can be tuned from the
// configuration file.
type CostConfig struct {
	IndexLookup float64 `yaml:"indexLookup" mapstructure:"indexLookup"`
	IndexRow    float64 `yaml:"indexRow" mapstructure:"indexRow"`
	FetchRow    float64 `yaml:"fetchRow" mapstructure:"fetchRow"`
	FilterRow   float64 `yaml:"filterRow" mapstructure:"filterRow"`
	ProjectRow  float64 `yaml:"projectRow" mapstructure:"projectRow"`
	SortRow     float64 `yaml:"sortRow" mapstructure:"sortRow"`
	JoinRow     float64 `yaml:"joinRow" mapstructure:"joinRow"`
	TupleRow    float64 `yaml:"tupleRow" mapstructure:"tupleRow"`
	Operator    float64 `yaml:"operator" mapstructure:"operator"`
}

func (c CostConfig) Model() plan.CostModel {
	return plan.CostModel(c)
}

type ColumnConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Type string `yaml:"type" mapstructure:"type"`
}

// CapabilitiesConfig lists the operators the index answers natively per
// column. A table without capabilities supports everything.
type CapabilitiesConfig struct {
	Columns map[string][]string `yaml:"columns" mapstructure:"columns"`
	And     bool                `yaml:"and" mapstructure:"and"`
	Or      bool                `yaml:"or" mapstructure:"or"`
	Not     bool                `yaml:"not" mapstructure:"not"`
}

type TableConfig struct {
	Name         string              `yaml:"name" mapstructure:"name"`
	File         string              `yaml:"file" mapstructure:"file"`
	Columns      []ColumnConfig      `yaml:"columns" mapstructure:"columns"`
	Capabilities *CapabilitiesConfig `yaml:"capabilities" mapstructure:"capabilities"`
}

type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Planner PlannerConfig `yaml:"planner" mapstructure:"planner"`
	Cost    CostConfig    `yaml:"cost" mapstructure:"cost"`
	Tables  []TableConfig `yaml:"tables" mapstructure:"tables"`

	// Dir is the directory of the loaded file; relative table files are
	// resolved against it.
	Dir string `yaml:"-" mapstructure:"-"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Planner: PlannerConfig{
			MaxRuleFirings: DefaultMaxRuleFirings,
		},
		Cost: CostConfig(plan.DefaultCostModel),
	}
}
