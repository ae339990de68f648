package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	Separator = "__"
	EnvPrefix = "IDXQ"
)

// Load reads the YAML file at p over the defaults, then applies
// IDXQ__SECTION__KEY environment overrides. An empty path loads the
// defaults and the environment only.
func Load(p string) (*Config, error) {
	c := Default()
	if err := LoadConfigFromPath(p, c); err != nil {
		return nil, err
	}
	if p != "" {
		c.Dir = filepath.Dir(p)
	}
	if c.Planner.MaxRuleFirings <= 0 {
		return nil, fmt.Errorf("planner.maxRuleFirings must be positive, got %d", c.Planner.MaxRuleFirings)
	}
	return c, nil
}

// LoadConfigFromPath decodes the YAML file at p, with environment
// overrides applied, into c. Fields absent from both keep their value.
func LoadConfigFromPath(p string, c interface{}) error {
	configMap := make(map[string]interface{})
	if p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(b, &configMap); err != nil {
			return err
		}
	}
	configs := normalize(configMap)
	if err := process(configs, os.Environ(), EnvPrefix); err != nil {
		return err
	}
	return mapstructure.Decode(configs, c)
}

func process(configMap map[string]interface{}, variables []string, prefix string) error {
	for _, e := range variables {
		if !strings.HasPrefix(e, prefix+Separator) {
			continue
		}
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 {
			return fmt.Errorf("wrong format of variable %s", e)
		}
		keys := nameToKeys(strings.TrimPrefix(pair[0], prefix+Separator))
		if err := handle(configMap, keys, pair[1]); err != nil {
			return fmt.Errorf("variable %s: %w", pair[0], err)
		}
		Log.Infof("Set config '%s' to '%s' by environment variable", strings.Join(keys, "."), pair[1])
	}
	return nil
}

func handle(conf map[string]interface{}, keysLeft []string, val string) error {
	key := strings.ToLower(keysLeft[0])
	if len(keysLeft) == 1 {
		conf[key] = getValueType(val)
		return nil
	}
	if v, ok := conf[key]; ok {
		casted, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("'%s' is not a section", key)
		}
		return handle(casted, keysLeft[1:], val)
	}
	next := make(map[string]interface{})
	conf[key] = next
	return handle(next, keysLeft[1:], val)
}

func nameToKeys(key string) []string {
	return strings.Split(strings.ToLower(key), Separator)
}

func getValueType(val string) interface{} {
	val = strings.Trim(val, " ")
	if strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]") {
		val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
		var ret []interface{}
		for _, v := range strings.Split(val, ",") {
			ret = append(ret, getValueType(v))
		}
		return ret
	} else if i, err := strconv.ParseInt(val, 10, 64); err == nil {
		return i
	} else if b, err := strconv.ParseBool(val); err == nil {
		return b
	} else if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}

func normalize(m map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{})
	for k, v := range m {
		lowered := strings.ToLower(k)
		switch casted := v.(type) {
		case map[string]interface{}:
			res[lowered] = normalize(casted)
		case []interface{}:
			res[lowered] = normalizeList(casted)
		default:
			res[lowered] = v
		}
	}
	return res
}

func normalizeList(l []interface{}) []interface{} {
	out := make([]interface{}, len(l))
	for i, v := range l {
		if m, ok := v.(map[string]interface{}); ok {
			out[i] = normalize(m)
		} else {
			out[i] = v
		}
	}
	return out
}
