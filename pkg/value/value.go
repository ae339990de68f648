package value

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"
)

// Type is the declared type of a column.
type Type int

const (
	Unknown Type = iota
	Int
	Float
	String
	Bool
)

func (t Type) String() string {
	switch t {
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	case Bool:
		return "BOOL"
	default:
		return "UNKNOWN"
	}
}

// ParseType maps a config/SQL type name to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INT", "INTEGER", "BIGINT", "LONG":
		return Int, nil
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL":
		return Float, nil
	case "STRING", "VARCHAR", "TEXT", "CHAR":
		return String, nil
	case "BOOL", "BOOLEAN":
		return Bool, nil
	default:
		return Unknown, fmt.Errorf("unknown column type '%s'", name)
	}
}

// Numeric reports whether values of t compare as numbers.
func (t Type) Numeric() bool {
	return t == Int || t == Float
}

// Comparable reports whether columns of the two types can be compared.
func Comparable(a, b Type) bool {
	if a == b {
		return true
	}
	return a.Numeric() && b.Numeric()
}

// TypeOf returns the Type of a runtime value.
func TypeOf(v interface{}) Type {
	switch v.(type) {
	case int, int32, int64:
		return Int
	case float32, float64:
		return Float
	case string:
		return String
	case bool:
		return Bool
	default:
		return Unknown
	}
}

// Coerce converts a loaded value (JSON numbers arrive as float64) into the
// representation used for t. nil stays nil.
func Coerce(v interface{}, t Type) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Int:
		return cast.ToInt64E(v)
	case Float:
		return cast.ToFloat64E(v)
	case String:
		return cast.ToStringE(v)
	case Bool:
		return cast.ToBoolE(v)
	default:
		return v, nil
	}
}

// Compare orders two values. Numbers compare numerically regardless of
// their Go type, strings lexically and booleans false < true. ok is false
// when either side is nil or the kinds are incomparable.
func Compare(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	ta, tb := TypeOf(a), TypeOf(b)
	switch {
	case ta.Numeric() && tb.Numeric():
		af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	case ta == String && tb == String:
		return strings.Compare(a.(string), b.(string)), true
	case ta == Bool && tb == Bool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// Key returns a map key such that Key(a) == Key(b) iff Compare(a, b) == 0.
func Key(v interface{}) string {
	t := TypeOf(v)
	switch {
	case v == nil:
		return "n:"
	case t.Numeric():
		f := cast.ToFloat64(v)
		if f == 0 {
			// folds negative zero, which Compare treats as equal
			f = 0
		}
		return "f:" + cast.ToString(f)
	case t == String:
		return "s:" + v.(string)
	case t == Bool:
		return "b:" + cast.ToString(v)
	}
	return fmt.Sprintf("?:%v", v)
}

// Tokens splits text into lower-cased words. It is the tokenization used
// both by MATCH evaluation and by the full-text index.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
