package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		a, b interface{}
		want bool
	}{
		{"int gt", Gt, int64(11), int64(10), true},
		{"int vs float eq", Eq, int64(10), float64(10), true},
		{"string eq", Eq, "x", "x", true},
		{"string ne", Ne, "x", "y", true},
		{"nil never matches", Eq, nil, "x", false},
		{"nil ne never matches", Ne, nil, "x", false},
		{"incomparable", Lt, "x", int64(1), false},
		{"contains", Contains, "hello world", "lo w", true},
		{"match token", Match, "The Quick fox", "quick", true},
		{"match substring is not a token", Match, "The Quick fox", "qui", false},
		{"bool order", Lt, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.op, tt.a, tt.b))
		})
	}
}

func TestKeyAgreesWithCompare(t *testing.T) {
	assert.Equal(t, Key(int64(3)), Key(float64(3)))
	assert.NotEqual(t, Key("3"), Key(int64(3)))
	assert.NotEqual(t, Key(true), Key("true"))

	negZero := math.Copysign(0, -1)
	c, ok := Compare(negZero, int64(0))
	require.True(t, ok)
	assert.Equal(t, 0, c)
	assert.Equal(t, Key(int64(0)), Key(negZero), "negative zero")
	assert.Equal(t, Key(float64(0)), Key(negZero))
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(float64(12), Int)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = Coerce(nil, String)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Coerce("abc", Int)
	assert.Error(t, err)
}

func TestParseOpAndFlip(t *testing.T) {
	op, err := ParseOp("<>")
	require.NoError(t, err)
	assert.Equal(t, Ne, op)

	f, ok := Lt.Flip()
	assert.True(t, ok)
	assert.Equal(t, Gt, f)

	_, ok = Contains.Flip()
	assert.False(t, ok)

	_, err = ParseOp("LIKE")
	assert.Error(t, err)
}
