package errorx

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	err := fmt.Errorf("building filter: %w", NewSchemaMismatch("column '%s' not found", "z"))
	assert.True(t, IsSchemaMismatch(err))
	assert.True(t, IsPlanningError(err))
	assert.False(t, IsExecutorError(err))
	assert.Equal(t, "building filter: column 'z' not found", err.Error())

	noPlan := NewNoPhysicalPlan("no plan")
	assert.True(t, IsNoPhysicalPlan(noPlan))
	assert.True(t, IsPlanningError(noPlan))
}

func TestExecutorErrorWrapsCause(t *testing.T) {
	err := NewExecutorError(io.ErrUnexpectedEOF)
	assert.True(t, IsExecutorError(err))
	assert.False(t, IsPlanningError(err))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	// wrapping twice keeps a single layer
	assert.Same(t, err, NewExecutorError(err))
	assert.Nil(t, NewExecutorError(nil))
}

func TestRuleDeclinedIsNotCoded(t *testing.T) {
	_, ok := CodeOf(ErrRuleDeclined)
	assert.False(t, ok)
	assert.True(t, errors.Is(fmt.Errorf("x: %w", ErrRuleDeclined), ErrRuleDeclined))
}
