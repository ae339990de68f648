package plan

import (
	"fmt"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/value"
)

// JoinType is the SQL join flavor.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
)

// ParseJoinType maps a SQL keyword to a JoinType.
func ParseJoinType(s string) (JoinType, error) {
	switch t := JoinType(s); t {
	case InnerJoin, LeftJoin, RightJoin, FullJoin:
		return t, nil
	}
	return "", errorx.NewPlanError("unsupported join type '%s'", s)
}

// Join is an equi-join: LeftKey of the left input equals RightKey of the right.
type Join struct {
	Type     JoinType
	LeftKey  string
	RightKey string
}

func (j *Join) Kind() Kind { return KindJoin }

func (j *Join) DeriveSchema(inputs []database.Schema) (database.Schema, error) {
	if len(inputs) != 2 {
		return nil, errorx.NewSchemaMismatch("join takes two inputs, got %d", len(inputs))
	}
	lc, err := inputs[0].Column(j.LeftKey)
	if err != nil {
		return nil, err
	}
	rc, err := inputs[1].Column(j.RightKey)
	if err != nil {
		return nil, err
	}
	if !value.Comparable(lc.Type, rc.Type) {
		return nil, errorx.NewSchemaMismatch("join key type mismatch: %s is %s, %s is %s", j.LeftKey, lc.Type, j.RightKey, rc.Type)
	}
	return inputs[0].Concat(inputs[1]), nil
}

func (j *Join) Explain() string {
	return fmt.Sprintf("Join(type: %s, on: %s = %s)", j.Type, j.LeftKey, j.RightKey)
}

func (j *Join) Digest() string {
	return fmt.Sprintf("%s|%s|%s", j.Type, j.LeftKey, j.RightKey)
}
