package value

import (
	"fmt"
	"strings"
)

// Op is a comparison operator usable in predicate leaves.
type Op string

const (
	Eq       Op = "="
	Ne       Op = "!="
	Lt       Op = "<"
	Le       Op = "<="
	Gt       Op = ">"
	Ge       Op = ">="
	Contains Op = "CONTAINS"
	Match    Op = "MATCH"
)

// AllOps lists every operator in a stable order.
var AllOps = []Op{Eq, Ne, Lt, Le, Gt, Ge, Contains, Match}

// ParseOp normalizes an operator spelling.
func ParseOp(s string) (Op, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "=", "==":
		return Eq, nil
	case "!=", "<>":
		return Ne, nil
	case "<":
		return Lt, nil
	case "<=":
		return Le, nil
	case ">":
		return Gt, nil
	case ">=":
		return Ge, nil
	case "CONTAINS", "~=":
		return Contains, nil
	case "MATCH":
		return Match, nil
	}
	return "", fmt.Errorf("unsupported operator '%s'", s)
}

// Flip returns the operator that gives the same result with swapped operands.
func (o Op) Flip() (Op, bool) {
	switch o {
	case Eq, Ne:
		return o, true
	case Lt:
		return Gt, true
	case Le:
		return Ge, true
	case Gt:
		return Lt, true
	case Ge:
		return Le, true
	}
	return o, false
}

// Range reports whether the operator is an ordering comparison.
func (o Op) Range() bool {
	return o == Lt || o == Le || o == Gt || o == Ge
}

// Apply evaluates `a op b`. A nil or incomparable operand never matches.
func Apply(op Op, a, b interface{}) bool {
	switch op {
	case Contains:
		as, aok := a.(string)
		bs, bok := b.(string)
		return aok && bok && strings.Contains(as, bs)
	case Match:
		as, aok := a.(string)
		bs, bok := b.(string)
		if !aok || !bok {
			return false
		}
		want := Tokens(bs)
		if len(want) != 1 {
			return false
		}
		for _, tok := range Tokens(as) {
			if tok == want[0] {
				return true
			}
		}
		return false
	}
	c, ok := Compare(a, b)
	if !ok {
		return false
	}
	switch op {
	case Eq:
		return c == 0
	case Ne:
		return c != 0
	case Lt:
		return c < 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Ge:
		return c >= 0
	}
	return false
}
