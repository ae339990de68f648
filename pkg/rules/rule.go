package rules

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bisegni/idxq/pkg/memo"
	"github.com/bisegni/idxq/pkg/plan"
)

// RuleKind separates logical rewrites from rules that change convention.
type RuleKind int

const (
	Transformation RuleKind = iota
	Conversion
)

func (k RuleKind) String() string {
	if k == Conversion {
		return "conversion"
	}
	return "transformation"
}

// Pattern is the operator shape a rule binds to. The root of a pattern is
// its trigger. Inputs, when present, bind one expression of each input group
// of the matched expression.
type Pattern struct {
	Kind    plan.Kind
	AnyKind bool
	Conv    plan.Convention
	AnyConv bool
	Inputs  []Pattern
}

// Matches reports whether e fits the root of p.
func (p Pattern) Matches(e *memo.Expr) bool {
	if !p.AnyKind && e.Op.Kind() != p.Kind {
		return false
	}
	if !p.AnyConv && e.Conv != p.Conv {
		return false
	}
	return p.Inputs == nil || len(p.Inputs) == len(e.Inputs)
}

// Depth is the number of operator levels p spans.
func (p Pattern) Depth() int {
	d := 0
	for _, in := range p.Inputs {
		if id := in.Depth(); id > d {
			d = id
		}
	}
	return d + 1
}

// Bindings enumerates the expression tuples of m matching p with e at the
// root, in pre-order.
func (p Pattern) Bindings(m *memo.Memo, e *memo.Expr) [][]*memo.Expr {
	if !p.Matches(e) {
		return nil
	}
	out := [][]*memo.Expr{{e}}
	for i, in := range p.Inputs {
		var options [][]*memo.Expr
		for _, id := range m.Input(e, i).Exprs {
			options = append(options, in.Bindings(m, m.Expr(id))...)
		}
		var next [][]*memo.Expr
		for _, prefix := range out {
			for _, opt := range options {
				b := make([]*memo.Expr, 0, len(prefix)+len(opt))
				next = append(next, append(append(b, prefix...), opt...))
			}
		}
		out = next
	}
	return out
}

func (p Pattern) String() string {
	kind, conv := p.Kind.String(), p.Conv.String()
	if p.AnyKind {
		kind = "Any"
	}
	if p.AnyConv {
		conv = "ANY"
	}
	s := fmt.Sprintf("%s[%s]", kind, conv)
	if len(p.Inputs) > 0 {
		s += "("
		for i, in := range p.Inputs {
			if i > 0 {
				s += ", "
			}
			s += in.String()
		}
		s += ")"
	}
	return s
}

// Rule proposes alternatives for the group of a bound expression. Apply
// returns errorx.ErrRuleDeclined when the bound shape does not qualify; any
// other error aborts the optimization.
type Rule struct {
	Name    string
	Kind    RuleKind
	Pattern Pattern
	Apply   func(call *Call) ([]memo.Alt, error)
}

// Call carries one binding of a rule.
type Call struct {
	Rule  *Rule
	Memo  *memo.Memo
	Exprs []*memo.Expr
	Log   *logrus.Entry
}

// Root returns the expression bound to the pattern root.
func (c *Call) Root() *memo.Expr {
	return c.Exprs[0]
}

// Group returns the current group of the i-th bound expression.
func (c *Call) Group(i int) *memo.Group {
	return c.Memo.GroupOf(c.Exprs[i].ID)
}

// Input returns the current group of the root's i-th input.
func (c *Call) Input(i int) *memo.Group {
	return c.Memo.Input(c.Exprs[0], i)
}
