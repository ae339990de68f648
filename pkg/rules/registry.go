package rules

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/plan"
)

// Registry holds rules in registration order and finds the ones an
// expression can trigger, as pattern root or as operand below it.
type Registry struct {
	rules    []*Rule
	names    mapset.Set[string]
	disabled mapset.Set[string]
	depth    int
}

func NewRegistry(rules ...*Rule) (*Registry, error) {
	r := &Registry{names: mapset.NewThreadUnsafeSet[string](), disabled: mapset.NewThreadUnsafeSet[string]()}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(rule *Rule) error {
	if rule == nil || rule.Name == "" || rule.Apply == nil {
		return errorx.NewPlanError("invalid rule %v", rule)
	}
	if r.names.Contains(rule.Name) {
		return errorx.NewPlanError("rule %s registered twice", rule.Name)
	}
	r.names.Add(rule.Name)
	r.rules = append(r.rules, rule)
	if d := rule.Pattern.Depth(); d > r.depth {
		r.depth = d
	}
	return nil
}

// Disable turns off the named rules. Unknown names are an error so that
// configuration typos do not go unnoticed.
func (r *Registry) Disable(names ...string) error {
	for _, n := range names {
		if !r.names.Contains(n) {
			return errorx.NewNotFound("rule %s", n)
		}
		r.disabled.Add(n)
	}
	return nil
}

// Rules returns the enabled rules in registration order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if !r.disabled.Contains(rule.Name) {
			out = append(out, rule)
		}
	}
	return out
}

// Depth is the deepest pattern of the registry.
func (r *Registry) Depth() int {
	return r.depth
}

// ForRoot returns the enabled rules whose pattern root is triggered by
// (kind, conv).
func (r *Registry) ForRoot(kind plan.Kind, conv plan.Convention) []*Rule {
	var out []*Rule
	for _, rule := range r.Rules() {
		if triggers(rule.Pattern, kind, conv) {
			out = append(out, rule)
		}
	}
	return out
}

// ForChild returns the enabled rules with an operand below the root
// triggered by (kind, conv).
func (r *Registry) ForChild(kind plan.Kind, conv plan.Convention) []*Rule {
	var out []*Rule
	for _, rule := range r.Rules() {
		if childTriggers(rule.Pattern, kind, conv) {
			out = append(out, rule)
		}
	}
	return out
}

func triggers(p Pattern, kind plan.Kind, conv plan.Convention) bool {
	return (p.AnyKind || p.Kind == kind) && (p.AnyConv || p.Conv == conv)
}

func childTriggers(p Pattern, kind plan.Kind, conv plan.Convention) bool {
	for _, in := range p.Inputs {
		if triggers(in, kind, conv) || childTriggers(in, kind, conv) {
			return true
		}
	}
	return false
}

func (r *Registry) String() string {
	s := ""
	for _, rule := range r.rules {
		state := ""
		if r.disabled.Contains(rule.Name) {
			state = " (disabled)"
		}
		s += fmt.Sprintf("%s %s %s%s\n", rule.Name, rule.Kind, rule.Pattern, state)
	}
	return s
}
