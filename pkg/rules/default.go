package rules

// DefaultRuleSet returns the built-in rules in registration order.
func DefaultRuleSet() []*Rule {
	return []*Rule{
		FilterReduceRule,
		FilterMergeRule,
		ProjectMergeRule,
		IndexScanRule,
		IndexFilterRule,
		IndexToGenericRule,
		GenericFilterRule,
		GenericProjectRule,
		GenericSortRule,
		GenericLimitRule,
		GenericValuesRule,
		GenericJoinRule,
	}
}

// DefaultRegistry registers DefaultRuleSet and disables the named rules.
func DefaultRegistry(disabled ...string) (*Registry, error) {
	r, err := NewRegistry(DefaultRuleSet()...)
	if err != nil {
		return nil, err
	}
	if err := r.Disable(disabled...); err != nil {
		return nil, err
	}
	return r, nil
}
