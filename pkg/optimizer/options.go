package optimizer

import (
	"github.com/sirupsen/logrus"

	"github.com/bisegni/idxq/pkg/conf"
	"github.com/bisegni/idxq/pkg/metrics"
	"github.com/bisegni/idxq/pkg/plan"
)

type options struct {
	cost       plan.CostModel
	maxFirings int
	log        *logrus.Logger
	metrics    *metrics.Metrics
}

// Option tunes one optimizer call.
type Option func(*options)

func WithCostModel(m plan.CostModel) Option {
	return func(o *options) { o.cost = m }
}

// WithMaxRuleFirings caps the rule applications of the call; reaching the
// cap is a planning error.
func WithMaxRuleFirings(n int) Option {
	return func(o *options) { o.maxFirings = n }
}

func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// FromConfig maps the planner and cost sections of c to options.
func FromConfig(c *conf.Config) []Option {
	return []Option{WithCostModel(c.Cost.Model()), WithMaxRuleFirings(c.Planner.MaxRuleFirings)}
}

func newOptions(opts []Option) options {
	o := options{cost: plan.DefaultCostModel, maxFirings: conf.DefaultMaxRuleFirings}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = conf.Log
	}
	return o
}
