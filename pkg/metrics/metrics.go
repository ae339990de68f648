package metrics

import (
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const prefix = "idxq_"

// Metrics groups the planner and executor collectors. Every instance owns
// its registry so independent engines and tests do not share counters.
type Metrics struct {
	registry *prometheus.Registry

	Optimizations   *prometheus.CounterVec
	RuleFirings     *prometheus.CounterVec
	OptimizeLatency prometheus.Histogram
	MemoGroups      prometheus.Histogram
	RowsFetched     prometheus.Counter
	ReadersOpened   prometheus.Counter
	ExecErrors      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Optimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "optimizations_total",
			Help: "Number of optimizer calls by outcome",
		}, []string{"outcome"}),
		RuleFirings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "rule_firings_total",
			Help: "Number of rule firings by rule and outcome",
		}, []string{"rule", "outcome"}),
		OptimizeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "optimize_duration_seconds",
			Help:    "Time spent searching for a physical plan",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		MemoGroups: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "memo_groups",
			Help:    "Number of equivalence groups created per optimizer call",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "index_rows_fetched_total",
			Help: "Rows materialized from index readers",
		}),
		ReadersOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "index_readers_opened_total",
			Help: "Index readers opened by converter operators",
		}),
		ExecErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "execution_errors_total",
			Help: "Executions that ended with an error",
		}),
	}
	m.registry.MustRegister(m.Optimizations, m.RuleFirings, m.OptimizeLatency, m.MemoGroups,
		m.RowsFetched, m.ReadersOpened, m.ExecErrors)
	return m
}

// Dump writes every collected family in the prometheus text format.
func (m *Metrics) Dump(w io.Writer) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the current value of the counter or the sample count of the
// histogram called name whose labels include the given ones. It returns 0
// when nothing matches.
func (m *Metrics) Value(name string, labels map[string]string) float64 {
	mfs, err := m.registry.Gather()
	if err != nil {
		return 0
	}
	if !strings.HasPrefix(name, prefix) {
		name = prefix + name
	}
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !hasLabels(metric, labels) {
				continue
			}
			switch {
			case metric.Counter != nil:
				total += metric.GetCounter().GetValue()
			case metric.Histogram != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func hasLabels(metric *io_prometheus_client.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}
