package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/conf"
	"github.com/bisegni/idxq/pkg/engine"
	"github.com/bisegni/idxq/pkg/optimizer"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/planner"
	"github.com/bisegni/idxq/pkg/query"
)

var queryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run a SELECT query",
	Long: `Run a SELECT query over the configured tables and print the result rows
as JSON lines.

Examples:
  idxq query "SELECT d.title, u.name FROM docs JOIN users ON docs.author = users.id"
  idxq query --explain "SELECT * FROM docs WHERE length(title) > 3"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()
		return RunQuery(s, args[0], os.Stdout)
	},
}

// prepared is one query taken from text to its cheapest physical plan.
type prepared struct {
	query    *query.SelectQuery
	logical  *plan.Node
	physical *plan.Node
	log      *logrus.Entry
	planned  time.Duration
}

func (s *session) prepare(ctx context.Context, sql string) (*prepared, error) {
	log := conf.Log.WithField("queryId", uuid.New().String())
	start := time.Now()

	q, err := query.ParseQuery(sql)
	if err != nil {
		return nil, err
	}
	logical, err := planner.CreatePlan(q, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("planning error: %w", err)
	}
	opts := append(optimizer.FromConfig(s.config), optimizer.WithMetrics(s.metrics))
	physical, err := optimizer.Optimize(ctx, logical, plan.Generic, s.registry, opts...)
	if err != nil {
		return nil, err
	}
	p := &prepared{query: q, logical: logical, physical: physical, log: log, planned: time.Since(start)}
	log.Debugf("Planned %q in %s, cost %.2f", sql, p.planned, physical.Cost())
	return p, nil
}

// RunQuery plans sql and writes its rows to w, or its plans when
// QueryExplain is set.
func RunQuery(s *session, sql string, w io.Writer) error {
	ctx := context.Background()
	p, err := s.prepare(ctx, sql)
	if err != nil {
		return err
	}
	if QueryExplain {
		return writeExplain(p, w)
	}

	start := time.Now()
	it, err := engine.Execute(ctx, p.physical, &engine.Context{
		VerifyPushdown: s.config.Planner.VerifyPushdown,
		Metrics:        s.metrics,
		Log:            p.log,
	})
	if err != nil {
		return err
	}
	executor := engine.NewExecutor()
	executor.Pretty = QueryPretty
	n, err := executor.Write(it, w)
	if err != nil {
		return err
	}
	p.log.Infof("%d row(s) in %s (planning %s)", n, time.Since(start), p.planned)
	return nil
}
