package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/conf"
	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/metrics"
	"github.com/bisegni/idxq/pkg/rules"
)

var (
	ConfigPath      string
	LogLevel        string
	QueryPretty     bool
	QueryExplain    bool
	VerifyPushdown  bool
	DumpMetrics     bool
	InteractiveMode bool
)

var rootCmd = &cobra.Command{
	Use:   "idxq [SQL]",
	Short: "Cost-based SQL over index-backed tables",
	Long: `idxq runs SELECT queries over the tables declared in its configuration
file. Every query is planned by a rule-driven optimizer that pushes
filters into the table indexes when their capabilities allow it.

If no command is provided, the argument is run as a query.

Examples:
  idxq -c idxq.yaml "SELECT title FROM docs WHERE title MATCH 'go' LIMIT 5"
  idxq -c idxq.yaml --explain "SELECT * FROM docs WHERE views > 10"
  idxq -c idxq.yaml -i`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !InteractiveMode && len(args) == 0 {
			return cmd.Help()
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		if InteractiveMode {
			return RunInteractive(s)
		}
		return RunQuery(s, args[0], os.Stdout)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "idxq.yaml", "Configuration file declaring the tables")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Override the configured log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&QueryPretty, "pretty", false, "Pretty print output")
	rootCmd.PersistentFlags().BoolVar(&QueryExplain, "explain", false, "Print the logical and physical plans instead of running the query")
	rootCmd.PersistentFlags().BoolVar(&VerifyPushdown, "verify-pushdown", false, "Re-check every row fetched through a pushed-down filter")
	rootCmd.PersistentFlags().BoolVar(&DumpMetrics, "metrics", false, "Dump planner and executor metrics to stderr on exit")
	rootCmd.PersistentFlags().BoolVarP(&InteractiveMode, "interactive", "i", false, "Interactive REPL mode")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
}

// session holds what every query of one invocation shares.
type session struct {
	config   *conf.Config
	catalog  *database.Catalog
	registry *rules.Registry
	metrics  *metrics.Metrics
}

func openSession() (*session, error) {
	c, err := conf.Load(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if LogLevel != "" {
		c.Log.Level = LogLevel
	}
	if err := conf.SetLogLevel(c.Log.Level); err != nil {
		return nil, err
	}
	if VerifyPushdown {
		c.Planner.VerifyPushdown = true
	}

	reg, err := rules.DefaultRegistry(c.Planner.DisabledRules...)
	if err != nil {
		return nil, err
	}
	cat, err := conf.BuildCatalog(c)
	if err != nil {
		return nil, err
	}
	conf.Log.Debugf("Loaded %d table(s) from %s", len(cat.TableNames()), ConfigPath)
	return &session{config: c, catalog: cat, registry: reg, metrics: metrics.New()}, nil
}

func (s *session) close() {
	if !DumpMetrics {
		return
	}
	if err := s.metrics.Dump(os.Stderr); err != nil {
		conf.Log.Warnf("Failed to dump metrics: %v", err)
	}
}
