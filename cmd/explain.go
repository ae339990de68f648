package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/plan"
)

var explainCmd = &cobra.Command{
	Use:   "explain SQL",
	Short: "Show the logical and physical plans of a query",
	Long: `Show how a query is parsed, the logical plan built from it, and the
cheapest physical plan found by the optimizer, with row and cost
estimates for every operator. Nothing is read from the tables.

Examples:
  idxq explain "SELECT title FROM docs WHERE title MATCH 'go' AND views > 10"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		p, err := s.prepare(context.Background(), args[0])
		if err != nil {
			return err
		}
		return writeExplain(p, os.Stdout)
	},
}

func writeExplain(p *prepared, w io.Writer) error {
	_, err := fmt.Fprintf(w, "Query:\n  %s\n\nLogical Plan:\n%s\nPhysical Plan:\n%s",
		p.query, plan.FormatPlan(p.logical), plan.FormatPlan(p.physical))
	return err
}
