package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/plan"
)

var statsCmd = &cobra.Command{
	Use:   "stats [table...]",
	Short: "Show statistics about the configured tables",
	Long: `Display the schema, row count and native query capabilities of the
configured tables. With no argument every table is shown.

Examples:
  idxq stats
  idxq stats docs users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()
		return runStats(s, args, os.Stdout)
	},
}

func runStats(s *session, names []string, w io.Writer) error {
	if len(names) == 0 {
		names = s.catalog.TableNames()
	}
	for i, name := range names {
		t, err := s.catalog.ResolveTable(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Table: %s\n", t.Name())
		if rc, ok := t.(plan.RowCounter); ok {
			fmt.Fprintf(w, "Total records: %d\n", rc.RowCount())
		}
		fmt.Fprintf(w, "\nColumns:\n")
		for _, c := range t.Schema() {
			fmt.Fprintf(w, "  %s: %s\n", c.Name, c.Type)
		}
		if h, ok := t.(index.Handle); ok {
			fmt.Fprintf(w, "\nCapabilities: %s\n", h.Capabilities())
		}
	}
	return nil
}
