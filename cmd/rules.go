package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/conf"
	"github.com/bisegni/idxq/pkg/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the optimizer rules",
	Long: `List the optimizer rules in firing order with their kind and operand
pattern. Rules disabled by planner.disabledRules are marked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := conf.Load(ConfigPath)
		if err != nil {
			return err
		}
		reg, err := rules.DefaultRegistry(c.Planner.DisabledRules...)
		if err != nil {
			return err
		}
		fmt.Print(reg)
		return nil
	},
}
