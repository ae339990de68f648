package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bisegni/idxq/pkg/conf"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the table data files",
	Long: `Load the configuration file, then read and index every declared table,
coercing each record to its column types. Nothing is queried.

Examples:
  idxq validate -c idxq.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	c, err := conf.Load(ConfigPath)
	if err != nil {
		fmt.Printf("❌ Validation failed: %v\n", err)
		return err
	}
	cat, err := conf.BuildCatalog(c)
	if err != nil {
		fmt.Printf("❌ Validation failed: %v\n", err)
		return err
	}

	fmt.Printf("✅ Valid configuration with %d table(s)\n", len(cat.TableNames()))
	return nil
}
