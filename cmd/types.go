package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/selection"

	"github.com/spf13/cobra"
)

var typesSelection selectionFlags

// typesCmd represents the types command
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List instance types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatTable)
		if err != nil {
			return err
		}
		criteria := typesSelection.criteria(cmd)
		if err := selection.ValidateRegions(criteria.Regions); err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		res, err := client.ListInstanceTypes(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list instance types: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		entries := selection.Filter(res.Data.Sorted(), criteria)
		catalog := make(lambda.InstanceTypes, len(entries))
		for _, e := range entries {
			catalog[e.InstanceType.Name] = e
		}
		return printer.List(catalog, func() output.Table { return typesTable(entries) }, "No instance types found.")
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)

	typesSelection.bind(typesCmd, false)
}
