/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"

	"github.com/spf13/cobra"
)

var (
	lsRegions  []string
	lsStatuses []string
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatTable)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		res, err := client.ListInstances(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list instances: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		instances := filterInstances(res.Data, lsRegions, lsStatuses)
		return printer.List(instances, func() output.Table { return instancesTable(instances) }, "No instances found.")
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringArrayVar(&lsRegions, "region", nil, "Only instances in this region (repeatable)")
	lsCmd.Flags().StringArrayVar(&lsStatuses, "status", nil, "Only instances with this status (repeatable)")
}
