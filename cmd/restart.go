package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"

	"github.com/spf13/cobra"
)

// restartCmd represents the restart command
var restartCmd = &cobra.Command{
	Use:   "restart <id|name>...",
	Short: "Restart instances",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatTable)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		ids, err := resolveIDs(cmd.Context(), client, args)
		if err != nil {
			return err
		}

		res, err := client.RestartInstances(cmd.Context(), ids)
		if err != nil {
			return fmt.Errorf("failed to restart instances: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		restarted := res.Data.RestartedInstances
		return printer.List(res.Data, func() output.Table { return instancesTable(restarted) }, "No instances restarted.")
	},
}

func init() {
	rootCmd.AddCommand(restartCmd)
}
