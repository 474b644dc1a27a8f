/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id|name>",
	Short: "Show one instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatJSON)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		inst, err := remote.Lookup(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}

		res, err := client.GetInstance(cmd.Context(), inst.ID)
		if err != nil {
			return fmt.Errorf("failed to get instance %s: %w", inst.ID, err)
		}
		if err := res.Err(); err != nil {
			return err
		}
		return renderInstance(printer, res.Data)
	},
}

func renderInstance(printer *output.Printer, inst lambda.Instance) error {
	if printer.Format() == output.FormatTable {
		printer.Table(instancesTable([]lambda.Instance{inst}))
		return nil
	}
	return printer.Structured(inst)
}

func init() {
	rootCmd.AddCommand(getCmd)
}
