package cmd

import (
	"context"
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/identity"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"

	"github.com/spf13/cobra"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:     "stop <id|name>...",
	Aliases: []string{"terminate"},
	Short:   "Terminate instances",
	Args:    cobra.MinimumNArgs(1),
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

		res, err := client.TerminateInstances(cmd.Context(), ids)
		if err != nil {
			return fmt.Errorf("failed to terminate instances: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		terminated := res.Data.TerminatedInstances
		return printer.List(res.Data, func() output.Table { return instancesTable(terminated) }, "No instances terminated.")
	},
}

// resolveIDs resolves every id-or-name against one instance listing.
func resolveIDs(ctx context.Context, client *lambda.Client, idsOrNames []string) ([]string, error) {
	res, err := client.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	instances, err := identity.ResolveAll(res.Data, idsOrNames)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids, nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
