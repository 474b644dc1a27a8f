/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/provisioning"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	startSelection selectionFlags
	startLaunch    launchFlags
	startDryRun    bool
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch an instance chosen by filters",
	Long: `Launch an instance. The instance type and region are resolved from the
filters against the live catalog: exactly one type must remain unless
--instance-type names it, and the first requested region with capacity wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatTable)
		if err != nil {
			return err
		}

		opts := startLaunch.options(startSelection.criteria(cmd), startDryRun)
		if _, err := provisioning.Prepare(opts); err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		outcome, err := provisioning.NewProvisioner(client).Start(cmd.Context(), opts)
		if err != nil {
			return err
		}

		if outcome.DryRun {
			if printer.Format() == output.FormatTable {
				return printer.Printf("Dry run: would launch instance_type='%s' in region='%s'\n",
					outcome.Plan.InstanceType, outcome.Plan.Region)
			}
			return printer.Structured(outcome.Plan)
		}

		ids := outcome.InstanceIDs
		if printer.Format() == output.FormatTable {
			if err := printer.Printf("Launched instance(s): %s\n", strings.Join(ids, ", ")); err != nil {
				return err
			}
		}

		// The launch went through; a failed listing must not hide the ids.
		launched, err := fetchInstances(cmd, client, ids)
		if err != nil {
			logging.Logger().Warn("failed to list launched instances",
				zap.Strings("instance_ids", logging.TruncateSlice(ids, logging.MaxLogSliceItems)),
				zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not fetch details of launched instance(s): %v\n", err)
			if printer.Format() != output.FormatTable {
				return printer.Structured(lambda.LaunchData{InstanceIDs: ids})
			}
			return nil
		}
		if printer.Format() != output.FormatTable {
			return printer.Structured(launched)
		}
		if len(launched) > 0 {
			printer.Table(instancesTable(launched))
		}
		return nil
	},
}

// fetchInstances lists instances and keeps those in ids, in ids order.
func fetchInstances(cmd *cobra.Command, client *lambda.Client, ids []string) ([]lambda.Instance, error) {
	res, err := client.ListInstances(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]lambda.Instance, len(res.Data))
	for _, inst := range res.Data {
		byID[inst.ID] = inst
	}
	instances := make([]lambda.Instance, 0, len(ids))
	for _, id := range ids {
		if inst, ok := byID[id]; ok {
			instances = append(instances, inst)
		}
	}
	return instances, nil
}

func init() {
	rootCmd.AddCommand(startCmd)

	startSelection.bind(startCmd, true)
	startLaunch.bind(startCmd)
	startCmd.Flags().BoolVar(&startDryRun, "dry-run", false, "Resolve type and region without launching")
	startCmd.MarkFlagsMutuallyExclusive("image-id", "image-family")
}
