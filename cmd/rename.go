package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"

	"github.com/spf13/cobra"
)

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename an instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd, output.FormatJSON)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		res, err := client.RenameInstance(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to rename instance %s: %w", args[0], err)
		}
		if err := res.Err(); err != nil {
			return err
		}
		return renderInstance(printer, res.Data)
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
