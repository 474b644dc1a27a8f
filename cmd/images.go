package cmd

import (
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"

	"github.com/spf13/cobra"
)

var imagesFilter imageFilter

// imagesCmd represents the images command
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List boot images",
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

		res, err := client.ListImages(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		images := imagesFilter.apply(res.Data)
		return printer.List(images, func() output.Table { return imagesTable(images) }, "No images found.")
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().StringArrayVar(&imagesFilter.families, "family", nil, "Image family (repeatable)")
	imagesCmd.Flags().StringArrayVar(&imagesFilter.versions, "version", nil, "Image version (repeatable)")
	imagesCmd.Flags().StringArrayVar(&imagesFilter.arches, "arch", nil, "Architecture, e.g. x86_64 (repeatable)")
	imagesCmd.Flags().StringArrayVar(&imagesFilter.regions, "region", nil, "Region (repeatable)")
}
