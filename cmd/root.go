/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	globalFlags  config.Flags
	outputFormat string
	jsonOutput   bool
	debugLogging bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lai",
	Short: "Manage Lambda Cloud GPU instances",
	Long: `lai launches, inspects and tears down Lambda Cloud GPU instances, and runs
commands on them over SSH with local directories mirrored in and out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLogging {
			if err := logging.InitLogger("debug"); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		if _, err := output.ParseFormat(outputFormat); err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The returned value is the process exit code.
func Execute() int {
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return exitCode(rootCmd.ExecuteContext(ctx), stdout, stderr)
}

// exitCode reports err and maps it to a process exit code.
func exitCode(err error, stdout, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var statusErr *lambda.StatusError
	if errors.As(err, &statusErr) {
		logging.Logger().Debug("API request failed",
			zap.Int("status_code", statusErr.StatusCode),
			zap.String("body", logging.Truncate(string(statusErr.Body))))
		if writeErr := output.WriteAPIError(stdout, statusErr.StatusCode, statusErr.Payload()); writeErr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	var exitErr *remote.ExitError
	if errors.As(err, &exitErr) {
		// ssh already showed the remote output; anything else gets a line
		if exitErr.Command != "ssh" {
			fmt.Fprintf(stderr, "%v\n", err)
		}
		if exitErr.Code == 0 {
			return 1
		}
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Token, "token", "",
		"API token (defaults to $LAMBDA_CLOUD_TOKEN, $LAMBDA_CLOUD_API_TOKEN or $LAMBDA_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.BaseURL, "base-url", "",
		"API base URL (defaults to $"+config.BaseURLEnv+" or "+config.DefaultBaseURL+")")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Insecure, "insecure", false, "Disable TLS verification (not recommended)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Shorthand for --output json")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging on stderr")
}
