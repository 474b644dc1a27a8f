/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/readiness"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/spf13/cobra"
)

var sshPoll pollFlags

// sshCmd represents the ssh command
var sshCmd = &cobra.Command{
	Use:   "ssh <id|name>",
	Short: "Open an SSH session on an instance",
	Long: `Wait until the instance has an IP and accepts connections on port 22,
then open an interactive ssh session as ubuntu. The exit code of ssh is
passed through.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		poller := readiness.NewPoller(client, sshPoll.config(), readiness.WithOutput(stderr))
		executor := remote.NewExecutor(remote.ExecCommander{}, nil, remote.DefaultUser, stderr)
		return remote.NewOrchestrator(client, poller, executor).Connect(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(sshCmd)

	sshPoll.bind(sshCmd)
}
