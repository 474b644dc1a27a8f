package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/readiness"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/spf13/cobra"
)

var (
	rsyncReverse  bool
	rsyncNoIgnore bool
)

// rsyncCmd represents the rsync command
var rsyncCmd = &cobra.Command{
	Use:   "rsync <id|name> <src> <dst> [-- <rsync args...>]",
	Short: "Copy files to or from an instance with rsync",
	Long: `Copy <src> on this machine to <dst> on the instance, or the other way
round with --reverse. The ignore file (.lambda-ai-ignore, else .gitignore)
is applied when pushing. Arguments after -- go to rsync verbatim, e.g.
-- --delete for a mirroring copy.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		positional, extra := args, []string(nil)
		if dash := cmd.ArgsLenAtDash(); dash >= 0 {
			positional, extra = args[:dash], args[dash:]
		}
		if len(positional) != 3 {
			return &remote.InputError{Msg: "Expected <id|name> <src> <dst>."}
		}
		target, src, dst := positional[0], positional[1], positional[2]

		client, err := newClient()
		if err != nil {
			return err
		}
		inst, err := remote.Lookup(cmd.Context(), client, target)
		if err != nil {
			return err
		}
		stderr := cmd.ErrOrStderr()
		ip, err := readiness.NewPoller(client, readiness.DefaultConfig(), readiness.WithOutput(stderr)).
			Wait(cmd.Context(), inst, target)
		if err != nil {
			return err
		}

		opts := remote.RsyncOptions{Reverse: rsyncReverse, Extra: extra}
		if !rsyncReverse && !rsyncNoIgnore {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			opts.IgnoreArgs = remote.IgnoreArgs(remote.FindIgnoreFile(cwd))
		}

		local, remotePath := src, dst
		if rsyncReverse {
			local, remotePath = dst, src
		}
		argv := remote.RsyncArgs(remote.DefaultUser, ip, local, remotePath, opts)
		fmt.Fprintf(stderr, "Rsync: %s\n", strings.Join(argv, " "))

		code, err := remote.ExecCommander{}.Run(cmd.Context(), argv)
		if err != nil {
			return err
		}
		if code != 0 {
			return &remote.ExitError{Command: "rsync", Code: code}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rsyncCmd)

	rsyncCmd.Flags().BoolVar(&rsyncReverse, "reverse", false, "Copy from the instance to this machine")
	rsyncCmd.Flags().BoolVar(&rsyncNoIgnore, "no-ignore", false, "Do not apply the ignore file")
}
