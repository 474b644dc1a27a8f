/*
Copyright © 2025 Alexander van Eck
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/control"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/provisioning"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/readiness"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runSelection selectionFlags
	runLaunch    launchFlags
	runPoll      pollFlags
	runEnv       []string
	runEnvFiles  []string
	runVolumes   []string
	runRemove    bool

	// runCommander and runDialer are swapped out in tests.
	runCommander remote.Commander = remote.ExecCommander{}
	runDialer    readiness.DialFunc
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [<id|name>] [filters] -- <command...>",
	Short: "Run a command on an instance",
	Long: `Run a command on an existing instance, or on a new one when selection
filters are given. Volumes (-v local:remote) are mirrored to the instance
before the command and back afterwards, whatever the command's exit code.`,
	Example: `  lai run my-box -- nvidia-smi
  lai run --gpu H100 --cheapest --ssh-key laptop --rm -v ./data:/home/ubuntu/data -- python train.py`,
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria := runSelection.criteria(cmd)
		launch := !criteria.IsZero()

		target, command, err := splitRunArgs(args, cmd.ArgsLenAtDash(), launch)
		if err != nil {
			return err
		}
		spec, err := remote.NewRunSpec(command, runEnv, runEnvFiles, runVolumes)
		if err != nil {
			return err
		}

		opts := runLaunch.options(criteria, false)
		if launch {
			if opts.Name == "" {
				opts.Name = "lai-run-" + uuid.NewString()
			}
			if _, err := provisioning.Prepare(opts); err != nil {
				return err
			}
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		syncer, err := newSyncer(runCommander, stderr)
		if err != nil {
			return err
		}
		pollOpts := []readiness.Option{readiness.WithOutput(stderr)}
		if runDialer != nil {
			pollOpts = append(pollOpts, readiness.WithDialer(runDialer))
		}
		poller := readiness.NewPoller(client, runPoll.config(), pollOpts...)
		executor := remote.NewExecutor(runCommander, syncer, remote.DefaultUser, stderr)
		orchestrator := remote.NewOrchestrator(client, poller, executor)

		var inst lambda.Instance
		label := target
		if launch {
			outcome, err := provisioning.NewProvisioner(client).Start(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(outcome.InstanceIDs) == 0 {
				return fmt.Errorf("launch of %s returned no instance id", opts.Name)
			}
			name := opts.Name
			inst = lambda.Instance{ID: outcome.InstanceIDs[0], Name: &name}
			label = name
			fmt.Fprintf(stderr, "Launched instance '%s' (%s): %s in %s\n",
				name, inst.ID, outcome.Plan.InstanceType, outcome.Plan.Region)
		} else {
			if inst, err = orchestrator.Lookup(cmd.Context(), target); err != nil {
				return err
			}
		}

		runErr := orchestrator.RunOn(cmd.Context(), inst, label, spec)
		if !runRemove {
			return runErr
		}
		return teardown(cmd, client, inst.ID, runErr, stderr)
	},
}

// teardown terminates id after a run. A failed command keeps its own error
// and the terminate failure is only reported.
func teardown(cmd *cobra.Command, client *lambda.Client, id string, runErr error, out io.Writer) error {
	err := terminate(cmd, client, id, out)
	if err == nil {
		return runErr
	}
	if runErr == nil {
		return err
	}
	logging.Logger().Error("failed to terminate instance after run",
		zap.String("instance_id", id),
		zap.Error(err))
	fmt.Fprintf(out, "Failed to terminate instance %s: %v\n", id, err)
	return runErr
}

// splitRunArgs separates the instance reference from the command. Without
// "--" the first argument is the instance unless a launch was requested.
func splitRunArgs(args []string, dash int, launch bool) (string, []string, error) {
	positional, command := args, []string(nil)
	if dash >= 0 {
		positional, command = args[:dash], args[dash:]
	} else if launch {
		positional, command = nil, args
	} else if len(args) > 0 {
		positional, command = args[:1], args[1:]
	}

	switch {
	case launch && len(positional) > 0:
		return "", nil, &remote.InputError{Msg: "Pass either an instance id or name, or selection filters to launch one, not both."}
	case !launch && len(positional) == 0:
		return "", nil, &remote.InputError{Msg: "Provide an instance id or name, or selection filters to launch one."}
	case len(positional) > 1:
		return "", nil, &remote.InputError{Msg: fmt.Sprintf("Expected one instance id or name, got %d. Separate the command with --.", len(positional))}
	}

	target := ""
	if len(positional) == 1 {
		target = positional[0]
	}
	return target, command, nil
}

// newSyncer prefers rsync and falls back to SFTP when it is not installed.
// Either way the ignore file in the working directory applies.
func newSyncer(commander remote.Commander, out io.Writer) (remote.Syncer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	ignoreFile := remote.FindIgnoreFile(cwd)

	if _, err := exec.LookPath("rsync"); err == nil {
		return &remote.RsyncSyncer{
			Commander:  commander,
			User:       remote.DefaultUser,
			IgnoreArgs: remote.IgnoreArgs(ignoreFile),
			Out:        out,
		}, nil
	}

	matcher, err := remote.LoadIgnoreMatcher(ignoreFile)
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("rsync not found, syncing volumes over SFTP")
	return &control.SFTPSyncer{
		Config: control.SSHConfig{User: remote.DefaultUser},
		Ignore: matcher,
		Out:    out,
	}, nil
}

func terminate(cmd *cobra.Command, client *lambda.Client, id string, out io.Writer) error {
	res, err := client.TerminateInstances(cmd.Context(), []string{id})
	if err != nil {
		return fmt.Errorf("failed to terminate instance %s: %w", id, err)
	}
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Terminated instance %s\n", id)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runSelection.bind(runCmd, true)
	runLaunch.bind(runCmd)
	runPoll.bind(runCmd)
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	runCmd.Flags().StringArrayVar(&runEnvFiles, "env-file", nil, "File of KEY=VALUE lines (repeatable, later files win)")
	runCmd.Flags().StringArrayVarP(&runVolumes, "volume", "v", nil, "Mirror <local-path>:<remote-path> in and out (repeatable)")
	runCmd.Flags().BoolVar(&runRemove, "rm", false, "Terminate the instance when the command finishes")
	runCmd.MarkFlagsMutuallyExclusive("image-id", "image-family")
}
