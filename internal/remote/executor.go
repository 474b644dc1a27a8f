package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"go.uber.org/zap"
)

// RunSpec is a validated remote command with its environment and volumes.
type RunSpec struct {
	Command []string
	// Env holds KEY=value assignments, already shell-quoted.
	Env     []string
	Volumes []Volume
}

// NewRunSpec validates and parses raw CLI values. Nothing here touches
// the network.
func NewRunSpec(command, envVars, envFiles, volumeSpecs []string) (RunSpec, error) {
	if len(command) == 0 {
		return RunSpec{}, &InputError{Msg: "No command provided to run."}
	}
	env, err := ParseEnv(envVars, envFiles)
	if err != nil {
		return RunSpec{}, err
	}
	volumes, err := ParseVolumes(volumeSpecs)
	if err != nil {
		return RunSpec{}, err
	}
	return RunSpec{Command: command, Env: env, Volumes: volumes}, nil
}

// Executor runs a command on a reachable host, syncing volumes around it.
type Executor struct {
	commander Commander
	syncer    Syncer
	user      string
	out       io.Writer
}

func NewExecutor(commander Commander, syncer Syncer, user string, out io.Writer) *Executor {
	if user == "" {
		user = DefaultUser
	}
	if out == nil {
		out = os.Stderr
	}
	return &Executor{commander: commander, syncer: syncer, user: user, out: out}
}

// Exec pushes every volume, runs the command over ssh, then pulls every
// volume back whatever the command's outcome. A non-zero remote exit
// becomes an *ExitError with the same code.
func (e *Executor) Exec(ctx context.Context, host string, spec RunSpec) (err error) {
	for _, v := range spec.Volumes {
		if err := e.syncer.Sync(ctx, host, v, Push); err != nil {
			return fmt.Errorf("failed to sync %s to %s: %w", v, host, err)
		}
	}

	defer func() {
		for _, v := range spec.Volumes {
			syncErr := e.syncer.Sync(ctx, host, v, Pull)
			if syncErr == nil {
				continue
			}
			logging.Logger().Error("failed to sync volume back",
				zap.String("volume", v.String()),
				zap.String("host", host),
				zap.Error(syncErr))
			if err == nil {
				err = fmt.Errorf("failed to sync %s from %s: %w", v, host, syncErr)
			} else {
				fmt.Fprintf(e.out, "Sync back of %s failed: %v\n", v, syncErr)
			}
		}
	}()

	return e.Shell(ctx, host, spec.Command, spec.Env)
}

// Shell runs ssh against host in the foreground. An empty command opens
// an interactive session.
func (e *Executor) Shell(ctx context.Context, host string, command, env []string) error {
	argv := SSHArgs(e.user, host, command, env)
	if len(command) == 0 {
		fmt.Fprintf(e.out, "Connecting to %s ...\n", Target(e.user, host))
	} else {
		fmt.Fprintf(e.out, "Executing: %s\n", strings.Join(argv, " "))
	}

	code, err := e.commander.Run(ctx, argv)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Command: "ssh", Code: code}
	}
	return nil
}

// ExitCode extracts the exit code an error should terminate the process
// with: the subprocess code for *ExitError, 1 otherwise, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
