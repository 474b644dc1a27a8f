package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"go.uber.org/zap"
)

// Commander runs a foreground subprocess and reports its exit code. The
// error is reserved for failures to start or wait on the process.
type Commander interface {
	Run(ctx context.Context, argv []string) (int, error)
}

// ExecCommander runs argv with the terminal attached.
type ExecCommander struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c ExecCommander) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = orDefault[io.Reader](c.Stdin, os.Stdin)
	cmd.Stdout = orDefault[io.Writer](c.Stdout, os.Stdout)
	cmd.Stderr = orDefault[io.Writer](c.Stderr, os.Stderr)

	logging.Logger().Debug("running subprocess",
		zap.String("command", logging.Truncate(strings.Join(argv, " "))))

	// The child shares our terminal and receives Ctrl-C itself; we stay
	// alive so post-command steps still run.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		if code < 0 {
			// killed by a signal
			code = 1
		}
		logging.Logger().Debug("subprocess exited",
			zap.String("command", argv[0]),
			zap.Int("exit_code", code))
		return code, nil
	case errors.Is(err, exec.ErrNotFound):
		return 0, fmt.Errorf("%s is not installed or not in PATH", argv[0])
	default:
		return 0, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
}

func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
