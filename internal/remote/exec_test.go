package remote

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestExecCommander(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var stdout, stderr bytes.Buffer
	c := ExecCommander{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stderr}

	code, err := c.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("code = %d, want 3", code)
	}
	if stdout.String() != "out\n" || stderr.String() != "err\n" {
		t.Errorf("stdout = %q stderr = %q", stdout.String(), stderr.String())
	}

	code, err = c.Run(context.Background(), []string{"sh", "-c", "true"})
	if err != nil || code != 0 {
		t.Errorf("true = %d, %v", code, err)
	}

	_, err = c.Run(context.Background(), []string{"lai-definitely-not-installed"})
	if err == nil || !strings.Contains(err.Error(), "is not installed or not in PATH") {
		t.Errorf("missing binary error = %v", err)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil should be 0")
	}
	if ExitCode(&ExitError{Command: "ssh", Code: 42}) != 42 {
		t.Error("exit error code not propagated")
	}
	if ExitCode(&InputError{Msg: "bad"}) != 1 {
		t.Error("other errors should be 1")
	}
}
