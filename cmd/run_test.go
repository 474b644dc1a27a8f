package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const launchCatalogJSON = `{"data": {
	"gpu_1x_a100": {
		"instance_type": {"name": "gpu_1x_a100", "gpu_description": "A100 (40 GB PCIe)", "price_cents_per_hour": 129,
		                  "specs": {"vcpus": 30, "memory_gib": 200, "storage_gib": 512, "gpus": 1}},
		"regions_with_capacity_available": [{"name": "us-west-1"}]
	},
	"gpu_8x_h100_sxm5": {
		"instance_type": {"name": "gpu_8x_h100_sxm5", "gpu_description": "H100 (80 GB SXM5)", "price_cents_per_hour": 2392,
		                  "specs": {"vcpus": 208, "memory_gib": 1800, "storage_gib": 22000, "gpus": 8}},
		"regions_with_capacity_available": []
	}
}}`

// launchAPI serves the launch, instance and terminate endpoints for one
// instance, "i-new".
type launchAPI struct {
	mu              sync.Mutex
	server          *httptest.Server
	listStatus      int
	terminateStatus int
	launchBodies    []map[string]any
	terminated      [][]string
}

func newLaunchAPI(t *testing.T) *launchAPI {
	a := &launchAPI{listStatus: http.StatusOK, terminateStatus: http.StatusOK}
	a.server = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.server.Close)
	return a
}

func (a *launchAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	instance := `{"id": "i-new", "name": "trainer", "status": "active", "ip": "203.0.113.9"}`
	switch r.Method + " " + r.URL.Path {
	case "GET /api/v1/instance-types":
		_, _ = io.WriteString(w, launchCatalogJSON)
	case "POST /api/v1/instance-operations/launch":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.launchBodies = append(a.launchBodies, body)
		_, _ = io.WriteString(w, `{"data": {"instance_ids": ["i-new"]}}`)
	case "GET /api/v1/instances/i-new":
		_, _ = io.WriteString(w, `{"data": `+instance+`}`)
	case "GET /api/v1/instances":
		w.WriteHeader(a.listStatus)
		if a.listStatus != http.StatusOK {
			_, _ = io.WriteString(w, `{"error": {"code": "global/unknown", "message": "Internal error"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data": [`+instance+`]}`)
	case "POST /api/v1/instance-operations/terminate":
		var body struct {
			InstanceIDs []string `json:"instance_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.terminated = append(a.terminated, body.InstanceIDs)
		w.WriteHeader(a.terminateStatus)
		if a.terminateStatus != http.StatusOK {
			_, _ = io.WriteString(w, `{"error": {"code": "global/unknown", "message": "Terminate failed"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data": {"terminated_instances": [`+instance+`]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *launchAPI) snapshot() ([]map[string]any, [][]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]any(nil), a.launchBodies...), append([][]string(nil), a.terminated...)
}

// fakeCommander answers ssh with sshCode and records every argv.
type fakeCommander struct {
	mu      sync.Mutex
	sshCode int
	calls   [][]string
}

func (f *fakeCommander) Run(_ context.Context, argv []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), argv...))
	if argv[0] == "ssh" {
		return f.sshCode, nil
	}
	return 0, nil
}

func pipeDial(_, _ string, _ time.Duration) (net.Conn, error) {
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

// resetFlags restores every flag to its default. Flag values outlive a
// single execute call because the commands are package-level.
func resetFlags(t *testing.T, cmds ...*cobra.Command) {
	t.Helper()
	for _, c := range cmds {
		for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					require.NoError(t, sv.Replace(nil))
				} else {
					require.NoError(t, f.Value.Set(f.DefValue))
				}
				f.Changed = false
			})
		}
	}
}

func useFakeRemote(t *testing.T, commander *fakeCommander) {
	t.Helper()
	prevCommander, prevDialer := runCommander, runDialer
	runCommander, runDialer = commander, pipeDial
	t.Cleanup(func() { runCommander, runDialer = prevCommander, prevDialer })
}

func TestExecute_RunLaunchesAndTearsDown(t *testing.T) {
	runArgs := func(baseURL string) []string {
		return []string{"run", "--token", "t", "--base-url", baseURL,
			"--gpu", "A100", "--ssh-key", "laptop", "--rm", "--", "nvidia-smi"}
	}

	t.Run("failing command still terminates and keeps its exit code", func(t *testing.T) {
		resetFlags(t, rootCmd, runCmd)
		api := newLaunchAPI(t)
		commander := &fakeCommander{sshCode: 3}
		useFakeRemote(t, commander)

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), runArgs(api.server.URL), &stdout, &stderr)

		assert.Equal(t, 3, code, stderr.String())
		bodies, terminated := api.snapshot()
		require.Len(t, bodies, 1)
		assert.Equal(t, [][]string{{"i-new"}}, terminated)

		require.Len(t, commander.calls, 1)
		assert.Equal(t, "ssh", commander.calls[0][0])
		assert.Contains(t, strings.Join(commander.calls[0], " "), "nvidia-smi")
		assert.Contains(t, stderr.String(), "Terminated instance i-new")
	})

	t.Run("launched instance gets a generated name", func(t *testing.T) {
		resetFlags(t, rootCmd, runCmd)
		api := newLaunchAPI(t)
		useFakeRemote(t, &fakeCommander{})

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), runArgs(api.server.URL), &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())

		bodies, _ := api.snapshot()
		require.Len(t, bodies, 1)
		name, _ := bodies[0]["name"].(string)
		require.True(t, strings.HasPrefix(name, "lai-run-"), "name %q", name)
		_, err := uuid.Parse(strings.TrimPrefix(name, "lai-run-"))
		assert.NoError(t, err)
		assert.Equal(t, "gpu_1x_a100", bodies[0]["instance_type_name"])
		assert.Equal(t, "us-west-1", bodies[0]["region_name"])
		assert.Contains(t, stderr.String(), "Launched instance '"+name+"' (i-new)")
	})

	t.Run("terminate failure after a successful command is the result", func(t *testing.T) {
		resetFlags(t, rootCmd, runCmd)
		api := newLaunchAPI(t)
		api.terminateStatus = http.StatusInternalServerError
		useFakeRemote(t, &fakeCommander{})

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), runArgs(api.server.URL), &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.JSONEq(t,
			`{"status_code": 500, "error": {"code": "global/unknown", "message": "Terminate failed"}}`,
			stdout.String())
	})

	t.Run("terminate failure after a failed command keeps the exit code", func(t *testing.T) {
		resetFlags(t, rootCmd, runCmd)
		api := newLaunchAPI(t)
		api.terminateStatus = http.StatusInternalServerError
		useFakeRemote(t, &fakeCommander{sshCode: 5})

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), runArgs(api.server.URL), &stdout, &stderr)

		assert.Equal(t, 5, code)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Failed to terminate instance i-new")
	})
}

func TestExecute_RunWithoutRemoveKeepsInstance(t *testing.T) {
	resetFlags(t, rootCmd, runCmd)
	api := newLaunchAPI(t)
	useFakeRemote(t, &fakeCommander{sshCode: 2})

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"run", "--token", "t", "--base-url", api.server.URL,
		"--gpu", "A100", "--ssh-key", "laptop", "--", "false"}, &stdout, &stderr)

	assert.Equal(t, 2, code)
	_, terminated := api.snapshot()
	assert.Empty(t, terminated)
}

func TestExecute_StartShowsIDsWhenListingFails(t *testing.T) {
	startArgs := func(baseURL string, extra ...string) []string {
		args := []string{"start", "--token", "t", "--base-url", baseURL, "--gpu", "A100", "--ssh-key", "laptop"}
		return append(args, extra...)
	}

	t.Run("table", func(t *testing.T) {
		resetFlags(t, rootCmd, startCmd)
		api := newLaunchAPI(t)
		api.listStatus = http.StatusInternalServerError

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), startArgs(api.server.URL), &stdout, &stderr)

		assert.Equal(t, 0, code, stderr.String())
		assert.Equal(t, "Launched instance(s): i-new\n", stdout.String())
		assert.Contains(t, stderr.String(), "Warning: could not fetch details of launched instance(s)")
	})

	t.Run("json", func(t *testing.T) {
		resetFlags(t, rootCmd, startCmd)
		api := newLaunchAPI(t)
		api.listStatus = http.StatusInternalServerError

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), startArgs(api.server.URL, "-o", "json"), &stdout, &stderr)

		assert.Equal(t, 0, code, stderr.String())
		assert.JSONEq(t, `{"instance_ids": ["i-new"]}`, stdout.String())
	})

	t.Run("listing succeeds", func(t *testing.T) {
		resetFlags(t, rootCmd, startCmd)
		api := newLaunchAPI(t)

		var stdout, stderr bytes.Buffer
		code := execute(context.Background(), startArgs(api.server.URL), &stdout, &stderr)

		assert.Equal(t, 0, code, stderr.String())
		assert.True(t, strings.HasPrefix(stdout.String(), "Launched instance(s): i-new\n"))
		assert.Contains(t, stdout.String(), "203.0.113.9")
	})
}
