package remote_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/identity"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/readiness"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"
	testingclock "k8s.io/utils/clock/testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const instanceIP = "203.0.113.7"

// MockCommander records every argv and answers ssh with sshExitCode.
type MockCommander struct {
	mu          sync.Mutex
	Calls       [][]string
	sshExitCode int
	rsyncCode   int
}

func (m *MockCommander) Run(_ context.Context, argv []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, append([]string(nil), argv...))
	switch argv[0] {
	case "ssh":
		return m.sshExitCode, nil
	case "rsync":
		return m.rsyncCode, nil
	}
	return 127, nil
}

func (m *MockCommander) Programs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c[0])
	}
	return out
}

// fakeInstances serves a list with one instance whose IP appears after
// ipAfter GET /instances/{id} calls.
type fakeInstances struct {
	mu      sync.Mutex
	server  *httptest.Server
	ipAfter int
	gets    int
}

func newFakeInstances(ipAfter int) *fakeInstances {
	f := &fakeInstances{ipAfter: ipAfter}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeInstances) instanceJSON(withIP bool) string {
	if withIP {
		return fmt.Sprintf(`{"id": "i-123", "name": "MyInst", "status": "active", "ip": %q}`, instanceIP)
	}
	return `{"id": "i-123", "name": "MyInst", "status": "booting"}`
}

func (f *fakeInstances) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case "/api/v1/instances":
		_, _ = io.WriteString(w, `{"data": [`+f.instanceJSON(f.ipAfter == 0)+`, {"id": "i-456", "name": "other", "status": "active", "ip": "198.51.100.1"}]}`)
	case "/api/v1/instances/i-123":
		f.gets++
		_, _ = io.WriteString(w, `{"data": `+f.instanceJSON(f.gets > f.ipAfter)+`}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"code": "global/object-does-not-exist", "message": "not found"}}`)
	}
}

func (f *fakeInstances) Gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// flakyDialer refuses the first failures connection attempts.
type flakyDialer struct {
	mu       sync.Mutex
	failures int
	attempts int
}

func (d *flakyDialer) Dial(network, address string, _ time.Duration) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	Expect(address).To(Equal(net.JoinHostPort(instanceIP, "22")))
	if d.attempts <= d.failures {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

var _ = Describe("Remote execution", func() {
	var (
		api       *fakeInstances
		dialer    *flakyDialer
		commander *MockCommander
		progress  *bytes.Buffer
		clk       *testingclock.FakeClock
		ctx       context.Context
	)

	newOrchestrator := func(syncer remote.Syncer) *remote.Orchestrator {
		client := lambda.NewClient(&config.Config{Token: "t", BaseURL: api.server.URL})
		poller := readiness.NewPoller(client, readiness.Config{
			IPTimeout:   time.Minute,
			IPInterval:  5 * time.Second,
			SSHTimeout:  time.Minute,
			SSHInterval: 5 * time.Second,
		}, readiness.WithClock(clk), readiness.WithDialer(dialer.Dial), readiness.WithOutput(progress))
		executor := remote.NewExecutor(commander, syncer, "", progress)
		return remote.NewOrchestrator(client, poller, executor)
	}

	BeforeEach(func() {
		dialer = &flakyDialer{}
		commander = &MockCommander{}
		progress = &bytes.Buffer{}
		clk = testingclock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		ctx = context.Background()
	})

	Context("when the instance is still booting", func() {
		BeforeEach(func() {
			api = newFakeInstances(2)
			DeferCleanup(api.server.Close)
			dialer.failures = 1
		})

		It("should wait for IP and SSH, then run exactly the ssh command", func() {
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})
			spec, err := remote.NewRunSpec([]string{"echo", "hello"}, nil, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(orchestrator.Run(ctx, "MyInst", spec)).To(Succeed())

			Expect(api.Gets()).To(Equal(3))
			Expect(dialer.attempts).To(Equal(2))
			Expect(commander.Calls).To(Equal([][]string{{
				"ssh", "-o", "StrictHostKeyChecking=accept-new", "-o", "UserKnownHostsFile=/dev/null",
				"ubuntu@" + instanceIP, "echo hello",
			}}))
			Expect(progress.String()).To(ContainSubstring("Waiting for IP on instance 'MyInst' (i-123)... retrying in 5s"))
			Expect(progress.String()).To(ContainSubstring("Waiting for SSH on instance 'MyInst' (" + instanceIP + ")... retrying in 5s"))
			Expect(progress.String()).To(ContainSubstring(`Executing: ssh -o StrictHostKeyChecking=accept-new -o UserKnownHostsFile=/dev/null ubuntu@` + instanceIP + ` echo hello`))
		})

		It("should open an interactive session for connect", func() {
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})

			Expect(orchestrator.Connect(ctx, "i-123")).To(Succeed())
			Expect(commander.Calls).To(HaveLen(1))
			Expect(commander.Calls[0][len(commander.Calls[0])-1]).To(Equal("ubuntu@" + instanceIP))
			Expect(progress.String()).To(ContainSubstring("Connecting to ubuntu@" + instanceIP + " ..."))
		})
	})

	Context("when the instance is ready", func() {
		var dataDir string

		BeforeEach(func() {
			api = newFakeInstances(0)
			DeferCleanup(api.server.Close)

			dataDir = filepath.Join(GinkgoT().TempDir(), "data")
			Expect(os.Mkdir(dataDir, 0755)).To(Succeed())
		})

		It("should mirror volumes before the command and back after it", func() {
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})
			spec, err := remote.NewRunSpec([]string{"echo", "hi"}, nil, nil, []string{dataDir + ":/remote/data"})
			Expect(err).NotTo(HaveOccurred())

			Expect(orchestrator.Run(ctx, "MyInst", spec)).To(Succeed())

			Expect(api.Gets()).To(Equal(0))
			Expect(commander.Programs()).To(Equal([]string{"rsync", "ssh", "rsync"}))

			shell := "ssh -o StrictHostKeyChecking=accept-new -o UserKnownHostsFile=/dev/null"
			Expect(commander.Calls[0]).To(Equal([]string{
				"rsync", "-e", shell, "-az", "--delete", dataDir + "/", "ubuntu@" + instanceIP + ":/remote/data",
			}))
			Expect(commander.Calls[2]).To(Equal([]string{
				"rsync", "-e", shell, "-az", "--delete", "ubuntu@" + instanceIP + ":/remote/data/", dataDir,
			}))
			Expect(strings.Count(progress.String(), "Rsync: rsync")).To(Equal(2))
		})

		It("should sync back and propagate the exit code when the command fails", func() {
			commander.sshExitCode = 7
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})
			spec, err := remote.NewRunSpec([]string{"false"}, []string{"SEED=1"}, nil, []string{dataDir + ":/remote/data"})
			Expect(err).NotTo(HaveOccurred())

			err = orchestrator.Run(ctx, "i-123", spec)
			var exitErr *remote.ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.Code).To(Equal(7))
			Expect(remote.ExitCode(err)).To(Equal(7))

			Expect(commander.Programs()).To(Equal([]string{"rsync", "ssh", "rsync"}))
			Expect(commander.Calls[1][len(commander.Calls[1])-1]).To(Equal("SEED=1 false"))
		})

		It("should not run the command when the push fails", func() {
			commander.rsyncCode = 23
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})
			spec, err := remote.NewRunSpec([]string{"echo", "hi"}, nil, nil, []string{dataDir + ":/remote/data"})
			Expect(err).NotTo(HaveOccurred())

			err = orchestrator.Run(ctx, "MyInst", spec)
			Expect(remote.ExitCode(err)).To(Equal(23))
			Expect(commander.Programs()).To(Equal([]string{"rsync"}))
		})

		It("should apply volumes in input order and keep that order on the way back", func() {
			second := filepath.Join(filepath.Dir(dataDir), "models")
			Expect(os.Mkdir(second, 0755)).To(Succeed())

			syncer := &recordingSyncer{}
			orchestrator := newOrchestrator(syncer)
			spec, err := remote.NewRunSpec([]string{"ls"}, nil, nil, []string{dataDir + ":/a", second + ":/b"})
			Expect(err).NotTo(HaveOccurred())

			Expect(orchestrator.Run(ctx, "MyInst", spec)).To(Succeed())
			Expect(syncer.calls).To(Equal([]string{"push /a", "push /b", "pull /a", "pull /b"}))
		})
	})

	Context("when the name is ambiguous or unknown", func() {
		BeforeEach(func() {
			api = newFakeInstances(0)
			DeferCleanup(api.server.Close)
		})

		It("should fail before any subprocess runs", func() {
			orchestrator := newOrchestrator(&remote.RsyncSyncer{Commander: commander, Out: progress})
			spec, err := remote.NewRunSpec([]string{"echo"}, nil, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			err = orchestrator.Run(ctx, "NoSuchInst", spec)
			var notFound *identity.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(commander.Calls).To(BeEmpty())
		})
	})
})

type recordingSyncer struct {
	calls []string
}

func (r *recordingSyncer) Sync(_ context.Context, _ string, v remote.Volume, dir remote.Direction) error {
	r.calls = append(r.calls, dir.String()+" "+v.Remote)
	return nil
}
