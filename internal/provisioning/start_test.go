package provisioning_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/provisioning"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/selection"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const catalogJSON = `{"data": {
	"gpu_1x_a100": {
		"instance_type": {"name": "gpu_1x_a100", "gpu_description": "A100 (40 GB PCIe)", "price_cents_per_hour": 129,
		                  "specs": {"vcpus": 30, "memory_gib": 200, "storage_gib": 512, "gpus": 1}},
		"regions_with_capacity_available": [{"name": "us-west-1"}, {"name": "us-east-1"}]
	},
	"gpu_1x_a10": {
		"instance_type": {"name": "gpu_1x_a10", "gpu_description": "A10 (24 GB PCIe)", "price_cents_per_hour": 75,
		                  "specs": {"vcpus": 30, "memory_gib": 200, "storage_gib": 1400, "gpus": 1}},
		"regions_with_capacity_available": [{"name": "us-east-1"}]
	},
	"gpu_8x_h100_sxm5": {
		"instance_type": {"name": "gpu_8x_h100_sxm5", "gpu_description": "H100 (80 GB SXM5)", "price_cents_per_hour": 2392,
		                  "specs": {"vcpus": 208, "memory_gib": 1800, "storage_gib": 22000, "gpus": 8}},
		"regions_with_capacity_available": []
	}
}}`

// fakeAPI records every request it receives.
type fakeAPI struct {
	mu           sync.Mutex
	server       *httptest.Server
	requests     []string
	launchBodies []map[string]any
	launchStatus int
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{launchStatus: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch r.URL.Path {
	case "/api/v1/instance-types":
		_, _ = io.WriteString(w, catalogJSON)
	case "/api/v1/instance-operations/launch":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.launchBodies = append(f.launchBodies, body)
		w.WriteHeader(f.launchStatus)
		if f.launchStatus != http.StatusOK {
			_, _ = io.WriteString(w, `{"error": {"code": "instance-operations/launch/insufficient-capacity", "message": "Not enough capacity"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data": {"instance_ids": ["0920582c7ff041399e34823a0be62549"]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) snapshot() ([]string, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...), append([]map[string]any(nil), f.launchBodies...)
}

var _ = Describe("Start", func() {
	var (
		api         *fakeAPI
		provisioner *provisioning.Provisioner
		ctx         context.Context
	)

	BeforeEach(func() {
		api = newFakeAPI()
		DeferCleanup(api.server.Close)
		client := lambda.NewClient(&config.Config{Token: "t", BaseURL: api.server.URL})
		provisioner = provisioning.NewProvisioner(client)
		ctx = context.Background()
	})

	Context("with an explicit type, region and key", func() {
		It("should submit exactly the resolved placement and key", func() {
			outcome, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria: selection.Criteria{
					InstanceType: "gpu_1x_a100",
					Regions:      []string{"us-east-1"},
				},
				SSHKeyNames: []string{"default-key"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.InstanceIDs).To(Equal([]string{"0920582c7ff041399e34823a0be62549"}))
			Expect(outcome.Plan).To(Equal(selection.Target{InstanceType: "gpu_1x_a100", Region: "us-east-1"}))

			_, bodies := api.snapshot()
			Expect(bodies).To(HaveLen(1))
			Expect(bodies[0]).To(Equal(map[string]any{
				"region_name":        "us-east-1",
				"instance_type_name": "gpu_1x_a100",
				"ssh_key_names":      []any{"default-key"},
			}))
		})
	})

	Context("with filters only", func() {
		It("should pick the single cheapest available type", func() {
			outcome, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:    selection.Criteria{Cheapest: true, Available: true, MinGPUs: 1},
				SSHKeyNames: []string{"default-key"},
				Name:        "train",
				Tags:        []string{"team=ml"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Plan).To(Equal(selection.Target{InstanceType: "gpu_1x_a10", Region: "us-east-1"}))

			_, bodies := api.snapshot()
			Expect(bodies).To(HaveLen(1))
			Expect(bodies[0]).To(HaveKeyWithValue("name", "train"))
			Expect(bodies[0]).To(HaveKeyWithValue("tags", []any{map[string]any{"key": "team", "value": "ml"}}))
		})

		It("should report every candidate when several remain", func() {
			_, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:    selection.Criteria{Available: true},
				SSHKeyNames: []string{"default-key"},
			})
			var ambiguous *selection.AmbiguousSelectionError
			Expect(err).To(BeAssignableToTypeOf(ambiguous))
			Expect(err.Error()).To(ContainSubstring("gpu_1x_a10, gpu_1x_a100"))

			_, bodies := api.snapshot()
			Expect(bodies).To(BeEmpty())
		})
	})

	Context("in dry-run mode", func() {
		It("should resolve without launching", func() {
			outcome, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:    selection.Criteria{InstanceType: "gpu_1x_a100"},
				SSHKeyNames: []string{"default-key"},
				DryRun:      true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.DryRun).To(BeTrue())
			Expect(outcome.InstanceIDs).To(BeEmpty())
			Expect(outcome.Plan).To(Equal(selection.Target{InstanceType: "gpu_1x_a100", Region: "us-west-1"}))

			requests, _ := api.snapshot()
			Expect(requests).To(Equal([]string{"GET /api/v1/instance-types"}))
		})
	})

	Context("with invalid input", func() {
		It("should fail before any network call", func() {
			dir := GinkgoT().TempDir()
			_, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:     selection.Criteria{InstanceType: "gpu_1x_a100"},
				SSHKeyNames:  []string{"default-key"},
				UserDataFile: filepath.Join(dir, "absent.yaml"),
			})
			Expect(err).To(MatchError(ContainSubstring("User-data file not found")))

			_, err = provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:    selection.Criteria{InstanceType: "gpu_1x_a100"},
				SSHKeyNames: []string{"default-key"},
				Tags:        []string{"broken"},
			})
			Expect(err).To(MatchError("Invalid tag 'broken'. Use key=value format."))

			requests, _ := api.snapshot()
			Expect(requests).To(BeEmpty())
		})

		It("should send user data verbatim", func() {
			path := filepath.Join(GinkgoT().TempDir(), "user-data")
			Expect(os.WriteFile(path, []byte("#!/bin/bash\necho hi\n"), 0644)).To(Succeed())

			_, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:     selection.Criteria{InstanceType: "gpu_1x_a10"},
				SSHKeyNames:  []string{"default-key"},
				UserDataFile: path,
			})
			Expect(err).NotTo(HaveOccurred())
			_, bodies := api.snapshot()
			Expect(bodies[0]).To(HaveKeyWithValue("user_data", "#!/bin/bash\necho hi\n"))
		})
	})

	Context("when the provider rejects the launch", func() {
		It("should pass the status through", func() {
			api.mu.Lock()
			api.launchStatus = http.StatusBadRequest
			api.mu.Unlock()

			_, err := provisioner.Start(ctx, provisioning.LaunchOptions{
				Criteria:    selection.Criteria{InstanceType: "gpu_1x_a10"},
				SSHKeyNames: []string{"default-key"},
			})
			var statusErr *lambda.StatusError
			Expect(err).To(BeAssignableToTypeOf(statusErr))
			Expect(err.(*lambda.StatusError).StatusCode).To(Equal(http.StatusBadRequest))
			Expect(err.Error()).To(ContainSubstring("Not enough capacity"))
		})
	})
})
