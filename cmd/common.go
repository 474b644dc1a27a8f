package cmd

import (
	"os"
	"time"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/provisioning"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/readiness"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/selection"

	"github.com/spf13/cobra"
)

func newClient() (*lambda.Client, error) {
	cfg, err := config.Resolve(globalFlags, os.Getenv)
	if err != nil {
		return nil, err
	}
	return lambda.NewClient(cfg), nil
}

// newPrinter honours --json and an explicit -o; otherwise fallback applies.
func newPrinter(cmd *cobra.Command, fallback output.Format) (*output.Printer, error) {
	format := fallback
	switch {
	case jsonOutput:
		format = output.FormatJSON
	case cmd.Flags().Changed("output"):
		f, err := output.ParseFormat(outputFormat)
		if err != nil {
			return nil, err
		}
		format = f
	}
	return output.NewPrinter(cmd.OutOrStdout(), format), nil
}

// selectionFlags are the instance type filters shared by types, start and run.
type selectionFlags struct {
	instanceType string
	available    bool
	cheapest     bool
	regions      []string
	gpus         []string
	minGPUs      int
	minVCPUs     int
	minMemory    int
	minStorage   int
	maxPrice     float64
}

func (f *selectionFlags) bind(cmd *cobra.Command, withType bool) {
	fs := cmd.Flags()
	if withType {
		fs.StringVar(&f.instanceType, "instance-type", "", "Instance type name")
	}
	fs.BoolVar(&f.available, "available", false, "Only types with capacity in some region")
	fs.BoolVar(&f.cheapest, "cheapest", false, "Only the cheapest matching types")
	fs.StringArrayVar(&f.regions, "region", nil, "Region with capacity (repeatable, first match wins)")
	fs.StringArrayVar(&f.gpus, "gpu", nil, "Substring of the GPU description (repeatable)")
	fs.IntVar(&f.minGPUs, "min-gpus", 0, "Minimum number of GPUs")
	fs.IntVar(&f.minVCPUs, "min-vcpus", 0, "Minimum number of vCPUs")
	fs.IntVar(&f.minMemory, "min-memory", 0, "Minimum memory in GiB")
	fs.IntVar(&f.minStorage, "min-storage", 0, "Minimum storage in GiB")
	fs.Float64Var(&f.maxPrice, "max-price", 0, "Maximum price in $/hr")
}

func (f *selectionFlags) criteria(cmd *cobra.Command) selection.Criteria {
	c := selection.Criteria{
		InstanceType:  f.instanceType,
		Available:     f.available,
		Cheapest:      f.cheapest,
		Regions:       f.regions,
		GPUs:          f.gpus,
		MinGPUs:       f.minGPUs,
		MinVCPUs:      f.minVCPUs,
		MinMemoryGiB:  f.minMemory,
		MinStorageGiB: f.minStorage,
	}
	if cmd.Flags().Changed("max-price") {
		maxPrice := f.maxPrice
		c.MaxPrice = &maxPrice
	}
	return c
}

// launchFlags are the instance metadata flags shared by start and run.
type launchFlags struct {
	sshKeys       []string
	name          string
	hostname      string
	filesystems   []string
	imageID       string
	imageFamily   string
	userDataFile  string
	setupCommands []string
	tags          []string
}

func (f *launchFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.sshKeys, "ssh-key", nil, "SSH key name to inject (repeatable)")
	fs.StringVar(&f.name, "name", "", "Instance name")
	fs.StringVar(&f.hostname, "hostname", "", "Hostname to assign")
	fs.StringArrayVar(&f.filesystems, "filesystem", nil, "Filesystem name to mount (repeatable)")
	fs.StringVar(&f.imageID, "image-id", "", "Image ID to boot from")
	fs.StringVar(&f.imageFamily, "image-family", "", "Image family to boot from")
	fs.StringVar(&f.userDataFile, "user-data-file", "", "Path to a cloud-init user-data file")
	fs.StringArrayVar(&f.setupCommands, "setup-command", nil, "Command to run on first boot via cloud-init (repeatable)")
	fs.StringArrayVar(&f.tags, "tag", nil, "Tag formatted as key=value (repeatable)")
}

func (f *launchFlags) options(criteria selection.Criteria, dryRun bool) provisioning.LaunchOptions {
	return provisioning.LaunchOptions{
		Criteria:        criteria,
		SSHKeyNames:     f.sshKeys,
		Name:            f.name,
		Hostname:        f.hostname,
		FileSystemNames: f.filesystems,
		ImageID:         f.imageID,
		ImageFamily:     f.imageFamily,
		UserDataFile:    f.userDataFile,
		SetupCommands:   f.setupCommands,
		Tags:            f.tags,
		DryRun:          dryRun,
	}
}

// pollFlags bound the readiness waits of ssh and run.
type pollFlags struct {
	timeoutSeconds     int
	intervalSeconds    int
	sshTimeoutSeconds  int
	sshIntervalSeconds int
}

func (f *pollFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	defaultTimeout := int(readiness.DefaultTimeout / time.Second)
	defaultInterval := int(readiness.DefaultInterval / time.Second)
	fs.IntVar(&f.timeoutSeconds, "timeout-seconds", defaultTimeout, "How long to wait for the instance IP")
	fs.IntVar(&f.intervalSeconds, "interval-seconds", defaultInterval, "Seconds between IP checks")
	fs.IntVar(&f.sshTimeoutSeconds, "ssh-timeout-seconds", 0, "How long to wait for SSH (defaults to --timeout-seconds)")
	fs.IntVar(&f.sshIntervalSeconds, "ssh-interval-seconds", 0, "Seconds between SSH checks (defaults to --interval-seconds)")
}

func (f *pollFlags) config() readiness.Config {
	cfg := readiness.DefaultConfig()
	cfg.IPTimeout = seconds(f.timeoutSeconds)
	cfg.IPInterval = seconds(f.intervalSeconds)
	cfg.SSHTimeout = cfg.IPTimeout
	cfg.SSHInterval = cfg.IPInterval
	if f.sshTimeoutSeconds > 0 {
		cfg.SSHTimeout = seconds(f.sshTimeoutSeconds)
	}
	if f.sshIntervalSeconds > 0 {
		cfg.SSHInterval = seconds(f.sshIntervalSeconds)
	}
	return cfg
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
