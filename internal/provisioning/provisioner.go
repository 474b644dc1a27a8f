package provisioning

import (
	"context"
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/selection"
	"go.uber.org/zap"
)

// LaunchOptions is everything a start request carries besides credentials.
type LaunchOptions struct {
	Criteria        selection.Criteria
	SSHKeyNames     []string
	Name            string
	Hostname        string
	FileSystemNames []string
	ImageID         string
	ImageFamily     string
	UserDataFile    string
	SetupCommands   []string
	Tags            []string
	DryRun          bool
}

// API is the subset of the Lambda client the provisioner talks to.
type API interface {
	ListInstanceTypes(ctx context.Context) (*lambda.Result[lambda.InstanceTypes], error)
	LaunchInstance(ctx context.Context, req lambda.LaunchRequest) (*lambda.Result[lambda.LaunchData], error)
}

// Outcome describes a launch or, with DryRun set, the launch that would
// have been submitted.
type Outcome struct {
	Plan    selection.Target
	Request lambda.LaunchRequest
	DryRun  bool
	// InstanceIDs is empty on dry runs.
	InstanceIDs []string
}

// Provisioner resolves launch placement and submits launches.
type Provisioner struct {
	api API
}

func NewProvisioner(api API) *Provisioner {
	return &Provisioner{api: api}
}

// Start validates opts, resolves an instance type and region against a
// fresh catalog, and launches unless opts.DryRun is set. Non-2xx API
// responses come back as *lambda.StatusError.
func (p *Provisioner) Start(ctx context.Context, opts LaunchOptions) (*Outcome, error) {
	req, err := Prepare(opts)
	if err != nil {
		return nil, err
	}

	catalog, err := p.api.ListInstanceTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instance types: %w", err)
	}
	if err := catalog.Err(); err != nil {
		return nil, err
	}

	target, err := selection.Resolve(catalog.Data.Sorted(), opts.Criteria)
	if err != nil {
		return nil, err
	}
	req.InstanceTypeName = target.InstanceType
	req.RegionName = target.Region

	outcome := &Outcome{Plan: target, Request: req, DryRun: opts.DryRun}
	if opts.DryRun {
		logging.Logger().Debug("dry run, launch not submitted",
			zap.String("instance_type", target.InstanceType),
			zap.String("region", target.Region))
		return outcome, nil
	}

	logging.Logger().Info("launching instance",
		zap.String("instance_type", target.InstanceType),
		zap.String("region", target.Region),
		zap.Strings("ssh_keys", logging.TruncateSlice(req.SSHKeyNames, logging.MaxLogSliceItems)))

	res, err := p.api.LaunchInstance(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to launch instance: %w", err)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	outcome.InstanceIDs = res.Data.InstanceIDs
	logging.Logger().Info("instance launched",
		zap.Strings("instance_ids", logging.TruncateSlice(outcome.InstanceIDs, logging.MaxLogSliceItems)))
	return outcome, nil
}

// Prepare performs every check that needs no network access and returns
// the launch request minus its type and region.
func Prepare(opts LaunchOptions) (lambda.LaunchRequest, error) {
	var req lambda.LaunchRequest

	if len(opts.SSHKeyNames) == 0 {
		return req, &InputError{Msg: "At least one --ssh-key is required."}
	}
	if err := selection.ValidateRegions(opts.Criteria.Regions); err != nil {
		return req, err
	}

	image, err := ParseImage(opts.ImageID, opts.ImageFamily)
	if err != nil {
		return req, err
	}

	tags, err := ParseTags(opts.Tags)
	if err != nil {
		return req, err
	}

	if opts.UserDataFile != "" && len(opts.SetupCommands) > 0 {
		return req, &InputError{Msg: "Use either --user-data-file or --setup-command, not both."}
	}
	userData, err := ReadUserData(opts.UserDataFile)
	if err != nil {
		return req, err
	}
	if len(opts.SetupCommands) > 0 {
		if userData, err = GenerateCloudConfig(opts.SetupCommands); err != nil {
			return req, err
		}
	}

	req.SSHKeyNames = opts.SSHKeyNames
	req.Name = opts.Name
	req.Hostname = opts.Hostname
	req.FileSystemNames = opts.FileSystemNames
	req.Image = image
	req.UserData = userData
	req.Tags = tags
	return req, nil
}
