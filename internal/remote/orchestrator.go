package remote

import (
	"context"
	"fmt"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/identity"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
)

// InstanceLister lists instances for id-or-name resolution.
type InstanceLister interface {
	ListInstances(ctx context.Context) (*lambda.Result[[]lambda.Instance], error)
}

// Waiter blocks until an instance is reachable and returns its IP.
type Waiter interface {
	Wait(ctx context.Context, inst lambda.Instance, label string) (string, error)
}

// Orchestrator ties resolution, readiness and execution together.
type Orchestrator struct {
	api      InstanceLister
	waiter   Waiter
	executor *Executor
}

func NewOrchestrator(api InstanceLister, waiter Waiter, executor *Executor) *Orchestrator {
	return &Orchestrator{api: api, waiter: waiter, executor: executor}
}

// Lookup resolves an id or name against a fresh instance list.
func (o *Orchestrator) Lookup(ctx context.Context, idOrName string) (lambda.Instance, error) {
	return Lookup(ctx, o.api, idOrName)
}

// Run resolves idOrName, waits for it and executes spec on it.
func (o *Orchestrator) Run(ctx context.Context, idOrName string, spec RunSpec) error {
	inst, err := o.Lookup(ctx, idOrName)
	if err != nil {
		return err
	}
	return o.RunOn(ctx, inst, idOrName, spec)
}

// RunOn executes spec on an instance record already in hand.
func (o *Orchestrator) RunOn(ctx context.Context, inst lambda.Instance, label string, spec RunSpec) error {
	ip, err := o.waiter.Wait(ctx, inst, label)
	if err != nil {
		return err
	}
	return o.executor.Exec(ctx, ip, spec)
}

// Connect resolves idOrName, waits for it and opens an interactive shell.
func (o *Orchestrator) Connect(ctx context.Context, idOrName string) error {
	inst, err := o.Lookup(ctx, idOrName)
	if err != nil {
		return err
	}
	ip, err := o.waiter.Wait(ctx, inst, idOrName)
	if err != nil {
		return err
	}
	return o.executor.Shell(ctx, ip, nil, nil)
}

// Lookup lists instances and resolves idOrName among them. Non-2xx
// responses come back as *lambda.StatusError.
func Lookup(ctx context.Context, api InstanceLister, idOrName string) (lambda.Instance, error) {
	res, err := api.ListInstances(ctx)
	if err != nil {
		return lambda.Instance{}, fmt.Errorf("failed to list instances: %w", err)
	}
	if err := res.Err(); err != nil {
		return lambda.Instance{}, err
	}
	return identity.Resolve(res.Data, idOrName)
}
