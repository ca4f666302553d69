package gates

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"
)

// defaultActivityTimeout bounds a single gate-run activity, mirroring the
// 30s wall-clock budget the synchronous orchestrator enforces with a
// context deadline in the non-durable path.
const defaultActivityTimeout = 30 * time.Second

// GateRunInput is the Temporal workflow input: a policy name and the
// changed files (graph/scorer pointers are not serializable, so the
// activity resolves the policy and GateInput through the registered
// activityDeps rather than passing live pointers through the workflow).
type GateRunInput struct {
	PolicyName   string
	ChangedFiles []string
}

// GateRunOutput is the Temporal workflow output.
type GateRunOutput struct {
	Result QualityGateResult
}

// activityDeps lets activities reach the same orchestrator and resolved
// GateInput the synchronous path uses, without smuggling unserializable
// pointers through workflow.ExecuteActivity.
type activityDeps struct {
	orchestrator *Orchestrator
	resolvePolicy func(name string) (PolicyConfig, error)
	resolveInput  func(changedFiles []string) GateInput
}

var defaultActivityDeps *activityDeps

// RegisterActivityDeps binds the orchestrator and resolvers the
// durable workflow's activities use; call once at worker startup.
func RegisterActivityDeps(orchestrator *Orchestrator, resolvePolicy func(string) (PolicyConfig, error), resolveInput func([]string) GateInput) {
	defaultActivityDeps = &activityDeps{orchestrator: orchestrator, resolvePolicy: resolvePolicy, resolveInput: resolveInput}
}

// ExecuteGateRunWorkflow runs the whole gate run as one RunGatesActivity
// call. If that activity errors, the workflow returns a failed
// QualityGateResult carrying the error as a warning rather than aborting,
// since a QualityGateResult must always be produced
// (§"User-visible failures").
func ExecuteGateRunWorkflow(ctx workflow.Context, input GateRunInput) (*GateRunOutput, error) {
	opts := workflow.ActivityOptions{StartToCloseTimeout: defaultActivityTimeout}
	ctx = workflow.WithActivityOptions(ctx, opts)

	var result QualityGateResult
	err := workflow.ExecuteActivity(ctx, RunGatesActivity, input).Get(ctx, &result)
	if err != nil {
		workflow.GetLogger(ctx).Error("gate run activity failed", "error", err)
		return &GateRunOutput{Result: QualityGateResult{
			Status: StatusFailed, Passed: false, Score: 0, Summary: "internal error",
			Warnings: []string{err.Error()},
		}}, nil
	}

	return &GateRunOutput{Result: result}, nil
}

// RunGatesActivity is the single activity backing the durable path: it
// resolves the policy and input via the bound activityDeps, then
// delegates to the same Orchestrator.Run the synchronous path uses.
func RunGatesActivity(ctx context.Context, input GateRunInput) (QualityGateResult, error) {
	if defaultActivityDeps == nil {
		return QualityGateResult{}, fmt.Errorf("gates: activity dependencies not registered, call RegisterActivityDeps at worker startup")
	}

	policy, err := defaultActivityDeps.resolvePolicy(input.PolicyName)
	if err != nil {
		return QualityGateResult{}, fmt.Errorf("resolve policy %q: %w", input.PolicyName, err)
	}

	gateInput := defaultActivityDeps.resolveInput(input.ChangedFiles)
	return defaultActivityDeps.orchestrator.Run(ctx, policy, gateInput), nil
}
