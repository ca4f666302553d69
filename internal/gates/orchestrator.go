package gates

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBudget is the wall-clock budget a single Run is allowed before
// remaining gates are skipped and the result is marked warned rather than
// failed (§"wall-clock budget/timeout handling").
const DefaultBudget = 30 * time.Second

// PolicyConfig names which gates run, under what aggregation, with what
// per-gate config and (for weighted aggregation) weights.
type PolicyConfig struct {
	Name          string
	Gates         []string
	Aggregation   PolicyAggregation
	GateConfigs   map[string]map[string]any
	Weights       []GateWeight
	PassThreshold float64
}

// DefaultPolicyConfig runs every built-in gate under all_pass.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Name: "default",
		Gates: []string{
			"pattern-compliance", "constraint-verification", "regression-detection",
			"impact-simulation", "security-boundary", "custom-rules",
		},
		Aggregation:   AggregationAllPass,
		PassThreshold: 80,
	}
}

// Orchestrator runs a PolicyConfig's gates against a GateInput and
// aggregates the results (§4.6).
type Orchestrator struct {
	registry map[string]Gate
	budget   time.Duration
	limiter  *rate.Limiter
}

// NewOrchestrator builds an orchestrator over the given gates, keyed by
// their own ID(). Gate admission is throttled by a token-bucket limiter
// the same way the teacher's gateway throttles request admission with
// golang.org/x/time/rate: the burst equals the registered gate count, so
// a single Run's gates are all admitted immediately, but overlapping or
// back-to-back Run calls beyond that burst are paced to one admission
// per budget window instead of piling up unbounded concurrent gate work.
func NewOrchestrator(gateList []Gate) *Orchestrator {
	reg := make(map[string]Gate, len(gateList))
	for _, g := range gateList {
		reg[g.ID()] = g
	}
	budget := DefaultBudget
	return &Orchestrator{
		registry: reg,
		budget:   budget,
		limiter:  rate.NewLimiter(rate.Every(budget), maxInt(len(gateList), 1)),
	}
}

// WithBudget overrides the default 30s wall-clock budget.
func (o *Orchestrator) WithBudget(budget time.Duration) *Orchestrator {
	o.budget = budget
	o.limiter = rate.NewLimiter(rate.Every(budget), maxInt(len(o.registry), 1))
	return o
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run executes policy.Gates in id order against input and returns the
// aggregated QualityGateResult. Given identical input, policy, and
// registered gates, Run is deterministic: gates execute and are reported
// in sorted-id order, and every gate's violations are sorted within it.
// A catastrophic failure (e.g. a gate panicking) never escapes Run; it is
// captured as a failed gate result instead, so the caller always gets a
// usable QualityGateResult (§"User-visible failures").
func (o *Orchestrator) Run(ctx context.Context, policy PolicyConfig, input GateInput) QualityGateResult {
	budget := o.budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	names := append([]string(nil), policy.Gates...)
	sort.Strings(names)

	var results []GateResult
	var run, skipped []string
	timedOut := false

	for _, id := range names {
		if !timedOut && runCtx.Err() != nil {
			timedOut = true
		}
		if timedOut {
			skipped = append(skipped, id)
			continue
		}
		gate, ok := o.registry[id]
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		if o.limiter != nil {
			if err := o.limiter.Wait(runCtx); err != nil {
				timedOut = true
				skipped = append(skipped, id)
				continue
			}
		}
		cfg := gate.DefaultConfig()
		if override, ok := policy.GateConfigs[id]; ok {
			for k, v := range override {
				cfg[k] = v
			}
		}
		if v := gate.ValidateConfig(cfg); !v.Valid {
			results = append(results, GateResult{
				GateID: id, GateName: gate.Name(), Status: StatusFailed, Passed: false, Score: 0,
				Summary: "invalid gate configuration", Warnings: v.Errors,
			})
			run = append(run, id)
			continue
		}
		results = append(results, runGateSafely(runCtx, gate, input, cfg))
		run = append(run, id)
	}

	if len(results) == 0 {
		return QualityGateResult{
			Status: StatusFailed, Passed: false, Score: 0, Summary: "internal error: no gates executed",
			Warnings: []string{"policy named no gates this orchestrator recognizes"},
			Metadata: QualityGateMetadata{GatesRun: run, GatesSkipped: skipped},
		}
	}

	aggregation := policy.Aggregation
	if aggregation == "" {
		aggregation = AggregationAllPass
	}
	status, passed, score := aggregate(aggregation, results, policy.Weights, policy.PassThreshold)

	var allViolations []Violation
	var allWarnings []string
	for _, r := range results {
		allViolations = append(allViolations, r.Violations...)
		allWarnings = append(allWarnings, r.Warnings...)
	}

	// Budget elapse degrades the verdict to warned rather than letting a
	// partial run read as an outright failure (§"wall-clock budget/timeout
	// handling": "status=warned with timeout warning on budget elapse").
	if timedOut {
		if status == StatusFailed {
			status = StatusWarned
		}
		allWarnings = append(allWarnings, fmt.Sprintf("gate run exceeded its %s wall-clock budget: %d gate(s) skipped", budget, len(skipped)))
	}

	return QualityGateResult{
		Status: status, Passed: passed, Score: score,
		Summary:    fmt.Sprintf("%d gate(s) run, %s", len(results), status),
		Gates:      results,
		Violations: sortViolations(allViolations),
		Warnings:   allWarnings,
		Metadata:   QualityGateMetadata{GatesRun: run, GatesSkipped: skipped},
	}
}

// runGateSafely executes a gate, converting a panic into a failed
// GateResult rather than letting it escape to the orchestrator's caller.
func runGateSafely(ctx context.Context, gate Gate, input GateInput, cfg map[string]any) (result GateResult) {
	defer func() {
		if p := recover(); p != nil {
			result = GateResult{
				GateID: gate.ID(), GateName: gate.Name(), Status: StatusFailed, Passed: false, Score: 0,
				Summary: "internal error", Warnings: []string{fmt.Sprintf("gate %q panicked: %v", gate.ID(), p)},
			}
		}
	}()
	return gate.ExecuteGate(ctx, input, cfg)
}
