package gates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/reachability"
	"github.com/driftco/drift/internal/scoring"
)

func timed(fn func() GateResult) GateResult {
	start := time.Now()
	res := fn()
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	return res
}

// PatternComplianceGate fails when the aggregate compliance rate
// (locations over locations plus outliers, across all patterns) falls
// below the minimum rate or the total outlier count exceeds the maximum,
// and warns when any outlier remains. Approval status is not consulted.
type PatternComplianceGate struct{}

func NewPatternComplianceGate() *PatternComplianceGate { return &PatternComplianceGate{} }

func (g *PatternComplianceGate) ID() string          { return "pattern-compliance" }
func (g *PatternComplianceGate) Name() string        { return "Pattern Compliance" }
func (g *PatternComplianceGate) Description() string { return "checks aggregate outlier count and compliance rate across known patterns" }

func (g *PatternComplianceGate) DefaultConfig() map[string]any {
	return map[string]any{"minComplianceRate": 0.8, "maxOutliers": 5}
}

func (g *PatternComplianceGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	var errs []string
	if v, ok := cfg["minComplianceRate"]; ok {
		if f, ok := v.(float64); !ok || f < 0 || f > 1 {
			errs = append(errs, "minComplianceRate must be a number in [0,1]")
		}
	}
	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}

func (g *PatternComplianceGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		minRate := 0.8
		maxOutliers := 5
		if v, ok := cfg["minComplianceRate"].(float64); ok {
			minRate = v
		}
		if v, ok := cfg["maxOutliers"].(float64); ok {
			maxOutliers = int(v)
		}

		if input.Patterns == nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50,
				Summary: "no pattern repository available", Warnings: []string{"pattern-compliance skipped deep analysis: no repository bound"}}
		}

		all, err := input.Patterns.GetAll(ctx)
		if err != nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50,
				Summary: "failed to read pattern repository", Warnings: []string{err.Error()}}
		}

		var totalLocations, totalOutliers int
		var violations []Violation
		for _, p := range all {
			totalLocations += p.LocationCount()
			totalOutliers += len(p.Outliers)
			if len(p.Outliers) > 0 {
				for _, o := range p.Outliers {
					violations = append(violations, Violation{
						GateID: g.ID(), File: o.File, Line: o.Line, PatternID: p.ID,
						Message:  fmt.Sprintf("outlier in pattern %q: %s", p.Name, o.Reason),
						Severity: "medium",
					})
				}
			}
		}

		rate := 1.0
		if totalLocations+totalOutliers > 0 {
			rate = float64(totalLocations) / float64(totalLocations+totalOutliers)
		}
		score := rate * 100

		status := StatusPassed
		if rate < minRate || totalOutliers > maxOutliers {
			status = StatusFailed
		} else if totalOutliers > 0 {
			status = StatusWarned
		}

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: status != StatusFailed,
			Score: score, Summary: fmt.Sprintf("compliance rate %.1f%% across %d patterns", rate*100, len(all)),
			Violations: sortViolations(violations),
			Details:    map[string]any{"totalOutliers": totalOutliers, "totalLocations": totalLocations},
		}
	})
}

// ConstraintVerificationGate scores the proportion of configured
// architectural Constraints that are satisfied.
type ConstraintVerificationGate struct {
	constraints []Constraint
}

func NewConstraintVerificationGate(constraints []Constraint) *ConstraintVerificationGate {
	return &ConstraintVerificationGate{constraints: constraints}
}

func (g *ConstraintVerificationGate) ID() string          { return "constraint-verification" }
func (g *ConstraintVerificationGate) Name() string        { return "Constraint Verification" }
func (g *ConstraintVerificationGate) Description() string { return "evaluates the proportion of configured architectural constraints satisfied" }

func (g *ConstraintVerificationGate) DefaultConfig() map[string]any {
	return map[string]any{"minSatisfiedRate": 1.0}
}

func (g *ConstraintVerificationGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	var errs []string
	if v, ok := cfg["minSatisfiedRate"]; ok {
		if f, ok := v.(float64); !ok || f < 0 || f > 1 {
			errs = append(errs, "minSatisfiedRate must be a number in [0,1]")
		}
	}
	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}

func (g *ConstraintVerificationGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		minRate := 1.0
		if v, ok := cfg["minSatisfiedRate"].(float64); ok {
			minRate = v
		}

		if len(g.constraints) == 0 {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusPassed, Passed: true, Score: 100,
				Summary: "no constraints configured"}
		}

		var violations []Violation
		satisfied := 0
		for _, c := range g.constraints {
			ok, detail := c.Predicate(input)
			if ok {
				satisfied++
				continue
			}
			violations = append(violations, Violation{
				GateID: g.ID(), Message: fmt.Sprintf("constraint %q violated: %s", c.Description, detail), Severity: "high",
			})
		}

		rate := float64(satisfied) / float64(len(g.constraints))
		status := StatusPassed
		if rate < minRate {
			status = StatusFailed
			if rate >= minRate*0.8 {
				status = StatusWarned
			}
		}

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: status != StatusFailed,
			Score: rate * 100, Summary: fmt.Sprintf("%d/%d constraints satisfied", satisfied, len(g.constraints)),
			Violations: sortViolations(violations),
		}
	})
}

// RegressionThresholds configures the regression-detection gate (§4.6).
type RegressionThresholds struct {
	MaxConfidenceDrop        float64
	MaxComplianceDrop        float64
	MaxNewOutliersPerPattern int
	CriticalCategories       []patterns.Category
}

func DefaultRegressionThresholds() RegressionThresholds {
	return RegressionThresholds{
		MaxConfidenceDrop:        0.15,
		MaxComplianceDrop:        0.15,
		MaxNewOutliersPerPattern: 2,
		CriticalCategories:       []patterns.Category{patterns.CategorySecurity, patterns.Category("auth")},
	}
}

type regressionClass string

const (
	regressionNone     regressionClass = "none"
	regressionMinor    regressionClass = "minor"
	regressionModerate regressionClass = "moderate"
	regressionSevere   regressionClass = "severe"
)

// RegressionDetectionGate compares the current pattern repository against
// a baseline HealthSnapshot (§4.6 canonical example).
type RegressionDetectionGate struct{}

func NewRegressionDetectionGate() *RegressionDetectionGate { return &RegressionDetectionGate{} }

func (g *RegressionDetectionGate) ID() string          { return "regression-detection" }
func (g *RegressionDetectionGate) Name() string        { return "Regression Detection" }
func (g *RegressionDetectionGate) Description() string { return "compares current pattern health against a baseline snapshot" }

func (g *RegressionDetectionGate) DefaultConfig() map[string]any {
	d := DefaultRegressionThresholds()
	cats := make([]string, len(d.CriticalCategories))
	for i, c := range d.CriticalCategories {
		cats[i] = string(c)
	}
	return map[string]any{
		"maxConfidenceDrop":        d.MaxConfidenceDrop,
		"maxComplianceDrop":        d.MaxComplianceDrop,
		"maxNewOutliersPerPattern": float64(d.MaxNewOutliersPerPattern),
		"criticalCategories":       cats,
	}
}

func (g *RegressionDetectionGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	var errs []string
	for _, key := range []string{"maxConfidenceDrop", "maxComplianceDrop"} {
		if v, ok := cfg[key]; ok {
			if f, ok := v.(float64); !ok || f < 0 || f > 1 {
				errs = append(errs, key+" must be a number in [0,1]")
			}
		}
	}
	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}

func thresholdsFromConfig(cfg map[string]any) RegressionThresholds {
	t := DefaultRegressionThresholds()
	if v, ok := cfg["maxConfidenceDrop"].(float64); ok {
		t.MaxConfidenceDrop = v
	}
	if v, ok := cfg["maxComplianceDrop"].(float64); ok {
		t.MaxComplianceDrop = v
	}
	if v, ok := cfg["maxNewOutliersPerPattern"].(float64); ok {
		t.MaxNewOutliersPerPattern = int(v)
	}
	if v, ok := cfg["criticalCategories"].([]string); ok {
		cats := make([]patterns.Category, len(v))
		for i, c := range v {
			cats[i] = patterns.Category(c)
		}
		t.CriticalCategories = cats
	}
	return t
}

func (g *RegressionDetectionGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		if input.Baseline == nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50, Passed: true,
				Summary: "no baseline", Warnings: []string{"regression-detection skipped: no baseline provided"}}
		}
		if input.Patterns == nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50,
				Summary: "no pattern repository available", Warnings: []string{"regression-detection skipped: no repository bound"}}
		}

		thresholds := thresholdsFromConfig(cfg)
		baselineByID := make(map[string]SnapshotPatternHealth, len(input.Baseline.Patterns))
		for _, p := range input.Baseline.Patterns {
			baselineByID[p.PatternID] = p
		}

		current, err := input.Patterns.GetAll(ctx)
		if err != nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50,
				Summary: "failed to read pattern repository", Warnings: []string{err.Error()}}
		}

		critical := make(map[patterns.Category]bool, len(thresholds.CriticalCategories))
		for _, c := range thresholds.CriticalCategories {
			critical[c] = true
		}

		var violations []Violation
		var regressionInCritical bool
		severeCount, moderateCount, minorCount, improvedCount := 0, 0, 0, 0

		for _, p := range current {
			base, ok := baselineByID[p.ID]
			if !ok {
				continue
			}
			complianceNow := p.ComplianceRate()
			complianceBase := 1.0
			if base.Locations+base.Outliers > 0 {
				complianceBase = float64(base.Locations) / float64(base.Locations+base.Outliers)
			}

			confidenceDelta := base.Confidence - p.Confidence
			complianceDelta := complianceBase - complianceNow
			newOutliers := len(p.Outliers) - base.Outliers
			if newOutliers < 0 {
				newOutliers = 0
			}

			class := regressionNone
			improved := confidenceDelta < 0 && complianceDelta < 0
			switch {
			case confidenceDelta > 2*thresholds.MaxConfidenceDrop ||
				complianceDelta > 2*thresholds.MaxComplianceDrop ||
				newOutliers > 2*thresholds.MaxNewOutliersPerPattern:
				class = regressionSevere
			case confidenceDelta > thresholds.MaxConfidenceDrop ||
				complianceDelta > thresholds.MaxComplianceDrop ||
				newOutliers > thresholds.MaxNewOutliersPerPattern:
				class = regressionModerate
			default:
				if confidenceDelta > 0 || complianceDelta > 0 || newOutliers > 0 {
					class = regressionMinor
				}
			}

			if class != regressionNone && critical[p.Category] {
				regressionInCritical = true
			}
			switch class {
			case regressionSevere:
				severeCount++
				violations = append(violations, Violation{GateID: g.ID(), PatternID: p.ID, Severity: "critical",
					Message: fmt.Sprintf("severe regression in pattern %q: confidenceDelta=%.2f complianceDelta=%.2f newOutliers=%d", p.Name, confidenceDelta, complianceDelta, newOutliers)})
			case regressionModerate:
				moderateCount++
				violations = append(violations, Violation{GateID: g.ID(), PatternID: p.ID, Severity: "medium",
					Message: fmt.Sprintf("moderate regression in pattern %q", p.Name)})
			case regressionMinor:
				minorCount++
			}
			if improved {
				improvedCount++
			}
		}

		score := 100.0
		score -= float64(severeCount) * 20
		score -= float64(moderateCount) * 10
		score -= float64(minorCount) * 3
		score += minFloat(float64(improvedCount), 10)
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		failed := severeCount > 0 || regressionInCritical || moderateCount > 3
		status := StatusPassed
		if failed {
			status = StatusFailed
		} else if moderateCount > 0 || minorCount > 0 {
			status = StatusWarned
		}

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: !failed,
			Score: score, Summary: fmt.Sprintf("%d severe, %d moderate, %d minor regressions", severeCount, moderateCount, minorCount),
			Violations: sortViolations(violations),
			Details: map[string]any{
				"severe": severeCount, "moderate": moderateCount, "minor": minorCount, "improved": improvedCount,
			},
		}
	})
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// ImpactSimulationGate scores the risk of the changed file set via C5.
type ImpactSimulationGate struct{}

func NewImpactSimulationGate() *ImpactSimulationGate { return &ImpactSimulationGate{} }

func (g *ImpactSimulationGate) ID() string          { return "impact-simulation" }
func (g *ImpactSimulationGate) Name() string        { return "Impact Simulation" }
func (g *ImpactSimulationGate) Description() string { return "estimates blast radius of the changed files via reachability" }

func (g *ImpactSimulationGate) DefaultConfig() map[string]any {
	return map[string]any{"maxRiskScore": 70.0}
}

func (g *ImpactSimulationGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	var errs []string
	if v, ok := cfg["maxRiskScore"]; ok {
		if f, ok := v.(float64); !ok || f < 0 || f > 100 {
			errs = append(errs, "maxRiskScore must be a number in [0,100]")
		}
	}
	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}

func (g *ImpactSimulationGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		maxRisk := 70.0
		if v, ok := cfg["maxRiskScore"].(float64); ok {
			maxRisk = v
		}

		scorer := input.Impact
		if scorer == nil {
			scorer = scoring.NewImpactScorer(input.Graph)
		}
		metrics := scorer.Score(ctx, scoring.ChangeSet{Files: input.ChangedFiles})

		status := StatusPassed
		var warnings []string
		if metrics.Summary.Estimated {
			status = StatusWarned
			warnings = append(warnings, metrics.Summary.Limitations...)
		}
		if metrics.RiskScore > maxRisk {
			status = StatusFailed
		}

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: status != StatusFailed,
			Score: 100 - metrics.RiskScore, Summary: metrics.Summary.Headline, Warnings: warnings,
			Details: map[string]any{
				"riskScore": metrics.RiskScore, "riskLevel": string(metrics.RiskLevel),
				"entryPointsAffected": metrics.EntryPointsAffected, "filesAffected": metrics.FilesAffected,
			},
		}
	})
}

// SecurityBoundaryGate checks that every path from a changed function to
// a protected table crosses a recognized auth function (§4.6).
type SecurityBoundaryGate struct{}

func NewSecurityBoundaryGate() *SecurityBoundaryGate { return &SecurityBoundaryGate{} }

func (g *SecurityBoundaryGate) ID() string          { return "security-boundary" }
func (g *SecurityBoundaryGate) Name() string        { return "Security Boundary" }
func (g *SecurityBoundaryGate) Description() string { return "verifies changed functions reaching protected tables cross an auth boundary" }

var defaultRequiredAuthPatterns = []string{"requireAuth", "authenticate", "authorize", "checkPermission", "verifyToken"}

func (g *SecurityBoundaryGate) DefaultConfig() map[string]any {
	return map[string]any{
		"maxDataFlowDepth":    float64(10),
		"requiredAuthPattern": append([]string(nil), defaultRequiredAuthPatterns...),
	}
}

func (g *SecurityBoundaryGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	var errs []string
	if v, ok := cfg["maxDataFlowDepth"]; ok {
		if f, ok := v.(float64); !ok || f <= 0 {
			errs = append(errs, "maxDataFlowDepth must be a positive number")
		}
	}
	return ConfigValidation{Valid: len(errs) == 0, Errors: errs}
}

func (g *SecurityBoundaryGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		if input.Graph == nil {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusWarned, Score: 50,
				Summary: "no call graph available", Warnings: []string{"security-boundary skipped: no graph bound"}}
		}

		maxDepth := 10
		if v, ok := cfg["maxDataFlowDepth"].(float64); ok {
			maxDepth = int(v)
		}
		authPatterns := defaultRequiredAuthPatterns
		if v, ok := cfg["requiredAuthPattern"].([]string); ok && len(v) > 0 {
			authPatterns = v
		}

		engine := reachability.NewEngine(input.Graph)
		var violations []Violation
		tableProtection := map[string]string{}

		for _, file := range input.ChangedFiles {
			for _, fn := range input.Graph.FunctionsInFile(file) {
				for _, access := range fn.DataAccess {
					if access.Table == "" {
						continue
					}
					protected := pathHasAuth(engine, fn.ID, maxDepth, authPatterns)
					if protected {
						if tableProtection[access.Table] != "unprotected" {
							tableProtection[access.Table] = "protected"
						} else {
							tableProtection[access.Table] = "partial"
						}
						continue
					}
					if tableProtection[access.Table] == "protected" {
						tableProtection[access.Table] = "partial"
					} else {
						tableProtection[access.Table] = "unprotected"
					}
					violations = append(violations, Violation{
						GateID: g.ID(), File: fn.File, Severity: "critical",
						Message: fmt.Sprintf("unauthorized path: %s accesses %q with no auth function on any incoming path", fn.ID, access.Table),
					})
				}
			}
		}

		status := StatusPassed
		if len(violations) > 0 {
			status = StatusFailed
		}
		score := 100.0
		if len(violations) > 0 {
			score = minFloat(100, float64(len(violations))*25)
			score = 100 - score
			if score < 0 {
				score = 0
			}
		}

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: status != StatusFailed,
			Score: score, Summary: fmt.Sprintf("%d unauthorized data-access path(s) found", len(violations)),
			Violations: sortViolations(violations),
			Details:    map[string]any{"tableProtection": tableProtection},
		}
	})
}

func pathHasAuth(engine *reachability.Engine, start string, maxDepth int, authPatterns []string) bool {
	for _, r := range engine.Backward(start, maxDepth) {
		for _, node := range r.Path {
			if nameMatchesAny(node.Name, authPatterns) {
				return true
			}
		}
	}
	return false
}

func nameMatchesAny(name string, needles []string) bool {
	lower := strings.ToLower(name)
	for _, p := range needles {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// CustomRulesGate evaluates user-defined predicates, identical in shape to
// ConstraintVerificationGate but scoped for ad-hoc, per-policy rules
// rather than named architectural constraints.
type CustomRulesGate struct {
	rules []Constraint
}

func NewCustomRulesGate(rules []Constraint) *CustomRulesGate { return &CustomRulesGate{rules: rules} }

func (g *CustomRulesGate) ID() string          { return "custom-rules" }
func (g *CustomRulesGate) Name() string        { return "Custom Rules" }
func (g *CustomRulesGate) Description() string { return "evaluates user-defined predicates against the current workspace" }

func (g *CustomRulesGate) DefaultConfig() map[string]any { return map[string]any{} }

func (g *CustomRulesGate) ValidateConfig(cfg map[string]any) ConfigValidation {
	return ConfigValidation{Valid: true}
}

func (g *CustomRulesGate) ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult {
	return timed(func() GateResult {
		if len(g.rules) == 0 {
			return GateResult{GateID: g.ID(), GateName: g.Name(), Status: StatusPassed, Passed: true, Score: 100,
				Summary: "no custom rules configured"}
		}

		var violations []Violation
		failedRules := make([]string, 0)
		for _, rule := range g.rules {
			ok, detail := rule.Predicate(input)
			if ok {
				continue
			}
			failedRules = append(failedRules, rule.ID)
			violations = append(violations, Violation{GateID: g.ID(), Severity: "medium",
				Message: fmt.Sprintf("custom rule %q failed: %s", rule.Description, detail)})
		}
		sort.Strings(failedRules)

		status := StatusPassed
		if len(failedRules) > 0 {
			status = StatusFailed
		}
		score := 100.0 * float64(len(g.rules)-len(failedRules)) / float64(len(g.rules))

		return GateResult{
			GateID: g.ID(), GateName: g.Name(), Status: status, Passed: status != StatusFailed,
			Score: score, Summary: fmt.Sprintf("%d/%d custom rules passed", len(g.rules)-len(failedRules), len(g.rules)),
			Violations: sortViolations(violations),
		}
	})
}
