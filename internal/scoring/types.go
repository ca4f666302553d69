// Package scoring implements the impact, speculative (approach), and
// security scorers of C5: reachability-driven risk estimates that never
// fail to callers, falling back to lower-confidence heuristics when the
// call graph or pattern repository is unavailable.
package scoring

import "github.com/driftco/drift/internal/callgraph"

// RiskLevel buckets a numeric riskScore.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// BucketRisk derives a RiskLevel from a 0-100 riskScore.
func BucketRisk(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// EntryPointKind classifies how an entry point is invoked externally.
type EntryPointKind string

const (
	EntryAPI     EntryPointKind = "api"
	EntryUI      EntryPointKind = "ui"
	EntryCLI     EntryPointKind = "cli"
	EntryWorker  EntryPointKind = "worker"
	EntryWebhook EntryPointKind = "webhook"
	EntryOther   EntryPointKind = "other"
)

// EntryPoint is a function-node entry point annotated with how it is
// externally invoked (§3.3 "Entry-point classification").
type EntryPoint struct {
	ID     string
	Kind   EntryPointKind
	Method string
	Path   string
}

// SensitiveDataPath is one path from a changed function down to a
// data-access overlay, surfaced by the impact scorer.
type SensitiveDataPath struct {
	FunctionID  string
	File        string
	Sensitivity callgraph.Sensitivity
	Depth       int
}

// ImpactSummary is the human-readable rollup of an ImpactMetrics result.
type ImpactSummary struct {
	Headline    string
	Estimated   bool
	Limitations []string
}

// ImpactMetrics is the output of the impact scorer (§4.5.1).
type ImpactMetrics struct {
	RiskScore           float64
	RiskLevel           RiskLevel
	FilesAffected       int
	FunctionsAffected   int
	EntryPointsAffected int
	MaxDepth            int
	BreakingChanges     bool
	BreakingChangeRisks []string
	AffectedEntryPoints []EntryPoint
	AffectedDataPaths   []SensitiveDataPath
	Summary             ImpactSummary
}
