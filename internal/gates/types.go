// Package gates implements the quality-gate orchestrator (C6): a closed
// set of plug-in gates, each sharing the same contract, composed by a
// configurable aggregation policy into a single QualityGateResult
// suitable for CI (§4.6).
package gates

import (
	"context"
	"sort"
	"time"

	"github.com/driftco/drift/internal/callgraph"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/scoring"
)

// Status is a gate's or the overall run's verdict.
type Status string

const (
	StatusPassed Status = "passed"
	StatusWarned Status = "warned"
	StatusFailed Status = "failed"
)

// Violation is a single gate-reported problem, sortable by (file, line,
// patternId) to satisfy the orchestrator's determinism requirement.
type Violation struct {
	GateID    string `json:"gateId"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	PatternID string `json:"patternId,omitempty"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// GateInput is what every gate receives to execute against.
type GateInput struct {
	ChangedFiles []string
	Patterns     *patterns.Repository
	Graph        *callgraph.Graph
	Baseline     *HealthSnapshot
	Impact       *scoring.ImpactScorer
	Security     *scoring.SecurityScorer
}

// HealthSnapshot is an immutable, frozen summary of pattern health (§3.6).
type HealthSnapshot struct {
	CommitSHA string                    `json:"commitSha,omitempty"`
	Branch    string                    `json:"branch"`
	Timestamp time.Time                 `json:"timestamp"`
	Patterns  []SnapshotPatternHealth   `json:"patterns"`
}

// SnapshotPatternHealth is one pattern's health as recorded in a snapshot.
type SnapshotPatternHealth struct {
	PatternID  string            `json:"patternId"`
	Category   patterns.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Locations  int               `json:"locations"`
	Outliers   int               `json:"outliers"`
}

// GateResult is the stable per-gate output (§4.6 gate contract).
type GateResult struct {
	GateID          string        `json:"gateId"`
	GateName        string        `json:"gateName"`
	Status          Status        `json:"status"`
	Passed          bool          `json:"passed"`
	Score           float64       `json:"score"`
	Summary         string        `json:"summary"`
	Violations      []Violation   `json:"violations"`
	Warnings        []string      `json:"warnings"`
	ExecutionTimeMs int64         `json:"executionTimeMs"`
	Details         map[string]any `json:"details,omitempty"`
}

// ConfigValidation is the result of validating a gate's configuration.
type ConfigValidation struct {
	Valid  bool
	Errors []string
}

// Gate is the shared contract every quality gate implements (§4.6).
type Gate interface {
	ID() string
	Name() string
	Description() string
	ExecuteGate(ctx context.Context, input GateInput, cfg map[string]any) GateResult
	ValidateConfig(cfg map[string]any) ConfigValidation
	DefaultConfig() map[string]any
}

// Constraint is a named architectural rule evaluated by the
// constraint-verification gate; a predicate returns whether it is
// satisfied plus a human detail used in violation messages.
type Constraint struct {
	ID          string
	Description string
	Predicate   func(GateInput) (bool, string)
}

// QualityGateResult is the orchestrator's overall output (§4.6).
type QualityGateResult struct {
	Status     Status                 `json:"status"`
	Passed     bool                   `json:"passed"`
	Score      float64                `json:"score"`
	Summary    string                 `json:"summary"`
	Gates      []GateResult           `json:"gates"`
	Violations []Violation            `json:"violations"`
	Warnings   []string               `json:"warnings"`
	Metadata   QualityGateMetadata    `json:"metadata"`
}

// QualityGateMetadata reports which gates actually ran.
type QualityGateMetadata struct {
	GatesRun     []string `json:"gatesRun"`
	GatesSkipped []string `json:"gatesSkipped"`
}

// sortViolations returns a copy of v sorted by (file, line, patternId),
// the ordering the orchestrator's determinism requirement demands.
func sortViolations(v []Violation) []Violation {
	out := append([]Violation(nil), v...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].PatternID < out[j].PatternID
	})
	return out
}
