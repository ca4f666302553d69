// Package facade implements the public façade (C9): one stable,
// language-neutral interface enumerating every operation downstream
// adapters can call, plus a stub implementation that returns
// structurally valid empty defaults and never throws (§4.9). Operation
// names, argument order, and field names are the wire contract; once
// published they are not renamed.
package facade

import (
	"time"

	"github.com/driftco/drift/internal/callgraph"
	"github.com/driftco/drift/internal/gates"
	"github.com/driftco/drift/internal/patternadapter"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/scoring"
	"github.com/driftco/drift/internal/workspace"
)

// ScanRequest names the roots to scan and which detectors to run; an
// empty DetectorIDs means "every registered detector."
type ScanRequest struct {
	Roots       []string `json:"roots"`
	DetectorIDs []string `json:"detectorIds,omitempty"`
}

// ScanResult summarizes one scan run.
type ScanResult struct {
	FilesScanned    int       `json:"filesScanned"`
	PatternsFound   int       `json:"patternsFound"`
	ViolationsFound int       `json:"violationsFound"`
	Warnings        []string  `json:"warnings,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
}

// AnalyzeRequest selects which analyze phase(s) to run.
type AnalyzeRequest struct {
	MaxPhase int      `json:"maxPhase,omitempty"`
	Files    []string `json:"files,omitempty"`
}

// AnalyzeResult is the outcome of one or more analyze phases.
type AnalyzeResult struct {
	PhasesRun []string `json:"phasesRun"`
	Findings  int      `json:"findings"`
	Warnings  []string `json:"warnings,omitempty"`
}

// PatternFilter narrows ListPatterns/CountPatterns.
type PatternFilter struct {
	Category patterns.Category `json:"category,omitempty"`
	Status   patterns.Status   `json:"status,omitempty"`
	File     string            `json:"file,omitempty"`
}

// OutlierView is one outlier instance alongside its owning pattern id.
type OutlierView struct {
	PatternID string            `json:"patternId"`
	Outlier   patterns.Outlier  `json:"outlier"`
}

// ConventionView summarizes one established naming/structural convention.
type ConventionView struct {
	Name       string  `json:"name"`
	PatternID  string  `json:"patternId"`
	Confidence float64 `json:"confidence"`
}

// ReachabilityQuery names a source function and a max traversal depth.
type ReachabilityQuery struct {
	FunctionID string `json:"functionId"`
	MaxDepth   int    `json:"maxDepth,omitempty"`
}

// ReachabilityResult is the reachable function id set plus truncation
// bookkeeping.
type ReachabilityResult struct {
	Reachable []string `json:"reachable"`
	Truncated bool     `json:"truncated"`
}

// AnalysisRequest is the generic input shape shared by the named
// secondary analyses (taint, error-handling, topology, coupling,
// constraints, contracts, constants, wrappers, DNA, OWASP, crypto,
// decomposition): a file/function scope plus free-form options.
type AnalysisRequest struct {
	Scope   []string       `json:"scope,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// AnalysisResult is the generic output shape for the same family: a
// named finding list plus a risk/compliance score in [0,100] and a
// flag marking whether the native backend actually ran the analysis or
// the stub answered it.
type AnalysisResult struct {
	Kind      string         `json:"kind"`
	Score     float64        `json:"score"`
	Findings  []Finding      `json:"findings"`
	Estimated bool           `json:"estimated"`
	Details   map[string]any `json:"details,omitempty"`
}

// Finding is one concrete result row inside an AnalysisResult.
type Finding struct {
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Message     string `json:"message"`
	Severity    string `json:"severity,omitempty"`
}

// GateCheckRequest names the policy to run and the changed files in
// scope.
type GateCheckRequest struct {
	Policy       string   `json:"policy,omitempty"`
	ChangedFiles []string `json:"changedFiles"`
}

// ViolationsReport is a flattened view of every gate violation, used by
// GateViolations and GateReport.
type ViolationsReport struct {
	Format     string            `json:"format"`
	Violations []gates.Violation `json:"violations"`
	Rendered   string            `json:"rendered,omitempty"`
}

// FeedbackRequest is the shared shape for dismiss/fix/suppress.
type FeedbackRequest struct {
	TargetID string `json:"targetId"`
	Reason   string `json:"reason,omitempty"`
	By       string `json:"by,omitempty"`
}

// FeedbackResult acknowledges a feedback operation.
type FeedbackResult struct {
	Applied bool   `json:"applied"`
	Message string `json:"message,omitempty"`
}

// SimulateRequest asks "what would change if approach X were taken."
type SimulateRequest struct {
	Task          scoring.SimulationTask `json:"task"`
	MaxApproaches int                    `json:"maxApproaches,omitempty"`
}

// SimulateResult is the simulated outcome.
type SimulateResult struct {
	Result    scoring.SimulationResult `json:"result"`
	Estimated bool                     `json:"estimated"`
}

// DecisionRecord is one mined architectural decision.
type DecisionRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Rationale   string    `json:"rationale,omitempty"`
	DecidedAt   time.Time `json:"decidedAt"`
	PatternIDs  []string  `json:"patternIds,omitempty"`
}

// ContextRequest/ContextResult support GenerateContext: a natural
// language briefing assembled from current workspace state, intended
// for handing to an external LLM-backed adapter.
type ContextRequest struct {
	Topic string `json:"topic,omitempty"`
}

type ContextResult struct {
	Summary string   `json:"summary"`
	Sources []string `json:"sources,omitempty"`
}

// SpecRequest/SpecResult support GenerateSpec: reverse-generating a
// language-neutral spec fragment from observed patterns.
type SpecRequest struct {
	Category patterns.Category `json:"category,omitempty"`
}

type SpecResult struct {
	Markdown string `json:"markdown"`
}

// BridgeStatusResult reports whether a native analysis backend is
// attached, and if not, that every call is being answered by the stub.
type BridgeStatusResult struct {
	Connected    bool   `json:"connected"`
	BackendKind  string `json:"backendKind,omitempty"`
	StubFallback bool   `json:"stubFallback"`
}

// BridgeGroundingResult reports which DESIGN.md-style grounding sources
// back the currently attached backend's analyses, for adapters that
// want to surface provenance to a user.
type BridgeGroundingResult struct {
	Entries []string `json:"entries"`
}

// BridgeTranslateRequest/Result translate a native-backend-specific
// identifier (e.g. a legacy pattern id) into the unified id space, or
// back.
type BridgeTranslateRequest struct {
	ID        string `json:"id"`
	Direction string `json:"direction"` // "toUnified" | "toNative"
}

type BridgeTranslateResult struct {
	ID    string `json:"id"`
	Found bool   `json:"found"`
}

// BridgeHealthResult is a liveness/readiness probe result.
type BridgeHealthResult struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// CloudSyncRow is one exported row in the cloud-sync wire format.
type CloudSyncRow struct {
	Cursor    int64          `json:"cursor"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// GCResult reports what a garbage-collection pass reclaimed.
type GCResult struct {
	PatternsRemoved int `json:"patternsRemoved"`
	ShardsCompacted int `json:"shardsCompacted"`
}

// Deps bundles the subsystems Service wires into the façade. Any field
// left nil degrades that operation family to the Stub's behavior rather
// than panicking, matching §4.9's "never throws" guarantee.
type Deps struct {
	Registry     *patterns.Registry
	Patterns     *patterns.Repository
	Legacy       *patternadapter.Adapter
	Graph        *callgraph.Graph
	Impact       *scoring.ImpactScorer
	Security     *scoring.SecurityScorer
	Speculative  *scoring.ApproachGenerator
	Orchestrator *gates.Orchestrator
	Layout       *workspace.Layout
	Backups      *workspace.Manager
	DriftVersion string
}
