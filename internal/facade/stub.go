package facade

import (
	"context"
	"time"

	"github.com/driftco/drift/internal/gates"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/scoring"
	"github.com/driftco/drift/internal/workspace"
)

// Stub answers every Facade operation with a structurally valid empty
// default; the only errors it returns are the not-found sentinels
// (patterns.ErrNotFound, workspace.ErrBackupNotFound) from operations that
// look up a pattern or backup by id (§4.9): "it is the fallback when the native backend is absent and
// the basis for tests." It is the façade analogue of the teacher's
// scanner health checks that degrade rather than crash when a backend
// dependency (Mythril, Slither) is unavailable.
type Stub struct{}

// NewStub constructs a Stub. It takes no dependencies by design: a stub
// must work with nothing wired in.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) Initialize(ctx context.Context) error { return nil }
func (s *Stub) Shutdown(ctx context.Context) error   { return nil }

func (s *Stub) GC(ctx context.Context) (GCResult, error) {
	return GCResult{}, nil
}

func (s *Stub) Health(ctx context.Context) (BridgeHealthResult, error) {
	return BridgeHealthResult{Healthy: true, Checks: map[string]string{"backend": "stub"}}, nil
}

func (s *Stub) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	now := time.Now().UTC()
	return ScanResult{StartedAt: now, CompletedAt: now}, nil
}

func (s *Stub) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	return AnalyzeResult{PhasesRun: []string{}}, nil
}

func (s *Stub) AnalyzePhase(ctx context.Context, phase int) (AnalyzeResult, error) {
	return AnalyzeResult{PhasesRun: []string{}}, nil
}

func (s *Stub) GetPattern(ctx context.Context, id string) (patterns.Pattern, error) {
	return patterns.Pattern{}, patterns.ErrNotFound
}

func (s *Stub) ListPatterns(ctx context.Context, filter PatternFilter) ([]patterns.Pattern, error) {
	return []patterns.Pattern{}, nil
}

func (s *Stub) GetPatternsByCategory(ctx context.Context, category patterns.Category) ([]patterns.Pattern, error) {
	return []patterns.Pattern{}, nil
}

func (s *Stub) GetPatternsByFile(ctx context.Context, file string) ([]patterns.Pattern, error) {
	return []patterns.Pattern{}, nil
}

func (s *Stub) GetPatternSummaries(ctx context.Context) ([]patterns.Summary, error) {
	return []patterns.Summary{}, nil
}

func (s *Stub) GetPatternConfidence(ctx context.Context, id string) (float64, error) {
	return 0, patterns.ErrNotFound
}

func (s *Stub) CountPatterns(ctx context.Context, filter PatternFilter) (int, error) {
	return 0, nil
}

func (s *Stub) ApprovePattern(ctx context.Context, id, by string) (patterns.Pattern, error) {
	return patterns.Pattern{}, patterns.ErrNotFound
}

func (s *Stub) IgnorePattern(ctx context.Context, id string) (patterns.Pattern, error) {
	return patterns.Pattern{}, patterns.ErrNotFound
}

func (s *Stub) RevertPattern(ctx context.Context, id string) (patterns.Pattern, error) {
	return patterns.Pattern{}, patterns.ErrNotFound
}

func (s *Stub) DeletePattern(ctx context.Context, id string) error { return nil }
func (s *Stub) ClearPatterns(ctx context.Context) error            { return nil }
func (s *Stub) SaveAllPatterns(ctx context.Context) error          { return nil }

func (s *Stub) ListOutliers(ctx context.Context, patternID string) ([]OutlierView, error) {
	return []OutlierView{}, nil
}

func (s *Stub) ListConventions(ctx context.Context) ([]ConventionView, error) {
	return []ConventionView{}, nil
}

func (s *Stub) Reachable(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	return ReachabilityResult{Reachable: []string{}}, nil
}

func (s *Stub) ForwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	return ReachabilityResult{Reachable: []string{}}, nil
}

func (s *Stub) BackwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	return ReachabilityResult{Reachable: []string{}}, nil
}

func (s *Stub) emptyAnalysis(kind string) (AnalysisResult, error) {
	return AnalysisResult{Kind: kind, Findings: []Finding{}, Estimated: true}, nil
}

func (s *Stub) AnalyzeTaint(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("taint")
}
func (s *Stub) AnalyzeErrorHandling(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("error-handling")
}
func (s *Stub) AnalyzeImpact(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("impact")
}
func (s *Stub) AnalyzeTopology(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("topology")
}
func (s *Stub) AnalyzeCoupling(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("coupling")
}
func (s *Stub) AnalyzeConstraints(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("constraints")
}
func (s *Stub) AnalyzeContracts(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("contracts")
}
func (s *Stub) AnalyzeConstants(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("constants")
}
func (s *Stub) AnalyzeWrappers(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("wrappers")
}
func (s *Stub) AnalyzeDNA(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("dna")
}
func (s *Stub) AnalyzeOWASP(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("owasp")
}
func (s *Stub) AnalyzeCrypto(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("crypto")
}
func (s *Stub) AnalyzeDecomposition(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	return s.emptyAnalysis("decomposition")
}

func (s *Stub) GateCheck(ctx context.Context, req GateCheckRequest) (gates.QualityGateResult, error) {
	return gates.QualityGateResult{
		Status: gates.StatusWarned, Passed: false, Score: 0,
		Summary: "no gates configured: stub backend",
	}, nil
}

func (s *Stub) GateAudit(ctx context.Context) ([]gates.HealthSnapshot, error) {
	return []gates.HealthSnapshot{}, nil
}

func (s *Stub) GateViolations(ctx context.Context) (ViolationsReport, error) {
	return ViolationsReport{Format: "json", Violations: []gates.Violation{}}, nil
}

func (s *Stub) GateReport(ctx context.Context, format string) (ViolationsReport, error) {
	if format == "" {
		format = "text"
	}
	return ViolationsReport{Format: format, Violations: []gates.Violation{}, Rendered: ""}, nil
}

func (s *Stub) DismissViolation(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	return FeedbackResult{Applied: false, Message: "stub backend: no violation store attached"}, nil
}

func (s *Stub) FixViolation(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	return FeedbackResult{Applied: false, Message: "stub backend: no violation store attached"}, nil
}

func (s *Stub) SuppressPattern(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	return FeedbackResult{Applied: false, Message: "stub backend: no pattern repository attached"}, nil
}

func (s *Stub) Simulate(ctx context.Context, req SimulateRequest) (SimulateResult, error) {
	return SimulateResult{
		Result:    scoring.SimulationResult{Approaches: []scoring.SimulationApproach{}, Limitations: []string{"stub backend: no approach generator attached"}},
		Estimated: true,
	}, nil
}

func (s *Stub) MineDecisions(ctx context.Context) ([]DecisionRecord, error) {
	return []DecisionRecord{}, nil
}

func (s *Stub) GenerateContext(ctx context.Context, req ContextRequest) (ContextResult, error) {
	return ContextResult{Summary: "", Sources: []string{}}, nil
}

func (s *Stub) GenerateSpec(ctx context.Context, req SpecRequest) (SpecResult, error) {
	return SpecResult{Markdown: ""}, nil
}

func (s *Stub) BridgeStatus(ctx context.Context) (BridgeStatusResult, error) {
	return BridgeStatusResult{Connected: false, StubFallback: true}, nil
}

func (s *Stub) BridgeGrounding(ctx context.Context) (BridgeGroundingResult, error) {
	return BridgeGroundingResult{Entries: []string{}}, nil
}

func (s *Stub) BridgeTranslate(ctx context.Context, req BridgeTranslateRequest) (BridgeTranslateResult, error) {
	return BridgeTranslateResult{ID: req.ID, Found: false}, nil
}

func (s *Stub) BridgeHealth(ctx context.Context) (BridgeHealthResult, error) {
	return BridgeHealthResult{Healthy: true, Checks: map[string]string{"backend": "stub"}}, nil
}

func (s *Stub) CloudSyncRead(ctx context.Context, sinceCursor int64, limit int) ([]CloudSyncRow, error) {
	return []CloudSyncRow{}, nil
}

func (s *Stub) CloudSyncMaxCursor(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *Stub) CreateBackup(ctx context.Context, reason string) (workspace.BackupResult, error) {
	return workspace.BackupResult{}, nil
}

func (s *Stub) ListBackups(ctx context.Context) ([]workspace.IndexEntry, error) {
	return []workspace.IndexEntry{}, nil
}

func (s *Stub) RestoreBackup(ctx context.Context, backupID string) (workspace.RestoreResult, error) {
	return workspace.RestoreResult{}, workspace.ErrBackupNotFound
}

func (s *Stub) DeleteBackup(ctx context.Context, backupID, confirmToken string) error {
	return workspace.ErrBackupNotFound
}

func (s *Stub) GetConfig(ctx context.Context) (workspace.Config, error) {
	return workspace.DefaultConfig("stub"), nil
}

func (s *Stub) UpdateConfig(ctx context.Context, cfg workspace.Config) error {
	return nil
}

var _ Facade = (*Stub)(nil)
