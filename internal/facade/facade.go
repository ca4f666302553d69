package facade

import (
	"context"

	"github.com/driftco/drift/internal/gates"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/workspace"
)

// Facade is the single native interface every external adapter (CLI,
// HTTP, editor plugin) is written against. Operation names, argument
// order, and result field names are the wire contract (§4.9) and are
// never renamed once published.
type Facade interface {
	// Lifecycle
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	GC(ctx context.Context) (GCResult, error)
	Health(ctx context.Context) (BridgeHealthResult, error)

	// Scanning
	Scan(ctx context.Context, req ScanRequest) (ScanResult, error)

	// Analyze phases
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error)
	AnalyzePhase(ctx context.Context, phase int) (AnalyzeResult, error)

	// Pattern & confidence queries
	GetPattern(ctx context.Context, id string) (patterns.Pattern, error)
	ListPatterns(ctx context.Context, filter PatternFilter) ([]patterns.Pattern, error)
	GetPatternsByCategory(ctx context.Context, category patterns.Category) ([]patterns.Pattern, error)
	GetPatternsByFile(ctx context.Context, file string) ([]patterns.Pattern, error)
	GetPatternSummaries(ctx context.Context) ([]patterns.Summary, error)
	GetPatternConfidence(ctx context.Context, id string) (float64, error)
	CountPatterns(ctx context.Context, filter PatternFilter) (int, error)
	ApprovePattern(ctx context.Context, id, by string) (patterns.Pattern, error)
	IgnorePattern(ctx context.Context, id string) (patterns.Pattern, error)
	RevertPattern(ctx context.Context, id string) (patterns.Pattern, error)
	DeletePattern(ctx context.Context, id string) error
	ClearPatterns(ctx context.Context) error
	SaveAllPatterns(ctx context.Context) error

	// Outliers & conventions
	ListOutliers(ctx context.Context, patternID string) ([]OutlierView, error)
	ListConventions(ctx context.Context) ([]ConventionView, error)

	// Reachability
	Reachable(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error)
	ForwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error)
	BackwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error)

	// Secondary analyses
	AnalyzeTaint(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeErrorHandling(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeImpact(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeTopology(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeCoupling(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeConstraints(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeContracts(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeConstants(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeWrappers(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeDNA(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeOWASP(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeCrypto(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	AnalyzeDecomposition(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)

	// Quality gates
	GateCheck(ctx context.Context, req GateCheckRequest) (gates.QualityGateResult, error)
	GateAudit(ctx context.Context) ([]gates.HealthSnapshot, error)
	GateViolations(ctx context.Context) (ViolationsReport, error)
	GateReport(ctx context.Context, format string) (ViolationsReport, error)

	// Feedback
	DismissViolation(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
	FixViolation(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
	SuppressPattern(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)

	// Simulation & decision mining
	Simulate(ctx context.Context, req SimulateRequest) (SimulateResult, error)
	MineDecisions(ctx context.Context) ([]DecisionRecord, error)

	// Context & spec generation
	GenerateContext(ctx context.Context, req ContextRequest) (ContextResult, error)
	GenerateSpec(ctx context.Context, req SpecRequest) (SpecResult, error)

	// Bridge operations
	BridgeStatus(ctx context.Context) (BridgeStatusResult, error)
	BridgeGrounding(ctx context.Context) (BridgeGroundingResult, error)
	BridgeTranslate(ctx context.Context, req BridgeTranslateRequest) (BridgeTranslateResult, error)
	BridgeHealth(ctx context.Context) (BridgeHealthResult, error)

	// Cloud-sync row I/O
	CloudSyncRead(ctx context.Context, sinceCursor int64, limit int) ([]CloudSyncRow, error)
	CloudSyncMaxCursor(ctx context.Context) (int64, error)

	// Backups
	CreateBackup(ctx context.Context, reason string) (workspace.BackupResult, error)
	ListBackups(ctx context.Context) ([]workspace.IndexEntry, error)
	RestoreBackup(ctx context.Context, backupID string) (workspace.RestoreResult, error)
	DeleteBackup(ctx context.Context, backupID, confirmToken string) error

	// Configuration
	GetConfig(ctx context.Context) (workspace.Config, error)
	UpdateConfig(ctx context.Context, cfg workspace.Config) error
}
