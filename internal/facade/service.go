package facade

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/driftco/drift/internal/gates"
	"github.com/driftco/drift/internal/patterns"
	"github.com/driftco/drift/internal/reachability"
	"github.com/driftco/drift/internal/scoring"
	"github.com/driftco/drift/internal/workspace"
)

// analyzePhases orders the pattern categories AnalyzePhase steps
// through: phase N runs detectors for analyzePhases[N-1]'s category only,
// and Analyze with MaxPhase N runs phases 1 through N in turn, matching the CLI's "analyze --max-phase N" surface (§ façade
// surface list).
var analyzePhases = []patterns.Category{
	patterns.CategoryStructural,
	patterns.CategorySecurity,
	patterns.CategoryConfig,
	patterns.CategoryErrors,
	patterns.CategoryLogging,
	patterns.CategoryStyle,
	patterns.CategoryDataAccess,
	patterns.CategoryAPI,
	patterns.CategoryConcurrency,
}

// Service is the native façade backend: it wires Deps's real subsystems
// into the operations that have one, and falls back to Stub's
// structurally-valid-empty-default behavior for everything else,
// exactly the degrade-not-crash contract §4.9 requires of the façade as
// a whole. This mirrors the teacher's own service layer shape
// (genome.Service wraps a store behind a constructor) generalized to
// wrap several optional subsystems instead of one mandatory one.
type Service struct {
	*Stub
	deps Deps
}

// NewService binds a Service to deps. Any nil field in deps degrades
// the operations that would have used it to Stub behavior.
func NewService(deps Deps) *Service {
	return &Service{Stub: NewStub(), deps: deps}
}

func (s *Service) Health(ctx context.Context) (BridgeHealthResult, error) {
	checks := map[string]string{}
	healthy := true
	mark := func(name string, ok bool) {
		if ok {
			checks[name] = "ok"
		} else {
			checks[name] = "absent"
		}
	}
	mark("registry", s.deps.Registry != nil)
	mark("patterns", s.deps.Patterns != nil)
	mark("graph", s.deps.Graph != nil)
	mark("gates", s.deps.Orchestrator != nil)
	mark("workspace", s.deps.Layout != nil)
	return BridgeHealthResult{Healthy: healthy, Checks: checks}, nil
}

// GC reclaims patterns the repository no longer needs to keep around:
// anything ignored and untouched since before the default retention
// window. It carries no shard-compaction step (GCResult.ShardsCompacted
// stays 0) because the pattern store has no sharded-file layout to
// compact; see DESIGN.md.
func (s *Service) GC(ctx context.Context) (GCResult, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GC(ctx)
	}
	ignored, err := s.deps.Patterns.GetByStatus(ctx, patterns.StatusIgnored)
	if err != nil {
		return GCResult{}, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -gcRetentionDays)
	removed := 0
	for _, p := range ignored {
		if p.LastSeen.After(cutoff) {
			continue
		}
		if err := s.deps.Patterns.Delete(ctx, p.ID); err != nil {
			return GCResult{PatternsRemoved: removed}, err
		}
		removed++
	}
	return GCResult{PatternsRemoved: removed}, nil
}

// gcRetentionDays is how long an ignored pattern survives before GC
// reclaims it.
const gcRetentionDays = 30

// Scan runs the detector corpus over req.Roots and, when a legacy
// store is attached, folds it into the unified repository in the same
// pass so a scan always reflects both sources.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if s.deps.Registry == nil || s.deps.Patterns == nil {
		return s.Stub.Scan(ctx, req)
	}
	started := time.Now().UTC()
	summary, err := patterns.Scan(ctx, s.deps.Registry, s.deps.Patterns, patterns.ScanConfig{
		Roots:       req.Roots,
		DetectorIDs: req.DetectorIDs,
	})
	if err != nil {
		return ScanResult{}, err
	}
	if s.deps.Legacy != nil {
		if _, syncErr := s.deps.Legacy.SyncFromLegacy(ctx); syncErr != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("legacy sync: %v", syncErr))
		}
	}
	completed := time.Now().UTC()
	return ScanResult{
		FilesScanned:    summary.FilesScanned,
		PatternsFound:   summary.PatternsFound,
		ViolationsFound: summary.ViolationsFound,
		Warnings:        summary.Warnings,
		StartedAt:       started,
		CompletedAt:     completed,
	}, nil
}

// Analyze runs req.Files (or, when Files is empty, every phase's
// detectors over no specific scope) through AnalyzePhase up to
// req.MaxPhase, or every phase when MaxPhase is unset.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	if s.deps.Registry == nil || s.deps.Patterns == nil {
		return s.Stub.Analyze(ctx, req)
	}
	maxPhase := req.MaxPhase
	if maxPhase <= 0 || maxPhase > len(analyzePhases) {
		maxPhase = len(analyzePhases)
	}

	result := AnalyzeResult{}
	for phase := 1; phase <= maxPhase; phase++ {
		phaseResult, err := s.analyzePhase(ctx, phase, req.Files)
		if err != nil {
			return result, err
		}
		result.PhasesRun = append(result.PhasesRun, phaseResult.PhasesRun...)
		result.Findings += phaseResult.Findings
		result.Warnings = append(result.Warnings, phaseResult.Warnings...)
	}
	return result, nil
}

// AnalyzePhase runs only the detectors belonging to the phase-th
// category in analyzePhases against the whole tracked tree (no file
// scope), matching the CLI's single-phase surface.
func (s *Service) AnalyzePhase(ctx context.Context, phase int) (AnalyzeResult, error) {
	if s.deps.Registry == nil || s.deps.Patterns == nil {
		return s.Stub.AnalyzePhase(ctx, phase)
	}
	return s.analyzePhase(ctx, phase, nil)
}

func (s *Service) analyzePhase(ctx context.Context, phase int, files []string) (AnalyzeResult, error) {
	if phase < 1 || phase > len(analyzePhases) {
		return AnalyzeResult{}, fmt.Errorf("facade: analyze phase %d out of range [1,%d]", phase, len(analyzePhases))
	}
	category := analyzePhases[phase-1]
	ids := make([]string, 0)
	for _, info := range s.deps.Registry.Query(patterns.RegistryQuery{Category: category}).Detectors {
		ids = append(ids, info.ID)
	}
	if len(ids) == 0 {
		return AnalyzeResult{PhasesRun: []string{string(category)}}, nil
	}

	var summary patterns.ScanSummary
	var err error
	if len(files) > 0 {
		summary, err = patterns.ScanFiles(ctx, s.deps.Registry, s.deps.Patterns, files, ids)
	} else {
		layoutRoots := []string{"."}
		if s.deps.Layout != nil {
			layoutRoots = []string{filepath.Dir(s.deps.Layout.Root())}
		}
		summary, err = patterns.Scan(ctx, s.deps.Registry, s.deps.Patterns, patterns.ScanConfig{Roots: layoutRoots, DetectorIDs: ids})
	}
	if err != nil {
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{
		PhasesRun: []string{string(category)},
		Findings:  summary.ViolationsFound,
		Warnings:  summary.Warnings,
	}, nil
}

func (s *Service) GetPattern(ctx context.Context, id string) (patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GetPattern(ctx, id)
	}
	return s.deps.Patterns.Get(ctx, id)
}

func (s *Service) ListPatterns(ctx context.Context, filter PatternFilter) ([]patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.ListPatterns(ctx, filter)
	}
	if filter.Category != "" {
		return s.deps.Patterns.GetByCategory(ctx, filter.Category)
	}
	if filter.Status != "" {
		return s.deps.Patterns.GetByStatus(ctx, filter.Status)
	}
	if filter.File != "" {
		return s.deps.Patterns.GetByFile(ctx, filter.File)
	}
	return s.deps.Patterns.GetAll(ctx)
}

func (s *Service) GetPatternsByCategory(ctx context.Context, category patterns.Category) ([]patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GetPatternsByCategory(ctx, category)
	}
	return s.deps.Patterns.GetByCategory(ctx, category)
}

func (s *Service) GetPatternsByFile(ctx context.Context, file string) ([]patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GetPatternsByFile(ctx, file)
	}
	return s.deps.Patterns.GetByFile(ctx, file)
}

func (s *Service) GetPatternSummaries(ctx context.Context) ([]patterns.Summary, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GetPatternSummaries(ctx)
	}
	return s.deps.Patterns.GetSummaries(ctx)
}

func (s *Service) GetPatternConfidence(ctx context.Context, id string) (float64, error) {
	if s.deps.Patterns == nil {
		return s.Stub.GetPatternConfidence(ctx, id)
	}
	p, err := s.deps.Patterns.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Confidence, nil
}

func (s *Service) CountPatterns(ctx context.Context, filter PatternFilter) (int, error) {
	if s.deps.Patterns == nil {
		return s.Stub.CountPatterns(ctx, filter)
	}
	pf := patterns.Filter{}
	if filter.Category != "" {
		pf.Categories = []patterns.Category{filter.Category}
	}
	if filter.Status != "" {
		pf.Statuses = []patterns.Status{filter.Status}
	}
	if filter.File != "" {
		pf.Files = []string{filter.File}
	}
	return s.deps.Patterns.Count(ctx, pf)
}

func (s *Service) ApprovePattern(ctx context.Context, id, by string) (patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.ApprovePattern(ctx, id, by)
	}
	return s.deps.Patterns.Approve(ctx, id, by)
}

func (s *Service) IgnorePattern(ctx context.Context, id string) (patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.IgnorePattern(ctx, id)
	}
	return s.deps.Patterns.Ignore(ctx, id)
}

func (s *Service) RevertPattern(ctx context.Context, id string) (patterns.Pattern, error) {
	if s.deps.Patterns == nil {
		return s.Stub.RevertPattern(ctx, id)
	}
	return s.deps.Patterns.Revert(ctx, id)
}

func (s *Service) DeletePattern(ctx context.Context, id string) error {
	if s.deps.Patterns == nil {
		return s.Stub.DeletePattern(ctx, id)
	}
	return s.deps.Patterns.Delete(ctx, id)
}

func (s *Service) ClearPatterns(ctx context.Context) error {
	if s.deps.Patterns == nil {
		return s.Stub.ClearPatterns(ctx)
	}
	return s.deps.Patterns.Clear(ctx)
}

func (s *Service) SaveAllPatterns(ctx context.Context) error {
	if s.deps.Patterns == nil {
		return s.Stub.SaveAllPatterns(ctx)
	}
	return s.deps.Patterns.SaveAll(ctx)
}

func (s *Service) ListOutliers(ctx context.Context, patternID string) ([]OutlierView, error) {
	if s.deps.Patterns == nil {
		return s.Stub.ListOutliers(ctx, patternID)
	}
	p, err := s.deps.Patterns.Get(ctx, patternID)
	if err != nil {
		return nil, err
	}
	views := make([]OutlierView, 0, len(p.Outliers))
	for _, o := range p.Outliers {
		views = append(views, OutlierView{PatternID: p.ID, Outlier: o})
	}
	return views, nil
}

func (s *Service) ListConventions(ctx context.Context) ([]ConventionView, error) {
	if s.deps.Patterns == nil {
		return s.Stub.ListConventions(ctx)
	}
	approved, err := s.deps.Patterns.GetByStatus(ctx, patterns.StatusApproved)
	if err != nil {
		return nil, err
	}
	views := make([]ConventionView, 0, len(approved))
	for _, p := range approved {
		views = append(views, ConventionView{Name: p.Name, PatternID: p.ID, Confidence: p.Confidence})
	}
	return views, nil
}

func (s *Service) reachabilityEngine() *reachability.Engine {
	if s.deps.Graph == nil {
		return nil
	}
	return reachability.NewEngine(s.deps.Graph)
}

func toReachabilityResult(reaches []reachability.Reach, maxDepth int) ReachabilityResult {
	ids := make([]string, 0, len(reaches))
	truncated := false
	for _, r := range reaches {
		if len(r.Path) == 0 {
			continue
		}
		ids = append(ids, r.Path[len(r.Path)-1].ID)
		if maxDepth > 0 && r.Depth >= maxDepth {
			truncated = true
		}
	}
	return ReachabilityResult{Reachable: ids, Truncated: truncated}
}

func (s *Service) Reachable(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	return s.ForwardReach(ctx, query)
}

func (s *Service) ForwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	engine := s.reachabilityEngine()
	if engine == nil {
		return s.Stub.ForwardReach(ctx, query)
	}
	return toReachabilityResult(engine.Forward(query.FunctionID, query.MaxDepth), query.MaxDepth), nil
}

func (s *Service) BackwardReach(ctx context.Context, query ReachabilityQuery) (ReachabilityResult, error) {
	engine := s.reachabilityEngine()
	if engine == nil {
		return s.Stub.BackwardReach(ctx, query)
	}
	return toReachabilityResult(engine.Backward(query.FunctionID, query.MaxDepth), query.MaxDepth), nil
}

func (s *Service) AnalyzeImpact(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	if s.deps.Impact == nil {
		return s.Stub.AnalyzeImpact(ctx, req)
	}
	metrics := s.deps.Impact.Score(ctx, scoring.ChangeSet{Files: req.Scope})
	findings := make([]Finding, 0, len(metrics.AffectedEntryPoints))
	for _, ep := range metrics.AffectedEntryPoints {
		findings = append(findings, Finding{Message: fmt.Sprintf("%s (%s) affected", ep.ID, ep.Kind)})
	}
	return AnalysisResult{Kind: "impact", Score: metrics.RiskScore, Findings: findings, Estimated: metrics.Summary.Estimated}, nil
}

func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (SimulateResult, error) {
	if s.deps.Speculative == nil {
		return s.Stub.Simulate(ctx, req)
	}
	result := s.deps.Speculative.Generate(req.Task, req.MaxApproaches)
	return SimulateResult{Result: result, Estimated: s.deps.Graph == nil}, nil
}

func (s *Service) GateCheck(ctx context.Context, req GateCheckRequest) (gates.QualityGateResult, error) {
	if s.deps.Orchestrator == nil {
		return s.Stub.GateCheck(ctx, req)
	}
	policyName := req.Policy
	policy := gates.DefaultPolicyConfig()
	if policyName != "" {
		policy.Name = policyName
	}
	input := gates.GateInput{
		ChangedFiles: req.ChangedFiles,
		Patterns:     s.deps.Patterns,
		Graph:        s.deps.Graph,
		Impact:       s.deps.Impact,
		Security:     s.deps.Security,
	}
	return s.deps.Orchestrator.Run(ctx, policy, input), nil
}

func (s *Service) CreateBackup(ctx context.Context, reason string) (workspace.BackupResult, error) {
	if s.deps.Backups == nil {
		return s.Stub.CreateBackup(ctx, reason)
	}
	return s.deps.Backups.CreateBackup(reason, s.deps.DriftVersion)
}

func (s *Service) ListBackups(ctx context.Context) ([]workspace.IndexEntry, error) {
	if s.deps.Backups == nil {
		return s.Stub.ListBackups(ctx)
	}
	return s.deps.Backups.ListBackups()
}

func (s *Service) RestoreBackup(ctx context.Context, backupID string) (workspace.RestoreResult, error) {
	if s.deps.Backups == nil {
		return s.Stub.RestoreBackup(ctx, backupID)
	}
	return s.deps.Backups.Restore(backupID, s.deps.DriftVersion)
}

func (s *Service) DeleteBackup(ctx context.Context, backupID, confirmToken string) error {
	if s.deps.Backups == nil {
		return s.Stub.DeleteBackup(ctx, backupID, confirmToken)
	}
	return s.deps.Backups.DeleteBackup(backupID, confirmToken)
}

func (s *Service) GetConfig(ctx context.Context) (workspace.Config, error) {
	if s.deps.Layout == nil {
		return s.Stub.GetConfig(ctx)
	}
	return s.deps.Layout.LoadConfig()
}

func (s *Service) UpdateConfig(ctx context.Context, cfg workspace.Config) error {
	if s.deps.Layout == nil {
		return s.Stub.UpdateConfig(ctx, cfg)
	}
	return s.deps.Layout.SaveConfig(cfg)
}

var _ Facade = (*Service)(nil)
