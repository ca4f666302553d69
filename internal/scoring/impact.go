package scoring

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/driftco/drift/internal/callgraph"
	"github.com/driftco/drift/internal/reachability"
)

// ChangeSet is the input to the impact scorer: either a set of changed
// files in an existing graph, or (speculative mode) a hypothetical
// approach's targetFiles/newFiles with an estimated line-count budget.
type ChangeSet struct {
	Files          []string
	NewFiles       []string
	EstimatedLines int
}

// ImpactScorer derives ImpactMetrics for a ChangeSet via backward
// reachability from each changed function (§4.5.1).
type ImpactScorer struct {
	graph  *callgraph.Graph
	engine *reachability.Engine
}

// NewImpactScorer binds a scorer to a graph snapshot. graph may be nil,
// in which case Score always uses the file-path estimation fallback.
func NewImpactScorer(graph *callgraph.Graph) *ImpactScorer {
	s := &ImpactScorer{graph: graph}
	if graph != nil {
		s.engine = reachability.NewEngine(graph)
	}
	return s
}

// Score never fails: with no graph it degrades to EstimateFromFilePaths.
func (s *ImpactScorer) Score(ctx context.Context, changes ChangeSet) ImpactMetrics {
	if s.graph == nil {
		return s.estimateFromFilePaths(changes)
	}
	return s.scoreWithGraph(changes)
}

func (s *ImpactScorer) scoreWithGraph(changes ChangeSet) ImpactMetrics {
	changedFns := s.functionsInFiles(changes.Files)
	if len(changedFns) == 0 {
		return s.estimateFromFilePaths(changes)
	}

	entrySeen := map[string]EntryPoint{}
	dataPaths := []SensitiveDataPath{}
	maxDepth := 0
	filesAffected := map[string]bool{}

	for _, fn := range changedFns {
		filesAffected[fn.File] = true
		reaches := s.engine.Backward(fn.ID, reachability.UnsetMaxDepth)
		for _, r := range reaches {
			if r.Depth > maxDepth {
				maxDepth = r.Depth
			}
			target := r.Path[len(r.Path)-1]
			filesAffected[target.File] = true
			if target.IsEntryPoint {
				entrySeen[target.ID] = EntryPoint{ID: target.ID, Kind: classifyEntryKind(target)}
			}
			if r.Access != nil {
				dataPaths = append(dataPaths, SensitiveDataPath{
					FunctionID:  target.ID,
					File:        target.File,
					Sensitivity: r.Access.Sensitivity,
					Depth:       r.Depth,
				})
			}
		}
	}

	entryPoints := make([]EntryPoint, 0, len(entrySeen))
	for _, ep := range entrySeen {
		entryPoints = append(entryPoints, ep)
	}
	sort.Slice(entryPoints, func(i, j int) bool { return entryPoints[i].ID < entryPoints[j].ID })
	sort.Slice(dataPaths, func(i, j int) bool { return dataPaths[i].FunctionID < dataPaths[j].FunctionID })

	hasSensitiveData := len(dataPaths) > 0
	riskScore := combineRiskFactors(len(entryPoints), maxDepth, hasSensitiveData, len(filesAffected))
	breaking, risks := detectBreakingChanges(entryPoints, len(filesAffected))

	return ImpactMetrics{
		RiskScore:           riskScore,
		RiskLevel:           BucketRisk(riskScore),
		FilesAffected:       len(filesAffected),
		FunctionsAffected:   len(changedFns),
		EntryPointsAffected: len(entryPoints),
		MaxDepth:            maxDepth,
		BreakingChanges:     breaking,
		BreakingChangeRisks: risks,
		AffectedEntryPoints: entryPoints,
		AffectedDataPaths:   dataPaths,
		Summary: ImpactSummary{
			Headline:  impactHeadline(riskScore, len(entryPoints)),
			Estimated: false,
		},
	}
}

func (s *ImpactScorer) functionsInFiles(files []string) []callgraph.FunctionNode {
	var out []callgraph.FunctionNode
	for _, f := range files {
		out = append(out, s.graph.FunctionsInFile(f)...)
	}
	return out
}

// combineRiskFactors is a monotone combination of (#entry points reached,
// max depth, whether sensitive data sits on a path, file fan-out), scaled
// logarithmically the way the teacher's aggregate-risk formula tames
// unbounded linear growth (10*(1-1/(1+score/10)) generalized to 0-100).
func combineRiskFactors(entryPoints, maxDepth int, sensitiveData bool, filesAffected int) float64 {
	raw := float64(entryPoints)*8 + float64(maxDepth)*2 + float64(filesAffected)*1.5
	if sensitiveData {
		raw += 20
	}
	normalized := 100 * (1 - 1/(1+raw/40))
	if normalized > 100 {
		normalized = 100
	}
	return math.Round(normalized*100) / 100
}

func detectBreakingChanges(entries []EntryPoint, filesAffected int) (bool, []string) {
	var risks []string
	for _, e := range entries {
		if e.Kind == EntryAPI || e.Kind == EntryWebhook {
			risks = append(risks, "change reaches external "+string(e.Kind)+" entry point "+e.ID)
		}
	}
	if filesAffected > 5 {
		risks = append(risks, "change fans out across more than five files")
	}
	return len(risks) > 0, risks
}

func classifyEntryKind(fn callgraph.FunctionNode) EntryPointKind {
	switch fn.Type {
	case callgraph.NodeHandler:
		return EntryAPI
	default:
		lower := strings.ToLower(fn.Name)
		switch {
		case strings.Contains(lower, "webhook"):
			return EntryWebhook
		case strings.Contains(lower, "cli") || strings.Contains(lower, "command"):
			return EntryCLI
		case strings.Contains(lower, "worker") || strings.Contains(lower, "job"):
			return EntryWorker
		case strings.Contains(lower, "render") || strings.Contains(lower, "page") || strings.Contains(lower, "view"):
			return EntryUI
		default:
			return EntryOther
		}
	}
}

func impactHeadline(score float64, entryPoints int) string {
	if entryPoints == 0 {
		return "change has no reachable entry points"
	}
	return "change reaches " + strconv.Itoa(entryPoints) + " entry point(s) at risk level " + string(BucketRisk(score))
}

// estimateFromFilePaths is the fallback when no call graph is available:
// heuristics over file-path substrings and counts, returning a
// lower-confidence, clearly-labeled estimate (§4.5.1 "Estimation fallback").
func (s *ImpactScorer) estimateFromFilePaths(changes ChangeSet) ImpactMetrics {
	all := append(append([]string(nil), changes.Files...), changes.NewFiles...)
	securityHits, apiHits := 0, 0
	for _, f := range all {
		lower := strings.ToLower(f)
		if strings.Contains(lower, "auth") || strings.Contains(lower, "security") || strings.Contains(lower, "crypto") {
			securityHits++
		}
		if strings.Contains(lower, "/api/") || strings.Contains(lower, "handler") || strings.Contains(lower, "controller") {
			apiHits++
		}
	}

	raw := float64(securityHits)*25 + float64(apiHits)*15 + float64(len(all))*2
	score := 100 * (1 - 1/(1+raw/60))
	if score > 100 {
		score = 100
	}
	score = math.Round(score*100) / 100

	limitations := []string{"no call graph available: risk derived from file-path heuristics only"}

	return ImpactMetrics{
		RiskScore:           score,
		RiskLevel:           BucketRisk(score),
		FilesAffected:       len(all),
		BreakingChanges:     apiHits > 0,
		BreakingChangeRisks: boolToRisks(apiHits > 0, "changed files touch API-surface paths"),
		Summary: ImpactSummary{
			Headline:    "estimated impact from file-path heuristics (no call graph)",
			Estimated:   true,
			Limitations: limitations,
		},
	}
}

func boolToRisks(cond bool, msg string) []string {
	if !cond {
		return nil
	}
	return []string{msg}
}
