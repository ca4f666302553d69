package scoring

import (
	"context"
	"sort"
	"strings"

	"github.com/driftco/drift/internal/patterns"
)

// Strategy is the closed set of implementation strategies the approach
// generator proposes (§4.5.2).
type Strategy string

const (
	StrategyWrapper     Strategy = "wrapper"
	StrategyDecorator   Strategy = "decorator"
	StrategyMiddleware  Strategy = "middleware"
	StrategyGuard       Strategy = "guard"
	StrategyPolicy      Strategy = "policy"
	StrategyFilter      Strategy = "filter"
	StrategyInterceptor Strategy = "interceptor"
	StrategyPerFunction Strategy = "per-function"
	StrategyDistributed Strategy = "distributed"
	StrategyCustom      Strategy = "custom"
)

// SimulationTask describes what a speculative implementation must achieve.
type SimulationTask struct {
	Description string
	Category    patterns.Category
	Target      string
	Constraints []string
}

// AxisScores holds the four 0-100, higher-is-better axes an approach is
// judged on (§4.5.2).
type AxisScores struct {
	Friction         float64
	Impact           float64
	PatternAlignment float64
	Security         float64
}

// defaultAxisWeights are the default composite weights (§4.5.2).
var defaultAxisWeights = AxisScores{Friction: 0.30, Impact: 0.25, PatternAlignment: 0.30, Security: 0.15}

// Composite applies weights to the four axes, defaulting to
// defaultAxisWeights when weights is the zero value.
func (a AxisScores) Composite(weights AxisScores) float64 {
	if weights == (AxisScores{}) {
		weights = defaultAxisWeights
	}
	return a.Friction*weights.Friction + a.Impact*weights.Impact +
		a.PatternAlignment*weights.PatternAlignment + a.Security*weights.Security
}

// SimulationApproach is one candidate implementation strategy.
type SimulationApproach struct {
	Strategy    Strategy
	Language    string
	TargetFiles []string
	NewFiles    []string
	Lines       int
	Scores      AxisScores
	Composite   float64
}

// ApproachTradeoff is a pairwise comparison between two ranked approaches.
type ApproachTradeoff struct {
	A, B        Strategy
	WinsForA    []string
	WinsForB    []string
	Prose       string
}

// SimulationResult is the full speculative-scorer output.
type SimulationResult struct {
	Approaches  []SimulationApproach
	Tradeoffs   []ApproachTradeoff
	Confidence  float64
	Limitations []string
}

// ApproachGenerator proposes and scores SimulationApproach candidates.
type ApproachGenerator struct {
	impact       *ImpactScorer
	security     *SecurityScorer
	patternRepo  *patterns.Repository
	hasGraph     bool
	hasPatterns  bool
}

// NewApproachGenerator builds a generator. impact/security may wrap a nil
// graph (estimation fallback); patternRepo may be nil.
func NewApproachGenerator(impact *ImpactScorer, security *SecurityScorer, patternRepo *patterns.Repository, hasGraph bool) *ApproachGenerator {
	return &ApproachGenerator{
		impact:      impact,
		security:    security,
		patternRepo: patternRepo,
		hasGraph:    hasGraph,
		hasPatterns: patternRepo != nil,
	}
}

var strategyFrictionBase = map[Strategy]float64{
	StrategyWrapper:     80,
	StrategyDecorator:   75,
	StrategyMiddleware:  65,
	StrategyGuard:       70,
	StrategyPolicy:      60,
	StrategyFilter:      72,
	StrategyInterceptor: 58,
	StrategyPerFunction: 40,
	StrategyDistributed: 25,
	StrategyCustom:      50,
}

// candidateStrategiesFor returns the strategies plausible for task's
// category, in priority order. The other known categories get every
// strategy except custom; an empty or unrecognized category gets none,
// which leaves Generate to fall back to custom.
func candidateStrategiesFor(task SimulationTask) []Strategy {
	switch task.Category {
	case patterns.CategorySecurity:
		return []Strategy{StrategyGuard, StrategyMiddleware, StrategyPolicy, StrategyInterceptor}
	case patterns.CategoryLogging, patterns.CategoryAPI:
		return []Strategy{StrategyMiddleware, StrategyDecorator, StrategyWrapper, StrategyInterceptor}
	case patterns.CategoryConcurrency:
		return []Strategy{StrategyPerFunction, StrategyDistributed, StrategyWrapper}
	case patterns.CategoryErrors:
		return []Strategy{StrategyWrapper, StrategyDecorator, StrategyGuard}
	case patterns.CategoryStructural, patterns.CategoryConfig, patterns.CategoryStyle, patterns.CategoryDataAccess:
		return []Strategy{StrategyWrapper, StrategyDecorator, StrategyMiddleware, StrategyGuard, StrategyPolicy, StrategyFilter, StrategyInterceptor, StrategyPerFunction}
	default:
		return nil
	}
}

// Generate proposes up to maxApproaches candidates for task, scores each
// on the four axes, and ranks them by composite score. When nothing
// applies, it falls back to a single StrategyCustom approach so the
// result is never empty (§4.5.2). Approaches are identified by their
// Strategy only; they carry no display name.
func (g *ApproachGenerator) Generate(task SimulationTask, maxApproaches int) SimulationResult {
	candidates := candidateStrategiesFor(task)
	if maxApproaches > 0 && len(candidates) > maxApproaches {
		candidates = candidates[:maxApproaches]
	}

	approaches := make([]SimulationApproach, 0, len(candidates))
	for _, strat := range candidates {
		approaches = append(approaches, g.scoreApproach(task, strat))
	}
	if len(approaches) == 0 {
		approaches = append(approaches, g.scoreApproach(task, StrategyCustom))
	}

	sort.SliceStable(approaches, func(i, j int) bool { return approaches[i].Composite > approaches[j].Composite })

	top := approaches
	if len(top) > 4 {
		top = top[:4]
	}
	tradeoffs := buildTradeoffs(top)

	limitations := []string{}
	if !g.hasGraph {
		limitations = append(limitations, "no call graph available: impact/security axes are estimated")
	}
	if !g.hasPatterns {
		limitations = append(limitations, "no pattern repository available: patternAlignment axis is estimated")
	}

	confidence := confidenceFromSources(g.hasGraph, g.hasPatterns, len(approaches))

	return SimulationResult{
		Approaches:  approaches,
		Tradeoffs:   tradeoffs,
		Confidence:  confidence,
		Limitations: limitations,
	}
}

func (g *ApproachGenerator) scoreApproach(task SimulationTask, strat Strategy) SimulationApproach {
	targetFiles := []string{task.Target}
	approach := SimulationApproach{
		Strategy:    strat,
		Language:    "go",
		TargetFiles: targetFiles,
		Lines:       estimateLines(strat),
	}

	friction := strategyFrictionBase[strat]
	if friction == 0 {
		friction = 50
	}

	impactScore := 70.0
	if g.impact != nil {
		metrics := g.impact.Score(context.Background(), ChangeSet{Files: targetFiles, EstimatedLines: approach.Lines})
		impactScore = 100 - metrics.RiskScore
	}

	securityScore := 70.0
	if g.security != nil {
		report := g.security.Score(targetFiles)
		securityScore = 100 - report.SecurityRisk
	}

	alignment := patternAlignmentScore(g.patternRepo, task)

	scores := AxisScores{
		Friction:         friction,
		Impact:           impactScore,
		PatternAlignment: alignment,
		Security:         securityScore,
	}
	approach.Scores = scores
	approach.Composite = scores.Composite(AxisScores{})
	return approach
}

func estimateLines(strat Strategy) int {
	switch strat {
	case StrategyPerFunction:
		return 150
	case StrategyDistributed:
		return 300
	case StrategyWrapper, StrategyDecorator:
		return 60
	default:
		return 90
	}
}

// patternAlignmentScore rewards an approach's implied category matching
// an already-approved pattern's category (§4.5.2 "matches category,
// matches convention, would not become an outlier"); with no repository
// available it returns a neutral midpoint.
func patternAlignmentScore(repo *patterns.Repository, task SimulationTask) float64 {
	if repo == nil {
		return 60
	}
	count, err := repo.Count(context.Background(), patterns.Filter{
		Categories: []patterns.Category{task.Category},
		Statuses:   []patterns.Status{patterns.StatusApproved},
	})
	if err != nil {
		return 60
	}
	if count == 0 {
		return 50
	}
	score := 60 + float64(count)*5
	if score > 95 {
		score = 95
	}
	return score
}

func confidenceFromSources(hasGraph, hasPatterns bool, candidates int) float64 {
	score := 0.4
	if hasGraph {
		score += 0.3
	}
	if hasPatterns {
		score += 0.2
	}
	if candidates >= 3 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func buildTradeoffs(ranked []SimulationApproach) []ApproachTradeoff {
	var out []ApproachTradeoff
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			out = append(out, compareApproaches(ranked[i], ranked[j]))
		}
	}
	return out
}

func compareApproaches(a, b SimulationApproach) ApproachTradeoff {
	var winsA, winsB []string
	axes := map[string][2]float64{
		"friction":         {a.Scores.Friction, b.Scores.Friction},
		"impact":           {a.Scores.Impact, b.Scores.Impact},
		"patternAlignment": {a.Scores.PatternAlignment, b.Scores.PatternAlignment},
		"security":         {a.Scores.Security, b.Scores.Security},
	}
	axisNames := []string{"friction", "impact", "patternAlignment", "security"}
	for _, name := range axisNames {
		pair := axes[name]
		switch {
		case pair[0] > pair[1]:
			winsA = append(winsA, name)
		case pair[1] > pair[0]:
			winsB = append(winsB, name)
		}
	}

	prose := "comparable across dimensions"
	switch {
	case len(winsA) > len(winsB):
		prose = string(a.Strategy) + " wins on " + strings.Join(winsA, ", ") + " over " + string(b.Strategy)
	case len(winsB) > len(winsA):
		prose = string(b.Strategy) + " wins on " + strings.Join(winsB, ", ") + " over " + string(a.Strategy)
	}

	return ApproachTradeoff{A: a.Strategy, B: b.Strategy, WinsForA: winsA, WinsForB: winsB, Prose: prose}
}
