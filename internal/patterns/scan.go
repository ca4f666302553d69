package patterns

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// extensionLanguages maps a source file extension to the language tag
// detectors match against (§4.1's SupportedLanguages), mirroring the
// general-purpose language set the builtin corpus targets.
var extensionLanguages = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".java": "java",
	".cs":   "csharp",
	".py":   "python",
	".rs":   "rust",
	".php":  "php",
}

var skippedDirs = map[string]bool{
	".git":         true,
	".drift":       true,
	"vendor":       true,
	"node_modules": true,
	"_examples":    true,
}

// ScanConfig configures one Scan pass.
type ScanConfig struct {
	Roots       []string
	DetectorIDs []string
}

// ScanSummary reports what one Scan pass found.
type ScanSummary struct {
	FilesScanned    int
	PatternsFound   int
	ViolationsFound int
	Warnings        []string
}

// Scan walks cfg.Roots, runs reg's registered detectors over every
// recognized source file, and upserts one Pattern per detector that
// reported at least one violation into repo: a detector is treated as a
// recurring pattern whose Locations are the violations it reported
// (§3.1's "a recurring code shape identified by a detector"). When
// cfg.DetectorIDs is non-empty, every other detector is temporarily
// disabled for the duration of the scan and its prior enabled state is
// restored afterward, so a scoped scan never permanently narrows the
// registry.
func Scan(ctx context.Context, reg *Registry, repo *Repository, cfg ScanConfig) (ScanSummary, error) {
	restore, err := scopeDetectors(reg, cfg.DetectorIDs)
	if err != nil {
		return ScanSummary{}, err
	}
	defer restore()

	byDetector := map[string][]Violation{}
	summary := ScanSummary{}

	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
			if d.IsDir() {
				if skippedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			detectFile(ctx, reg, path, byDetector, &summary)
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("pattern scan: walking %s: %w", root, err)
		}
	}

	return summary, upsertAll(ctx, reg, repo, byDetector, &summary)
}

// ScanFiles runs reg's registered detectors over exactly the given files
// (no directory walk), the shape Analyze/AnalyzePhase need when a caller
// names a specific file scope rather than a root to crawl.
func ScanFiles(ctx context.Context, reg *Registry, repo *Repository, files []string, detectorIDs []string) (ScanSummary, error) {
	restore, err := scopeDetectors(reg, detectorIDs)
	if err != nil {
		return ScanSummary{}, err
	}
	defer restore()

	byDetector := map[string][]Violation{}
	summary := ScanSummary{}
	for _, path := range files {
		detectFile(ctx, reg, path, byDetector, &summary)
	}

	return summary, upsertAll(ctx, reg, repo, byDetector, &summary)
}

// detectFile reads path (skipping unrecognized extensions), runs every
// enabled detector over it, and folds valid violations into byDetector.
func detectFile(ctx context.Context, reg *Registry, path string, byDetector map[string][]Violation, summary *ScanSummary) {
	lang, ok := extensionLanguages[filepath.Ext(path)]
	if !ok {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", path, err))
		return
	}
	summary.FilesScanned++

	for _, res := range reg.RunAll(ctx, Context{File: path, Language: lang, Content: string(content), Path: path}) {
		if res.Err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: detector %s: %v", path, res.DetectorID, res.Err))
			continue
		}
		for _, v := range res.Result.Violations {
			if !(Location{File: v.File, Line: v.Line}).Valid() {
				continue
			}
			byDetector[res.DetectorID] = append(byDetector[res.DetectorID], v)
			summary.ViolationsFound++
		}
	}
}

// upsertAll commits one Pattern per detector in byDetector, in
// deterministic id order, counting each into summary.PatternsFound.
func upsertAll(ctx context.Context, reg *Registry, repo *Repository, byDetector map[string][]Violation, summary *ScanSummary) error {
	ids := make([]string, 0, len(byDetector))
	for id := range byDetector {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := upsertPatternFromViolations(ctx, reg, repo, id, byDetector[id]); err != nil {
			return err
		}
		summary.PatternsFound++
	}
	return nil
}

// scopeDetectors disables every detector not in ids (when ids is
// non-empty) and returns a closure that restores every detector's prior
// enabled state.
func scopeDetectors(reg *Registry, ids []string) (func(), error) {
	if len(ids) == 0 {
		return func() {}, nil
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}

	enabledBefore := map[string]bool{}
	for _, info := range reg.Query(RegistryQuery{}).Detectors {
		yes := true
		enabledBefore[info.ID] = len(reg.Query(RegistryQuery{IDPattern: info.ID, Enabled: &yes}).Detectors) == 1
	}
	for id := range enabledBefore {
		if err := reg.SetEnabled(id, want[id]); err != nil {
			return nil, err
		}
	}
	return func() {
		for id, was := range enabledBefore {
			_ = reg.SetEnabled(id, was)
		}
	}, nil
}

// upsertPatternFromViolations finds or creates the Pattern tracking
// detector id's recurring shape and merges vs into its Locations,
// deduplicated by (file, line).
func upsertPatternFromViolations(ctx context.Context, reg *Registry, repo *Repository, detectorID string, vs []Violation) error {
	info, ok := detectorInfo(reg, detectorID)
	if !ok {
		return nil
	}

	existing, err := findPatternByDetector(ctx, repo, detectorID)
	if err != nil {
		return err
	}

	locations := map[string]Location{}
	if existing != nil {
		for _, l := range existing.Locations {
			locations[locationKey(l)] = l
		}
	}
	confidence, severity := 0.0, SeverityHint
	for _, v := range vs {
		loc := Location{File: v.File, Line: v.Line, EndLine: v.EndLine}
		locations[locationKey(loc)] = loc
		if v.Confidence > confidence {
			confidence = v.Confidence
		}
		if v.Severity.MoreSevereThan(severity) {
			severity = v.Severity
		}
	}

	merged := make([]Location, 0, len(locations))
	for _, l := range locations {
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].File != merged[j].File {
			return merged[i].File < merged[j].File
		}
		return merged[i].Line < merged[j].Line
	})

	if existing != nil {
		_, err := repo.Update(ctx, existing.ID, func(p *Pattern) {
			p.Locations = merged
			if confidence > p.Confidence {
				p.Confidence = confidence
			}
			if severity.MoreSevereThan(p.Severity) {
				p.Severity = severity
			}
		})
		return err
	}

	_, err = repo.Add(ctx, Pattern{
		Category:        info.Category,
		Subcategory:     info.Subcategory,
		Name:            info.Name,
		Description:     info.Description,
		DetectorID:      info.ID,
		DetectorName:    info.Name,
		DetectionMethod: info.DetectionMethod,
		Confidence:      confidence,
		Locations:       merged,
		Severity:        severity,
	})
	return err
}

func locationKey(l Location) string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

func detectorInfo(reg *Registry, id string) (Info, bool) {
	res := reg.Query(RegistryQuery{IDPattern: id})
	for _, info := range res.Detectors {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

func findPatternByDetector(ctx context.Context, repo *Repository, detectorID string) (*Pattern, error) {
	all, err := repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].DetectorID == detectorID {
			return &all[i], nil
		}
	}
	return nil, nil
}
