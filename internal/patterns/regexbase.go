package patterns

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// RegexRule is a single regex-based detection rule, mirroring the
// teacher's VulnerabilityPattern shape: one or more "found" patterns plus
// negating "safe" patterns that suppress a finding when present.
type RegexRule struct {
	ID           string
	Issue        string
	Suggestion   string
	Severity     Severity
	Category     Category
	Confidence   float64
	FoundPatterns []string
	SafePatterns  []string
}

// compiledRule is a RegexRule with its patterns pre-compiled once at
// detector construction, as the teacher's PatternDetector does.
type compiledRule struct {
	RegexRule
	found []*regexp.Regexp
	safe  []*regexp.Regexp
}

// commentSkippers maps a language tag to a predicate recognizing a
// comment-only line, so line-oriented matching can skip commented-out code.
var commentSkippers = map[string]func(string) bool{
	"go":         prefixSkipper("//"),
	"typescript": prefixSkipper("//"),
	"javascript": prefixSkipper("//"),
	"java":       prefixSkipper("//"),
	"csharp":     prefixSkipper("//"),
	"rust":       prefixSkipper("//"),
	"php":        prefixSkipper("//", "#"),
	"python":     prefixSkipper("#"),
}

func prefixSkipper(prefixes ...string) func(string) bool {
	return func(line string) bool {
		trimmed := strings.TrimSpace(line)
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				return true
			}
		}
		return false
	}
}

// RegexBase is shared machinery for line- and file-oriented regex
// detectors: compiling rules once, skipping comment lines, converting
// internal records into canonical Violations, and deduplicating by
// location. Concrete detectors embed it and supply their rule set.
type RegexBase struct {
	rules []compiledRule
}

// NewRegexBase compiles rules, silently dropping any that fail to compile
// (mirrors the teacher's tolerant registerBuiltinPatterns loop).
func NewRegexBase(rules []RegexRule) RegexBase {
	rb := RegexBase{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{RegexRule: r}
		for _, pat := range r.FoundPatterns {
			if re, err := regexp.Compile(pat); err == nil {
				cr.found = append(cr.found, re)
			}
		}
		for _, pat := range r.SafePatterns {
			if re, err := regexp.Compile(pat); err == nil {
				cr.safe = append(cr.safe, re)
			}
		}
		rb.rules = append(rb.rules, cr)
	}
	return rb
}

// DetectFileLevel scans whole-file content, honoring rule-level safe
// negation patterns, and returns canonical violations deduplicated by
// (file, line, patternId).
func (rb RegexBase) DetectFileLevel(_ context.Context, dctx Context) DetectionResult {
	skip := commentSkippers[dctx.Language]
	seen := make(map[string]bool)
	result := emptyResult()

	for _, rule := range rb.rules {
		for _, re := range rule.found {
			matches := re.FindAllStringIndex(dctx.Content, -1)
			if len(matches) == 0 {
				continue
			}

			safe := false
			for _, sre := range rule.safe {
				if sre.MatchString(dctx.Content) {
					safe = true
					break
				}
			}
			if safe {
				continue
			}

			for _, m := range matches {
				line := countLines(dctx.Content[:m[0]])
				if skip != nil && skip(lineAt(dctx.Content, line)) {
					continue
				}
				key := rule.ID + ":" + dctx.File + ":" + strconv.Itoa(line)
				if seen[key] {
					continue
				}
				seen[key] = true

				loc := Location{File: dctx.File, Line: line}
				result.Instances = append(result.Instances, loc)
				result.Violations = append(result.Violations, Violation{
					File:         dctx.File,
					Line:         line,
					Category:     rule.Category,
					Severity:     rule.Severity,
					Confidence:   rule.Confidence,
					Expected:     rule.Suggestion,
					Actual:       rule.Issue,
					SuggestedFix: rule.Suggestion,
				})
			}
		}
	}

	result.Confidence = confidenceFor(result)
	return result
}

func confidenceFor(r DetectionResult) float64 {
	if len(r.Violations) == 0 {
		return 1
	}
	sum := 0.0
	for _, v := range r.Violations {
		sum += v.Confidence
	}
	return sum / float64(len(r.Violations))
}

func countLines(s string) int {
	return strings.Count(s, "\n") + 1
}

func lineAt(content string, line int) string {
	lines := strings.Split(content, "\n")
	if line-1 < 0 || line-1 >= len(lines) {
		return ""
	}
	return lines[line-1]
}

