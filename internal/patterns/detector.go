package patterns

import "context"

// Fix is a pure, no-I/O code transformation proposed for a violation.
type Fix struct {
	Description string `json:"description"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Replacement string `json:"replacement"`
}

// Context is the input a detector receives for a single file (§4.1).
type Context struct {
	File            string
	Language        string
	Content         string
	Path            string
	PreviousContent string
	Config          map[string]any
}

// DetectionResult is the output of a single detector run over one file.
// An empty result has Confidence 1 and every slice empty (§4.1).
type DetectionResult struct {
	Instances  []Location
	Violations []Violation
	Confidence float64
	Metadata   map[string]any
}

// emptyResult returns the canonical empty DetectionResult.
func emptyResult() DetectionResult {
	return DetectionResult{Confidence: 1}
}

// Info is a detector's static, pre-registration metadata.
type Info struct {
	ID                string
	Category          Category
	Subcategory       string
	Name              string
	Description       string
	SupportedLanguages []string
	DetectionMethod   DetectionMethod
}

// Detector is the contract every detection method honors (§4.1).
type Detector interface {
	Info() Info
	Detect(ctx context.Context, dctx Context) (DetectionResult, error)
	GenerateQuickFix(violation Violation) (*Fix, error)
	SupportsLanguage(lang string) bool
}

// supportsLanguage is a shared helper for the common case of an explicit
// allow-list, with "*" meaning "all languages".
func supportsLanguage(langs []string, lang string) bool {
	for _, l := range langs {
		if l == "*" || l == lang {
			return true
		}
	}
	return false
}
