package patterns

import (
	"context"
	"fmt"
)

// regexDetector adapts a RegexBase plus static Info into a full Detector,
// the way the teacher's PatternDetector wraps registerBuiltinPatterns
// behind DetectFromSource.
type regexDetector struct {
	info Info
	base RegexBase
}

func newRegexDetector(info Info, rules []RegexRule) *regexDetector {
	return &regexDetector{info: info, base: NewRegexBase(rules)}
}

func (d *regexDetector) Info() Info { return d.info }

func (d *regexDetector) Detect(ctx context.Context, dctx Context) (DetectionResult, error) {
	return d.base.DetectFileLevel(ctx, dctx), nil
}

func (d *regexDetector) GenerateQuickFix(v Violation) (*Fix, error) {
	if v.SuggestedFix == "" {
		return nil, nil
	}
	return &Fix{
		Description: v.SuggestedFix,
		File:        v.File,
		Line:        v.Line,
	}, nil
}

func (d *regexDetector) SupportsLanguage(lang string) bool {
	return supportsLanguage(d.info.SupportedLanguages, lang)
}

var generalLanguages = []string{"go", "typescript", "javascript", "java", "csharp", "python", "rust", "php"}

// BuiltinDetectors returns the starter corpus of security, error-handling,
// concurrency, config and style detectors, translated from a vulnerability-scanner's source
// patterns into drift's multi-language categories: the teacher's
// per-rule {id, issue, suggestion, severity, confidence, found/safe
// patterns} shape survives verbatim, only the rule bodies change domain.
func BuiltinDetectors() []Detector {
	return []Detector{
		newRegexDetector(Info{
			ID:                "security.hardcoded-secret",
			Category:          CategorySecurity,
			Subcategory:       "credential-exposure",
			Name:              "Hardcoded Credential",
			Description:       "A literal secret, password, or API key is embedded in source instead of loaded from configuration or a secret store.",
			SupportedLanguages: generalLanguages,
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:         "security.hardcoded-secret.password",
				Category:   CategorySecurity,
				Severity:   SeverityError,
				Confidence: 0.7,
				Issue:      "password/secret/apiKey assigned a literal string",
				Suggestion: "load the value from configuration or a secret manager instead of embedding it",
				FoundPatterns: []string{
					`(?i)(password|secret|api[_-]?key|access[_-]?token)\s*[:=]\s*"[^"\$\{][^"]{3,}"`,
				},
				SafePatterns: []string{
					`os\.Getenv`, `process\.env`, `getenv\(`, `viper\.`, `config\.`,
				},
			},
			{
				ID:         "security.hardcoded-secret.awskey",
				Category:   CategorySecurity,
				Severity:   SeverityError,
				Confidence: 0.85,
				Issue:      "literal matches the shape of an AWS access key id",
				Suggestion: "remove the literal key and rotate it; load credentials from the environment or an IAM role",
				FoundPatterns: []string{`AKIA[0-9A-Z]{16}`},
			},
		}),
		newRegexDetector(Info{
			ID:                "security.sql-injection",
			Category:          CategorySecurity,
			Subcategory:       "injection",
			Name:              "String-Built SQL Query",
			Description:       "A SQL statement is assembled via string concatenation or interpolation instead of a parameterized query, risking injection.",
			SupportedLanguages: generalLanguages,
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:         "security.sql-injection.concat",
				Category:   CategorySecurity,
				Severity:   SeverityError,
				Confidence: 0.6,
				Issue:      "SELECT/INSERT/UPDATE/DELETE string built by concatenation with a variable",
				Suggestion: "use a parameterized query or prepared statement",
				FoundPatterns: []string{
					`(?i)"(select|insert|update|delete)\b[^"]*"\s*\+\s*\w+`,
					"(?i)`(select|insert|update|delete)\\b[^`]*`\\s*\\+\\s*\\w+",
					"(?i)fmt\\.Sprintf\\(\\s*\"[^\"]*(select|insert|update|delete)",
				},
				SafePatterns: []string{`\$\d`, `\?`, "sqlx\\.", "db\\.Query\\([^,]+,"},
			},
		}),
		newRegexDetector(Info{
			ID:                "security.insecure-transport",
			Category:          CategorySecurity,
			Subcategory:       "transport",
			Name:              "Insecure Transport Configuration",
			Description:       "TLS certificate or hostname verification is disabled.",
			SupportedLanguages: generalLanguages,
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "security.insecure-transport.skip-verify",
				Category:      CategorySecurity,
				Severity:      SeverityError,
				Confidence:    0.9,
				Issue:         "TLS certificate verification disabled",
				Suggestion:    "remove InsecureSkipVerify / rejectUnauthorized: false and configure a proper certificate chain",
				FoundPatterns: []string{`InsecureSkipVerify:\s*true`, `rejectUnauthorized\s*:\s*false`, `verify\s*=\s*False`},
			},
		}),
		newRegexDetector(Info{
			ID:                "security.weak-randomness",
			Category:          CategorySecurity,
			Subcategory:       "cryptography",
			Name:              "Weak Randomness Source",
			Description:       "A non-cryptographic random source is used where unpredictability matters (tokens, IDs, keys).",
			SupportedLanguages: generalLanguages,
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "security.weak-randomness.mathrand",
				Category:      CategorySecurity,
				Severity:      SeverityWarning,
				Confidence:    0.5,
				Issue:         "math/rand (or language equivalent) used to generate a token, key, or id",
				Suggestion:    "use crypto/rand or an equivalent CSPRNG when the value is security-sensitive",
				FoundPatterns: []string{`math/rand`, `Math\.random\(\)`, `random\.random\(\)`},
				SafePatterns:  []string{`crypto/rand`, `crypto\.getRandomValues`, `secrets\.`},
			},
		}),
		newRegexDetector(Info{
			ID:                "errors.swallowed-error",
			Category:          CategoryErrors,
			Subcategory:       "error-handling",
			Name:              "Swallowed Error",
			Description:       "An error return value is explicitly discarded without being logged, wrapped, or returned.",
			SupportedLanguages: []string{"go"},
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "errors.swallowed-error.blank-assign",
				Category:      CategoryErrors,
				Severity:      SeverityWarning,
				Confidence:    0.4,
				Issue:         "error assigned to _ rather than checked",
				Suggestion:    "handle or explicitly document why the error is ignorable",
				FoundPatterns: []string{`_\s*=\s*\w+\.(Close|Write|Flush|Commit|Rollback)\(\)`},
				SafePatterns:  []string{`//\s*nolint`, `// intentionally ignored`},
			},
		}),
		newRegexDetector(Info{
			ID:                "errors.panic-in-library",
			Category:          CategoryErrors,
			Subcategory:       "error-handling",
			Name:              "Panic in Library Code",
			Description:       "A non-main, non-test package panics instead of returning an error, forcing callers to recover or crash.",
			SupportedLanguages: []string{"go"},
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "errors.panic-in-library.panic-call",
				Category:      CategoryErrors,
				Severity:      SeverityWarning,
				Confidence:    0.3,
				Issue:         "panic() call outside main/test code",
				Suggestion:    "return an error instead of panicking so the caller controls failure handling",
				FoundPatterns: []string{`\bpanic\(`},
				SafePatterns:  []string{`panic\(recover\(\)\)`},
			},
		}),
		newRegexDetector(Info{
			ID:                "concurrency.unguarded-shared-map",
			Category:          CategoryConcurrency,
			Subcategory:       "data-race",
			Name:              "Map Access Without Synchronization",
			Description:       "A package-level or struct-field map is written without an accompanying mutex or sync.Map, a common data-race source.",
			SupportedLanguages: []string{"go"},
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "concurrency.unguarded-shared-map.go-routine-write",
				Category:      CategoryConcurrency,
				Severity:      SeverityWarning,
				Confidence:    0.35,
				Issue:         "goroutine writes to a map literal that is not obviously guarded by a mutex",
				Suggestion:    "guard concurrent map access with sync.Mutex/sync.RWMutex or use sync.Map",
				FoundPatterns: []string{`go\s+func\(\)[\s\S]{0,120}\[\w+\]\s*=`},
				SafePatterns:  []string{`\.Lock\(\)`, `sync\.Map`},
			},
		}),
		newRegexDetector(Info{
			ID:                "config.debug-flag-literal",
			Category:          CategoryConfig,
			Subcategory:       "environment",
			Name:              "Hardcoded Debug Flag",
			Description:       "A debug or verbose flag is hardcoded true rather than sourced from configuration, risking it shipping enabled in production.",
			SupportedLanguages: generalLanguages,
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "config.debug-flag-literal.true",
				Category:      CategoryConfig,
				Severity:      SeverityInfo,
				Confidence:    0.3,
				Issue:         "Debug/Verbose field initialized to a literal true",
				Suggestion:    "source the flag from configuration so it can be disabled per environment",
				FoundPatterns: []string{`(?i)(debug|verbose)\s*:\s*true`},
				SafePatterns:  []string{`os\.Getenv`, `_test\.go`},
			},
		}),
		newRegexDetector(Info{
			ID:                "style.deprecated-stdlib",
			Category:          CategoryStyle,
			Subcategory:       "modernization",
			Name:              "Deprecated Standard-Library Call",
			Description:       "Source calls a standard-library function its own documentation marks deprecated.",
			SupportedLanguages: []string{"go"},
			DetectionMethod:   MethodRegex,
		}, []RegexRule{
			{
				ID:            "style.deprecated-stdlib.strings-title",
				Category:      CategoryStyle,
				Severity:      SeverityHint,
				Confidence:    0.9,
				Issue:         "strings.Title is deprecated since Go 1.18",
				Suggestion:    "use golang.org/x/text/cases or a local capitalize helper",
				FoundPatterns: []string{`strings\.Title\(`},
			},
			{
				ID:            "style.deprecated-stdlib.ioutil",
				Category:      CategoryStyle,
				Severity:      SeverityHint,
				Confidence:    0.9,
				Issue:         "io/ioutil is deprecated since Go 1.16",
				Suggestion:    "use the io or os package equivalents",
				FoundPatterns: []string{`io/ioutil`},
			},
		}),
	}
}

// RegisterBuiltins registers every BuiltinDetectors entry into reg,
// overriding any existing id with the same name (fresh process start).
func RegisterBuiltins(reg *Registry) error {
	for _, d := range BuiltinDetectors() {
		if err := reg.Register(d, RegisterOptions{Override: true}); err != nil {
			return fmt.Errorf("pattern corpus: registering %s: %w", d.Info().ID, err)
		}
	}
	return nil
}
