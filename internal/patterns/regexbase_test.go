package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexBaseDetectFileLevel(t *testing.T) {
	rb := NewRegexBase([]RegexRule{
		{
			ID:            "test.panic",
			Category:      CategoryErrors,
			Severity:      SeverityWarning,
			Confidence:    0.5,
			Issue:         "panic used",
			Suggestion:    "return an error instead",
			FoundPatterns: []string{`panic\(`},
		},
	})

	src := "func f() {\n\tpanic(\"boom\")\n}\n"
	result := rb.DetectFileLevel(context.Background(), Context{File: "f.go", Language: "go", Content: src})

	require.Len(t, result.Violations, 1)
	assert.Equal(t, 2, result.Violations[0].Line)
	assert.Equal(t, CategoryErrors, result.Violations[0].Category)
}

func TestRegexBaseSafePatternSuppresses(t *testing.T) {
	rb := NewRegexBase([]RegexRule{
		{
			ID:            "test.skipverify",
			Category:      CategorySecurity,
			Severity:      SeverityError,
			Confidence:    0.9,
			FoundPatterns: []string{`InsecureSkipVerify:\s*true`},
			SafePatterns:  []string{`//\s*nosec`},
		},
	})

	src := "tls.Config{InsecureSkipVerify: true} // nosec\n"
	result := rb.DetectFileLevel(context.Background(), Context{File: "f.go", Language: "go", Content: src})
	assert.Empty(t, result.Violations)
}

func TestRegexBaseSkipsCommentLines(t *testing.T) {
	rb := NewRegexBase([]RegexRule{
		{ID: "test.panic", Category: CategoryErrors, Severity: SeverityWarning, Confidence: 0.5, FoundPatterns: []string{`panic\(`}},
	})

	src := "// panic(\"should be ignored\")\nfunc f() {}\n"
	result := rb.DetectFileLevel(context.Background(), Context{File: "f.go", Language: "go", Content: src})
	assert.Empty(t, result.Violations)
}

func TestRegexBaseInvalidPatternSkippedTolerantly(t *testing.T) {
	rb := NewRegexBase([]RegexRule{
		{ID: "test.bad", FoundPatterns: []string{"("}},
	})
	result := rb.DetectFileLevel(context.Background(), Context{File: "f.go", Language: "go", Content: "anything"})
	assert.Empty(t, result.Violations)
	assert.Equal(t, 1.0, result.Confidence)
}
