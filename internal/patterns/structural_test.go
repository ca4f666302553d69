package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectConvention(t *testing.T) {
	assert.Equal(t, ConventionPascal, DetectConvention("UserAccount"))
	assert.Equal(t, ConventionCamel, DetectConvention("userAccount"))
	assert.Equal(t, ConventionKebab, DetectConvention("user-account"))
	assert.Equal(t, ConventionSnake, DetectConvention("user_account"))
	assert.Equal(t, ConventionScreamingSnake, DetectConvention("USER_ACCOUNT"))
	assert.Equal(t, ConventionFlat, DetectConvention("useraccount"))
}

func TestConvertConvention(t *testing.T) {
	assert.Equal(t, "UserAccount", ConvertConvention("user_account", ConventionPascal))
	assert.Equal(t, "userAccount", ConvertConvention("user-account", ConventionCamel))
	assert.Equal(t, "user-account", ConvertConvention("UserAccount", ConventionKebab))
	assert.Equal(t, "user_account", ConvertConvention("userAccount", ConventionSnake))
	assert.Equal(t, "USER_ACCOUNT", ConvertConvention("userAccount", ConventionScreamingSnake))
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, MatchGlob("internal/*/service.go", "internal/patterns/service.go"))
	assert.False(t, MatchGlob("internal/*/service.go", "internal/patterns/sub/service.go"))
	assert.True(t, MatchGlob("internal/**/service.go", "internal/patterns/sub/service.go"))
	assert.True(t, MatchGlob("*.{go,ts}", "main.go"))
	assert.True(t, MatchGlob("*.{go,ts}", "main.ts"))
	assert.False(t, MatchGlob("*.{go,ts}", "main.py"))
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("internal/patterns/repository_test.go"))
	assert.True(t, IsTestFile("src/widget.spec.ts"))
	assert.False(t, IsTestFile("internal/patterns/repository.go"))
}

func TestCommonBasePath(t *testing.T) {
	got := CommonBasePath([]string{
		"internal/patterns/repository.go",
		"internal/patterns/store.go",
		"internal/patterns/sub/corpus.go",
	})
	assert.Equal(t, "internal/patterns", got)
}
