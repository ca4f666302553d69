package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnalysisConfigMatchesContractThresholds(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	assert.Equal(t, 0.7, cfg.Thresholds.MinPatternConfidence)
	assert.Equal(t, 10, cfg.Thresholds.MaxImpactDepth)
	assert.Equal(t, 80.0, cfg.Thresholds.MinTestCoverage)
	assert.Equal(t, 50.0, cfg.Thresholds.MaxCouplingScore)
	assert.Equal(t, "all_pass", cfg.QualityGates.Policy)
	assert.True(t, cfg.Analysis.PatternCheck)
}

func TestLoadAnalysisConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "missing-drift.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalysisConfig(), cfg)
}

func TestLoadAnalysisConfigOverlaysPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.toml")
	body := "outputFormat = \"json\"\n\n[thresholds]\nmaxCouplingScore = 75\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadAnalysisConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 75.0, cfg.Thresholds.MaxCouplingScore)
	assert.Equal(t, 0.7, cfg.Thresholds.MinPatternConfidence, "unset thresholds keep their default")
}

func TestSaveAnalysisConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.toml")
	cfg := DefaultAnalysisConfig()
	cfg.Thresholds.MaxImpactDepth = 25

	require.NoError(t, SaveAnalysisConfig(path, cfg))
	reloaded, err := LoadAnalysisConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, reloaded.Thresholds.MaxImpactDepth)
}
