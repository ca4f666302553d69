package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// AnalysisConfig is drift.toml: the project-level analysis configuration
// (§6 "Configuration"). Unlike Config/Load (environment-variable driven
// service settings, kept as the teacher wrote them), this is read once
// from a file at workspace discovery time and its defaults are part of
// the contract, so DefaultAnalysisConfig and the toml tags below must
// not drift from what the comment documents.
type AnalysisConfig struct {
	Analysis     AnalysisFlags `toml:"analysis"`
	QualityGates QualityGates  `toml:"qualityGates"`
	OutputFormat string        `toml:"outputFormat"`
	Thresholds   Thresholds    `toml:"thresholds"`
}

// AnalysisFlags toggles each analysis family independently. The flags are
// loaded and saved with the rest of the config; no operation in this
// module reads them, so a disabled analysis still runs.
type AnalysisFlags struct {
	PatternCheck           bool `toml:"patternCheck"`
	ConstraintVerification bool `toml:"constraintVerification"`
	ImpactAnalysis         bool `toml:"impactAnalysis"`
	SecurityBoundaries     bool `toml:"securityBoundaries"`
	TestCoverage           bool `toml:"testCoverage"`
	ModuleCoupling         bool `toml:"moduleCoupling"`
	ErrorHandling          bool `toml:"errorHandling"`
	ContractMismatch       bool `toml:"contractMismatch"`
	ConstantsAnalysis      bool `toml:"constantsAnalysis"`
	DecisionMining         bool `toml:"decisionMining"`
	PatternTrends          bool `toml:"patternTrends"`
	SpeculativeExecution   bool `toml:"speculativeExecution"`
}

// QualityGates selects the aggregation policy and per-gate enable flags
// a gates.Orchestrator run should use.
type QualityGates struct {
	Policy string          `toml:"policy"`
	Gates  map[string]bool `toml:"gates,omitempty"`
}

// Thresholds are the numeric contract values named in §6; their zero
// values are never valid configuration, so LoadAnalysisConfig always
// starts from DefaultAnalysisConfig and lets TOML values override it.
type Thresholds struct {
	MinPatternConfidence float64 `toml:"minPatternConfidence"`
	MaxImpactDepth       int     `toml:"maxImpactDepth"`
	MinTestCoverage      float64 `toml:"minTestCoverage"`
	MaxCouplingScore     float64 `toml:"maxCouplingScore"`
}

// DefaultAnalysisConfig returns the defaults §6 lists as part of the
// contract: every analysis enabled, the all_pass policy, text output,
// and the four named thresholds.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Analysis: AnalysisFlags{
			PatternCheck:           true,
			ConstraintVerification: true,
			ImpactAnalysis:         true,
			SecurityBoundaries:     true,
			TestCoverage:           true,
			ModuleCoupling:         true,
			ErrorHandling:          true,
			ContractMismatch:       true,
			ConstantsAnalysis:      true,
			DecisionMining:         true,
			PatternTrends:          true,
			SpeculativeExecution:   true,
		},
		QualityGates: QualityGates{Policy: "all_pass"},
		OutputFormat: "text",
		Thresholds: Thresholds{
			MinPatternConfidence: 0.7,
			MaxImpactDepth:       10,
			MinTestCoverage:      80,
			MaxCouplingScore:     50,
		},
	}
}

// LoadAnalysisConfig reads drift.toml at path, overlaying it onto
// DefaultAnalysisConfig so a partial file still yields a fully
// contract-compliant configuration. A missing file is not an error: it
// means "use the defaults," matching the teacher's Load()'s own
// missing-env-var-means-default behavior.
func LoadAnalysisConfig(path string) (AnalysisConfig, error) {
	cfg := DefaultAnalysisConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return AnalysisConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return AnalysisConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveAnalysisConfig writes cfg to path as TOML, used by adapters that
// let a user edit thresholds through a UI rather than a text editor.
func SaveAnalysisConfig(path string, cfg AnalysisConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal analysis config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
