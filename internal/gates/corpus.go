package gates

// BuiltinGates returns one instance of every closed-set gate named in
// §4.6, wired with sensible defaults. constraints and customRules are
// caller-supplied since they are inherently workspace-specific.
func BuiltinGates(constraints, customRules []Constraint) []Gate {
	return []Gate{
		NewPatternComplianceGate(),
		NewConstraintVerificationGate(constraints),
		NewRegressionDetectionGate(),
		NewImpactSimulationGate(),
		NewSecurityBoundaryGate(),
		NewCustomRulesGate(customRules),
	}
}
