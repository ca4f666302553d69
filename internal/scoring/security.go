package scoring

import (
	"strings"

	"github.com/driftco/drift/internal/callgraph"
	"github.com/driftco/drift/internal/reachability"
)

// WarningKind is the closed set of security-boundary warnings (§4.5.3).
type WarningKind string

const (
	WarningCredentialAccess  WarningKind = "credential-access"
	WarningFinancialData     WarningKind = "financial-data"
	WarningHealthData        WarningKind = "health-data"
	WarningPIIAccess         WarningKind = "pii-access"
	WarningAuthModification  WarningKind = "auth-modification"
	WarningDistributedSecurity WarningKind = "distributed-security"
	WarningDataModification  WarningKind = "data-modification"
)

// securityWeights is the per-warning-kind contribution to securityRisk,
// clamped to 100 (§4.5.3).
var securityWeights = map[WarningKind]float64{
	WarningCredentialAccess:    25,
	WarningFinancialData:       20,
	WarningHealthData:          18,
	WarningPIIAccess:           10,
	WarningAuthModification:    10,
	WarningDistributedSecurity: 10,
	WarningDataModification:    10,
}

// Warning is a single security-boundary finding on a reachability path.
type Warning struct {
	Kind     WarningKind
	Severity string
	FunctionID string
	File     string
	Detail   string
}

// SecurityReport is the output of the security scorer.
type SecurityReport struct {
	Warnings     []Warning
	SecurityRisk float64
}

// SecurityScorer classifies data sensitivity lexically over each target
// file's reachable functions (§4.5.3: "Reuses C4 from each targetFile's
// functions").
type SecurityScorer struct {
	graph  *callgraph.Graph
	engine *reachability.Engine
}

// NewSecurityScorer binds a scorer to a graph snapshot.
func NewSecurityScorer(graph *callgraph.Graph) *SecurityScorer {
	s := &SecurityScorer{graph: graph}
	if graph != nil {
		s.engine = reachability.NewEngine(graph)
	}
	return s
}

// Score walks forward reachability from every function in targetFiles and
// classifies what each reached function's name/table vocabulary implies.
// Never fails: an absent graph yields an empty, zero-risk report.
func (s *SecurityScorer) Score(targetFiles []string) SecurityReport {
	if s.graph == nil {
		return SecurityReport{}
	}

	var warnings []Warning
	seen := map[string]bool{}
	for _, file := range targetFiles {
		for _, fn := range s.graph.FunctionsInFile(file) {
			for _, r := range s.engine.Forward(fn.ID, reachability.UnsetMaxDepth) {
				target := r.Path[len(r.Path)-1]
				key := target.ID
				if seen[key] {
					continue
				}
				seen[key] = true
				warnings = append(warnings, classifyNode(target)...)
			}
			warnings = append(warnings, classifyNode(fn)...)
		}
	}

	risk := 0.0
	for _, w := range warnings {
		risk += securityWeights[w.Kind]
	}
	if risk > 100 {
		risk = 100
	}

	return SecurityReport{Warnings: warnings, SecurityRisk: risk}
}

func classifyNode(fn callgraph.FunctionNode) []Warning {
	var out []Warning
	lower := strings.ToLower(fn.Name + " " + fn.File)

	if containsAny(lower, "auth", "login", "permission", "role", "grant") && isWriteLike(fn) {
		out = append(out, Warning{Kind: WarningAuthModification, Severity: "high", FunctionID: fn.ID, File: fn.File, Detail: "function name suggests an authorization mutation"})
	}
	if containsAny(lower, "distribut", "cluster", "shard", "replica") {
		out = append(out, Warning{Kind: WarningDistributedSecurity, Severity: "medium", FunctionID: fn.ID, File: fn.File, Detail: "function touches distributed/cluster topology"})
	}

	for _, access := range fn.DataAccess {
		switch classifySensitivityVocabulary(access.Table, access.Fields) {
		case callgraph.SensitivityCredentials:
			out = append(out, Warning{Kind: WarningCredentialAccess, Severity: "critical", FunctionID: fn.ID, File: fn.File, Detail: "access touches credential-shaped data: " + access.Table})
		case callgraph.SensitivityFinancial:
			out = append(out, Warning{Kind: WarningFinancialData, Severity: "high", FunctionID: fn.ID, File: fn.File, Detail: "access touches financial data: " + access.Table})
		case callgraph.SensitivityHealth:
			out = append(out, Warning{Kind: WarningHealthData, Severity: "high", FunctionID: fn.ID, File: fn.File, Detail: "access touches health data: " + access.Table})
		case callgraph.SensitivityPII:
			out = append(out, Warning{Kind: WarningPIIAccess, Severity: "medium", FunctionID: fn.ID, File: fn.File, Detail: "access touches PII: " + access.Table})
		}
		if access.Operation == callgraph.OperationWrite || access.Operation == callgraph.OperationDelete {
			out = append(out, Warning{Kind: WarningDataModification, Severity: "medium", FunctionID: fn.ID, File: fn.File, Detail: "mutates " + access.Table})
		}
	}
	return out
}

// classifySensitivityVocabulary is the lexical classifier from §4.5.3,
// checked in the order credentials > financial > health > pii > unknown.
func classifySensitivityVocabulary(table string, fields []string) callgraph.Sensitivity {
	haystack := strings.ToLower(table + " " + strings.Join(fields, " "))
	switch {
	case containsAny(haystack, "password", "secret", "token", "api_key", "apikey", "private_key", "auth_token", "refresh_token"):
		return callgraph.SensitivityCredentials
	case containsAny(haystack, "credit_card", "creditcard", "payment", "billing", "salary", "invoice"):
		return callgraph.SensitivityFinancial
	case containsAny(haystack, "diagnosis", "patient", "medical", "prescription", "icd10", "hipaa"):
		return callgraph.SensitivityHealth
	case containsAny(haystack, "ssn", "email", "phone", "address", "dob", "user"):
		return callgraph.SensitivityPII
	default:
		return callgraph.SensitivityUnknown
	}
}

func isWriteLike(fn callgraph.FunctionNode) bool {
	lower := strings.ToLower(fn.Name)
	return containsAny(lower, "set", "update", "grant", "revoke", "delete", "create", "assign")
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
