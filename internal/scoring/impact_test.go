package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftco/drift/internal/callgraph"
)

func sampleGraph() *callgraph.Graph {
	shards := []callgraph.Shard{{
		Functions: []callgraph.FunctionNode{
			{ID: "api.go:Handle", File: "api.go", Name: "Handle", Type: callgraph.NodeHandler, IsEntryPoint: true},
			{ID: "svc.go:updateUser", File: "svc.go", Name: "updateUser"},
			{ID: "db.go:writeUsers", File: "db.go", Name: "writeUsers", AccessesSensitiveData: true,
				DataAccess: []callgraph.DataAccess{{Table: "users", Operation: callgraph.OperationWrite, Sensitivity: callgraph.SensitivityPII}}},
		},
		Calls: []callgraph.Edge{
			{Caller: "api.go:Handle", Callee: "svc.go:updateUser"},
			{Caller: "svc.go:updateUser", Callee: "db.go:writeUsers"},
		},
	}}
	return callgraph.NewBuilder(nil).BuildFromShards(context.Background(), shards)
}

func TestImpactScorerWithGraph(t *testing.T) {
	scorer := NewImpactScorer(sampleGraph())
	metrics := scorer.Score(context.Background(), ChangeSet{Files: []string{"db.go"}})

	assert.Greater(t, metrics.RiskScore, 0.0)
	assert.Equal(t, 1, metrics.EntryPointsAffected)
	require.Len(t, metrics.AffectedEntryPoints, 1)
	assert.Equal(t, EntryAPI, metrics.AffectedEntryPoints[0].Kind)
	assert.False(t, metrics.Summary.Estimated)
}

func TestImpactScorerNoGraphFallsBackToEstimate(t *testing.T) {
	scorer := NewImpactScorer(nil)
	metrics := scorer.Score(context.Background(), ChangeSet{Files: []string{"internal/auth/login.go"}})
	assert.True(t, metrics.Summary.Estimated)
	assert.NotEmpty(t, metrics.Summary.Limitations)
}

func TestBucketRiskBoundaries(t *testing.T) {
	assert.Equal(t, RiskLow, BucketRisk(0))
	assert.Equal(t, RiskMedium, BucketRisk(25))
	assert.Equal(t, RiskHigh, BucketRisk(50))
	assert.Equal(t, RiskCritical, BucketRisk(75))
}
