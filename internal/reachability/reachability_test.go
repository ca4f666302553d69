package reachability

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftco/drift/internal/callgraph"
)

func chainGraph() *callgraph.Graph {
	shards := []callgraph.Shard{{
		Functions: []callgraph.FunctionNode{
			{ID: "h", Name: "Handle", Type: callgraph.NodeHandler, IsEntryPoint: true},
			{ID: "a", Name: "a"},
			{ID: "b", Name: "b"},
			{ID: "c", Name: "c", AccessesSensitiveData: true, DataAccess: []callgraph.DataAccess{
				{Table: "users", Operation: callgraph.OperationRead, Sensitivity: callgraph.SensitivityPII},
			}},
		},
		Calls: []callgraph.Edge{
			{Caller: "h", Callee: "a"},
			{Caller: "a", Callee: "b"},
			{Caller: "b", Callee: "c"},
		},
	}}
	return callgraph.NewBuilder(nil).BuildFromShards(context.Background(), shards)
}

func TestWalkForwardShortestPathOrder(t *testing.T) {
	engine := NewEngine(chainGraph())
	reaches := engine.Forward("h", UnsetMaxDepth)
	require.Len(t, reaches, 3)
	assert.Equal(t, 1, reaches[0].Depth)
	assert.Equal(t, "a", reaches[0].Path[len(reaches[0].Path)-1].ID)
	assert.Equal(t, 3, reaches[2].Depth)
	assert.Equal(t, "c", reaches[2].Path[len(reaches[2].Path)-1].ID)
}

func TestWalkRespectsMaxDepth(t *testing.T) {
	engine := NewEngine(chainGraph())
	reaches := engine.Forward("h", 2)
	require.Len(t, reaches, 2)
}

func TestWalkZeroMaxDepthReturnsOnlySource(t *testing.T) {
	engine := NewEngine(chainGraph())
	assert.Empty(t, engine.Forward("h", 0))
	assert.Empty(t, engine.Backward("c", 0))
}

func TestWalkBackward(t *testing.T) {
	engine := NewEngine(chainGraph())
	reaches := engine.Backward("c", UnsetMaxDepth)
	ids := make([]string, len(reaches))
	for i, r := range reaches {
		ids[i] = r.Path[len(r.Path)-1].ID
	}
	assert.ElementsMatch(t, []string{"b", "a", "h"}, ids)
}

func TestWalkSensitiveOnlyFiltersResults(t *testing.T) {
	engine := NewEngine(chainGraph())
	reaches := engine.Walk(Query{Start: "h", Direction: Forward, SensitiveOnly: true})
	require.Len(t, reaches, 1)
	assert.Equal(t, "c", reaches[0].Path[len(reaches[0].Path)-1].ID)
	require.NotNil(t, reaches[0].Access)
	assert.Equal(t, callgraph.SensitivityPII, reaches[0].Access.Sensitivity)
}

func TestWalkDedupsOnCycleKeepingShortestPath(t *testing.T) {
	shards := []callgraph.Shard{{
		Functions: []callgraph.FunctionNode{
			{ID: "a", Name: "a"},
			{ID: "b", Name: "b"},
		},
		Calls: []callgraph.Edge{
			{Caller: "a", Callee: "b"},
			{Caller: "b", Callee: "a"},
		},
	}}
	graph := callgraph.NewBuilder(nil).BuildFromShards(context.Background(), shards)
	engine := NewEngine(graph)

	reaches := engine.Forward("a", 5)
	require.Len(t, reaches, 1)
	assert.Equal(t, "b", reaches[0].Path[len(reaches[0].Path)-1].ID)
	assert.Equal(t, 1, reaches[0].Depth)
}

func TestWalkUnknownStartReturnsNil(t *testing.T) {
	engine := NewEngine(chainGraph())
	assert.Empty(t, engine.Forward("missing", 0))
}

type reachSummary struct {
	ID    string
	Depth int
}

func summarize(reaches []Reach) []reachSummary {
	out := make([]reachSummary, len(reaches))
	for i, r := range reaches {
		out[i] = reachSummary{ID: r.Path[len(r.Path)-1].ID, Depth: r.Depth}
	}
	return out
}

// Forward and Backward walk the same chain in opposite directions, so the
// union of what each one reaches from its endpoint should cover every other
// node exactly once at a depth matching its distance along the chain.
func TestForwardAndBackwardCoverComplementaryDepths(t *testing.T) {
	engine := NewEngine(chainGraph())

	forward := summarize(engine.Forward("h", UnsetMaxDepth))
	backward := summarize(engine.Backward("c", UnsetMaxDepth))

	wantForward := []reachSummary{{ID: "a", Depth: 1}, {ID: "b", Depth: 2}, {ID: "c", Depth: 3}}
	wantBackward := []reachSummary{{ID: "b", Depth: 1}, {ID: "a", Depth: 2}, {ID: "h", Depth: 3}}

	sortByID := cmpopts.SortSlices(func(a, b reachSummary) bool { return a.ID < b.ID })
	if diff := cmp.Diff(wantForward, forward, sortByID); diff != "" {
		t.Errorf("forward reach mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantBackward, backward, sortByID); diff != "" {
		t.Errorf("backward reach mismatch (-want +got):\n%s", diff)
	}
}
