// Package reachability answers forward ("what does X transitively call")
// and backward ("who reaches X") questions over a callgraph.Graph via
// breadth-first search, bounded by a configurable depth cap (§4.4).
package reachability

import (
	"github.com/driftco/drift/internal/callgraph"
)

// Direction is which way the BFS walks edges.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// DefaultMaxDepth is the depth cap applied when a query leaves MaxDepth
// unset, per §4.4: "maxDepth defaults to 10 and must be respected to
// bound runtime."
const DefaultMaxDepth = 10

// UnsetMaxDepth requests DefaultMaxDepth. It is distinct from an explicit
// MaxDepth of 0, which per §8 is the boundary case "returns only the
// source" (no nodes beyond Start).
const UnsetMaxDepth = -1

// Query configures a single reachability walk.
type Query struct {
	Start         string
	Direction     Direction
	MaxDepth      int
	SensitiveOnly bool
	StopPredicate func(callgraph.FunctionNode) bool
}

// Reach is a single node reached from Query.Start.
type Reach struct {
	Path   []callgraph.FunctionNode
	Access *callgraph.DataAccess
	Depth  int
}

// Engine runs reachability queries against a fixed graph snapshot.
type Engine struct {
	graph *callgraph.Graph
}

// NewEngine binds an Engine to graph. Graphs are immutable once built, so
// an Engine is safe to share across concurrent queries.
func NewEngine(graph *callgraph.Graph) *Engine {
	return &Engine{graph: graph}
}

type frontierEntry struct {
	id    string
	path  []callgraph.FunctionNode
	depth int
}

// Walk runs the BFS described by q and returns one Reach per node reached,
// in breadth-first (shortest-path-first) order. Nodes are deduplicated by
// id; on a cycle the first, shortest path discovered wins (§4.4).
func (e *Engine) Walk(q Query) []Reach {
	maxDepth := q.MaxDepth
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}

	start, ok := e.graph.Node(q.Start)
	if !ok {
		return nil
	}

	visited := map[string]bool{q.Start: true}
	queue := []frontierEntry{{id: q.Start, path: []callgraph.FunctionNode{start}, depth: 0}}

	var out []Reach
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.id != q.Start {
			node := cur.path[len(cur.path)-1]
			if !q.SensitiveOnly || node.AccessesSensitiveData {
				out = append(out, Reach{
					Path:   cur.path,
					Access: firstSensitiveAccess(node),
					Depth:  cur.depth,
				})
			}
		}

		if cur.depth >= maxDepth {
			continue
		}
		node := cur.path[len(cur.path)-1]
		if q.StopPredicate != nil && q.StopPredicate(node) {
			continue
		}

		for _, neighbor := range e.neighbors(cur.id, q.Direction) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			nnode, ok := e.graph.Node(neighbor)
			if !ok {
				continue
			}
			nextPath := append(append([]callgraph.FunctionNode(nil), cur.path...), nnode)
			queue = append(queue, frontierEntry{id: neighbor, path: nextPath, depth: cur.depth + 1})
		}
	}
	return out
}

func (e *Engine) neighbors(id string, dir Direction) []string {
	if dir == Backward {
		return e.graph.Callers(id)
	}
	return e.graph.Callees(id)
}

func firstSensitiveAccess(node callgraph.FunctionNode) *callgraph.DataAccess {
	if len(node.DataAccess) == 0 {
		return nil
	}
	access := node.DataAccess[0]
	return &access
}

// Forward is a convenience wrapper for the common "what does X call" query.
// maxDepth of 0 returns nothing beyond the source (§8); pass UnsetMaxDepth
// for the DefaultMaxDepth cap.
func (e *Engine) Forward(start string, maxDepth int) []Reach {
	return e.Walk(Query{Start: start, Direction: Forward, MaxDepth: maxDepth})
}

// Backward is a convenience wrapper for the common "who reaches X" query.
// maxDepth of 0 returns nothing beyond the source (§8); pass UnsetMaxDepth
// for the DefaultMaxDepth cap.
func (e *Engine) Backward(start string, maxDepth int) []Reach {
	return e.Walk(Query{Start: start, Direction: Backward, MaxDepth: maxDepth})
}
