package callgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Builder loads shard files and composes a Graph. Parsing is parallel
// across shards (one file = one task, per §5's scheduling model); merging
// into the shared maps happens on the calling goroutine after every parse
// completes, so the merge step itself needs no locking.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to slog.Default().
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger.With("component", "callgraph-builder")}
}

// BuildFromDir reads every *.json shard under dir in parallel and merges
// them into a single Graph. A shard that fails to parse is recorded in
// Status.ShardErrors and skipped; it never fails the whole build.
func (b *Builder) BuildFromDir(ctx context.Context, dir string) (*Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return b.BuildFromShards(ctx, nil), nil
		}
		return nil, fmt.Errorf("callgraph builder: read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	shards := make([]Shard, len(paths))
	errs := make([]error, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			data, rerr := os.ReadFile(p)
			if rerr != nil {
				errs[i] = rerr
				return nil
			}
			var shard Shard
			if perr := json.Unmarshal(data, &shard); perr != nil {
				errs[i] = perr
				return nil
			}
			shards[i] = shard
			return nil
		})
	}
	_ = g.Wait()

	var shardErrs []ShardError
	var valid []Shard
	for i, p := range paths {
		if errs[i] != nil {
			shardErrs = append(shardErrs, ShardError{Path: p, Err: errs[i]})
			b.logger.Warn("shard failed to load", "path", p, "error", errs[i])
			continue
		}
		valid = append(valid, shards[i])
	}

	graph := b.BuildFromShards(ctx, valid)
	graph.status.ShardErrors = shardErrs
	return graph, nil
}

// BuildFromShards composes an in-memory Graph from already-loaded shards,
// deduplicating edges on (caller, callee, callSite) as they are merged.
func (b *Builder) BuildFromShards(ctx context.Context, shards []Shard) *Graph {
	functions := make(map[string]FunctionNode)
	callers := make(map[string][]string)
	callees := make(map[string][]string)
	seenEdge := make(map[string]bool)
	var edges []Edge
	var entries []string

	for _, shard := range shards {
		for _, fn := range shard.Functions {
			if fn.ID == "" {
				fn.ID = fn.File + ":" + fn.Name
			}
			functions[fn.ID] = fn
			if fn.IsEntryPoint {
				entries = append(entries, fn.ID)
			}
		}
	}

	var totalEdges, resolvedEdges int
	for _, shard := range shards {
		for _, e := range shard.Calls {
			totalEdges++
			key := e.key()
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			edges = append(edges, e)
			if e.Callee != "" {
				resolvedEdges++
				callers[e.Callee] = append(callers[e.Callee], e.Caller)
				callees[e.Caller] = append(callees[e.Caller], e.Callee)
			}
		}
	}

	rate := 1.0
	if totalEdges > 0 {
		rate = float64(resolvedEdges) / float64(totalEdges)
	}

	return &Graph{
		functions: functions,
		edges:     edges,
		callers:   callers,
		callees:   callees,
		entries:   entries,
		status: Status{
			Files:          len(shards),
			Functions:      len(functions),
			Edges:          len(edges),
			EntryPoints:    len(entries),
			ResolutionRate: rate,
		},
	}
}

// Store holds the current Graph behind a pointer swapped atomically on
// rebuild (§5 "rebuilds replace the whole graph atomically under a
// pointer swap").
type Store struct {
	mu    sync.RWMutex
	graph *Graph
}

// NewStore wraps an initial (possibly empty) Graph.
func NewStore(initial *Graph) *Store {
	if initial == nil {
		initial = &Graph{functions: map[string]FunctionNode{}, callers: map[string][]string{}, callees: map[string][]string{}}
	}
	return &Store{graph: initial}
}

// Current returns the graph currently in effect.
func (s *Store) Current() *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Replace atomically swaps in a newly built graph.
func (s *Store) Replace(g *Graph) {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
}
