// Package callgraph loads per-file call-graph shards produced by an
// external scanner and composes them into an in-memory, queryable graph
// (§4.3). Construction of the shards themselves is out of scope here; this
// package only loads, merges, and serves queries over them.
package callgraph

import "strconv"

// NodeType is the closed set of function-node kinds.
type NodeType string

const (
	NodeFunction    NodeType = "function"
	NodeMethod      NodeType = "method"
	NodeHandler     NodeType = "handler"
	NodeConstructor NodeType = "constructor"
	NodeEntry       NodeType = "entry"
)

// Sensitivity classifies what kind of data a DataAccess overlay touches.
type Sensitivity string

const (
	SensitivityCredentials Sensitivity = "credentials"
	SensitivityFinancial   Sensitivity = "financial"
	SensitivityHealth      Sensitivity = "health"
	SensitivityPII         Sensitivity = "pii"
	SensitivityInternal    Sensitivity = "internal"
	SensitivityUnknown     Sensitivity = "unknown"
)

// Operation is the kind of access a DataAccess overlay records.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationDelete Operation = "delete"
)

// DataAccess is the data-sensitivity overlay attached to a function node
// (§3's glossary "Data-access overlay").
type DataAccess struct {
	Table       string      `json:"table"`
	Fields      []string    `json:"fields,omitempty"`
	Operation   Operation   `json:"operation"`
	Sensitivity Sensitivity `json:"sensitivity"`
}

// FunctionNode is one function/method/handler in the graph.
type FunctionNode struct {
	ID                    string       `json:"id"`
	File                  string       `json:"file"`
	Name                  string       `json:"name"`
	Line                  int          `json:"line"`
	Type                  NodeType     `json:"type"`
	IsEntryPoint          bool         `json:"isEntryPoint"`
	AccessesSensitiveData bool         `json:"accessesSensitiveData"`
	DataAccess            []DataAccess `json:"dataAccess,omitempty"`
}

// CallSite pinpoints where an edge's call expression appears.
type CallSite struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Edge is a directed caller -> callee call, deduplicated by
// (caller, callee, callSite). Callee is empty when the producer could not
// resolve the target (counted against the resolution rate).
type Edge struct {
	Caller   string   `json:"caller"`
	Callee   string   `json:"callee"`
	CallSite CallSite `json:"callSite"`
}

func (e Edge) key() string {
	return e.Caller + "\x00" + e.Callee + "\x00" + e.CallSite.File + "\x00" + strconv.Itoa(e.CallSite.Line)
}

// Shard is the per-file JSON document an external scanner writes under
// .drift/lake/callgraph/files/ (§6 "Call-graph shards").
type Shard struct {
	File      string         `json:"file"`
	Functions []FunctionNode `json:"functions"`
	Calls     []Edge         `json:"calls"`
}

// Status summarizes graph composition health (§4.3 resolution rate).
type Status struct {
	Files          int
	Functions      int
	Edges          int
	EntryPoints    int
	ResolutionRate float64
	ShardErrors    []ShardError
}

// ShardError records a shard that failed to load, without aborting the
// rest of the build.
type ShardError struct {
	Path string
	Err  error
}
