package graph

import "context"

// Backend defines the interface for graph database operations. Neo4j is the
// only implementation (Backend exists so GraphWriter and PlaceholderResolver
// depend on an interface, not a concrete driver, for testing).
type Backend interface {
	// CreateNode idempotently creates or updates a single node.
	CreateNode(ctx context.Context, node GraphNode) (string, error)

	// CreateNodes idempotently creates or updates nodes in batch.
	CreateNodes(ctx context.Context, nodes []GraphNode) error

	// CreateEdge idempotently creates a single edge.
	CreateEdge(ctx context.Context, edge GraphEdge) error

	// CreateEdges idempotently creates edges in batch.
	CreateEdges(ctx context.Context, edges []GraphEdge) error

	// DeleteNodesByProperty deletes every node with the given label whose
	// property equals one of values, detaching any edges first.
	DeleteNodesByProperty(ctx context.Context, label, property string, values []string) (int64, error)

	// DeleteFileSubtree removes a File node and every Class/Function/CallSite/
	// ImportSite reachable from it through CONTAINS (spec §4.3: "deleted/
	// renamed files ... File and everything it CONTAINS is removed"). Used
	// both for incremental per-file deletion and to clear a file's prior
	// contents before it is re-written.
	DeleteFileSubtree(ctx context.Context, fileID string) (int64, error)

	// ClearRepository removes every node tagged with repository (spec §6's
	// `clear` command). If preserveSchema is false, constraints/indexes are
	// also dropped.
	ClearRepository(ctx context.Context, repository string, preserveSchema bool) (int64, error)

	// EnsureSchema creates the constraints and indexes GraphWriter relies on
	// for idempotent MERGE (spec §4.3). Safe to call on every run.
	EnsureSchema(ctx context.Context) error

	// Query executes a read query and returns decoded records.
	Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	// Close closes the backend connection.
	Close(ctx context.Context) error
}

// GraphNode represents a node in the graph.
type GraphNode struct {
	Label      string         // "File", "Class", "Function", "CallSite", "ImportSite"
	Properties map[string]any // always includes "id"
}

// GraphEdge represents an edge in the graph.
type GraphEdge struct {
	Label      string // "CONTAINS", "INHERITS_FROM", "RESOLVES_TO"
	FromLabel  string
	FromID     string
	ToLabel    string
	ToID       string
	Properties map[string]any
}
