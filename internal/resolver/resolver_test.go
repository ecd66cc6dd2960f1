package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderisk/codegraph/internal/graph"
	"github.com/coderisk/codegraph/internal/model"
)

// fakeQueryBackend lets each test script canned rows for specific Cypher
// shapes without a live Neo4j connection.
type fakeQueryBackend struct {
	functions []map[string]any
	files     []map[string]any
	classes   []map[string]any
	imports   []map[string]any
	nodes     map[string]graph.GraphNode
	edges     []graph.GraphEdge
}

func newFakeQueryBackend() *fakeQueryBackend {
	return &fakeQueryBackend{nodes: make(map[string]graph.GraphNode)}
}

func (f *fakeQueryBackend) CreateNode(ctx context.Context, node graph.GraphNode) (string, error) {
	id, _ := node.Properties["id"].(string)
	f.nodes[id] = node
	return id, nil
}
func (f *fakeQueryBackend) CreateNodes(ctx context.Context, nodes []graph.GraphNode) error {
	for _, n := range nodes {
		f.CreateNode(ctx, n)
	}
	return nil
}
func (f *fakeQueryBackend) CreateEdge(ctx context.Context, edge graph.GraphEdge) error {
	f.edges = append(f.edges, edge)
	return nil
}
func (f *fakeQueryBackend) CreateEdges(ctx context.Context, edges []graph.GraphEdge) error {
	f.edges = append(f.edges, edges...)
	return nil
}
func (f *fakeQueryBackend) DeleteNodesByProperty(ctx context.Context, label, property string, values []string) (int64, error) {
	return 0, nil
}
func (f *fakeQueryBackend) DeleteFileSubtree(ctx context.Context, fileID string) (int64, error) {
	return 0, nil
}
func (f *fakeQueryBackend) ClearRepository(ctx context.Context, repository string, preserveSchema bool) (int64, error) {
	return 0, nil
}
func (f *fakeQueryBackend) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeQueryBackend) Close(ctx context.Context) error        { return nil }

func (f *fakeQueryBackend) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	switch {
	case contains(query, "MATCH (f:Function)") && contains(query, "CONTAINS]->(f)"):
		return f.functions, nil
	case contains(query, "MATCH (f:File) RETURN") || contains(query, "MATCH (f:File) WHERE f.path STARTS WITH"):
		return f.files, nil
	case contains(query, "MATCH (f:File)-[:CONTAINS]->(c:Class)"):
		return f.classes, nil
	case contains(query, "MATCH (f:File)-[:CONTAINS]->(i:ImportSite)"):
		return f.imports, nil
	case contains(query, "MATCH (c:Class {name: $class_name})"):
		className, _ := params["class_name"].(string)
		name, _ := params["name"].(string)
		var out []map[string]any
		for _, row := range f.functions {
			if row["class_name"] == className && row["name"] == name {
				out = append(out, row)
			}
		}
		return out, nil
	case contains(query, "MATCH (f:Function {name: $name})"):
		var out []map[string]any
		for _, row := range f.functions {
			if row["name"] == params["name"] {
				out = append(out, row)
			}
		}
		return out, nil
	case contains(query, "(c:Class {name: $name})"):
		var out []map[string]any
		for _, row := range f.classes {
			if row["name"] == params["name"] {
				out = append(out, row)
			}
		}
		return out, nil
	case contains(query, "MATCH (f:File {id: $file_id})"):
		var out []map[string]any
		for _, row := range f.imports {
			if row["file_id"] == params["file_id"] {
				out = append(out, row)
			}
		}
		return out, nil
	}
	return nil, nil
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func seedBackend() *fakeQueryBackend {
	b := newFakeQueryBackend()
	b.functions = []map[string]any{
		{"id": "fn-widget-render", "name": "render", "file_id": "file-widget", "class_id": "class-widget", "class_name": "Widget", "start_line": 10},
		{"id": "fn-helper", "name": "helper", "file_id": "file-main", "class_id": "", "class_name": "", "start_line": 3},
		{"id": "fn-helper-other", "name": "helper", "file_id": "file-utils", "class_id": "", "class_name": "", "start_line": 20},
	}
	b.files = []map[string]any{
		{"id": "file-utils", "path": "pkg/utils.py"},
	}
	b.classes = []map[string]any{
		{"id": "class-widget", "name": "Widget", "file_id": "file-widget", "file_path": "app/widget.py"},
	}
	b.imports = []map[string]any{
		{"file_id": "file-main", "import_name": "utils", "module_name": "pkg.utils"},
	}
	return b
}

func newTestResolver(t *testing.T, strategy Strategy) (*Resolver, *fakeQueryBackend) {
	t.Helper()
	backend := seedBackend()
	w := graph.NewWriter(backend, nil)
	r, err := New(context.Background(), backend, w, strategy, ModeBulk, 4, nil)
	require.NoError(t, err)
	return r, backend
}

func TestResolveCallSiteSameFileDirectCall(t *testing.T) {
	for _, strategy := range []Strategy{StrategyJoin, StrategyHashmap, StrategySharded} {
		t.Run(string(strategy), func(t *testing.T) {
			r, backend := newTestResolver(t, strategy)
			cs := &model.CallSite{ID: "cs1", CallerFileID: "file-main", CallName: "helper", StartLine: 5}

			require.NoError(t, r.ResolveCallSite(context.Background(), cs))

			assert.Equal(t, "fn-helper", cs.ResolvedFunctionID)
			assert.Equal(t, 1.0, cs.Score)
			require.Len(t, backend.edges, 1)
			assert.Equal(t, "RESOLVES_TO", backend.edges[0].Label)
		})
	}
}

func TestResolveCallSiteCrossFileDirectCall(t *testing.T) {
	r, _ := newTestResolver(t, StrategyHashmap)
	cs := &model.CallSite{ID: "cs2", CallerFileID: "file-other", CallName: "helper", StartLine: 1}

	require.NoError(t, r.ResolveCallSite(context.Background(), cs))

	assert.Contains(t, []string{"fn-helper", "fn-helper-other"}, cs.ResolvedFunctionID)
	assert.Equal(t, 0.70, cs.Score)
}

func TestResolveCallSiteAttributeCallSameClass(t *testing.T) {
	r, _ := newTestResolver(t, StrategyJoin)
	cs := &model.CallSite{ID: "cs3", CallerFileID: "file-widget", CallName: "render", CallModule: "Widget", IsAttributeCall: true}

	require.NoError(t, r.ResolveCallSite(context.Background(), cs))

	assert.Equal(t, "fn-widget-render", cs.ResolvedFunctionID)
	assert.Equal(t, 1.0, cs.Score)
}

func TestResolveCallSiteAttributeCallViaImport(t *testing.T) {
	r, _ := newTestResolver(t, StrategyHashmap)
	cs := &model.CallSite{ID: "cs4", CallerFileID: "file-main", CallName: "helper", CallModule: "utils", IsAttributeCall: true}

	require.NoError(t, r.ResolveCallSite(context.Background(), cs))

	assert.Equal(t, 0.80, cs.Score)
}

func TestResolveCallSiteNoCandidateLeavesUnresolved(t *testing.T) {
	r, backend := newTestResolver(t, StrategyHashmap)
	cs := &model.CallSite{ID: "cs5", CallerFileID: "file-main", CallName: "nonexistent"}

	require.NoError(t, r.ResolveCallSite(context.Background(), cs))

	assert.False(t, cs.Resolved())
	assert.Empty(t, backend.edges)
}

func TestResolveImportSitePlainImportMatchesFileByPath(t *testing.T) {
	r, _ := newTestResolver(t, StrategyHashmap)
	is := &model.ImportSite{ID: "is1", FileID: "file-main", ImportName: "pkg.utils", IsFromImport: false}

	require.NoError(t, r.ResolveImportSite(context.Background(), is))

	assert.Equal(t, "File", is.ResolvedKind)
	assert.Equal(t, "file-utils", is.ResolvedID)
	assert.Equal(t, 1.0, is.Score)
}

func TestResolveImportSiteFromImportMatchesClassByExactPath(t *testing.T) {
	r, _ := newTestResolver(t, StrategyJoin)
	is := &model.ImportSite{ID: "is2", FileID: "file-main", ImportName: "Widget", ModuleName: "app.widget", IsFromImport: true}

	require.NoError(t, r.ResolveImportSite(context.Background(), is))

	assert.Equal(t, "Class", is.ResolvedKind)
	assert.Equal(t, "class-widget", is.ResolvedID)
	assert.Equal(t, 1.0, is.Score)
}

func TestResolveImportSiteFromImportNameOnlyMatch(t *testing.T) {
	r, _ := newTestResolver(t, StrategyJoin)
	is := &model.ImportSite{ID: "is3", FileID: "file-main", ImportName: "Widget", ModuleName: "somewhere.else", IsFromImport: true}

	require.NoError(t, r.ResolveImportSite(context.Background(), is))

	assert.Equal(t, "Class", is.ResolvedKind)
	assert.Equal(t, 0.7, is.Score)
}
