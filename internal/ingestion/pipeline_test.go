package ingestion

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coderisk/codegraph/internal/config"
	"github.com/coderisk/codegraph/internal/git"
	"github.com/coderisk/codegraph/internal/graph"
)

// liveBackend is an in-memory graph.Backend whose Query implementation reads
// back the nodes/edges CreateNode/CreateEdge actually stored, so a Pipeline
// run can be exercised end to end (ChangeDetector through PlaceholderResolver)
// without a real Neo4j instance. It recognizes the same handful of Cypher
// query shapes the resolver strategies issue (see join.go/hashmap.go).
type liveBackend struct {
	nodes map[string]graph.GraphNode
	edges []graph.GraphEdge
}

func newLiveBackend() *liveBackend {
	return &liveBackend{nodes: make(map[string]graph.GraphNode)}
}

func (b *liveBackend) CreateNode(ctx context.Context, node graph.GraphNode) (string, error) {
	id, _ := node.Properties["id"].(string)
	b.nodes[id] = node
	return id, nil
}

func (b *liveBackend) CreateNodes(ctx context.Context, nodes []graph.GraphNode) error {
	for _, n := range nodes {
		if _, err := b.CreateNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (b *liveBackend) CreateEdge(ctx context.Context, edge graph.GraphEdge) error {
	b.edges = append(b.edges, edge)
	return nil
}

func (b *liveBackend) CreateEdges(ctx context.Context, edges []graph.GraphEdge) error {
	b.edges = append(b.edges, edges...)
	return nil
}

func (b *liveBackend) DeleteNodesByProperty(ctx context.Context, label, property string, values []string) (int64, error) {
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	var n int64
	for id, node := range b.nodes {
		if node.Label != label {
			continue
		}
		if v, _ := node.Properties[property].(string); want[v] {
			delete(b.nodes, id)
			n++
		}
	}
	return n, nil
}

func (b *liveBackend) DeleteFileSubtree(ctx context.Context, fileID string) (int64, error) {
	toDelete := map[string]bool{fileID: true}
	for depth := 0; depth < 2; depth++ {
		for _, e := range b.edges {
			if e.Label == "CONTAINS" && toDelete[e.FromID] {
				toDelete[e.ToID] = true
			}
		}
	}

	var remainingEdges []graph.GraphEdge
	for _, e := range b.edges {
		if toDelete[e.FromID] || toDelete[e.ToID] {
			continue
		}
		remainingEdges = append(remainingEdges, e)
	}
	b.edges = remainingEdges

	var n int64
	for id := range toDelete {
		if _, ok := b.nodes[id]; ok {
			delete(b.nodes, id)
			n++
		}
	}
	return n, nil
}

func (b *liveBackend) ClearRepository(ctx context.Context, repository string, preserveSchema bool) (int64, error) {
	var n int64
	for id, node := range b.nodes {
		if repo, _ := node.Properties["repository"].(string); repo == repository {
			delete(b.nodes, id)
			n++
		}
	}
	return n, nil
}

func (b *liveBackend) EnsureSchema(ctx context.Context) error { return nil }
func (b *liveBackend) Close(ctx context.Context) error         { return nil }

func (b *liveBackend) childrenOf(parentID, edgeLabel, childLabel string) []graph.GraphNode {
	var out []graph.GraphNode
	for _, e := range b.edges {
		if e.Label != edgeLabel || e.FromID != parentID {
			continue
		}
		if n, ok := b.nodes[e.ToID]; ok && n.Label == childLabel {
			out = append(out, n)
		}
	}
	return out
}

func (b *liveBackend) classOf(fnID string) (graph.GraphNode, bool) {
	for _, e := range b.edges {
		if e.Label != "CONTAINS" || e.ToID != fnID {
			continue
		}
		if n, ok := b.nodes[e.FromID]; ok && n.Label == "Class" {
			return n, true
		}
	}
	return graph.GraphNode{}, false
}

func (b *liveBackend) fileOf(nodeID string) (graph.GraphNode, bool) {
	for _, e := range b.edges {
		if e.Label != "CONTAINS" || e.ToID != nodeID {
			continue
		}
		if n, ok := b.nodes[e.FromID]; ok && n.Label == "File" {
			return n, true
		}
	}
	return graph.GraphNode{}, false
}

func (b *liveBackend) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	switch {
	case strings.Contains(query, "MATCH (c:Class {name: $class_name})-[:CONTAINS]->(f:Function {name: $name})"):
		className, _ := params["class_name"].(string)
		name, _ := params["name"].(string)
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "Function" || n.Properties["name"] != name {
				continue
			}
			class, ok := b.classOf(asString(n.Properties["id"]))
			if !ok || class.Properties["name"] != className {
				continue
			}
			rows = append(rows, functionRow(n, class))
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:Function {name: $name})"):
		name, _ := params["name"].(string)
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "Function" || n.Properties["name"] != name {
				continue
			}
			class, _ := b.classOf(asString(n.Properties["id"]))
			rows = append(rows, functionRow(n, class))
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:Function)"):
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "Function" {
				continue
			}
			class, _ := b.classOf(asString(n.Properties["id"]))
			rows = append(rows, functionRow(n, class))
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:File) WHERE f.path STARTS WITH"):
		prefix, _ := params["prefix"].(string)
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "File" {
				continue
			}
			path := asString(n.Properties["path"])
			if strings.HasPrefix(path, prefix) {
				rows = append(rows, map[string]any{"id": n.Properties["id"], "path": path})
			}
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:File) RETURN"):
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "File" {
				continue
			}
			rows = append(rows, map[string]any{"id": n.Properties["id"], "path": n.Properties["path"]})
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:File)-[:CONTAINS]->(c:Class {name: $name})"),
		strings.Contains(query, "MATCH (f:File)-[:CONTAINS]->(c:Class)"):
		name, hasName := params["name"].(string)
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "Class" {
				continue
			}
			if hasName && n.Properties["name"] != name {
				continue
			}
			file, ok := b.fileOf(asString(n.Properties["id"]))
			if !ok {
				continue
			}
			rows = append(rows, map[string]any{
				"id": n.Properties["id"], "name": n.Properties["name"],
				"file_id": n.Properties["file_id"], "file_path": file.Properties["path"],
			})
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:File {id: $file_id})-[:CONTAINS]->(i:ImportSite)"):
		fileID, _ := params["file_id"].(string)
		var rows []map[string]any
		for _, n := range b.childrenOf(fileID, "CONTAINS", "ImportSite") {
			rows = append(rows, map[string]any{
				"import_name": n.Properties["import_name"], "module_name": n.Properties["module_name"],
			})
		}
		return rows, nil

	case strings.Contains(query, "MATCH (f:File)-[:CONTAINS]->(i:ImportSite)"):
		var rows []map[string]any
		for _, n := range b.nodes {
			if n.Label != "ImportSite" {
				continue
			}
			file, ok := b.fileOf(asString(n.Properties["id"]))
			if !ok {
				continue
			}
			rows = append(rows, map[string]any{
				"file_id": file.Properties["id"], "import_name": n.Properties["import_name"],
				"module_name": n.Properties["module_name"],
			})
		}
		return rows, nil
	}
	return nil, nil
}

func functionRow(n graph.GraphNode, class graph.GraphNode) map[string]any {
	row := map[string]any{
		"id": n.Properties["id"], "name": n.Properties["name"], "file_id": n.Properties["file_id"],
		"class_id": "", "class_name": "", "start_line": n.Properties["start_line"],
	}
	if class.Properties != nil {
		row["class_id"] = class.Properties["id"]
		row["class_name"] = class.Properties["name"]
	}
	return row
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func initPipelineTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := exec.Command("git", "-C", dir, "init", "-q").Run(); err != nil {
		t.Skip("git not available")
	}
	exec.Command("git", "-C", dir, "config", "user.email", "test@example.com").Run()
	exec.Command("git", "-C", dir, "config", "user.name", "Test User").Run()
	return dir
}

func TestPipelineRunFullScanParsesWritesAndResolves(t *testing.T) {
	dir := initPipelineTestRepo(t)

	mainPy := "import pkg.helper\n\ndef main():\n    pkg.helper.run()\n"
	helperPy := "def run():\n    pass\n"
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(mainPy), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg", "helper.py"), []byte(helperPy), 0644); err != nil {
		t.Fatal(err)
	}
	if err := exec.Command("git", "-C", dir, "add", "-A").Run(); err != nil {
		t.Fatal(err)
	}
	if err := exec.Command("git", "-C", dir, "commit", "-q", "-m", "initial").Run(); err != nil {
		t.Fatal(err)
	}

	backend := newLiveBackend()
	cfg := config.Default()
	pipeline := NewPipeline(backend, cfg.Pipeline, cfg.Resolution, nil)

	result, err := pipeline.Run(context.Background(), RunOptions{
		RepoPath:   dir,
		Repository: "acme/widgets",
		Branch:     "main",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Mode != string(git.ScanFull) {
		t.Errorf("expected a full scan with no prior commit, got %s", result.Mode)
	}
	if result.FilesParsed != 2 {
		t.Errorf("expected 2 files parsed, got %d (errors: %v)", result.FilesParsed, result.ParseErrors)
	}
	if result.FunctionsWritten < 2 {
		t.Errorf("expected at least 2 functions written, got %d", result.FunctionsWritten)
	}
}

// TestPipelineRunResolvesMethodCallByBareNameAndClass exercises a method
// call (not just free functions): Widget.render is stored with the bare
// name "render" and a ClassID, so a Widget.render(...) call resolves via
// FunctionsInClass("render", "Widget") at score 1.00 instead of being left
// unresolved because the node was named "Widget.render".
func TestPipelineRunResolvesMethodCallByBareNameAndClass(t *testing.T) {
	dir := initPipelineTestRepo(t)

	mainPy := "class Widget:\n    def render(self):\n        pass\n\n\ndef main():\n    Widget.render(None)\n"
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(mainPy), 0644); err != nil {
		t.Fatal(err)
	}
	if err := exec.Command("git", "-C", dir, "add", "-A").Run(); err != nil {
		t.Fatal(err)
	}
	if err := exec.Command("git", "-C", dir, "commit", "-q", "-m", "initial").Run(); err != nil {
		t.Fatal(err)
	}

	backend := newLiveBackend()
	cfg := config.Default()
	pipeline := NewPipeline(backend, cfg.Pipeline, cfg.Resolution, nil)

	result, err := pipeline.Run(context.Background(), RunOptions{
		RepoPath:   dir,
		Repository: "acme/widgets",
		Branch:     "main",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.CallSitesResolved < 1 {
		t.Fatalf("expected the Widget.render(...) call to resolve, got 0 resolved (errors: %v)", result.ParseErrors)
	}

	var renderFn graph.GraphNode
	for _, n := range backend.nodes {
		if n.Label == "Function" && n.Properties["name"] == "render" {
			renderFn = n
		}
		if n.Label == "Function" && n.Properties["name"] == "Widget.render" {
			t.Fatalf("method should be stored with its bare name, not %q", n.Properties["name"])
		}
	}
	if renderFn.Properties == nil {
		t.Fatal("expected a Function node named \"render\"")
	}

	var callSite graph.GraphNode
	for _, n := range backend.nodes {
		if n.Label == "CallSite" {
			callSite = n
		}
	}
	if callSite.Properties == nil {
		t.Fatal("expected a CallSite node")
	}
	if callSite.Properties["resolved_function_id"] != renderFn.Properties["id"] {
		t.Errorf("expected call site to resolve to %v, got %v", renderFn.Properties["id"], callSite.Properties["resolved_function_id"])
	}
	if callSite.Properties["score"] != 1.00 {
		t.Errorf("expected same-class method call to score 1.00, got %v", callSite.Properties["score"])
	}
}
