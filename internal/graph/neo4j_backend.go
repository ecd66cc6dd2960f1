package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jBackend implements Backend using Cypher over the official driver.
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
	batch    BatchConfig
}

// NewNeo4jBackend creates a Neo4j backend instance and verifies connectivity.
func NewNeo4jBackend(ctx context.Context, uri, username, password, database string) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jBackend{
		driver:   driver,
		database: database,
		batch:    DefaultBatchConfig(),
	}, nil
}

// CreateNode creates or updates a single node using idempotent MERGE.
func (n *Neo4jBackend) CreateNode(ctx context.Context, node GraphNode) (string, error) {
	builder := NewCypherBuilder()
	cypher, err := builder.BuildMergeNode(node.Label, "id", node.Properties["id"], node.Properties)
	if err != nil {
		return "", fmt.Errorf("failed to build node query: %w", err)
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return "", fmt.Errorf("failed to create node: %w", err)
	}

	if len(result.Records) > 0 {
		if id, ok := result.Records[0].Get("id"); ok {
			return fmt.Sprintf("%v", id), nil
		}
	}
	return "", nil
}

// CreateNodes creates or updates nodes in batch, grouped by label, using the
// UNWIND pattern for minimal round trips.
func (n *Neo4jBackend) CreateNodes(ctx context.Context, nodes []GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}

	nodesByLabel := make(map[string][]GraphNode)
	for _, node := range nodes {
		nodesByLabel[node.Label] = append(nodesByLabel[node.Label], node)
	}

	creator := NewBatchNodeCreator(n.driver, n.database, n.batch)
	for label, labelNodes := range nodesByLabel {
		if err := creator.CreateNodesByLabel(ctx, label, labelNodes); err != nil {
			return fmt.Errorf("failed to create %s nodes: %w", label, err)
		}
	}
	return nil
}

// CreateEdge creates a single edge using idempotent MERGE.
func (n *Neo4jBackend) CreateEdge(ctx context.Context, edge GraphEdge) error {
	builder := NewCypherBuilder()
	cypher, err := builder.BuildMergeEdge(
		edge.FromLabel, "id", edge.FromID,
		edge.ToLabel, "id", edge.ToID,
		edge.Label,
		edge.Properties,
	)
	if err != nil {
		return fmt.Errorf("failed to build edge query: %w", err)
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, cypher,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return fmt.Errorf("failed to create edge %s %s->%s: %w", edge.Label, edge.FromID, edge.ToID, err)
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("edge creation returned no results (endpoint missing): %s %s->%s", edge.Label, edge.FromID, edge.ToID)
	}
	return nil
}

// CreateEdges creates edges in batch, grouped by type.
func (n *Neo4jBackend) CreateEdges(ctx context.Context, edges []GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	creator := NewBatchNodeCreator(n.driver, n.database, n.batch)
	return creator.CreateEdgesBatch(ctx, edges)
}

// DeleteNodesByProperty detaches and deletes nodes matching label+property.
func (n *Neo4jBackend) DeleteNodesByProperty(ctx context.Context, label, property string, values []string) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	if !isValidIdentifier(label) || !isValidIdentifier(property) {
		return 0, fmt.Errorf("invalid label/property for delete: %s/%s", label, property)
	}

	query := fmt.Sprintf(`
		UNWIND $values AS v
		MATCH (n:%s {%s: v})
		DETACH DELETE n
		RETURN count(n) as deleted
	`, label, property)

	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		map[string]any{"values": values},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return 0, fmt.Errorf("delete by %s.%s failed: %w", label, property, err)
	}

	var deleted int64
	if len(result.Records) > 0 {
		if v, ok := result.Records[0].Get("deleted"); ok {
			deleted, _ = v.(int64)
		}
	}
	return deleted, nil
}

// DeleteFileSubtree removes a File node and everything it CONTAINS
// (transitively, up to Class->Function), mirroring ClearRepository's subtree
// walk but scoped to a single file.
func (n *Neo4jBackend) DeleteFileSubtree(ctx context.Context, fileID string) (int64, error) {
	query := `
		MATCH (f:File {id: $file_id})
		OPTIONAL MATCH (f)-[:CONTAINS*0..2]->(child)
		WITH collect(DISTINCT f) + collect(DISTINCT child) AS nodes
		UNWIND nodes AS n
		WITH DISTINCT n
		DETACH DELETE n
		RETURN count(n) as deleted
	`
	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		map[string]any{"file_id": fileID},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return 0, fmt.Errorf("delete file subtree %s failed: %w", fileID, err)
	}

	var deleted int64
	if len(result.Records) > 0 {
		if v, ok := result.Records[0].Get("deleted"); ok {
			deleted, _ = v.(int64)
		}
	}
	return deleted, nil
}

// ClearRepository removes every node tagged with repository (spec §6 `clear`).
func (n *Neo4jBackend) ClearRepository(ctx context.Context, repository string, preserveSchema bool) (int64, error) {
	query := `
		MATCH (f:File {repository: $repository})
		OPTIONAL MATCH (f)-[:CONTAINS*0..2]->(child)
		WITH collect(DISTINCT f) + collect(DISTINCT child) AS nodes
		UNWIND nodes AS n
		WITH DISTINCT n
		DETACH DELETE n
		RETURN count(n) as deleted
	`
	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		map[string]any{"repository": repository},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return 0, fmt.Errorf("clear repository %s failed: %w", repository, err)
	}

	var deleted int64
	if len(result.Records) > 0 {
		if v, ok := result.Records[0].Get("deleted"); ok {
			deleted, _ = v.(int64)
		}
	}

	if !preserveSchema {
		if err := n.dropSchema(ctx); err != nil {
			return deleted, fmt.Errorf("drop schema failed: %w", err)
		}
	}
	return deleted, nil
}

// EnsureSchema creates the constraints/indexes spec §4.3 names: a uniqueness
// constraint on `id` for every entity label, composite indexes on
// Function (name, file_id) and (name, class_id), Class (name, file_id),
// CallSite (call_name, call_module) and ImportSite (import_name,
// module_name), plus a File (repository, path) index and single-property
// name indexes for the PlaceholderResolver's by-name lookups.
func (n *Neo4jBackend) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT file_id IF NOT EXISTS FOR (f:File) REQUIRE f.id IS UNIQUE",
		"CREATE CONSTRAINT class_id IF NOT EXISTS FOR (c:Class) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT function_id IF NOT EXISTS FOR (fn:Function) REQUIRE fn.id IS UNIQUE",
		"CREATE CONSTRAINT callsite_id IF NOT EXISTS FOR (cs:CallSite) REQUIRE cs.id IS UNIQUE",
		"CREATE CONSTRAINT importsite_id IF NOT EXISTS FOR (is:ImportSite) REQUIRE is.id IS UNIQUE",
		"CREATE INDEX file_repo_path IF NOT EXISTS FOR (f:File) ON (f.repository, f.path)",
		"CREATE INDEX function_name IF NOT EXISTS FOR (fn:Function) ON (fn.name)",
		"CREATE INDEX class_name IF NOT EXISTS FOR (c:Class) ON (c.name)",
		"CREATE INDEX callsite_name IF NOT EXISTS FOR (cs:CallSite) ON (cs.call_name)",
		"CREATE INDEX function_name_file IF NOT EXISTS FOR (fn:Function) ON (fn.name, fn.file_id)",
		"CREATE INDEX function_name_class IF NOT EXISTS FOR (fn:Function) ON (fn.name, fn.class_id)",
		"CREATE INDEX class_name_file IF NOT EXISTS FOR (c:Class) ON (c.name, c.file_id)",
		"CREATE INDEX callsite_name_module IF NOT EXISTS FOR (cs:CallSite) ON (cs.call_name, cs.call_module)",
		"CREATE INDEX importsite_name_module IF NOT EXISTS FOR (i:ImportSite) ON (i.import_name, i.module_name)",
	}

	for _, stmt := range statements {
		if _, err := neo4j.ExecuteQuery(ctx, n.driver, stmt, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(n.database)); err != nil {
			return fmt.Errorf("schema statement failed (%q): %w", stmt, err)
		}
	}
	return nil
}

func (n *Neo4jBackend) dropSchema(ctx context.Context) error {
	constraints := []string{"file_id", "class_id", "function_id", "callsite_id", "importsite_id"}
	for _, name := range constraints {
		stmt := fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", name)
		if _, err := neo4j.ExecuteQuery(ctx, n.driver, stmt, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(n.database)); err != nil {
			return err
		}
	}
	indexes := []string{"file_repo_path", "function_name", "class_name", "callsite_name",
		"function_name_file", "function_name_class", "class_name_file", "callsite_name_module", "importsite_name_module"}
	for _, name := range indexes {
		stmt := fmt.Sprintf("DROP INDEX %s IF EXISTS", name)
		if _, err := neo4j.ExecuteQuery(ctx, n.driver, stmt, nil,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(n.database)); err != nil {
			return err
		}
	}
	return nil
}

// Query executes a parameterized read query and returns decoded records.
func (n *Neo4jBackend) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	results := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		row := make(map[string]any)
		for _, key := range record.Keys {
			if value, ok := record.Get(key); ok {
				row[key] = value
			}
		}
		results = append(results, row)
	}
	return results, nil
}

// Close closes the Neo4j driver connection.
func (n *Neo4jBackend) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}
