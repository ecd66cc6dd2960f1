package resolver

import (
	"context"
	"fmt"

	"github.com/coderisk/codegraph/internal/graph"
)

// joinIndex is the *join* strategy (spec §4.4): every lookup is a direct
// graph query, recommended for <=~2M definitions where round-trip cost is
// cheaper than maintaining an in-process index.
type joinIndex struct {
	backend graph.Backend
}

func newJoinIndex(backend graph.Backend) *joinIndex {
	return &joinIndex{backend: backend}
}

func (j *joinIndex) FunctionsNamed(ctx context.Context, name string) ([]FunctionRef, error) {
	rows, err := j.backend.Query(ctx, `
		MATCH (f:Function {name: $name})
		OPTIONAL MATCH (c:Class)-[:CONTAINS]->(f)
		RETURN f.id AS id, f.name AS name, f.file_id AS file_id,
		       coalesce(f.class_id, "") AS class_id, coalesce(c.name, "") AS class_name,
		       f.start_line AS start_line
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("query functions named %s: %w", name, err)
	}
	return rowsToFunctionRefs(rows), nil
}

func (j *joinIndex) FunctionsInClass(ctx context.Context, name, className string) ([]FunctionRef, error) {
	rows, err := j.backend.Query(ctx, `
		MATCH (c:Class {name: $class_name})-[:CONTAINS]->(f:Function {name: $name})
		RETURN f.id AS id, f.name AS name, f.file_id AS file_id,
		       coalesce(f.class_id, "") AS class_id, c.name AS class_name,
		       f.start_line AS start_line
	`, map[string]any{"name": name, "class_name": className})
	if err != nil {
		return nil, fmt.Errorf("query functions in class %s: %w", className, err)
	}
	return rowsToFunctionRefs(rows), nil
}

func (j *joinIndex) FileByPath(ctx context.Context, modPath string) (*FileRef, error) {
	rows, err := j.backend.Query(ctx, `
		MATCH (f:File) WHERE f.path STARTS WITH $prefix
		RETURN f.id AS id, f.path AS path
	`, map[string]any{"prefix": modPathPrefix(modPath)})
	if err != nil {
		return nil, fmt.Errorf("query file by path %s: %w", modPath, err)
	}
	var candidates []FileRef
	for _, row := range rows {
		candidates = append(candidates, FileRef{ID: asString(row["id"]), Path: asString(row["path"])})
	}
	return selectFileConsistentWithModule(candidates, modPath), nil
}

func (j *joinIndex) ClassesNamed(ctx context.Context, name string) ([]ClassRef, error) {
	rows, err := j.backend.Query(ctx, `
		MATCH (f:File)-[:CONTAINS]->(c:Class {name: $name})
		RETURN c.id AS id, c.name AS name, c.file_id AS file_id, f.path AS file_path
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("query classes named %s: %w", name, err)
	}
	out := make([]ClassRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, ClassRef{
			ID:       asString(row["id"]),
			Name:     asString(row["name"]),
			FileID:   asString(row["file_id"]),
			FilePath: asString(row["file_path"]),
		})
	}
	return out, nil
}

func (j *joinIndex) ImportsInFile(ctx context.Context, fileID string) ([]ImportRef, error) {
	rows, err := j.backend.Query(ctx, `
		MATCH (f:File {id: $file_id})-[:CONTAINS]->(i:ImportSite)
		RETURN i.import_name AS import_name, coalesce(i.module_name, "") AS module_name
	`, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, fmt.Errorf("query imports in file %s: %w", fileID, err)
	}
	out := make([]ImportRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, ImportRef{ImportName: asString(row["import_name"]), ModuleName: asString(row["module_name"])})
	}
	return out, nil
}

func rowsToFunctionRefs(rows []map[string]any) []FunctionRef {
	out := make([]FunctionRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, FunctionRef{
			ID:        asString(row["id"]),
			Name:      asString(row["name"]),
			FileID:    asString(row["file_id"]),
			ClassID:   asString(row["class_id"]),
			ClassName: asString(row["class_name"]),
			StartLine: asInt(row["start_line"]),
		})
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
