package resolver

import (
	"context"
	"fmt"

	"github.com/coderisk/codegraph/internal/graph"
)

// hashmapIndex is the *hashmap* strategy (spec §4.4): builds an in-process
// index of (name, file_id) and (name, class_name) tuples once, then resolves
// each placeholder in O(1) expected. Appropriate for 2-5M definitions, where
// per-lookup graph round trips dominate but the whole index still fits in
// process memory.
type hashmapIndex struct {
	byName      map[string][]FunctionRef
	byClassName map[string]map[string][]FunctionRef // class name -> function name -> refs
	filesByPath map[string]FileRef
	classByName map[string][]ClassRef
	importsByFile map[string][]ImportRef
}

func newHashmapIndex(ctx context.Context, backend graph.Backend) (*hashmapIndex, error) {
	idx := &hashmapIndex{
		byName:        make(map[string][]FunctionRef),
		byClassName:   make(map[string]map[string][]FunctionRef),
		filesByPath:   make(map[string]FileRef),
		classByName:   make(map[string][]ClassRef),
		importsByFile: make(map[string][]ImportRef),
	}

	fnRows, err := backend.Query(ctx, `
		MATCH (f:Function)
		OPTIONAL MATCH (c:Class)-[:CONTAINS]->(f)
		RETURN f.id AS id, f.name AS name, f.file_id AS file_id,
		       coalesce(f.class_id, "") AS class_id, coalesce(c.name, "") AS class_name,
		       f.start_line AS start_line
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load functions for hashmap index: %w", err)
	}
	for _, ref := range rowsToFunctionRefs(fnRows) {
		idx.byName[ref.Name] = append(idx.byName[ref.Name], ref)
		if ref.ClassName != "" {
			if idx.byClassName[ref.ClassName] == nil {
				idx.byClassName[ref.ClassName] = make(map[string][]FunctionRef)
			}
			idx.byClassName[ref.ClassName][ref.Name] = append(idx.byClassName[ref.ClassName][ref.Name], ref)
		}
	}

	fileRows, err := backend.Query(ctx, `MATCH (f:File) RETURN f.id AS id, f.path AS path`, nil)
	if err != nil {
		return nil, fmt.Errorf("load files for hashmap index: %w", err)
	}
	for _, row := range fileRows {
		path := asString(row["path"])
		idx.filesByPath[path] = FileRef{ID: asString(row["id"]), Path: path}
	}

	classRows, err := backend.Query(ctx, `
		MATCH (f:File)-[:CONTAINS]->(c:Class)
		RETURN c.id AS id, c.name AS name, c.file_id AS file_id, f.path AS file_path
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load classes for hashmap index: %w", err)
	}
	for _, row := range classRows {
		name := asString(row["name"])
		idx.classByName[name] = append(idx.classByName[name], ClassRef{
			ID: asString(row["id"]), Name: name, FileID: asString(row["file_id"]), FilePath: asString(row["file_path"]),
		})
	}

	importRows, err := backend.Query(ctx, `
		MATCH (f:File)-[:CONTAINS]->(i:ImportSite)
		RETURN f.id AS file_id, i.import_name AS import_name, coalesce(i.module_name, "") AS module_name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load imports for hashmap index: %w", err)
	}
	for _, row := range importRows {
		fileID := asString(row["file_id"])
		idx.importsByFile[fileID] = append(idx.importsByFile[fileID], ImportRef{
			ImportName: asString(row["import_name"]), ModuleName: asString(row["module_name"]),
		})
	}

	return idx, nil
}

func (h *hashmapIndex) FunctionsNamed(ctx context.Context, name string) ([]FunctionRef, error) {
	return h.byName[name], nil
}

func (h *hashmapIndex) FunctionsInClass(ctx context.Context, name, className string) ([]FunctionRef, error) {
	byFn, ok := h.byClassName[className]
	if !ok {
		return nil, nil
	}
	return byFn[name], nil
}

func (h *hashmapIndex) FileByPath(ctx context.Context, modPath string) (*FileRef, error) {
	candidates := make([]FileRef, 0, len(h.filesByPath))
	for _, ref := range h.filesByPath {
		candidates = append(candidates, ref)
	}
	return selectFileConsistentWithModule(candidates, modPath), nil
}

func (h *hashmapIndex) ClassesNamed(ctx context.Context, name string) ([]ClassRef, error) {
	return h.classByName[name], nil
}

func (h *hashmapIndex) ImportsInFile(ctx context.Context, fileID string) ([]ImportRef, error) {
	return h.importsByFile[fileID], nil
}
