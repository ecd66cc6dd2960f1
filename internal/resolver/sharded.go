package resolver

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"

	"github.com/coderisk/codegraph/internal/graph"
)

// shardedIndex is the *sharded* strategy (spec §4.4): partitions Functions
// into sub-indices keyed by a hash of the whole function name (not by a
// name prefix), for >5M definitions where a single
// in-process hashmap index would be too large to build or rebuild cheaply.
// Each shard keeps a Roaring bitmap of the Function node-id hashes it owns;
// the lookups below read the shard's byName map and do not consult it.
type shardedIndex struct {
	shards []*shard
	// these three are small enough in every repository this pipeline targets
	// that they are not worth sharding; only the Function index grows
	// unbounded with repository size.
	filesByPath   map[string]FileRef
	classByName   map[string][]ClassRef
	importsByFile map[string][]ImportRef
}

type shard struct {
	owned  *roaring.Bitmap
	byName map[string][]FunctionRef
}

func shardFor(name string, numShards int) int {
	if numShards <= 0 {
		numShards = 1
	}
	return int(xxhash.Sum64String(name) % uint64(numShards))
}

func newShardedIndex(ctx context.Context, backend graph.Backend, numShards int) (*shardedIndex, error) {
	if numShards <= 0 {
		numShards = 16
	}
	idx := &shardedIndex{
		shards:        make([]*shard, numShards),
		filesByPath:   make(map[string]FileRef),
		classByName:   make(map[string][]ClassRef),
		importsByFile: make(map[string][]ImportRef),
	}
	for i := range idx.shards {
		idx.shards[i] = &shard{owned: roaring.New(), byName: make(map[string][]FunctionRef)}
	}

	fnRows, err := backend.Query(ctx, `
		MATCH (f:Function)
		OPTIONAL MATCH (c:Class)-[:CONTAINS]->(f)
		RETURN f.id AS id, f.name AS name, f.file_id AS file_id,
		       coalesce(f.class_id, "") AS class_id, coalesce(c.name, "") AS class_name,
		       f.start_line AS start_line
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load functions for sharded index: %w", err)
	}
	for _, ref := range rowsToFunctionRefs(fnRows) {
		s := idx.shards[shardFor(ref.Name, numShards)]
		s.byName[ref.Name] = append(s.byName[ref.Name], ref)
		s.owned.Add(uint32(xxhash.Sum64String(ref.ID)))
	}

	fileRows, err := backend.Query(ctx, `MATCH (f:File) RETURN f.id AS id, f.path AS path`, nil)
	if err != nil {
		return nil, fmt.Errorf("load files for sharded index: %w", err)
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
		return nil, fmt.Errorf("load classes for sharded index: %w", err)
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
		return nil, fmt.Errorf("load imports for sharded index: %w", err)
	}
	for _, row := range importRows {
		fileID := asString(row["file_id"])
		idx.importsByFile[fileID] = append(idx.importsByFile[fileID], ImportRef{
			ImportName: asString(row["import_name"]), ModuleName: asString(row["module_name"]),
		})
	}

	return idx, nil
}

func (s *shardedIndex) FunctionsNamed(ctx context.Context, name string) ([]FunctionRef, error) {
	shard := s.shards[shardFor(name, len(s.shards))]
	return shard.byName[name], nil
}

func (s *shardedIndex) FunctionsInClass(ctx context.Context, name, className string) ([]FunctionRef, error) {
	all, _ := s.FunctionsNamed(ctx, name)
	out := make([]FunctionRef, 0, len(all))
	for _, fn := range all {
		if fn.ClassName == className {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (s *shardedIndex) FileByPath(ctx context.Context, modPath string) (*FileRef, error) {
	candidates := make([]FileRef, 0, len(s.filesByPath))
	for _, ref := range s.filesByPath {
		candidates = append(candidates, ref)
	}
	return selectFileConsistentWithModule(candidates, modPath), nil
}

func (s *shardedIndex) ClassesNamed(ctx context.Context, name string) ([]ClassRef, error) {
	return s.classByName[name], nil
}

func (s *shardedIndex) ImportsInFile(ctx context.Context, fileID string) ([]ImportRef, error) {
	return s.importsByFile[fileID], nil
}

// ownsFunctionID reports whether shard shardIdx's bitmap claims ownership of
// a Function id. The resolver's lookups do not call it; they read each
// shard's byName map.
func (s *shardedIndex) ownsFunctionID(shardIdx int, id string) bool {
	return s.shards[shardIdx].owned.Contains(uint32(xxhash.Sum64String(id)))
}
