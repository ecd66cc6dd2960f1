// Package resolver implements the PlaceholderResolver (spec §4.4): it turns
// the per-file local view the Parser produced into a globally consistent
// call graph by resolving CallSite and ImportSite placeholders against the
// Function/Class/File nodes the GraphWriter has written.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/coderisk/codegraph/internal/graph"
	"github.com/coderisk/codegraph/internal/model"
)

// Strategy selects how candidate Functions/Files are looked up (spec §4.4).
// All three must agree on scoring and tie-break; only the index-building
// differs, so Resolve's body is strategy-independent and strategies only
// implement candidateIndex.
type Strategy string

const (
	StrategyJoin    Strategy = "join"
	StrategyHashmap Strategy = "hashmap"
	StrategySharded Strategy = "sharded"
)

// Mode selects when placeholders are resolved (spec §4.4).
type Mode string

const (
	ModeImmediate Mode = "immediate" // recorded only; the pipeline resolves after all writes in either mode
	ModeBulk      Mode = "bulk"      // defer until every file in the run is written
)

// FunctionRef is the minimal candidate shape a resolution strategy indexes:
// enough to score and tie-break without round-tripping full node properties.
type FunctionRef struct {
	ID        string
	Name      string
	FileID    string
	ClassID   string // "" for free functions
	ClassName string // name of the containing class, "" for free functions
	StartLine int
}

// FileRef is the minimal candidate shape for ImportSite resolution against Files.
type FileRef struct {
	ID   string
	Path string
}

// candidateIndex is what differs between join/hashmap/sharded: how
// Function/Class/File candidates matching a name are found. Resolve's
// scoring and tie-break logic is identical regardless of which one is used.
type candidateIndex interface {
	// FunctionsNamed returns every Function candidate with the given name.
	FunctionsNamed(ctx context.Context, name string) ([]FunctionRef, error)
	// FunctionsInClass returns every Function candidate with the given name
	// contained by the class named className.
	FunctionsInClass(ctx context.Context, name, className string) ([]FunctionRef, error)
	// FileByPath returns the File whose path is consistent with the given
	// dotted-name-derived module path (spec §4.4: extension-agnostic, and
	// matching a package's __init__-style file), if any.
	FileByPath(ctx context.Context, modPath string) (*FileRef, error)
	// ClassesNamed returns every Class candidate with the given name, along
	// with the path of the File that contains it (for dotted-name matching).
	ClassesNamed(ctx context.Context, name string) ([]ClassRef, error)
}

// ClassRef is the minimal candidate shape for ImportSite "from M import N" resolution.
type ClassRef struct {
	ID       string
	Name     string
	FileID   string
	FilePath string
}

// ImportRef is the minimal shape of an ImportSite in the same caller file,
// used to resolve attribute calls whose call_module is an imported alias.
type ImportRef struct {
	ImportName string // the local name the call_module is matched against
	ModuleName string
}

// importIndex looks up every ImportSite declared in a given file, so
// attribute-call resolution (score 0.80) can match cs.call_module against
// an ImportSite's import_name.
type importIndex interface {
	ImportsInFile(ctx context.Context, fileID string) ([]ImportRef, error)
}

// Resolver resolves CallSite and ImportSite placeholders (spec §4.4).
type Resolver struct {
	writer   *graph.Writer
	index    candidateIndex
	imports  importIndex
	mode     Mode
	strategy Strategy
	log      *logrus.Entry
}

// New builds a Resolver for the given strategy, backed by backend for
// whichever index-building queries that strategy needs.
func New(ctx context.Context, backend graph.Backend, writer *graph.Writer, strategy Strategy, mode Mode, shards int, log *logrus.Entry) (*Resolver, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var idx candidateIndex
	var imp importIndex
	switch strategy {
	case StrategyJoin:
		idx = newJoinIndex(backend)
		imp = idx.(*joinIndex)
	case StrategyHashmap:
		hi, err := newHashmapIndex(ctx, backend)
		if err != nil {
			return nil, fmt.Errorf("build hashmap index: %w", err)
		}
		idx = hi
		imp = hi
	case StrategySharded:
		si, err := newShardedIndex(ctx, backend, shards)
		if err != nil {
			return nil, fmt.Errorf("build sharded index: %w", err)
		}
		idx = si
		imp = si
	default:
		return nil, fmt.Errorf("unknown resolution strategy: %q", strategy)
	}

	return &Resolver{writer: writer, index: idx, imports: imp, mode: mode, strategy: strategy, log: log}, nil
}

// Mode reports the resolution mode this Resolver was configured with.
func (r *Resolver) Mode() Mode { return r.mode }

// candidate is a scored Function match, kept internal to Resolve's tie-break.
type candidate struct {
	fn    FunctionRef
	score float64
}

// ResolveCallSite scores every candidate Function against cs per spec §4.4's
// authoritative rules, picks the best (breaking ties deterministically), and
// persists the RESOLVES_TO edge via the Writer. Leaves cs unresolved (no
// error) if no candidate scores.
func (r *Resolver) ResolveCallSite(ctx context.Context, cs *model.CallSite) error {
	var candidates []candidate

	if cs.IsAttributeCall && cs.CallModule != "" {
		// Rule 1: call_module names a Class that CONTAINS a matching Function. Score 1.00.
		inClass, err := r.index.FunctionsInClass(ctx, cs.CallName, cs.CallModule)
		if err != nil {
			return fmt.Errorf("lookup functions in class %s: %w", cs.CallModule, err)
		}
		for _, fn := range inClass {
			candidates = append(candidates, candidate{fn: fn, score: 1.00})
		}

		// Rule 2: call_module matches an ImportSite's import_name in the
		// caller's file, and a Function with that name exists. Score 0.80.
		if len(candidates) == 0 {
			imports, err := r.imports.ImportsInFile(ctx, cs.CallerFileID)
			if err != nil {
				return fmt.Errorf("lookup imports in file %s: %w", cs.CallerFileID, err)
			}
			imported := false
			for _, im := range imports {
				if im.ImportName == cs.CallModule {
					imported = true
					break
				}
			}
			if imported {
				named, err := r.index.FunctionsNamed(ctx, cs.CallName)
				if err != nil {
					return fmt.Errorf("lookup functions named %s: %w", cs.CallName, err)
				}
				for _, fn := range named {
					candidates = append(candidates, candidate{fn: fn, score: 0.80})
				}
			}
		}
	} else {
		named, err := r.index.FunctionsNamed(ctx, cs.CallName)
		if err != nil {
			return fmt.Errorf("lookup functions named %s: %w", cs.CallName, err)
		}
		for _, fn := range named {
			if fn.FileID == cs.CallerFileID {
				candidates = append(candidates, candidate{fn: fn, score: 1.00}) // Rule 3: same file
			} else {
				candidates = append(candidates, candidate{fn: fn, score: 0.70}) // Rule 4: cross file
			}
		}
	}

	if len(candidates) == 0 {
		return nil // unresolved is a normal state (spec §4.4), not an error
	}

	best := pickBest(candidates, cs)
	if err := r.writer.WriteResolution(ctx, "CallSite", cs.ID, "Function", best.fn.ID, best.score); err != nil {
		return fmt.Errorf("write resolution for call site %s: %w", cs.ID, err)
	}
	cs.ResolvedFunctionID = best.fn.ID
	cs.Score = best.score
	return nil
}

// pickBest selects the highest-scoring candidate, breaking ties per spec
// §4.4: (1) same file wins; (2) smaller start_line distance wins; (3) lowest
// id lexicographically.
func pickBest(candidates []candidate, cs *model.CallSite) candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		aSame, bSame := a.fn.FileID == cs.CallerFileID, b.fn.FileID == cs.CallerFileID
		if aSame != bSame {
			return aSame
		}
		if aSame && bSame {
			aDist, bDist := abs(a.fn.StartLine-cs.StartLine), abs(b.fn.StartLine-cs.StartLine)
			if aDist != bDist {
				return aDist < bDist
			}
		}
		return a.fn.ID < b.fn.ID
	})
	return candidates[0]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ResolveImportSite resolves an ImportSite per spec §4.4's rules: a plain
// "import X" resolves to a File by path; "from M import N" resolves N
// against a Class named N whose containing File path is consistent with M.
func (r *Resolver) ResolveImportSite(ctx context.Context, is *model.ImportSite) error {
	if !is.IsFromImport {
		f, err := r.index.FileByPath(ctx, modulePathFromDottedName(is.ImportName))
		if err != nil {
			return fmt.Errorf("lookup file for import %s: %w", is.ImportName, err)
		}
		if f == nil {
			return nil
		}
		if err := r.writer.WriteResolution(ctx, "ImportSite", is.ID, "File", f.ID, 1.0); err != nil {
			return fmt.Errorf("write resolution for import site %s: %w", is.ID, err)
		}
		is.ResolvedKind, is.ResolvedID, is.Score = "File", f.ID, 1.0
		return nil
	}

	classes, err := r.index.ClassesNamed(ctx, is.ImportName)
	if err != nil {
		return fmt.Errorf("lookup classes named %s: %w", is.ImportName, err)
	}
	if len(classes) == 0 {
		return nil
	}

	wantPath := modulePathFromDottedName(is.ModuleName)
	var best *ClassRef
	bestScore := 0.0
	for i, c := range classes {
		score := 0.7
		if wantPath != "" && pathConsistentWithModule(c.FilePath, wantPath) {
			score = 1.0
		}
		if best == nil || score > bestScore || (score == bestScore && c.ID < best.ID) {
			best = &classes[i]
			bestScore = score
		}
	}

	if err := r.writer.WriteResolution(ctx, "ImportSite", is.ID, "Class", best.ID, bestScore); err != nil {
		return fmt.Errorf("write resolution for import site %s: %w", is.ID, err)
	}
	is.ResolvedKind, is.ResolvedID, is.Score = "Class", best.ID, bestScore
	return nil
}

// modulePathFromDottedName turns "pkg.sub.mod" into "pkg/sub/mod", the
// dotted-name-to-path convention spec §4.4 resolves imports against.
func modulePathFromDottedName(dotted string) string {
	out := make([]byte, 0, len(dotted))
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			out = append(out, '/')
		} else {
			out = append(out, dotted[i])
		}
	}
	return string(out)
}

// pathConsistentWithModule reports whether filePath plausibly implements
// module path modPath: filePath ends, on a path-segment boundary, in either
// "<modPath>.<ext>" or a "<modPath>/__init__.<ext>"-style package layout.
func pathConsistentWithModule(filePath, modPath string) bool {
	if len(filePath) <= len(modPath) {
		return false
	}
	withoutExt := stripExt(filePath)
	if withoutExt == modPath {
		return true
	}
	suffix := modPath + "/__init__"
	return hasSuffixPath(withoutExt, suffix) || hasSuffixPath(withoutExt, modPath)
}

func stripExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

func hasSuffixPath(path, suffix string) bool {
	if len(path) < len(suffix) {
		return false
	}
	if path[len(path)-len(suffix):] != suffix {
		return false
	}
	cut := len(path) - len(suffix)
	return cut == 0 || path[cut-1] == '/'
}

// modPathPrefix returns the first path segment of a module path, used to
// narrow a graph-query candidate set before the extension-agnostic
// pathConsistentWithModule filter runs in-process.
func modPathPrefix(modPath string) string {
	for i := 0; i < len(modPath); i++ {
		if modPath[i] == '/' {
			return modPath[:i]
		}
	}
	return modPath
}

// selectFileConsistentWithModule picks the shortest-path candidate whose
// path is consistent with modPath (spec §4.4's dotted-name-to-path match).
func selectFileConsistentWithModule(candidates []FileRef, modPath string) *FileRef {
	var best *FileRef
	for i, c := range candidates {
		if !pathConsistentWithModule(c.Path, modPath) {
			continue
		}
		if best == nil || len(c.Path) < len(best.Path) {
			best = &candidates[i]
		}
	}
	return best
}
