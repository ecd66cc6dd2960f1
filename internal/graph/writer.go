package graph

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coderisk/codegraph/internal/model"
)

// WriteStats tracks a GraphWriter call's effect on the graph.
type WriteStats struct {
	FilesWritten       int
	ClassesWritten     int
	FunctionsWritten   int
	CallSitesWritten   int
	ImportSitesWritten int
	EdgesWritten       int
}

// Writer is the GraphWriter (spec §4.3): it idempotently upserts the
// entities and placeholders a ParsedFile produces, and removes a file's
// previous contents on re-ingestion or deletion.
type Writer struct {
	backend Backend
	log     *logrus.Entry
}

// NewWriter creates a GraphWriter over the given backend.
func NewWriter(backend Backend, log *logrus.Entry) *Writer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Writer{backend: backend, log: log}
}

// EnsureSchema creates constraints/indexes once per run (spec §4.3).
func (w *Writer) EnsureSchema(ctx context.Context) error {
	return w.backend.EnsureSchema(ctx)
}

// WriteFile replaces one File's contents: it first deletes the File node
// with this id and everything it CONTAINS (spec §4.3, so a re-write never
// leaves a removed method/class behind as a ghost node), then writes the
// fresh File, its Classes, Functions, CallSites, and ImportSites, plus the
// CONTAINS edges linking File->Class, File->Function (free functions),
// Class->Function (methods), File->CallSite, and File->ImportSite. It
// writes no INHERITS_FROM edges; WriteInheritsFrom writes those, and no
// pipeline stage calls it.
func (w *Writer) WriteFile(ctx context.Context, file *model.File, classes []*model.Class, functions []*model.Function, callSites []*model.CallSite, importSites []*model.ImportSite) (*WriteStats, error) {
	stats := &WriteStats{}

	if _, err := w.backend.DeleteFileSubtree(ctx, file.ID); err != nil {
		return stats, fmt.Errorf("delete prior subtree for %s: %w", file.Path, err)
	}

	fileNode := GraphNode{Label: "File", Properties: fileProperties(file)}
	if _, err := w.backend.CreateNode(ctx, fileNode); err != nil {
		return stats, fmt.Errorf("write file %s: %w", file.Path, err)
	}
	stats.FilesWritten = 1

	var classNodes, funcNodes, callNodes, importNodes []GraphNode
	var edges []GraphEdge

	for _, c := range classes {
		classNodes = append(classNodes, GraphNode{Label: "Class", Properties: classProperties(c)})
		edges = append(edges, GraphEdge{
			Label: "CONTAINS", FromLabel: "File", FromID: file.ID, ToLabel: "Class", ToID: c.ID,
		})
	}

	for _, fn := range functions {
		funcNodes = append(funcNodes, GraphNode{Label: "Function", Properties: functionProperties(fn)})
		if fn.ClassID != "" {
			edges = append(edges, GraphEdge{
				Label: "CONTAINS", FromLabel: "Class", FromID: fn.ClassID, ToLabel: "Function", ToID: fn.ID,
			})
		} else {
			edges = append(edges, GraphEdge{
				Label: "CONTAINS", FromLabel: "File", FromID: file.ID, ToLabel: "Function", ToID: fn.ID,
			})
		}
	}

	for _, cs := range callSites {
		callNodes = append(callNodes, GraphNode{Label: "CallSite", Properties: callSiteProperties(cs)})
		edges = append(edges, GraphEdge{
			Label: "CONTAINS", FromLabel: "File", FromID: file.ID, ToLabel: "CallSite", ToID: cs.ID,
		})
	}

	for _, is := range importSites {
		importNodes = append(importNodes, GraphNode{Label: "ImportSite", Properties: importSiteProperties(is)})
		edges = append(edges, GraphEdge{
			Label: "CONTAINS", FromLabel: "File", FromID: file.ID, ToLabel: "ImportSite", ToID: is.ID,
		})
	}

	if err := w.backend.CreateNodes(ctx, classNodes); err != nil {
		return stats, fmt.Errorf("write classes for %s: %w", file.Path, err)
	}
	stats.ClassesWritten = len(classNodes)

	if err := w.backend.CreateNodes(ctx, funcNodes); err != nil {
		return stats, fmt.Errorf("write functions for %s: %w", file.Path, err)
	}
	stats.FunctionsWritten = len(funcNodes)

	if err := w.backend.CreateNodes(ctx, callNodes); err != nil {
		return stats, fmt.Errorf("write call sites for %s: %w", file.Path, err)
	}
	stats.CallSitesWritten = len(callNodes)

	if err := w.backend.CreateNodes(ctx, importNodes); err != nil {
		return stats, fmt.Errorf("write import sites for %s: %w", file.Path, err)
	}
	stats.ImportSitesWritten = len(importNodes)

	if err := w.backend.CreateEdges(ctx, edges); err != nil {
		return stats, fmt.Errorf("write contains edges for %s: %w", file.Path, err)
	}
	stats.EdgesWritten = len(edges)

	w.log.WithFields(logrus.Fields{
		"file":       file.Path,
		"classes":    stats.ClassesWritten,
		"functions":  stats.FunctionsWritten,
		"call_sites": stats.CallSitesWritten,
		"imports":    stats.ImportSitesWritten,
	}).Debug("wrote file to graph")

	return stats, nil
}

// DeleteFile removes a File and everything it CONTAINS (spec §4.3: a
// deleted or renamed file takes its whole subtree with it). Any CallSite or
// ImportSite elsewhere that RESOLVES_TO something in this subtree becomes
// unresolved again; the next resolve pass will either re-resolve or leave it
// dangling, per spec §4.4.
func (w *Writer) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := w.backend.DeleteFileSubtree(ctx, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// ClearRepository removes the entire graph for a repository (spec §6 `clear`).
func (w *Writer) ClearRepository(ctx context.Context, repository string, preserveSchema bool) (int64, error) {
	return w.backend.ClearRepository(ctx, repository, preserveSchema)
}

// WriteResolution persists a CallSite or ImportSite's resolution: updates
// the placeholder's resolved_* properties and writes its RESOLVES_TO edge to
// the target entity (spec §4.4). targetLabel is "Function" for a resolved
// CallSite, "File" or "Class" for a resolved ImportSite.
func (w *Writer) WriteResolution(ctx context.Context, placeholderLabel, placeholderID, targetLabel, targetID string, score float64) error {
	node := GraphNode{
		Label: placeholderLabel,
		Properties: map[string]any{
			"id":    placeholderID,
			"score": score,
		},
	}
	resolvedIDKey := "resolved_function_id"
	if placeholderLabel == "ImportSite" {
		resolvedIDKey = "resolved_id"
		node.Properties["resolved_kind"] = targetLabel
	}
	node.Properties[resolvedIDKey] = targetID

	if _, err := w.backend.CreateNode(ctx, node); err != nil {
		return fmt.Errorf("update resolution on %s %s: %w", placeholderLabel, placeholderID, err)
	}

	edge := GraphEdge{
		Label:      "RESOLVES_TO",
		FromLabel:  placeholderLabel,
		FromID:     placeholderID,
		ToLabel:    targetLabel,
		ToID:       targetID,
		Properties: map[string]any{"score": score},
	}
	if err := w.backend.CreateEdge(ctx, edge); err != nil {
		return fmt.Errorf("write RESOLVES_TO edge %s->%s: %w", placeholderID, targetID, err)
	}
	return nil
}

// WriteInheritsFrom writes an INHERITS_FROM edge once a Class's base-class
// identifier has been resolved to a concrete Class node (spec §3).
func (w *Writer) WriteInheritsFrom(ctx context.Context, classID, baseClassID string) error {
	return w.backend.CreateEdge(ctx, GraphEdge{
		Label: "INHERITS_FROM", FromLabel: "Class", FromID: classID, ToLabel: "Class", ToID: baseClassID,
	})
}

func fileProperties(f *model.File) map[string]any {
	return map[string]any{
		"id":             f.ID,
		"path":           f.Path,
		"name":           f.Name,
		"language":       f.Language,
		"repository":     f.Repository,
		"repository_url": f.RepositoryURL,
		"commit":         f.Commit,
		"branch":         f.Branch,
		"last_updated":   f.LastUpdated.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func classProperties(c *model.Class) map[string]any {
	props := map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"file_id":    c.FileID,
		"start_line": c.StartLine,
		"end_line":   c.EndLine,
	}
	if c.Docstring != "" {
		props["docstring"] = c.Docstring
	}
	if len(c.Bases) > 0 {
		props["bases"] = c.Bases
	}
	return props
}

func functionProperties(fn *model.Function) map[string]any {
	props := map[string]any{
		"id":         fn.ID,
		"name":       fn.Name,
		"file_id":    fn.FileID,
		"start_line": fn.StartLine,
		"end_line":   fn.EndLine,
		"start_byte": fn.StartByte,
		"end_byte":   fn.EndByte,
		"is_method":  fn.IsMethod,
	}
	if fn.ClassID != "" {
		props["class_id"] = fn.ClassID
	}
	if len(fn.Params) > 0 {
		props["params"] = fn.Params
	}
	if fn.Docstring != "" {
		props["docstring"] = fn.Docstring
	}
	return props
}

func callSiteProperties(cs *model.CallSite) map[string]any {
	props := map[string]any{
		"id":                cs.ID,
		"caller_file_id":    cs.CallerFileID,
		"call_name":         cs.CallName,
		"start_line":        cs.StartLine,
		"start_col":         cs.StartCol,
		"end_line":          cs.EndLine,
		"end_col":           cs.EndCol,
		"is_attribute_call": cs.IsAttributeCall,
	}
	if cs.CallerFunctionID != "" {
		props["caller_function_id"] = cs.CallerFunctionID
	}
	if cs.CallerClassID != "" {
		props["caller_class_id"] = cs.CallerClassID
	}
	if cs.CallModule != "" {
		props["call_module"] = cs.CallModule
	}
	if cs.Resolved() {
		props["resolved_function_id"] = cs.ResolvedFunctionID
		props["score"] = cs.Score
	}
	return props
}

func importSiteProperties(is *model.ImportSite) map[string]any {
	props := map[string]any{
		"id":             is.ID,
		"file_id":        is.FileID,
		"import_name":    is.ImportName,
		"is_from_import": is.IsFromImport,
		"start_line":     is.StartLine,
	}
	if is.ModuleName != "" {
		props["module_name"] = is.ModuleName
	}
	if is.Alias != "" {
		props["alias"] = is.Alias
	}
	if is.Resolved() {
		props["resolved_kind"] = is.ResolvedKind
		props["resolved_id"] = is.ResolvedID
		props["score"] = is.Score
	}
	return props
}
