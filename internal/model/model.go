// Package model defines the entity and placeholder node shapes that flow
// from the Parser into the GraphWriter and PlaceholderResolver, and the
// content-derived ID scheme that makes re-ingestion idempotent.
package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// hashID returns a stable, lowercase hex id for the given tuple of fields.
// Every entity and placeholder id in this package is produced this way, so
// re-ingesting the same file at the same commit reproduces the same ids.
func hashID(parts ...string) string {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// File is the root entity owned by a repository (spec §3).
type File struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	Name           string    `json:"name"`
	Language       string    `json:"language"`
	Repository     string    `json:"repository"`
	RepositoryURL  string    `json:"repository_url"`
	Commit         string    `json:"commit"`
	Branch         string    `json:"branch"`
	LastUpdated    time.Time `json:"last_updated"`
}

// FileID computes the content-derived File id: hash(repository, relative_path).
func FileID(repository, relativePath string) string {
	return hashID(repository, relativePath)
}

// NewFile constructs a File with its id populated.
func NewFile(repository, relativePath, language, repoURL, commit, branch string) *File {
	return &File{
		ID:            FileID(repository, relativePath),
		Path:          relativePath,
		Name:          baseName(relativePath),
		Language:      language,
		Repository:    repository,
		RepositoryURL: repoURL,
		Commit:        commit,
		Branch:        branch,
		LastUpdated:   time.Now(),
	}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// Class is contained by exactly one File via a CONTAINS edge (spec §3).
type Class struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	FileID     string   `json:"file_id"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Docstring  string   `json:"docstring,omitempty"`
	Bases      []string `json:"bases,omitempty"`
}

// ClassID computes the content-derived Class id: hash(file_id, class_name).
func ClassID(fileID, className string) string {
	return hashID(fileID, className)
}

// Function is contained by a Class (method) or a File (free function).
type Function struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	FileID    string   `json:"file_id"`
	ClassID   string   `json:"class_id,omitempty"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	StartByte uint32   `json:"start_byte"`
	EndByte   uint32   `json:"end_byte"`
	Params    []string `json:"params,omitempty"`
	Docstring string   `json:"docstring,omitempty"`
	IsMethod  bool     `json:"is_method"`
}

// FunctionID computes the content-derived Function id:
// hash(file_id, function_name, class_id|"").
func FunctionID(fileID, functionName, classID string) string {
	return hashID(fileID, functionName, classID)
}

// CallSite is a placeholder emitted for every call expression (spec §3, §4.4).
// Position is part of the id so repeated calls to the same name from the
// same file remain distinct nodes.
type CallSite struct {
	ID               string `json:"id"`
	CallerFileID     string `json:"caller_file_id"`
	CallerFunctionID string `json:"caller_function_id,omitempty"`
	CallerClassID    string `json:"caller_class_id,omitempty"`
	CallName         string `json:"call_name"`
	CallModule       string `json:"call_module,omitempty"`
	StartLine        int    `json:"start_line"`
	StartCol         int    `json:"start_col"`
	EndLine          int    `json:"end_line"`
	EndCol           int    `json:"end_col"`
	IsAttributeCall  bool   `json:"is_attribute_call"`

	// Populated by the PlaceholderResolver (§4.4). Empty/zero until resolved.
	ResolvedFunctionID string  `json:"resolved_function_id,omitempty"`
	Score              float64 `json:"score,omitempty"`
}

// CallSiteID computes the content-derived CallSite id:
// hash(file_id, start_line, start_col, call_name).
func CallSiteID(fileID string, startLine, startCol int, callName string) string {
	return hashID(fileID, strconv.Itoa(startLine), strconv.Itoa(startCol), callName)
}

// Resolved reports whether this placeholder has a RESOLVES_TO edge.
func (c *CallSite) Resolved() bool {
	return c.ResolvedFunctionID != ""
}

// ImportSite is a placeholder emitted for every imported name (spec §3, §4.4).
type ImportSite struct {
	ID           string `json:"id"`
	FileID       string `json:"file_id"`
	ImportName   string `json:"import_name"`
	ModuleName   string `json:"module_name,omitempty"`
	Alias        string `json:"alias,omitempty"`
	IsFromImport bool   `json:"is_from_import"`
	StartLine    int    `json:"start_line"`

	// Populated by the PlaceholderResolver. ResolvedKind is "File" or "Class".
	ResolvedKind string  `json:"resolved_kind,omitempty"`
	ResolvedID   string  `json:"resolved_id,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

// ImportSiteID computes the content-derived ImportSite id:
// hash(file_id, kind, start_line, qualified_name).
func ImportSiteID(fileID, kind string, startLine int, qualifiedName string) string {
	return hashID(fileID, kind, strconv.Itoa(startLine), qualifiedName)
}

// Resolved reports whether this placeholder has a RESOLVES_TO edge.
func (i *ImportSite) Resolved() bool {
	return i.ResolvedID != ""
}

// RepoKey is the persistent-state lookup key: repo_url + "#" + branch (spec §3).
func RepoKey(repoURL, branch string) string {
	return fmt.Sprintf("%s#%s", repoURL, branch)
}

// ParsedFile is the Parser's per-file output: the flattened entity and
// placeholder records extracted from one source file (spec §4.2).
type ParsedFile struct {
	Path        string
	Language    string
	Classes     []*Class
	Functions   []*Function
	CallSites   []*CallSite
	ImportSites []*ImportSite
	Error       string
}
