// Package artifact reads and writes the stable JSON files the pipeline
// exchanges between stages (spec §6's `--step` artifacts) and reads them
// back. No command resumes a run from a previously written artifact.
package artifact

import (
	"os"

	"github.com/ohler55/ojg/oj"

	"github.com/coderisk/codegraph/internal/errors"
)

// FileData is one entry of GitOutput.Files — a single ChangeDetector record
// serialized for the `git` step boundary.
type FileData struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	Repository string `json:"repository"`
	URL        string `json:"url"`
	Commit     string `json:"commit"`
	Branch     string `json:"branch"`
}

// GitOutput is git_output.json (spec §6).
type GitOutput struct {
	Repository     string     `json:"repository"`
	URL            string     `json:"url"`
	Branch         string     `json:"branch"`
	Commit         string     `json:"commit"`
	IsFullIndexing bool       `json:"is_full_indexing"`
	FilesDetected  int        `json:"files_detected"`
	FilesProcessed int        `json:"files_processed"`
	FileData       []FileData `json:"file_data"`
}

// FailedFile is one entry of ParserOutput.FailedFiles.
type FailedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ParserOutput is parser_output.json (spec §6). ASTs are held as untyped
// values ([]any) since their shape is the uniform AST node tree (§4.2), not
// something this package needs to interpret.
type ParserOutput struct {
	Repository     string            `json:"repository"`
	URL            string            `json:"url"`
	Commit         string            `json:"commit"`
	Branch         string            `json:"branch"`
	IsFullIndexing bool              `json:"is_full_indexing"`
	FilesParsed    int               `json:"files_parsed"`
	FilesFailed    int               `json:"files_failed"`
	ASTs           []any             `json:"asts"`
	FailedFiles    []FailedFile      `json:"failed_files"`
}

// GraphStats is GraphOutput.GraphStats.
type GraphStats struct {
	Files           int `json:"files"`
	Classes         int `json:"classes"`
	Functions       int `json:"functions"`
	CallSites       int `json:"call_sites"`
	ImportSites     int `json:"import_sites"`
	ResolvedCalls   int `json:"resolved_calls"`
	ResolvedImports int `json:"resolved_imports"`
	Relationships   int `json:"relationships"`
}

// GraphOutput is graph_output.json (spec §6), the final per-run summary.
type GraphOutput struct {
	Repository    string     `json:"repository"`
	FilesProcessed int       `json:"files_processed"`
	FilesFailed   int        `json:"files_failed"`
	GraphStats    GraphStats `json:"graph_stats"`
	Errors        []string   `json:"errors"`
}

// WriteJSON marshals v with ojg and writes it to path, used for every
// --step artifact and for the final graph_output.json.
func WriteJSON(path string, v any) error {
	data, err := oj.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "marshal artifact")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "write artifact file")
	}
	return nil
}

// ReadGitOutput loads a previously written git_output.json. No command
// calls it; `run --resume-from` does not read artifacts.
func ReadGitOutput(path string) (*GitOutput, error) {
	var out GitOutput
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadParserOutput loads a previously written parser_output.json. No
// command calls it; `run --resume-from` does not read artifacts.
func ReadParserOutput(path string) (*ParserOutput, error) {
	var out ParserOutput
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadGraphOutput loads a graph_output.json, for `report` and
// `report --diff-against`, rejecting one that does not match the bundled
// schema (e.g. written by an incompatible pipeline version).
func ReadGraphOutput(path string) (*GraphOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "read artifact file")
	}
	if err := ValidateGraphOutput(data); err != nil {
		return nil, err
	}

	var out GraphOutput
	if err := oj.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "parse artifact file")
	}
	return &out, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "read artifact file")
	}
	if err := oj.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "parse artifact file")
	}
	return nil
}
