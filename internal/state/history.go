// Package state persists cross-run pipeline state: the commit processed
// per repository/branch, and the run lock that keeps two pipeline
// invocations from clobbering each other's writes (spec §5).
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ohler55/ojg/oj"

	"github.com/coderisk/codegraph/internal/errors"
)

// CommitHistory is the persistent `<repo_url>#<branch> -> commit_sha` map
// read once at the start of a run and written once at the end.
type CommitHistory struct {
	path    string
	commits map[string]string
}

// LoadCommitHistory reads commit_history.json, tolerating a missing file
// (first run ever) but not a malformed one.
func LoadCommitHistory(path string) (*CommitHistory, error) {
	h := &CommitHistory{path: path, commits: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "read commit history")
	}

	if len(data) > 0 {
		if err := oj.Unmarshal(data, &h.commits); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "parse commit history")
		}
	}
	if h.commits == nil {
		h.commits = make(map[string]string)
	}
	return h, nil
}

func historyKey(repoURL, branch string) string {
	return fmt.Sprintf("%s#%s", repoURL, branch)
}

// Get returns the last-processed commit for (repoURL, branch), or "" if
// this is the first run against that repository/branch pair.
func (h *CommitHistory) Get(repoURL, branch string) string {
	return h.commits[historyKey(repoURL, branch)]
}

// Set records the commit just processed for (repoURL, branch).
func (h *CommitHistory) Set(repoURL, branch, commit string) {
	h.commits[historyKey(repoURL, branch)] = commit
}

// Save writes the history atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// corrupts the previous, still-valid history file.
func (h *CommitHistory) Save() error {
	data, err := oj.Marshal(h.commits)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "marshal commit history")
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "create state directory")
	}

	tmp, err := os.CreateTemp(dir, ".commit_history-*.json.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "create temp state file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "write temp state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "close temp state file")
	}

	if err := os.Rename(tmpPath, h.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "rename temp state file into place")
	}
	return nil
}
