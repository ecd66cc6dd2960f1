package git

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ChangeKind distinguishes the two file lists a ChangeDetector run produces.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
)

// ScanMode is full vs diff (spec §4.1 step 3).
type ScanMode string

const (
	ScanFull ScanMode = "full"
	ScanDiff ScanMode = "diff"
)

// FileRecord is one ChangeDetector output record (spec §4.1 step 5).
type FileRecord struct {
	Path          string
	Content       []byte
	Repository    string
	RepositoryURL string
	Commit        string
	Branch        string
	Kind          ChangeKind
}

// SkippedFile records why a file never reached the Parser.
type SkippedFile struct {
	Path   string
	Reason string // "binary", "too_large", "unreadable", "ignored"
}

// ChangeSet is the ChangeDetector's full output for one run.
type ChangeSet struct {
	Commit  string
	Mode    ScanMode
	Files   []FileRecord // added/modified, with content
	Deleted []string     // diff mode only; disjoint from Files
	Skipped []SkippedFile
}

// DetectorConfig is the ChangeDetector's tunable policy (spec §4.1 step 4).
type DetectorConfig struct {
	MaxFileSize    int64    // default 1 MiB
	ExtraIgnores   []string // additional doublestar globs, merged with the built-in set
	ForceReindex   bool
	Mode           ScanMode // ScanFull forces a full scan regardless of prior state
}

// ChangeDetector implements spec §4.1: given a local working copy already
// checked out at the target branch (step 1 is delegated to the caller —
// see spec §6), it determines what changed since the prior run and emits
// file records ready for the Parser.
type ChangeDetector struct {
	repoPath      string
	repository    string
	repositoryURL string
	branch        string
	fs            billy.Filesystem
	ignore        *ignorePolicy
	config        DetectorConfig
}

// NewChangeDetector builds a ChangeDetector over a repository already
// checked out at repoPath. fs defaults to an osfs rooted at repoPath; the
// package's tests write their fixtures to disk and use that default.
func NewChangeDetector(repoPath, repository, repositoryURL, branch string, cfg DetectorConfig) *ChangeDetector {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 1024 * 1024
	}
	return &ChangeDetector{
		repoPath:      repoPath,
		repository:    repository,
		repositoryURL: repositoryURL,
		branch:        branch,
		fs:            osfs.New(repoPath),
		ignore:        newIgnorePolicy(cfg.ExtraIgnores),
		config:        cfg,
	}
}

// WithFilesystem overrides the billy.Filesystem used to read file contents,
// for tests that substitute an in-memory filesystem pre-populated by the caller.
func (d *ChangeDetector) WithFilesystem(fs billy.Filesystem) *ChangeDetector {
	d.fs = fs
	return d
}

// HeadCommit reads the current HEAD commit SHA (spec §4.1 step 2).
func (d *ChangeDetector) HeadCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = d.repoPath
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("read HEAD commit: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Detect runs the full ChangeDetector algorithm (spec §4.1 steps 2-5).
// priorCommit is the repo_key's last-indexed commit, or "" if none exists.
func (d *ChangeDetector) Detect(ctx context.Context, priorCommit string) (*ChangeSet, error) {
	commit, err := d.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}

	mode := ScanDiff
	if d.config.Mode == ScanFull || d.config.ForceReindex || priorCommit == "" {
		mode = ScanFull
	}

	var candidates []string
	var deleted []string

	if mode == ScanFull {
		candidates, err = d.listTrackedFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("enumerate tracked files: %w", err)
		}
	} else {
		candidates, deleted, err = d.diffSince(ctx, priorCommit, commit)
		if err != nil {
			return nil, fmt.Errorf("diff since %s: %w", priorCommit, err)
		}
	}

	cs := &ChangeSet{Commit: commit, Mode: mode, Deleted: deleted}

	for _, relPath := range candidates {
		relPath = filepath.ToSlash(relPath)
		if d.ignore.Ignored(relPath) {
			cs.Skipped = append(cs.Skipped, SkippedFile{Path: relPath, Reason: "ignored"})
			continue
		}

		info, err := d.fs.Stat(relPath)
		if err != nil {
			cs.Skipped = append(cs.Skipped, SkippedFile{Path: relPath, Reason: "unreadable"})
			continue
		}
		if info.IsDir() {
			continue
		}
		if info.Size() > d.config.MaxFileSize {
			cs.Skipped = append(cs.Skipped, SkippedFile{Path: relPath, Reason: "too_large"})
			continue
		}

		content, err := d.readFile(relPath)
		if err != nil {
			cs.Skipped = append(cs.Skipped, SkippedFile{Path: relPath, Reason: "unreadable"})
			continue
		}
		if sniffBinary(content) {
			cs.Skipped = append(cs.Skipped, SkippedFile{Path: relPath, Reason: "binary"})
			continue
		}

		kind := ChangeModified
		if mode == ScanFull {
			kind = ChangeAdded
		}
		cs.Files = append(cs.Files, FileRecord{
			Path:          relPath,
			Content:       content,
			Repository:    d.repository,
			RepositoryURL: d.repositoryURL,
			Commit:        commit,
			Branch:        d.branch,
			Kind:          kind,
		})
	}

	return cs, nil
}

func (d *ChangeDetector) readFile(relPath string) ([]byte, error) {
	f, err := d.fs.Open(relPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// listTrackedFiles enumerates every file git tracks at HEAD (full scan).
func (d *ChangeDetector) listTrackedFiles(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-tree", "-r", "--name-only", "HEAD")
	cmd.Dir = d.repoPath
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(string(out)), nil
}

// diffSince enumerates files added/modified between priorCommit and
// newCommit, and separately the files deleted in that range (spec §4.1 step
// 3: "added/modified and deleted lists are disjoint").
func (d *ChangeDetector) diffSince(ctx context.Context, priorCommit, newCommit string) (changed, deleted []string, err error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", priorCommit, newCommit)
	cmd.Dir = d.repoPath
	out, err := cmd.Output()
	if err != nil {
		return nil, nil, err
	}

	for _, line := range splitNonEmptyLines(string(out)) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status, path := fields[0], fields[len(fields)-1]
		switch status[0] {
		case 'D':
			deleted = append(deleted, path)
		case 'A', 'M', 'R', 'C':
			changed = append(changed, path)
		}
	}
	return changed, deleted, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
