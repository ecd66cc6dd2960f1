package state

import (
	"path/filepath"
	"testing"
)

func TestLoadCommitHistoryMissingFileReturnsEmpty(t *testing.T) {
	h, err := LoadCommitHistory(filepath.Join(t.TempDir(), "commit_history.json"))
	if err != nil {
		t.Fatalf("LoadCommitHistory() error = %v", err)
	}
	if got := h.Get("https://github.com/acme/widgets", "main"); got != "" {
		t.Errorf("expected empty commit for unseen repo, got %q", got)
	}
}

func TestCommitHistorySaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commit_history.json")

	h, err := LoadCommitHistory(path)
	if err != nil {
		t.Fatalf("LoadCommitHistory() error = %v", err)
	}
	h.Set("https://github.com/acme/widgets", "main", "abc123")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := LoadCommitHistory(path)
	if err != nil {
		t.Fatalf("LoadCommitHistory() reload error = %v", err)
	}
	if got := reloaded.Get("https://github.com/acme/widgets", "main"); got != "abc123" {
		t.Errorf("expected reloaded commit abc123, got %q", got)
	}
}

func TestCommitHistoryKeysAreScopedByBranch(t *testing.T) {
	h, _ := LoadCommitHistory(filepath.Join(t.TempDir(), "commit_history.json"))
	h.Set("https://github.com/acme/widgets", "main", "abc123")
	h.Set("https://github.com/acme/widgets", "dev", "def456")

	if got := h.Get("https://github.com/acme/widgets", "main"); got != "abc123" {
		t.Errorf("expected main branch commit abc123, got %q", got)
	}
	if got := h.Get("https://github.com/acme/widgets", "dev"); got != "def456" {
		t.Errorf("expected dev branch commit def456, got %q", got)
	}
}

func TestAcquireRunLockBlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	first, err := AcquireRunLock(path)
	if err != nil {
		t.Fatalf("first AcquireRunLock() error = %v", err)
	}
	defer first.Release()

	if _, err := AcquireRunLock(path); err == nil {
		t.Error("expected second concurrent AcquireRunLock to fail while the first is held")
	}
}

func TestRunLockReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	first, err := AcquireRunLock(path)
	if err != nil {
		t.Fatalf("AcquireRunLock() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	second, err := AcquireRunLock(path)
	if err != nil {
		t.Fatalf("expected reacquire after release to succeed, got %v", err)
	}
	defer second.Release()
}
