package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/coderisk/codegraph/internal/errors"
)

// RunLock prevents two pipeline runs from writing the same repository
// concurrently (spec §5). bbolt.Open already takes an exclusive OS file
// lock on the database file for the process's lifetime, so simply holding
// the open handle open for the run's duration is the lock.
type RunLock struct {
	db   *bbolt.DB
	path string
}

// AcquireRunLock opens (creating if needed) the lock database at path,
// failing fast if another process already holds it rather than blocking
// indefinitely.
func AcquireRunLock(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, errors.SeverityHigh, "create lock directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, errors.SeverityCritical,
			fmt.Sprintf("acquire run lock at %s: another pipeline run may already be in progress", path))
	}
	return &RunLock{db: db, path: path}, nil
}

// Release closes the lock database, freeing it for the next run.
func (l *RunLock) Release() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
