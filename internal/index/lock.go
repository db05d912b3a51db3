package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// BuildLock serializes index builds across processes with a file lock.
// Two concurrent builds would race on the staging directory swap, so the
// second builder fails fast instead of queueing.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates the lock guarding builds of indexDir. The lock
// file lives next to the index directory, not inside it: the directory
// itself is replaced on commit.
func NewBuildLock(indexDir string) *BuildLock {
	lockPath := indexDir + ".lock"
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking. A held lock is a build
// already in flight and surfaces as a locked-build error.
func (l *BuildLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !acquired {
		return apperrors.New(apperrors.ErrCodeBuildLocked,
			fmt.Sprintf("another build holds the lock at %s", l.path), nil).
			WithSuggestion("wait for the running build to finish")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *BuildLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	return nil
}
