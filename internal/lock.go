package internal

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory lock held in an output directory during a batch
const LockFileName = ".clipscope.lock"

// ErrOutputDirLocked is returned when another batch is writing to the same directory
var ErrOutputDirLocked = errors.New("output directory is in use by another batch")

// OutputLock guards an output directory against concurrent batch runs
type OutputLock struct {
	lock *flock.Flock
}

// LockOutputDir takes the lock without blocking. The directory must exist.
func LockOutputDir(dir string) (*OutputLock, error) {
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputDirLocked, dir)
	}
	return &OutputLock{lock: lock}, nil
}

// Unlock releases the lock
func (l *OutputLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
