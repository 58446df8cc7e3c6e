package internal

import (
	"errors"
	"testing"
)

func TestLockOutputDir(t *testing.T) {
	dir := t.TempDir()

	first, err := LockOutputDir(dir)
	if err != nil {
		t.Fatalf("LockOutputDir: %v", err)
	}

	if _, err := LockOutputDir(dir); !errors.Is(err, ErrOutputDirLocked) {
		t.Fatalf("second lock err = %v, want ErrOutputDirLocked", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	again, err := LockOutputDir(dir)
	if err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
	_ = again.Unlock()
}

func TestOutputLockNilUnlock(t *testing.T) {
	var lock *OutputLock
	if err := lock.Unlock(); err != nil {
		t.Errorf("Unlock on nil lock = %v", err)
	}
}
