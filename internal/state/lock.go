package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/YuminosukeSato/codex-sdd/internal/errors"
)

// LockFileName is the name of the lock file next to the state document.
const LockFileName = "state.lock"

// Lock represents an acquired exclusive lock on the state directory.
// It guarantees single-writer semantics for the state document across
// concurrent command invocations.
type Lock struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	lockFile string
}

// AcquireLock takes an exclusive lock on the state directory holding the
// document at statePath. Returns ErrStateLocked if another live process
// holds the lock. A lock left behind by a dead process is broken.
func AcquireLock(statePath string) (*Lock, error) {
	dir := filepath.Dir(statePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStateError("lock", err)
	}
	lockPath := filepath.Join(dir, LockFileName)

	if existing, err := readLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			return nil, fmt.Errorf("%w: PID %d on %s",
				errors.ErrStateLocked, existing.PID, existing.Hostname)
		}
		// Stale lock - remove it
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.NewStateError("lock",
				fmt.Errorf("failed to remove stale lock: %w", err))
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, errors.NewStateError("lock", err)
	}

	// O_EXCL fails if the file already exists, closing the race between
	// the staleness check and creation.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := readLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s",
					errors.ErrStateLocked, existing.PID, existing.Hostname)
			}
			return nil, errors.ErrStateLocked
		}
		return nil, errors.NewStateError("lock", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, errors.NewStateError("lock", err)
	}
	return lock, nil
}

// Release removes the lock file. Safe to call on an already-released lock.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}
	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return errors.NewStateError("unlock", err)
	}
	l.lockFile = ""
	return nil
}

// readLock parses an existing lock file.
func readLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

// isProcessAlive reports whether a PID refers to a live process.
// Signal 0 performs the permission and existence checks without
// delivering a signal.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
