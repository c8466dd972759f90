// Package lockfile provides advisory file locks that serialize writers of a shared file.
//
// Locks use flock on a sibling "<target>.lock" file, so they are released by the
// kernel when the holding process exits, gracefully or not.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockSuffix is appended to the target path to name its lock file.
const LockSuffix = ".lock"

// DefaultPollInterval is how often Acquire retries a held lock.
const DefaultPollInterval = 10 * time.Millisecond

// Lock represents an acquired lock on a target file.
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// PathFor returns the lock file path guarding target.
func PathFor(target string) string {
	return target + LockSuffix
}

// TryAcquire takes the lock guarding target without waiting.
// A lock held elsewhere yields a *LockError describing the holder.
func TryAcquire(target string) (*Lock, error) {
	lockPath := PathFor(target)
	slog.Debug("Attempting to acquire lock", "lock_path", lockPath)

	dir := filepath.Dir(lockPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("Failed to create directory for lock", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	// no O_TRUNC: the holder's pid must survive a failed attempt
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		slog.Error("Failed to open lock file", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		lockInfo := readExistingLockInfo(lockPath)
		slog.Debug("Lock is held elsewhere", "error", err, "lock_path", lockPath, "existing_lock_info", lockInfo)
		return nil, &LockError{
			LockPath:     lockPath,
			ExistingInfo: lockInfo,
			Cause:        err,
		}
	}

	if err := file.Truncate(0); err == nil {
		if _, err := file.WriteAt([]byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0); err != nil {
			slog.Warn("Failed to write lock information", "error", err, "lock_path", lockPath)
		}
	}

	slog.Debug("Lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Acquire waits for the lock guarding target until it is free or ctx is done.
func Acquire(ctx context.Context, target string) (*Lock, error) {
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()
	for {
		lock, err := TryAcquire(target)
		if err == nil {
			return lock, nil
		}
		var lockErr *LockError
		if !errors.As(err, &lockErr) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			slog.Warn("Gave up waiting for lock", "lock_path", lockErr.LockPath, "existing_lock_info", lockErr.ExistingInfo)
			return nil, fmt.Errorf("waiting for %s: %w", lockErr.LockPath, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. The lock file stays in place so that concurrent
// waiters keep locking the same inode. Safe to call multiple times.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}

	slog.Debug("Releasing lock", "lock_path", l.path, "pid", os.Getpid())

	var errs []error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Failed to release flock", "error", err, "lock_path", l.path)
		errs = append(errs, err)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Failed to close lock file", "error", err, "lock_path", l.path)
		errs = append(errs, err)
	}

	l.acquired = false
	l.file = nil
	return errors.Join(errs...)
}

// LockError reports a lock held by another process or file handle.
type LockError struct {
	LockPath     string
	ExistingInfo string
	Cause        error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("lock %s is held", e.LockPath)
	if e.ExistingInfo != "" {
		msg += " by " + e.ExistingInfo
	}
	return msg
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// readExistingLockInfo describes the current holder for error messages.
func readExistingLockInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "unknown process"
	}

	content := string(data)
	if content == "" {
		return "unknown process"
	}

	if pid := extractPIDFromLockInfo(content); pid > 0 {
		if isProcessRunning(pid) {
			return fmt.Sprintf("PID %d (running)", pid)
		}
		return fmt.Sprintf("PID %d (not running)", pid)
	}

	return strings.TrimSpace(content)
}

// extractPIDFromLockInfo extracts the pid from "pid=NNNN" content.
func extractPIDFromLockInfo(content string) int {
	const pidPrefix = "pid="
	if idx := strings.Index(content, pidPrefix); idx != -1 {
		start := idx + len(pidPrefix)
		end := start
		for end < len(content) && content[end] >= '0' && content[end] <= '9' {
			end++
		}
		if end > start {
			if pid, err := strconv.Atoi(content[start:end]); err == nil {
				return pid
			}
		}
	}
	return 0
}

// isProcessRunning sends signal 0 to pid.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
