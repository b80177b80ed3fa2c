// Package singleton enforces spec.md invariant I7 (at most one server
// process per host) and owns the generation counter that survives
// across server restarts (spec.md §3, GenerationFile).
package singleton

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another server instance already
// holds the singleton lock.
var ErrAlreadyRunning = fmt.Errorf("singleton: another server instance is already running")

// Lock is an advisory file lock on a well-known path, released
// automatically by the kernel on process exit (GLOSSARY "Singleton lock").
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) path and takes a non-blocking
// exclusive flock. It fails fast with ErrAlreadyRunning if another
// process holds it, matching spec.md §4.2 step 1.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("singleton: open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("singleton: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the flock and closes the file. The kernel would do
// this automatically on process exit, but clean shutdown does it
// explicitly so a restart immediately after doesn't have to wait on
// fd teardown.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("singleton: unlock: %w", err)
	}
	return cerr
}

// NextGeneration atomically increments the u64 counter stored at path
// under its own exclusive flock (distinct from the singleton lock,
// per spec.md's GenerationFile entry), and returns the new value.
func NextGeneration(path string) (uint64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return 0, fmt.Errorf("singleton: open generation file %s: %w", path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("singleton: flock generation file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:errcheck

	var buf [8]byte
	n, err := f.ReadAt(buf[:], 0)
	var cur uint64
	if n == 8 {
		cur = binary.LittleEndian.Uint64(buf[:])
	} else if err != nil && n == 0 {
		cur = 0
	}
	next := cur + 1
	binary.LittleEndian.PutUint64(buf[:], next)
	if _, err := f.WriteAt(buf[:], 0); err != nil {
		return 0, fmt.Errorf("singleton: write generation file: %w", err)
	}
	return next, nil
}
