// Package shmregion maps named POSIX shared-memory segments under
// /dev/shm, the same technique glibc's shm_open uses under the hood.
// It is the Go-native replacement for the teacher's internal/shm
// platform helpers, generalized from a ring-buffer region to any
// fixed-size named segment (the header+slots region, and the tiny
// per-semaphore words in internal/ipcsem both use it).
package shmregion

import "errors"

// ErrUnsupportedPlatform is returned on hosts without a /dev/shm-style
// shared memory filesystem.
var ErrUnsupportedPlatform = errors.New("shmregion: unsupported platform")

// Identity is the (device, inode) pair used to detect that a shared
// object was unlinked and re-created out from under an open fd (spec.md
// §4.5, first restart trigger).
type Identity struct {
	Dev uint64
	Ino uint64
}

// Region is a mapped named shared-memory segment.
type Region struct {
	Name string
	Mem  []byte
	fd   int
}

// Open maps or creates the named segment, sized to size bytes. When
// create is true and the segment already exists, it is unlinked and
// re-created first (spec.md §4.2 step 3/4: "unlink-then-create if stale").
func Open(name string, size int, create bool) (*Region, error) {
	return open(name, size, create)
}

// Close unmaps the region without unlinking the underlying segment.
func (r *Region) Close() error {
	return closeRegion(r)
}

// Unlink removes the named segment from the filesystem. Only the
// server calls this, on clean shutdown (spec.md ownership rules §3).
func Unlink(name string) error {
	return unlink(name)
}

// Stat returns the (device, inode) identity of the still-open fd,
// independent of whatever currently lives at Name on disk.
func (r *Region) Stat() (Identity, error) {
	return stat(r)
}
