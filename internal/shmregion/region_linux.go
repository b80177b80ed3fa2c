//go:build linux

package shmregion

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const shmDir = "/dev/shm"

func pathFor(name string) string {
	return filepath.Join(shmDir, name)
}

func open(name string, size int, create bool) (*Region, error) {
	path := pathFor(name)
	if create {
		// Stale segment from a crashed previous server: drop it before
		// re-creating, matching spec.md §4.2 step 3/4.
		_ = unix.Unlink(path)
	}
	flags := unix.O_RDWR
	if create {
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("shmregion: open %s: %w", path, err)
	}
	if create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("shmregion: ftruncate %s: %w", path, err)
		}
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shmregion: mmap %s: %w", path, err)
	}
	return &Region{Name: name, Mem: mem, fd: fd}, nil
}

func closeRegion(r *Region) error {
	if r.Mem != nil {
		if err := unix.Munmap(r.Mem); err != nil {
			return fmt.Errorf("shmregion: munmap %s: %w", r.Name, err)
		}
		r.Mem = nil
	}
	if r.fd >= 0 {
		if err := unix.Close(r.fd); err != nil {
			return fmt.Errorf("shmregion: close %s: %w", r.Name, err)
		}
		r.fd = -1
	}
	return nil
}

func unlink(name string) error {
	if err := unix.Unlink(pathFor(name)); err != nil && err != unix.ENOENT {
		return fmt.Errorf("shmregion: unlink %s: %w", name, err)
	}
	return nil
}

func stat(r *Region) (Identity, error) {
	var st unix.Stat_t
	if err := unix.Fstat(r.fd, &st); err != nil {
		return Identity{}, fmt.Errorf("shmregion: fstat %s: %w", r.Name, err)
	}
	return Identity{Dev: uint64(st.Dev), Ino: st.Ino}, nil
}

// CurrentIdentity stats the path as it exists on disk right now,
// without requiring an open fd. Used by clients to detect that the
// server has unlinked and re-created the segment (spec.md §4.5).
func CurrentIdentity(name string) (Identity, error) {
	var st unix.Stat_t
	if err := unix.Stat(pathFor(name), &st); err != nil {
		return Identity{}, fmt.Errorf("shmregion: stat %s: %w", name, err)
	}
	return Identity{Dev: uint64(st.Dev), Ino: st.Ino}, nil
}
