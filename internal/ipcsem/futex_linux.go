//go:build linux

package ipcsem

import (
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux does not expose futex op codes through golang.org/x/sys/unix
// (only SysV semget/semop/semctl syscall numbers are wrapped, and even
// those have no Go signature — see zsysnum_linux_amd64.go). We define
// the handful of op codes from linux/futex.h ourselves and issue the
// syscall directly via unix.Syscall6, the same raw-syscall style the
// teacher's platform_linux.go uses for mmap/open.
const (
	futexWait = 0
	futexWake = 1
)

// futexWaitOp blocks while *addr == expected, waking at deadline at the
// latest. A zero deadline means wait forever.
func futexWaitOp(addr *uint32, expected uint32, deadline time.Time) error {
	var ts *unix.Timespec
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return syscall.ETIMEDOUT
		}
		rel := unix.NsecToTimespec(d.Nanoseconds())
		ts = &rel
	}
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWait),
		uintptr(expected),
		uintptr(unsafe.Pointer(ts)),
		0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// futexWakeOp wakes up to n waiters blocked on addr.
func futexWakeOp(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		uintptr(n),
		0, 0, 0)
}
