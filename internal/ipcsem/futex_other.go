//go:build !linux

package ipcsem

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("ipcsem: futex is only supported on linux")

func futexWaitOp(addr *uint32, expected uint32, deadline time.Time) error {
	return errUnsupported
}

func futexWakeOp(addr *uint32, n int) {}
