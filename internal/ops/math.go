// Package ops implements the pure, side-effect-free arithmetic and
// string operations spec.md §4.3 assigns to the math and string
// worker pools. Keeping them free of shared-memory or pool concerns
// makes them trivially unit-testable and reusable from both pools.
package ops

import "github.com/localipc/shmrpc/internal/wire"

// Math evaluates an ADD/SUB/MUL/DIV command on 32-bit signed operands
// using wrap-on-overflow semantics (two's-complement arithmetic,
// spec.md §4.3). It returns the result and the response status.
func Math(cmd wire.Command, a, b int32) (result int32, status wire.Status) {
	switch cmd {
	case wire.CmdAdd:
		return int32(uint32(a) + uint32(b)), wire.StatusOK
	case wire.CmdSub:
		return int32(uint32(a) - uint32(b)), wire.StatusOK
	case wire.CmdMul:
		return int32(uint32(a) * uint32(b)), wire.StatusOK
	case wire.CmdDiv:
		if b == 0 {
			return 0, wire.StatusDivByZero
		}
		return a / b, wire.StatusOK
	default:
		return 0, wire.StatusInvalidInput
	}
}
