package client

import (
	"fmt"

	"github.com/localipc/shmrpc/internal/wire"
)

// AsyncResult is what Poll returns for a READY request: the decoded
// response payload, keyed by which command produced it.
type AsyncResult struct {
	Command    wire.Command
	MathResult int32
	StrResult  string
	Position   int32
	Status     wire.Status
}

// SubmitMathAsync implements `submit_math_async` (spec.md §4.4): MUL
// and DIV only, returning the assigned request id without waiting.
func (c *Client) SubmitMathAsync(cmd wire.Command, a, b int32) (requestID uint64, err error) {
	if !commandAllowed(cmd, wire.CmdMul, wire.CmdDiv) {
		return 0, fmt.Errorf("%w: submit_math_async only accepts MUL/DIV", ErrInvalidInput)
	}
	sub, err := c.submitMath(cmd, a, b)
	if err != nil {
		return 0, err
	}
	return sub.requestID, nil
}

// SubmitStringAsync implements `submit_string_async` (spec.md §4.4):
// CONCAT and SEARCH, validating length bounds before touching shm. For
// SEARCH, s1 is the haystack and s2 is the needle.
func (c *Client) SubmitStringAsync(cmd wire.Command, s1, s2 string) (requestID uint64, err error) {
	if !commandAllowed(cmd, wire.CmdConcat, wire.CmdSearch) {
		return 0, fmt.Errorf("%w: submit_string_async only accepts CONCAT/SEARCH", ErrInvalidInput)
	}
	sub, err := c.submitString(cmd, s1, s2)
	if err != nil {
		return 0, err
	}
	return sub.requestID, nil
}

// Poll implements spec.md §4.4's async poll algorithm: READY (true,
// result, nil), NOT_READY (false, zero value, nil), not-found
// (false, zero value, ErrNotFound), or RESTARTED (false, zero value,
// an error satisfying IsRestarted).
func (c *Client) Poll(id uint64) (ready bool, res AsyncResult, err error) {
	reconnected, err := c.ensureFreshConnection()
	if err != nil {
		return false, AsyncResult{}, err
	}
	if reconnected {
		return false, AsyncResult{}, c.restarted()
	}

	if err := c.lockWithRetry(); err != nil {
		return false, AsyncResult{}, err
	}
	if c.t.Generation() != c.generation {
		c.t.Unlock()
		if err := c.reconnect(); err != nil {
			return false, AsyncResult{}, err
		}
		return false, AsyncResult{}, c.restarted()
	}
	defer c.t.Unlock()

	for i := 0; i < wire.SlotCount; i++ {
		slot := c.t.Slot(i)
		if slot.RequestID() != id {
			continue
		}
		if slot.State() != wire.StateResponseReady {
			return false, AsyncResult{}, nil
		}
		cmd := slot.Command()
		out := AsyncResult{Command: cmd, Status: slot.Status()}
		switch {
		case cmd.IsMath():
			out.MathResult = slot.MathResult()
		case cmd == wire.CmdConcat:
			out.StrResult = slot.StringResult()
		case cmd == wire.CmdSearch:
			out.Position = slot.Position()
		}
		slot.Reset()
		return true, out, nil
	}
	return false, AsyncResult{}, ErrNotFound
}
