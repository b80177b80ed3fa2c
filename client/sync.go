package client

import (
	"fmt"
	"time"

	"github.com/localipc/shmrpc/internal/wire"
)

// CallMathSync implements `call_math_sync` (spec.md §4.4): ADD and SUB
// only, blocking until the response is ready or the wait budget is
// exhausted.
func (c *Client) CallMathSync(cmd wire.Command, a, b int32) (result int32, status wire.Status, err error) {
	if !commandAllowed(cmd, wire.CmdAdd, wire.CmdSub) {
		return 0, 0, fmt.Errorf("%w: call_math_sync only accepts ADD/SUB", ErrInvalidInput)
	}
	sub, err := c.submitMath(cmd, a, b)
	if err != nil {
		return 0, 0, err
	}
	return c.waitSync(sub)
}

// waitSync is spec.md §4.4's "Sync wait loop": up to syncWaitIterations
// rounds of (slot-sem wait with a 1s deadline, then a stale-wake guard
// under the mutex).
func (c *Client) waitSync(sub submitResult) (result int32, status wire.Status, err error) {
	for i := 0; i < syncWaitIterations; i++ {
		deadline := time.Now().Add(1 * time.Second)
		waitErr := c.t.SlotSemWait(sub.slot, deadline)
		if waitErr == nil {
			if err := c.t.Lock(); err != nil {
				return 0, 0, err
			}
			slot := c.t.Slot(sub.slot)
			if slot.RequestID() == sub.requestID && slot.State() == wire.StateResponseReady {
				status = slot.Status()
				if slot.Command().IsMath() {
					result = slot.MathResult()
				}
				slot.Reset()
				c.t.Unlock()
				return result, status, nil
			}
			// Stale wake: some other cycle's post reached us. Loop again.
			c.t.Unlock()
			continue
		}

		reconnected, rerr := c.ensureFreshConnection()
		if rerr != nil {
			return 0, 0, rerr
		}
		if reconnected {
			return 0, 0, c.restarted()
		}
	}
	if err := c.reconnect(); err != nil {
		return 0, 0, err
	}
	return 0, 0, c.restarted()
}
