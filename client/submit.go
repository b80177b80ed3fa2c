package client

import "github.com/localipc/shmrpc/internal/wire"

// submitResult carries what the common submission algorithm produces:
// the claimed slot and the id the server assigned it.
type submitResult struct {
	slot      int
	requestID uint64
}

// submitMath runs spec.md §4.4's submission algorithm for an ADD/SUB/
// MUL/DIV request.
func (c *Client) submitMath(cmd wire.Command, a, b int32) (submitResult, error) {
	if reconnected, err := c.ensureFreshConnection(); err != nil {
		return submitResult{}, err
	} else if reconnected {
		return submitResult{}, c.restarted()
	}

	if err := c.lockWithRetry(); err != nil {
		return submitResult{}, err
	}
	if err := c.recheckGenerationLocked(); err != nil {
		return submitResult{}, err
	}

	idx := c.t.FindFreeSlot()
	if idx < 0 {
		c.t.Unlock()
		return submitResult{}, ErrNoFreeSlot
	}
	slot := c.t.Slot(idx)
	slot.SetMathArgs(wire.MathArgs{A: a, B: b})
	slot.SetCommand(cmd)
	slot.SetClientPID(pid())
	id := c.t.NextRequestID()
	slot.SetRequestID(id)
	slot.SetState(wire.StateRequestPending)
	c.t.Unlock()
	c.t.NotifyPost()

	return submitResult{slot: idx, requestID: id}, nil
}

// submitString is submitMath's CONCAT/SEARCH analog, validating string
// length bounds before ever touching the shared region (spec.md §4.4
// "Validation").
func (c *Client) submitString(cmd wire.Command, s1, s2 string) (submitResult, error) {
	if len(s1) < 1 || len(s1) > wire.MaxStringLen || len(s2) < 1 || len(s2) > wire.MaxStringLen {
		return submitResult{}, ErrInvalidInput
	}

	if reconnected, err := c.ensureFreshConnection(); err != nil {
		return submitResult{}, err
	} else if reconnected {
		return submitResult{}, c.restarted()
	}

	if err := c.lockWithRetry(); err != nil {
		return submitResult{}, err
	}
	if err := c.recheckGenerationLocked(); err != nil {
		return submitResult{}, err
	}

	idx := c.t.FindFreeSlot()
	if idx < 0 {
		c.t.Unlock()
		return submitResult{}, ErrNoFreeSlot
	}
	slot := c.t.Slot(idx)
	slot.SetStringArgs(wire.StringArgs{S1: s1, S2: s2})
	slot.SetCommand(cmd)
	slot.SetClientPID(pid())
	id := c.t.NextRequestID()
	slot.SetRequestID(id)
	slot.SetState(wire.StateRequestPending)
	c.t.Unlock()
	c.t.NotifyPost()

	return submitResult{slot: idx, requestID: id}, nil
}

// recheckGenerationLocked is submission step 3: re-check the
// generation after acquiring the mutex, since a restart could have
// happened between ensureFreshConnection's check and lock acquisition.
// Caller must hold the mutex; on restart it is released before return.
func (c *Client) recheckGenerationLocked() error {
	if c.t.Generation() == c.generation {
		return nil
	}
	c.t.Unlock()
	if err := c.reconnect(); err != nil {
		return err
	}
	return c.restarted()
}
