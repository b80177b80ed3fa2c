// Package client is the library spec.md §4.4 describes: init/cleanup,
// sync and async submission, poll, and the restart-detection/reconnect
// machinery of §4.5. It generalizes the teacher's own client-side
// mmap-and-attach pattern (plugin/queue.go's consumer side) to the
// fixed slot array and the generation-based reconnect protocol this
// domain needs.
package client

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/localipc/shmrpc/internal/obslog"
	"github.com/localipc/shmrpc/internal/transport"
	"github.com/localipc/shmrpc/internal/wire"
)

// Return codes, exact values per spec.md §6.
const (
	CodeOK        = 0
	CodeNotReady  = 1
	CodeRestarted = -2
	CodeError     = -1
)

// mutexTimeout is the bounded timed wait spec.md §5 calls for on every
// mutex acquisition from the client side.
const mutexTimeout = 1 * time.Second

// mutexRetryBudget bounds how many consecutive mutex-timeout cycles
// the client tolerates before concluding the server is gone (spec.md
// §4.5 "mutex acquisition exceeds the retry budget").
const mutexRetryBudget = 3

// syncWaitIterations is K from spec.md §4.4's sync wait loop ("≥16").
const syncWaitIterations = 16

var (
	// ErrNoFreeSlot is the capacity error from spec.md §7's "Capacity" row.
	ErrNoFreeSlot = errors.New("client: no free slot")
	// ErrNotFound is returned by Poll when the request id is unknown
	// (never submitted, or already consumed by an earlier poll).
	ErrNotFound = errors.New("client: request id not found")
	// ErrInvalidInput is the validation error from spec.md §7.
	ErrInvalidInput = errors.New("client: invalid input")
)

// Client is one process's connection to the server. It is not required
// to be reentrant across goroutines within the process (spec.md §5),
// though the shared objects it wraps are safe across processes.
type Client struct {
	t          *transport.Transport
	generation uint64
	log        *obslog.Logger

	// namespace suffixes every transport object name. Empty for every
	// production client; tests set it so independent cases don't
	// collide in /dev/shm on the spec's fixed names.
	namespace string
}

// New creates an unconnected Client against the well-known spec.md §6
// object names. Call Init before any other method.
func New() *Client {
	return &Client{log: obslog.New("client", nil)}
}

// NewNamespaced creates a Client scoped to a suffixed transport
// namespace, matching internal/transport.CreateServerNamed. Intended
// for tests that need an isolated /dev/shm namespace rather than the
// spec.md §6 production names New uses.
func NewNamespaced(namespace string) *Client {
	return &Client{log: obslog.New("client", nil), namespace: namespace}
}

// Init opens the shared region and every semaphore and caches the
// current server generation, matching the `init()` row of spec.md
// §4.4's operation table.
func (c *Client) Init() error {
	t, err := transport.OpenClientNamed(c.namespace)
	if err != nil {
		return fmt.Errorf("client: init: %w", err)
	}
	c.t = t
	c.generation = t.Generation()
	return nil
}

// Cleanup unmaps the region and closes every semaphore without
// unlinking any of them; only the server ever unlinks (spec.md §3).
func (c *Client) Cleanup() error {
	if c.t == nil {
		return nil
	}
	err := c.t.Close()
	c.t = nil
	return err
}

// restarted reports RESTARTED to the caller after a reconnect
// (spec.md §4.5's "return RESTARTED to the current caller").
func (c *Client) restarted() error { return fmt.Errorf("client: %w", errRestarted) }

var errRestarted = errors.New("server restarted")

// IsRestarted reports whether err originated from a detected restart,
// for callers that want to branch without string-matching.
func IsRestarted(err error) bool { return errors.Is(err, errRestarted) }

// ensureFreshConnection implements spec.md §4.5's three reconnect
// triggers: stale (device,inode), stale generation, and (from callers)
// an exhausted mutex retry budget. It reconnects in place and reports
// whether a reconnect happened.
func (c *Client) ensureFreshConnection() (reconnected bool, err error) {
	if c.t == nil {
		if err := c.Init(); err != nil {
			return false, err
		}
		return true, nil
	}

	curIdentity, statErr := transport.CurrentShmIdentityNamed(c.namespace)
	ownIdentity, idErr := c.t.Identity()
	staleIdentity := statErr != nil || idErr != nil || curIdentity != ownIdentity
	staleGeneration := !staleIdentity && c.t.Generation() != c.generation

	if !staleIdentity && !staleGeneration {
		return false, nil
	}
	c.log.Infof("reconnect triggered: stale_identity=%v stale_generation=%v", staleIdentity, staleGeneration)
	return true, c.reconnect()
}

func (c *Client) reconnect() error {
	if c.t != nil {
		_ = c.t.Close()
		c.t = nil
	}
	backoffPolicy := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 5)
	var t *transport.Transport
	err := backoff.Retry(func() error {
		var err error
		t, err = transport.OpenClientNamed(c.namespace)
		return err
	}, backoffPolicy)
	if err != nil {
		return fmt.Errorf("client: reconnect: %w", err)
	}
	c.t = t
	c.generation = t.Generation()
	return nil
}

// lockWithRetry acquires the mutex with spec.md §5's bounded timed
// wait, retrying up to mutexRetryBudget times before treating the
// server as lost (spec.md §4.5 "mutex acquisition exceeds the retry
// budget ... treat as a lost server and reconnect, returning
// RESTARTED"). A nil return is the only case where the caller holds
// the mutex; every non-nil return — reconnect failure or the RESTARTED
// signal below — leaves it unlocked, so callers must bail out without
// touching any slot or calling Unlock.
func (c *Client) lockWithRetry() error {
	for attempt := 0; attempt < mutexRetryBudget; attempt++ {
		err := c.t.LockTimeout(mutexTimeout)
		if err == nil {
			return nil
		}
	}
	if err := c.reconnect(); err != nil {
		return err
	}
	return c.restarted()
}

func pid() int32 { return int32(os.Getpid()) }

// commandAllowed enforces spec.md §4.4's split of which commands each
// entry point accepts (sync: ADD/SUB; async math: MUL/DIV; async
// string: CONCAT/SEARCH).
func commandAllowed(cmd wire.Command, allowed ...wire.Command) bool {
	for _, a := range allowed {
		if cmd == a {
			return true
		}
	}
	return false
}
