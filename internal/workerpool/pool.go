// Package workerpool implements the two FIFO worker pools spec.md
// §4.3 describes: a bounded-size goroutine pool (github.com/panjf2000/ants)
// drains a FIFO of pending slot indices (github.com/Workiva/go-datastructures/queue),
// matching the teacher's own use of that queue package in
// plugin/queue.go, generalized here from a shm-backed element queue to
// an in-process one (the FIFO sits inside the server process; the
// slots it names live in shared memory).
package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// ErrClosed is returned by Submit once the pool has started shutting down.
var ErrClosed = errors.New("workerpool: pool is closed")

// ShutdownMode selects between spec.md's two shutdown styles.
type ShutdownMode int

const (
	// Drain stops accepting submissions but finishes queued work first.
	Drain ShutdownMode = iota
	// Immediate drops queued-but-unstarted work, finishing only
	// in-progress tasks.
	Immediate
)

const pollInterval = 10 * time.Millisecond

// Pool is a named FIFO of pending slot indices serviced by a fixed
// number of worker goroutines.
type Pool struct {
	Name    string
	handler func(slotIndex int)

	queue   *queuepkg.Queue
	workers *ants.PoolWithFunc
	wg      sync.WaitGroup

	stopped  atomic.Bool
	shutdown chan shutdownRequest
	done     chan struct{}
}

type shutdownRequest struct {
	mode   ShutdownMode
	result chan int
}

// New starts a pool with the given number of fixed worker goroutines.
// handler is invoked once per submitted slot index, never concurrently
// with itself more than `threads` times.
func New(name string, threads int, handler func(slotIndex int)) (*Pool, error) {
	p := &Pool{
		Name:     name,
		handler:  handler,
		queue:    queuepkg.New(int64(threads) * 4),
		shutdown: make(chan shutdownRequest),
		done:     make(chan struct{}),
	}
	workers, err := ants.NewPoolWithFunc(threads, func(arg interface{}) {
		defer p.wg.Done()
		p.handler(arg.(int))
	})
	if err != nil {
		return nil, err
	}
	p.workers = workers
	go p.dispatchLoop()
	return p, nil
}

// Submit enqueues a slot index for processing. It never blocks on
// worker availability; the ants pool provides the backpressure once
// the dispatch loop hands work off.
func (p *Pool) Submit(slotIndex int) error {
	if p.stopped.Load() {
		return ErrClosed
	}
	if err := p.queue.Put(slotIndex); err != nil {
		return ErrClosed
	}
	return nil
}

// Len reports how many submitted slot indices have not yet reached a
// worker: those still in the FIFO plus the one the dispatch loop holds
// while it waits for a free worker. Used by the server's SIGUSR1
// status snapshot (spec.md §4.2 dispatcher loop, case a).
func (p *Pool) Len() int {
	return int(p.queue.Len()) + p.workers.Waiting()
}

func (p *Pool) dispatchLoop() {
	defer close(p.done)
	for {
		select {
		case req := <-p.shutdown:
			req.result <- p.drainAndClose(req.mode)
			return
		default:
		}
		items, err := p.queue.Poll(1, pollInterval)
		if err != nil || len(items) == 0 {
			continue
		}
		idx := items[0].(int)
		p.wg.Add(1)
		if err := p.workers.Invoke(idx); err != nil {
			p.wg.Done()
		}
	}
}

// drainAndClose runs on the dispatch goroutine itself, so it never
// races with dispatchLoop's own queue access.
func (p *Pool) drainAndClose(mode ShutdownMode) int {
	discarded := 0
	if mode == Immediate {
		if n := p.queue.Len(); n > 0 {
			items, _ := p.queue.Poll(n, pollInterval)
			discarded = len(items)
		}
	} else {
		for p.queue.Len() > 0 {
			items, err := p.queue.Poll(1, pollInterval)
			if err != nil || len(items) == 0 {
				continue
			}
			idx := items[0].(int)
			p.wg.Add(1)
			if err := p.workers.Invoke(idx); err != nil {
				p.wg.Done()
			}
		}
	}
	p.queue.Dispose()
	p.wg.Wait()
	p.workers.Release()
	return discarded
}

// Shutdown stops the pool per mode and returns the number of
// discarded (never-started) slot indices — always 0 for Drain.
func (p *Pool) Shutdown(mode ShutdownMode) int {
	if !p.stopped.CompareAndSwap(false, true) {
		<-p.done
		return 0
	}
	result := make(chan int, 1)
	p.shutdown <- shutdownRequest{mode: mode, result: result}
	n := <-result
	<-p.done
	return n
}
