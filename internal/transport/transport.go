// Package transport is the shared-memory transport of spec.md §4.1: it
// owns the mapped region, the mutex, the notify semaphore, and the
// per-slot semaphores, and exposes the slot allocation / claim /
// publish / consume primitives both the server dispatcher and the
// client library build on. It is the Go-native generalization of the
// teacher's plugin/queue.go mmap-a-named-segment approach, swapped
// from a ring-buffer queue to the fixed slot array spec.md requires.
package transport

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/localipc/shmrpc/adapter"
	"github.com/localipc/shmrpc/internal/ipcsem"
	"github.com/localipc/shmrpc/internal/shmregion"
	"github.com/localipc/shmrpc/internal/wire"
)

// Transport bundles the mapped region with its mutex and semaphores.
// Like pkg/shm.Buffer in the teacher, it carries an OTel meter/tracer
// pair, populated from adapter.Meter/adapter.Tracer on every Create/
// OpenClient, so server/dispatcher.go can record a span and a
// duration histogram for every processed request.
type Transport struct {
	region *shmregion.Region
	mutex  *ipcsem.Mutex
	notify *ipcsem.Sem
	slots  [wire.SlotCount]*ipcsem.Sem

	Meter  metric.Meter
	Tracer trace.Tracer
}

// CreateServer creates the region and all semaphores fresh under the
// stable spec.md §6 names, per §4.2 steps 3-4 ("unlink-then-create if
// stale").
func CreateServer() (*Transport, error) { return CreateServerNamed("") }

// OpenClient opens the region and every semaphore created by a running
// server, under the stable spec.md §6 names. Used by client.Init()
// (spec.md §4 component 4).
func OpenClient() (*Transport, error) { return OpenClientNamed("") }

// UnlinkAll removes the region and every semaphore under the stable
// spec.md §6 names.
func UnlinkAll() { UnlinkAllNamed("") }

// CreateServerNamed is CreateServer with every object name suffixed,
// so multiple independent instances (e.g. one per test) can coexist
// under /dev/shm without colliding on the spec's fixed names. An empty
// suffix reproduces the exact stable names.
func CreateServerNamed(suffix string) (*Transport, error) {
	region, err := shmregion.Open(ShmName+suffix, wire.RegionSize, true)
	if err != nil {
		return nil, fmt.Errorf("transport: create region: %w", err)
	}
	for i := range region.Mem {
		region.Mem[i] = 0
	}

	mutex, err := ipcsem.CreateMutex(MutexName + suffix)
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("transport: create mutex: %w", err)
	}
	notify, err := ipcsem.Create(ServerNotifyName+suffix, 0)
	if err != nil {
		_ = mutex.Close()
		_ = region.Close()
		return nil, fmt.Errorf("transport: create notify sem: %w", err)
	}
	t := &Transport{
		region: region, mutex: mutex, notify: notify,
		Meter:  adapter.Meter("shmrpc/transport"),
		Tracer: adapter.Tracer("shmrpc/transport"),
	}
	for i := 0; i < wire.SlotCount; i++ {
		s, err := ipcsem.Create(SlotSemName(i)+suffix, 0)
		if err != nil {
			t.closeAll(i)
			return nil, fmt.Errorf("transport: create slot sem %d: %w", i, err)
		}
		t.slots[i] = s
	}
	return t, nil
}

// OpenClientNamed is OpenClient against a CreateServerNamed instance
// sharing the same suffix.
func OpenClientNamed(suffix string) (*Transport, error) {
	region, err := shmregion.Open(ShmName+suffix, wire.RegionSize, false)
	if err != nil {
		return nil, fmt.Errorf("transport: open region: %w", err)
	}
	mutex, err := ipcsem.OpenMutex(MutexName + suffix)
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("transport: open mutex: %w", err)
	}
	notify, err := ipcsem.Open(ServerNotifyName + suffix)
	if err != nil {
		_ = mutex.Close()
		_ = region.Close()
		return nil, fmt.Errorf("transport: open notify sem: %w", err)
	}
	t := &Transport{
		region: region, mutex: mutex, notify: notify,
		Meter:  adapter.Meter("shmrpc/transport"),
		Tracer: adapter.Tracer("shmrpc/transport"),
	}
	for i := 0; i < wire.SlotCount; i++ {
		s, err := ipcsem.Open(SlotSemName(i) + suffix)
		if err != nil {
			t.closeAll(i)
			return nil, fmt.Errorf("transport: open slot sem %d: %w", i, err)
		}
		t.slots[i] = s
	}
	return t, nil
}

// UnlinkAllNamed is UnlinkAll for a CreateServerNamed suffix.
func UnlinkAllNamed(suffix string) {
	_ = shmregion.Unlink(ShmName + suffix)
	_ = ipcsem.Unlink(MutexName + suffix)
	_ = ipcsem.Unlink(ServerNotifyName + suffix)
	for i := 0; i < wire.SlotCount; i++ {
		_ = ipcsem.Unlink(SlotSemName(i) + suffix)
	}
}

func (t *Transport) closeAll(slotsOpened int) {
	for i := 0; i < slotsOpened; i++ {
		if t.slots[i] != nil {
			_ = t.slots[i].Close()
		}
	}
	if t.notify != nil {
		_ = t.notify.Close()
	}
	if t.mutex != nil {
		_ = t.mutex.Close()
	}
	if t.region != nil {
		_ = t.region.Close()
	}
}

// Close unmaps the region and semaphores without removing them.
func (t *Transport) Close() error {
	t.closeAll(wire.SlotCount)
	return nil
}

// Identity returns the (dev, ino) of the currently-mapped region fd,
// for comparison against CurrentIdentity on the client's restart-check
// hot path (spec.md §4.5).
func (t *Transport) Identity() (shmregion.Identity, error) {
	return t.region.Stat()
}

// CurrentShmIdentity stats the region's current on-disk identity under
// the stable spec.md §6 name.
func CurrentShmIdentity() (shmregion.Identity, error) { return CurrentShmIdentityNamed("") }

// CurrentShmIdentityNamed is CurrentShmIdentity for a CreateServerNamed
// suffix.
func CurrentShmIdentityNamed(suffix string) (shmregion.Identity, error) {
	return shmregion.CurrentIdentity(ShmName + suffix)
}

// --- mutex-gated region access -------------------------------------

// Lock acquires the cross-process mutex, blocking forever. Used by the
// server, which never needs the client's bounded timeout.
func (t *Transport) Lock() error { return t.mutex.Lock() }

// LockTimeout bounds the acquire wait to d, the client's "bounded
// timed wait" (spec.md §4.4 step 2).
func (t *Transport) LockTimeout(d time.Duration) error { return t.mutex.LockTimeout(d) }

// Unlock releases the mutex.
func (t *Transport) Unlock() { t.mutex.Unlock() }

// Generation reads server_generation. Callers normally hold the mutex,
// though a lock-free read is safe too since it's one aligned uint64
// word and only the server ever writes it (spec.md I6).
func (t *Transport) Generation() uint64 {
	return wire.ReadGeneration(t.region.Mem)
}

// SetGeneration writes server_generation. Only the server calls this,
// during startup, before any client can have opened the region.
func (t *Transport) SetGeneration(gen uint64) {
	wire.WriteGeneration(t.region.Mem, gen)
}

// NextRequestID returns the next request id to assign and increments
// the counter. Caller must hold the mutex (spec.md §4.1 "Request-ID
// assignment").
func (t *Transport) NextRequestID() uint64 {
	id := wire.ReadNextRequestID(t.region.Mem)
	wire.WriteNextRequestID(t.region.Mem, id+1)
	return id
}

// InitRequestID seeds the counter to 1, per spec.md §4.2 step 3 ("set
// ... next_request_id = 1"); id 0 is reserved and never assigned.
func (t *Transport) InitRequestID() {
	wire.WriteNextRequestID(t.region.Mem, 1)
}

// Slot returns a view over slot i. Caller must hold the mutex for any
// mutation, per invariant I3.
func (t *Transport) Slot(i int) wire.SlotView {
	return wire.Slot(t.region.Mem, i)
}

// FindFreeSlot scans slots in ascending order and returns the index of
// the first FREE slot, or -1 if none (spec.md §4.1 slot allocation
// policy). Caller must hold the mutex.
func (t *Transport) FindFreeSlot() int {
	for i := 0; i < wire.SlotCount; i++ {
		if t.Slot(i).State() == wire.StateFree {
			return i
		}
	}
	return -1
}

// --- notify semaphore ------------------------------------------------

// NotifyPost posts the server-notify semaphore exactly once, as
// required after publishing a REQUEST_PENDING slot (spec.md §4.1).
func (t *Transport) NotifyPost() { t.notify.Post() }

// NotifyWait blocks on the notify semaphore until deadline.
func (t *Transport) NotifyWait(deadline time.Time) error { return t.notify.Wait(deadline) }

// --- per-slot semaphore ----------------------------------------------

// SlotSemPost posts slot i's semaphore exactly once per RESPONSE_READY
// transition (spec.md §4.1).
func (t *Transport) SlotSemPost(i int) { t.slots[i].Post() }

// SlotSemWait blocks on slot i's semaphore until deadline.
func (t *Transport) SlotSemWait(i int, deadline time.Time) error {
	return t.slots[i].Wait(deadline)
}
