package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/localipc/shmrpc/adapter"
	"github.com/localipc/shmrpc/internal/audit"
	"github.com/localipc/shmrpc/internal/health"
	"github.com/localipc/shmrpc/internal/lifecycle"
	"github.com/localipc/shmrpc/internal/obslog"
	"github.com/localipc/shmrpc/internal/ops"
	"github.com/localipc/shmrpc/internal/security"
	"github.com/localipc/shmrpc/internal/singleton"
	"github.com/localipc/shmrpc/internal/transport"
	"github.com/localipc/shmrpc/internal/wire"
	"github.com/localipc/shmrpc/internal/workerpool"
)

// Dispatcher is the single server process spec.md §4.2 describes: it
// holds the singleton lock, owns the shared-memory transport, and runs
// the claim-and-dispatch loop until told to stop.
type Dispatcher struct {
	cfg Config
	log *obslog.Logger

	lock       *singleton.Lock
	generation uint64
	transport  *transport.Transport

	mathPool   *workerpool.Pool
	stringPool *workerpool.Pool

	heartbeat *health.Heartbeat
	readiness *health.Readiness
	lifecycle *lifecycle.Tracker
	audit     *audit.Logger
	restart   adapter.RestartObserver
	metrics   *Metrics
	counters  *commandCounters

	// processDuration is the OTel histogram SPEC_FULL.md's domain stack
	// calls for: one "shmrpc.process" span per request plus a duration
	// record, built once from the transport's meter (internal/transport
	// populates Meter/Tracer from adapter.Meter/adapter.Tracer).
	processDuration metric.Float64Histogram

	stop chan struct{}
	done chan struct{}
}

// New acquires the singleton lock, bumps the generation counter, and
// creates the shared region and semaphores fresh (spec.md §4.2 steps
// 1-4). The returned Dispatcher has not yet started its loop.
func New(cfg Config) (*Dispatcher, error) {
	log := obslog.New("server", cfg.Log)

	lockPath := cfg.LockPath
	if lockPath == "" {
		lockPath = transport.SingletonLockPath
	}
	genPath := cfg.GenerationPath
	if genPath == "" {
		genPath = transport.GenerationPath
	}

	lock, err := singleton.Acquire(lockPath)
	if err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			return nil, err
		}
		return nil, fmt.Errorf("server: acquire singleton lock: %w", err)
	}

	gen, err := singleton.NextGeneration(genPath)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("server: bump generation: %w", err)
	}

	if err := security.ValidatePermissions(lockPath); err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("server: lock file permissions: %w", err)
	}
	if err := security.ValidatePermissions(genPath); err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("server: generation file permissions: %w", err)
	}

	transport.UnlinkAllNamed(cfg.TransportNamespace)
	t, err := transport.CreateServerNamed(cfg.TransportNamespace)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("server: create transport: %w", err)
	}
	t.SetGeneration(gen)
	t.InitRequestID()

	processDuration, err := t.Meter.Float64Histogram(
		"shmrpc.process.duration",
		metric.WithDescription("Time from worker pickup to response-ready."),
		metric.WithUnit("s"),
	)
	if err != nil {
		_ = t.Close()
		_ = lock.Release()
		return nil, fmt.Errorf("server: create process duration histogram: %w", err)
	}

	d := &Dispatcher{
		cfg:             cfg,
		log:             log,
		lock:            lock,
		generation:      gen,
		transport:       t,
		heartbeat:       health.NewHeartbeat(cfg.HeartbeatStaleness),
		readiness:       &health.Readiness{},
		lifecycle:       lifecycle.NewTracker(),
		audit:           audit.New(cfg.Log),
		restart:         &adapter.LogRestartObserver{Log: log.Infof},
		counters:        newCommandCounters(),
		processDuration: processDuration,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	d.restart.OnGeneration(gen)
	if cfg.MetricsRegisterer != nil {
		d.metrics = NewMetrics(cfg.MetricsRegisterer)
	}

	mathThreads := cfg.MathThreads
	if mathThreads < 1 {
		mathThreads = defaultThreads()
	}
	stringThreads := cfg.StringThreads
	if stringThreads < 1 {
		stringThreads = defaultThreads()
	}
	d.mathPool, err = workerpool.New("math", mathThreads, d.handleMath)
	if err != nil {
		_ = t.Close()
		_ = lock.Release()
		return nil, fmt.Errorf("server: create math pool: %w", err)
	}
	d.stringPool, err = workerpool.New("string", stringThreads, d.handleString)
	if err != nil {
		d.mathPool.Shutdown(workerpool.Immediate)
		_ = t.Close()
		_ = lock.Release()
		return nil, fmt.Errorf("server: create string pool: %w", err)
	}

	cores, _ := cpu.Counts(true)
	shutdownName := "drain"
	if cfg.ShutdownMode == workerpool.Immediate {
		shutdownName = "immediate"
	}
	log.Infof("startup: pid=%d generation=%d cores=%d math_threads=%d string_threads=%d slots=%d shutdown=%s",
		os.Getpid(), gen, cores, mathThreads, stringThreads, wire.SlotCount, shutdownName)

	return d, nil
}

// Run starts the dispatch loop and blocks until Shutdown is called or
// the loop exits on its own.
func (d *Dispatcher) Run() error {
	d.lifecycle.Set(lifecycle.StateRunning)
	d.readiness.SetReady(true)
	defer close(d.done)

	for {
		select {
		case <-d.stop:
			return nil
		default:
		}

		deadline := time.Now().Add(d.cfg.NotifyPollTimeout)
		err := d.transport.NotifyWait(deadline)
		d.heartbeat.Beat()
		if err != nil {
			// Timeout: loop around to recheck d.stop. Any other error is
			// treated the same way since spec.md gives the dispatcher no
			// fatal failure mode short of the process dying.
			continue
		}
		d.claimPending()
	}
}

// claimPending scans every slot once under the mutex, flipping each
// REQUEST_PENDING slot to PROCESSING, then releases the mutex and
// submits every claimed slot to its pool.
func (d *Dispatcher) claimPending() {
	if err := d.transport.Lock(); err != nil {
		d.log.Warnf("claimPending: lock: %v", err)
		return
	}
	var claimed []int
	inUse := 0
	for i := 0; i < wire.SlotCount; i++ {
		slot := d.transport.Slot(i)
		if slot.State() != wire.StateFree {
			inUse++
		}
		if slot.State() != wire.StateRequestPending {
			continue
		}
		slot.SetState(wire.StateProcessing)
		claimed = append(claimed, i)
	}
	d.transport.Unlock()
	d.metrics.setSlotsInUse(inUse)

	for _, i := range claimed {
		slot := d.transport.Slot(i)
		cmd := slot.Command()
		_ = d.audit.LogEvent(audit.Event{
			Time: time.Now(), Kind: "claimed", RequestID: slot.RequestID(),
			SlotIndex: i, Command: cmd, ClientPID: slot.ClientPID(),
		})
		var err error
		if cmd.IsMath() {
			err = d.mathPool.Submit(i)
		} else {
			err = d.stringPool.Submit(i)
		}
		if err != nil {
			d.log.Errorf("claimPending: submit slot %d: %v", i, err)
		}
	}
}

// handleMath services one math-pool slot: read the request, compute,
// publish the response, and post the slot's semaphore (spec.md §4.3).
func (d *Dispatcher) handleMath(i int) {
	start := time.Now()
	ctx, span := d.transport.Tracer.Start(context.Background(), "shmrpc.process",
		trace.WithAttributes(attribute.String("shmrpc.pool", "math"), attribute.Int("shmrpc.slot", i)))
	defer span.End()

	if err := d.transport.Lock(); err != nil {
		d.log.Errorf("handleMath: lock slot %d: %v", i, err)
		return
	}
	slot := d.transport.Slot(i)
	cmd := slot.Command()
	args := slot.MathArgs()
	requestID := slot.RequestID()
	clientPID := slot.ClientPID()
	d.transport.Unlock()

	result, status := ops.Math(cmd, args.A, args.B)

	if err := d.transport.Lock(); err != nil {
		d.log.Errorf("handleMath: re-lock slot %d: %v", i, err)
		return
	}
	slot = d.transport.Slot(i)
	slot.SetMathResult(result)
	slot.SetStatus(status)
	slot.SetState(wire.StateResponseReady)
	d.transport.Unlock()
	d.transport.SlotSemPost(i)
	elapsed := time.Since(start).Seconds()
	d.metrics.observeCompletion(cmd, status, elapsed)
	d.processDuration.Record(ctx, elapsed,
		metric.WithAttributes(attribute.String("command", cmd.String()), attribute.String("status", status.String())))
	span.SetAttributes(attribute.String("command", cmd.String()), attribute.String("status", status.String()))
	d.counters.increment(cmd)

	_ = d.audit.LogEvent(audit.Event{
		Time: time.Now(), Kind: "completed", RequestID: requestID,
		SlotIndex: i, Command: cmd, ClientPID: clientPID, Status: status,
	})
}

// handleString services one string-pool slot, the CONCAT/SEARCH analog
// of handleMath.
func (d *Dispatcher) handleString(i int) {
	start := time.Now()
	ctx, span := d.transport.Tracer.Start(context.Background(), "shmrpc.process",
		trace.WithAttributes(attribute.String("shmrpc.pool", "string"), attribute.Int("shmrpc.slot", i)))
	defer span.End()

	if err := d.transport.Lock(); err != nil {
		d.log.Errorf("handleString: lock slot %d: %v", i, err)
		return
	}
	slot := d.transport.Slot(i)
	cmd := slot.Command()
	args := slot.StringArgs()
	requestID := slot.RequestID()
	clientPID := slot.ClientPID()
	d.transport.Unlock()

	var status wire.Status
	var strResult string
	var posResult int32

	switch cmd {
	case wire.CmdConcat:
		strResult, status = ops.Concat(args.S1, args.S2)
	case wire.CmdSearch:
		posResult, status = ops.Search(args.S1, args.S2)
	default:
		status = wire.StatusInvalidInput
	}

	if err := d.transport.Lock(); err != nil {
		d.log.Errorf("handleString: re-lock slot %d: %v", i, err)
		return
	}
	slot = d.transport.Slot(i)
	if cmd == wire.CmdSearch {
		slot.SetPosition(posResult)
	} else {
		slot.SetStringResult(strResult)
	}
	slot.SetStatus(status)
	slot.SetState(wire.StateResponseReady)
	d.transport.Unlock()
	d.transport.SlotSemPost(i)
	elapsed := time.Since(start).Seconds()
	d.metrics.observeCompletion(cmd, status, elapsed)
	d.processDuration.Record(ctx, elapsed,
		metric.WithAttributes(attribute.String("command", cmd.String()), attribute.String("status", status.String())))
	span.SetAttributes(attribute.String("command", cmd.String()), attribute.String("status", status.String()))
	d.counters.increment(cmd)

	_ = d.audit.LogEvent(audit.Event{
		Time: time.Now(), Kind: "completed", RequestID: requestID,
		SlotIndex: i, Command: cmd, ClientPID: clientPID, Status: status,
	})
}

// Shutdown stops the dispatch loop, drains or discards both worker
// pools per mode, releases the transport and singleton lock, and
// unlinks every shared object (spec.md §4.3 shutdown modes, §3
// ownership: only the server unlinks).
func (d *Dispatcher) Shutdown(mode workerpool.ShutdownMode) error {
	d.lifecycle.Set(lifecycle.StateDraining)
	d.readiness.SetReady(false)
	close(d.stop)
	<-d.done

	mathDiscarded := d.mathPool.Shutdown(mode)
	stringDiscarded := d.stringPool.Shutdown(mode)
	d.log.Infof("shutdown: mode=%v math_discarded=%d string_discarded=%d",
		mode, mathDiscarded, stringDiscarded)

	err := d.transport.Close()
	transport.UnlinkAllNamed(d.cfg.TransportNamespace)
	if rerr := d.lock.Release(); rerr != nil && err == nil {
		err = rerr
	}
	d.lifecycle.Set(lifecycle.StateStopped)
	return err
}

// Heartbeat exposes the liveness probe for adapter.NewHealthHandler.
func (d *Dispatcher) Heartbeat() *health.Heartbeat { return d.heartbeat }

// Readiness exposes the readiness probe for adapter.NewHealthHandler.
func (d *Dispatcher) Readiness() *health.Readiness { return d.readiness }

// State reports the current lifecycle state, used by the SIGUSR1
// status line (server/status.go).
func (d *Dispatcher) State() lifecycle.State { return d.lifecycle.Get() }

// Generation returns the generation this dispatcher started under.
func (d *Dispatcher) Generation() uint64 { return d.generation }

// MathQueueLen and StringQueueLen report current pool depth, for the
// SIGUSR1 status line.
func (d *Dispatcher) MathQueueLen() int   { return d.mathPool.Len() }
func (d *Dispatcher) StringQueueLen() int { return d.stringPool.Len() }
