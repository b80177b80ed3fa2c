package server

import (
	"fmt"
	"os"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/localipc/shmrpc/internal/wire"
)

// commandCounters tallies completed requests per command name without
// a global lock, the same shape the teacher reaches for per-key
// counters with orcaman/concurrent-map.
type commandCounters struct {
	m cmap.ConcurrentMap[string, uint64]
}

func newCommandCounters() *commandCounters {
	return &commandCounters{m: cmap.New[uint64]()}
}

func (c *commandCounters) increment(cmd wire.Command) {
	c.m.Upsert(cmd.String(), 0, func(exists bool, cur uint64, _ uint64) uint64 {
		return cur + 1
	})
}

// StatusLine formats the SIGUSR1 status report spec.md §6 calls for
// (pid, generation, lifecycle state, pool depth, per-command totals),
// pooling its scratch buffer with valyala/bytebufferpool the way the
// teacher pools buffers for its own status/debug output.
func (d *Dispatcher) StatusLine() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	fmt.Fprintf(buf, "pid=%d generation=%d state=%s math_queue=%d string_queue=%d",
		os.Getpid(), d.generation, d.State(), d.MathQueueLen(), d.StringQueueLen())
	for _, cmd := range []wire.Command{wire.CmdAdd, wire.CmdSub, wire.CmdMul, wire.CmdDiv, wire.CmdConcat, wire.CmdSearch} {
		count, _ := d.counters.m.Get(cmd.String())
		fmt.Fprintf(buf, " %s=%d", cmd, count)
	}
	return buf.String()
}
