package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localipc/shmrpc/internal/wire"
)

// counterValue reads a CounterVec's single-label value the way the
// teacher's own plugin tests pull a value out of a prometheus.Counter
// via client_model, since CounterVec exposes no public Get.
func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		pb := &dto.Metric{}
		require.NoError(t, m.Write(pb))
		total += pb.GetCounter().GetValue()
	}
	return total
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	assert.NotNil(t, m)
	// Vector collectors only appear in Gather once they hold a series.
	m.observeCompletion(wire.CmdAdd, wire.StatusOK, 0.01)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "shmrpc_requests_total")
	assert.Contains(t, names, "shmrpc_request_duration_seconds")
	assert.Contains(t, names, "shmrpc_slots_in_use")
}

func TestObserveCompletionIncrementsRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeCompletion(wire.CmdAdd, wire.StatusOK, 0.01)
	m.observeCompletion(wire.CmdAdd, wire.StatusOK, 0.02)

	assert.Equal(t, float64(2), counterValue(t, m.requestsTotal))
}

func TestObserveCompletionOnNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeCompletion(wire.CmdAdd, wire.StatusOK, 0.01)
		m.setSlotsInUse(3)
	})
}

func TestSetSlotsInUseUpdatesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.setSlotsInUse(5)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "shmrpc_slots_in_use" {
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, float64(5), mf.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Fatal("shmrpc_slots_in_use metric not found")
}
