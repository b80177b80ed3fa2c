package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerStartsInStarting(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StateStarting, tr.Get())
}

func TestTrackerTransitions(t *testing.T) {
	tr := NewTracker()
	tr.Set(StateRunning)
	assert.Equal(t, StateRunning, tr.Get())
	tr.Set(StateDraining)
	assert.Equal(t, StateDraining, tr.Get())
	tr.Set(StateStopped)
	assert.Equal(t, StateStopped, tr.Get())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())
}
