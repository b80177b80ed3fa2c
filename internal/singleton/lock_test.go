package singleton

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.lock")

	lock, err := Acquire(path)
	assert.NoError(t, err)
	assert.NotNil(t, lock)

	assert.NoError(t, lock.Release())
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.lock")

	first, err := Acquire(path)
	assert.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireSucceedsAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.lock")

	first, err := Acquire(path)
	assert.NoError(t, err)
	assert.NoError(t, first.Release())

	second, err := Acquire(path)
	assert.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestNextGenerationStartsAtOneAndIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.generation")

	gen, err := NextGeneration(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	gen, err = NextGeneration(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), gen)

	gen, err = NextGeneration(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), gen)
}

func TestNextGenerationSurvivesProcessRestartSimulation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.generation")

	_, err := NextGeneration(path)
	assert.NoError(t, err)
	_, err = NextGeneration(path)
	assert.NoError(t, err)

	// Simulate a fresh process re-opening the same file.
	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(8), info.Size())

	gen, err := NextGeneration(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), gen)
}
