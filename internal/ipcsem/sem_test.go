package ipcsem

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/localipc/shmrpc/internal/shmregion"
)

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("/ipcsem_test_%d_%s", os.Getpid(), t.Name())
}

func TestSemPostThenWaitSucceeds(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	s, err := Create(name, 0)
	assert.NoError(t, err)
	defer s.Close()

	s.Post()
	err = s.Wait(time.Now().Add(time.Second))
	assert.NoError(t, err)
}

func TestSemWaitTimesOutWhenNeverPosted(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	s, err := Create(name, 0)
	assert.NoError(t, err)
	defer s.Close()

	err = s.Wait(time.Now().Add(50 * time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSemTryWait(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	s, err := Create(name, 1)
	assert.NoError(t, err)
	defer s.Close()

	assert.True(t, s.TryWait())
	assert.False(t, s.TryWait())
}

func TestSemCountingAccumulates(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	s, err := Create(name, 0)
	assert.NoError(t, err)
	defer s.Close()

	s.Post()
	s.Post()
	s.Post()

	for i := 0; i < 3; i++ {
		assert.True(t, s.TryWait())
	}
	assert.False(t, s.TryWait())
}

func TestSemCrossProcessHandleSharesState(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	server, err := Create(name, 0)
	assert.NoError(t, err)
	defer server.Close()

	clientView, err := Open(name)
	assert.NoError(t, err)
	defer clientView.Close()

	server.Post()
	assert.True(t, clientView.TryWait())
}

func TestMutexLockUnlock(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	m, err := CreateMutex(name)
	assert.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.LockTimeout(time.Second))
	m.Unlock()
	assert.NoError(t, m.LockTimeout(time.Second))
	m.Unlock()
}

func TestMutexLockTimeoutWhileHeld(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	m, err := CreateMutex(name)
	assert.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.LockTimeout(time.Second))
	err = m.LockTimeout(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	m.Unlock()
}

func TestSemWaitUnblocksOnConcurrentPost(t *testing.T) {
	name := uniqueName(t)
	defer shmregion.Unlink(name) //nolint:errcheck

	s, err := Create(name, 0)
	assert.NoError(t, err)
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.Wait(time.Now().Add(2 * time.Second))
	}()

	time.Sleep(50 * time.Millisecond)
	s.Post()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock after Post")
	}
}
