package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/localipc/shmrpc/client"
	"github.com/localipc/shmrpc/internal/transport"
	"github.com/localipc/shmrpc/internal/wire"
	"github.com/localipc/shmrpc/internal/workerpool"
)

// DispatcherTestSuite drives a real Dispatcher end-to-end through a
// real client.Client, everything scoped under a per-test namespace and
// tmp-dir lock/generation paths so cases can run concurrently.
type DispatcherTestSuite struct {
	suite.Suite
	cfg      Config
	d        *Dispatcher
	shutdown bool
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}

func (s *DispatcherTestSuite) SetupTest() {
	dir := s.T().TempDir()
	suffix := fmt.Sprintf("_test_%d_%s", os.Getpid(), strings.ReplaceAll(s.T().Name(), "/", "_"))
	transport.UnlinkAllNamed(suffix)

	s.cfg = Config{
		MathThreads:        2,
		StringThreads:      2,
		ShutdownMode:       workerpool.Drain,
		NotifyPollTimeout:  20 * time.Millisecond,
		HeartbeatStaleness: time.Second,
		LockPath:           filepath.Join(dir, "lock"),
		GenerationPath:     filepath.Join(dir, "generation"),
		MetricsRegisterer:  prometheus.NewRegistry(),
		TransportNamespace: suffix,
		Log:                nil,
	}

	d, err := New(s.cfg)
	s.Require().NoError(err)
	s.d = d
	s.shutdown = false
	go d.Run()
}

func (s *DispatcherTestSuite) TearDownTest() {
	if !s.shutdown {
		s.Require().NoError(s.d.Shutdown(workerpool.Immediate))
	}
	transport.UnlinkAllNamed(s.cfg.TransportNamespace)
}

func (s *DispatcherTestSuite) newClient() *client.Client {
	c := client.NewNamespaced(s.cfg.TransportNamespace)
	s.Require().NoError(c.Init())
	return c
}

// dialClient is newClient's goroutine-safe counterpart: testify's
// Require() calls t.FailNow(), which is unsafe from a non-test
// goroutine, so concurrent cases report errors over a channel instead.
func (s *DispatcherTestSuite) dialClient() (*client.Client, error) {
	c := client.NewNamespaced(s.cfg.TransportNamespace)
	if err := c.Init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DispatcherTestSuite) TestSyncAddRoundTrips() {
	c := s.newClient()
	defer c.Cleanup()

	result, status, err := c.CallMathSync(wire.CmdAdd, 19, 23)
	s.Require().NoError(err)
	s.Equal(int32(42), result)
	s.Equal(wire.StatusOK, status)
}

func (s *DispatcherTestSuite) TestAsyncConcatRoundTrips() {
	c := s.newClient()
	defer c.Cleanup()

	id, err := c.SubmitStringAsync(wire.CmdConcat, "ipc", "rpc")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		ready, res, err := c.Poll(id)
		return err == nil && ready && res.StrResult == "ipcrpc"
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *DispatcherTestSuite) TestConcurrentClientsDoNotCorruptSlots() {
	const clients = 4
	errCh := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func(a int32) {
			c, err := s.dialClient()
			if err != nil {
				errCh <- err
				return
			}
			defer c.Cleanup()
			result, status, err := c.CallMathSync(wire.CmdAdd, a, 1)
			if err != nil {
				errCh <- err
				return
			}
			if status != wire.StatusOK || result != a+1 {
				errCh <- fmt.Errorf("unexpected result %d status %v for a=%d", result, status, a)
				return
			}
			errCh <- nil
		}(int32(i))
	}
	for i := 0; i < clients; i++ {
		require.NoError(s.T(), <-errCh)
	}
}

func (s *DispatcherTestSuite) TestDrainShutdownReportsClosedState() {
	c := s.newClient()
	defer c.Cleanup()

	_, _, err := c.CallMathSync(wire.CmdAdd, 1, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.d.Shutdown(workerpool.Drain))
	s.shutdown = true

	_, _, err = c.CallMathSync(wire.CmdAdd, 1, 1)
	s.Error(err)
}
