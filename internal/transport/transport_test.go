package transport

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/localipc/shmrpc/internal/shmregion"
	"github.com/localipc/shmrpc/internal/wire"
)

// TransportTestSuite exercises transport against a per-test-method
// suffix, so its cases can run in parallel with each other, with the
// client package's suite, and with a live server without colliding in
// /dev/shm on the spec's fixed names.
type TransportTestSuite struct {
	suite.Suite
	suffix string
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}

func (s *TransportTestSuite) SetupTest() {
	s.suffix = fmt.Sprintf("_test_%d_%s", os.Getpid(), strings.ReplaceAll(s.T().Name(), "/", "_"))
	UnlinkAllNamed(s.suffix)
}

func (s *TransportTestSuite) TearDownTest() {
	UnlinkAllNamed(s.suffix)
}

func (s *TransportTestSuite) TestCreateServerThenOpenClient() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()

	server.SetGeneration(5)
	server.InitRequestID()

	client, err := OpenClientNamed(s.suffix)
	s.Require().NoError(err)
	defer client.Close()

	s.Equal(uint64(5), client.Generation())
}

func (s *TransportTestSuite) TestFindFreeSlotAndRequestIDSequencing() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()
	server.InitRequestID()

	s.Require().NoError(server.Lock())
	idx := server.FindFreeSlot()
	s.Equal(0, idx)
	id1 := server.NextRequestID()
	id2 := server.NextRequestID()
	server.Unlock()

	s.Equal(uint64(1), id1)
	s.Equal(uint64(2), id2)
}

func (s *TransportTestSuite) TestFindFreeSlotSkipsOccupiedSlots() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()

	s.Require().NoError(server.Lock())
	server.Slot(0).SetState(wire.StateRequestPending)
	server.Slot(1).SetState(wire.StateProcessing)
	idx := server.FindFreeSlot()
	server.Unlock()

	s.Equal(2, idx)
}

func (s *TransportTestSuite) TestFindFreeSlotReturnsMinusOneWhenFull() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()

	s.Require().NoError(server.Lock())
	for i := 0; i < wire.SlotCount; i++ {
		server.Slot(i).SetState(wire.StateProcessing)
	}
	idx := server.FindFreeSlot()
	server.Unlock()

	s.Equal(-1, idx)
}

func (s *TransportTestSuite) TestNotifyAndSlotSemaphoresCrossHandle() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()

	client, err := OpenClientNamed(s.suffix)
	s.Require().NoError(err)
	defer client.Close()

	client.NotifyPost()
	s.Require().NoError(server.NotifyWait(time.Now().Add(time.Second)))

	server.SlotSemPost(3)
	s.Require().NoError(client.SlotSemWait(3, time.Now().Add(time.Second)))
}

func (s *TransportTestSuite) TestIdentityMatchesCurrentShmIdentity() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	defer server.Close()

	own, err := server.Identity()
	s.Require().NoError(err)
	cur, err := shmregion.CurrentIdentity(ShmName + s.suffix)
	s.Require().NoError(err)
	s.Equal(own, cur)
}

func (s *TransportTestSuite) TestUnlinkAllMakesOpenClientFail() {
	server, err := CreateServerNamed(s.suffix)
	s.Require().NoError(err)
	server.Close()
	UnlinkAllNamed(s.suffix)

	_, err = OpenClientNamed(s.suffix)
	s.Error(err)
}
