package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	WriteGeneration(mem, 7)
	WriteNextRequestID(mem, 42)

	h := ReadHeader(mem)
	assert.Equal(t, uint64(7), h.ServerGeneration)
	assert.Equal(t, uint64(42), h.NextRequestID)
	assert.Equal(t, uint64(7), ReadGeneration(mem))
	assert.Equal(t, uint64(42), ReadNextRequestID(mem))
}

func TestSlotStateRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 3)
	assert.Equal(t, StateFree, s.State())

	s.SetState(StateRequestPending)
	assert.Equal(t, StateRequestPending, s.State())

	// Other slots must be untouched.
	assert.Equal(t, StateFree, Slot(mem, 0).State())
	assert.Equal(t, StateFree, Slot(mem, 4).State())
}

func TestSlotMathArgsRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 0)
	s.SetCommand(CmdDiv)
	s.SetMathArgs(MathArgs{A: -7, B: 3})
	s.SetRequestID(99)
	s.SetClientPID(1234)

	assert.Equal(t, CmdDiv, s.Command())
	assert.Equal(t, MathArgs{A: -7, B: 3}, s.MathArgs())
	assert.Equal(t, uint64(99), s.RequestID())
	assert.Equal(t, int32(1234), s.ClientPID())
}

func TestSlotStringArgsRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 1)
	s.SetCommand(CmdConcat)
	s.SetStringArgs(StringArgs{S1: "hello", S2: "world"})

	got := s.StringArgs()
	assert.Equal(t, "hello", got.S1)
	assert.Equal(t, "world", got.S2)
}

func TestSlotMathResultRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 2)
	s.SetMathResult(-123)
	assert.Equal(t, int32(-123), s.MathResult())
}

func TestSlotStringResultRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 2)
	s.SetStringResult("helloworld12345")
	assert.Equal(t, "helloworld12345", s.StringResult())
}

func TestSlotPositionRoundTrip(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 2)
	s.SetPosition(-1)
	assert.Equal(t, int32(-1), s.Position())
	s.SetPosition(5)
	assert.Equal(t, int32(5), s.Position())
}

func TestSlotReset(t *testing.T) {
	mem := make([]byte, RegionSize)
	s := Slot(mem, 5)
	s.SetState(StateResponseReady)
	s.SetRequestID(1)
	s.SetStringResult("leftover")
	s.SetStatus(StatusOK)

	s.Reset()
	assert.Equal(t, StateFree, s.State())
	assert.Equal(t, uint64(0), s.RequestID())
	assert.Equal(t, StatusOK, s.Status())
	assert.Equal(t, "", s.StringResult())
}

func TestSlotsDoNotOverlap(t *testing.T) {
	mem := make([]byte, RegionSize)
	for i := 0; i < SlotCount; i++ {
		Slot(mem, i).SetRequestID(uint64(i + 1))
	}
	for i := 0; i < SlotCount; i++ {
		assert.Equal(t, uint64(i+1), Slot(mem, i).RequestID())
	}
}

func TestCommandClassification(t *testing.T) {
	assert.True(t, CmdAdd.IsMath())
	assert.True(t, CmdSub.IsMath())
	assert.True(t, CmdMul.IsMath())
	assert.True(t, CmdDiv.IsMath())
	assert.False(t, CmdConcat.IsMath())
	assert.False(t, CmdSearch.IsMath())

	assert.True(t, CmdConcat.IsString())
	assert.True(t, CmdSearch.IsString())
	assert.False(t, CmdAdd.IsString())
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "REQUEST_PENDING", StateRequestPending.String())
	assert.Equal(t, "ADD", CmdAdd.String())
	assert.Equal(t, "DIV_BY_ZERO", StatusDivByZero.String())
}

func TestRegionSizeAccountsForAllSlots(t *testing.T) {
	assert.Equal(t, HeaderSize+SlotCount*SlotSize, RegionSize)
	assert.Equal(t, 0, SlotSize%8, "slot size must stay 8-byte aligned")
}
