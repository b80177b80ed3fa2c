// Package wire defines the fixed, byte-safe layout shared between the
// server and every client process over the mapped region described in
// spec.md §3 and §6. All offsets are plain constants rather than Go
// struct tags so every reader agrees on layout regardless of compiler
// version, mirroring the explicit-offset style the teacher uses for
// its buffer-manager header fields.
package wire

import "encoding/binary"

// Constants normative per spec.md §3.
const (
	SlotCount     = 16 // N
	MaxStringLen  = 16 // L
	MaxConcatLen  = 33 // R = 2L + NUL
	stringBufLen  = MaxStringLen + 1
	mathArgsLen   = 4 + 4                       // A, B int32
	stringArgsLen = stringBufLen + stringBufLen // S1, S2
	requestLen    = 36                          // max(mathArgsLen, stringArgsLen), rounded to 4
	responseLen   = 36                          // max(4, MaxConcatLen, 4), rounded to 4
)

// Slot field offsets, relative to the start of the slot.
const (
	offState     = 0
	offRequestID = 8 // 8-byte aligned, 4 bytes of padding follow offState
	offClientPID = offRequestID + 8
	offCommand   = offClientPID + 4
	offRequest   = offCommand + 4
	offResponse  = offRequest + requestLen
	offStatus    = offResponse + responseLen
	slotRawSize  = offStatus + 4
	// SlotSize is padded up to an 8-byte multiple so consecutive slots
	// keep their uint64 fields naturally aligned.
	SlotSize = (slotRawSize + 7) &^ 7
)

// Header field offsets.
const (
	offServerGeneration = 0
	offNextRequestID    = 8
	// HeaderSize is the byte length of the region header that precedes
	// the slot array.
	HeaderSize = 16
)

// RegionSize is the total byte length of the shared region: header
// plus SlotCount slots.
const RegionSize = HeaderSize + SlotCount*SlotSize

// SlotState is a closed four-variant enum, represented as a tagged
// uint32 for cross-process binary compatibility.
type SlotState uint32

const (
	StateFree SlotState = iota
	StateRequestPending
	StateProcessing
	StateResponseReady
)

func (s SlotState) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateRequestPending:
		return "REQUEST_PENDING"
	case StateProcessing:
		return "PROCESSING"
	case StateResponseReady:
		return "RESPONSE_READY"
	default:
		return "UNKNOWN"
	}
}

// Command is one of the six request commands.
type Command uint32

const (
	CmdAdd Command = iota
	CmdSub
	CmdMul
	CmdDiv
	CmdConcat
	CmdSearch
)

func (c Command) String() string {
	switch c {
	case CmdAdd:
		return "ADD"
	case CmdSub:
		return "SUB"
	case CmdMul:
		return "MUL"
	case CmdDiv:
		return "DIV"
	case CmdConcat:
		return "CONCAT"
	case CmdSearch:
		return "SEARCH"
	default:
		return "UNKNOWN"
	}
}

// IsMath reports whether the command belongs to the math pool.
func (c Command) IsMath() bool { return c == CmdAdd || c == CmdSub || c == CmdMul || c == CmdDiv }

// IsString reports whether the command belongs to the string pool.
func (c Command) IsString() bool { return c == CmdConcat || c == CmdSearch }

// Status is one of the six response status codes.
type Status uint32

const (
	StatusOK Status = iota
	StatusDivByZero
	StatusNotFound
	StatusStrTooLong
	StatusInvalidInput
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusDivByZero:
		return "DIV_BY_ZERO"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusStrTooLong:
		return "STR_TOO_LONG"
	case StatusInvalidInput:
		return "INVALID_INPUT"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Header is the decoded view of the region's leading bytes.
type Header struct {
	ServerGeneration uint64
	NextRequestID    uint64
}

// ReadHeader decodes the header from the start of mem.
func ReadHeader(mem []byte) Header {
	return Header{
		ServerGeneration: binary.LittleEndian.Uint64(mem[offServerGeneration:]),
		NextRequestID:    binary.LittleEndian.Uint64(mem[offNextRequestID:]),
	}
}

// WriteGeneration stores the generation counter. Only the server calls this.
func WriteGeneration(mem []byte, gen uint64) {
	binary.LittleEndian.PutUint64(mem[offServerGeneration:], gen)
}

// ReadGeneration reads the generation counter without decoding the rest of
// the header; used on every client hot-path access.
func ReadGeneration(mem []byte) uint64 {
	return binary.LittleEndian.Uint64(mem[offServerGeneration:])
}

// ReadNextRequestID / WriteNextRequestID manage the monotone ID counter.
func ReadNextRequestID(mem []byte) uint64 {
	return binary.LittleEndian.Uint64(mem[offNextRequestID:])
}

func WriteNextRequestID(mem []byte, id uint64) {
	binary.LittleEndian.PutUint64(mem[offNextRequestID:], id)
}

// slotBytes returns the byte window for slot i within the full region.
func slotBytes(mem []byte, i int) []byte {
	start := HeaderSize + i*SlotSize
	return mem[start : start+SlotSize]
}

// MathArgs holds the two operands for ADD/SUB/MUL/DIV.
type MathArgs struct {
	A int32
	B int32
}

// StringArgs holds the two bounded operands for CONCAT/SEARCH.
type StringArgs struct {
	S1 string
	S2 string
}

// SlotView is a cursor over one slot's bytes in the mapped region. It
// performs no locking; callers hold the region mutex for the duration
// of every read or write, per spec.md invariant I3.
type SlotView struct {
	b []byte
}

// Slot returns a view over slot index i (0-based).
func Slot(mem []byte, i int) SlotView {
	return SlotView{b: slotBytes(mem, i)}
}

func (s SlotView) State() SlotState {
	return SlotState(binary.LittleEndian.Uint32(s.b[offState:]))
}

func (s SlotView) SetState(st SlotState) {
	binary.LittleEndian.PutUint32(s.b[offState:], uint32(st))
}

func (s SlotView) RequestID() uint64 {
	return binary.LittleEndian.Uint64(s.b[offRequestID:])
}

func (s SlotView) SetRequestID(id uint64) {
	binary.LittleEndian.PutUint64(s.b[offRequestID:], id)
}

func (s SlotView) ClientPID() int32 {
	return int32(binary.LittleEndian.Uint32(s.b[offClientPID:]))
}

func (s SlotView) SetClientPID(pid int32) {
	binary.LittleEndian.PutUint32(s.b[offClientPID:], uint32(pid))
}

func (s SlotView) Command() Command {
	return Command(binary.LittleEndian.Uint32(s.b[offCommand:]))
}

func (s SlotView) SetCommand(c Command) {
	binary.LittleEndian.PutUint32(s.b[offCommand:], uint32(c))
}

func (s SlotView) Status() Status {
	return Status(binary.LittleEndian.Uint32(s.b[offStatus:]))
}

func (s SlotView) SetStatus(st Status) {
	binary.LittleEndian.PutUint32(s.b[offStatus:], uint32(st))
}

// SetMathArgs writes the request union as MathArgs.
func (s SlotView) SetMathArgs(a MathArgs) {
	req := s.b[offRequest : offRequest+requestLen]
	for i := range req {
		req[i] = 0
	}
	binary.LittleEndian.PutUint32(req[0:], uint32(a.A))
	binary.LittleEndian.PutUint32(req[4:], uint32(a.B))
}

// MathArgs reads the request union as MathArgs.
func (s SlotView) MathArgs() MathArgs {
	req := s.b[offRequest:]
	return MathArgs{
		A: int32(binary.LittleEndian.Uint32(req[0:])),
		B: int32(binary.LittleEndian.Uint32(req[4:])),
	}
}

// SetStringArgs writes the request union as StringArgs. Callers must
// have already validated len(s1), len(s2) in [1, MaxStringLen].
func (s SlotView) SetStringArgs(a StringArgs) {
	req := s.b[offRequest : offRequest+requestLen]
	for i := range req {
		req[i] = 0
	}
	copy(req[0:stringBufLen], a.S1)
	copy(req[stringBufLen:stringBufLen*2], a.S2)
}

// StringArgs reads the request union as StringArgs (NUL-terminated C strings).
func (s SlotView) StringArgs() StringArgs {
	req := s.b[offRequest:]
	return StringArgs{
		S1: cstr(req[0:stringBufLen]),
		S2: cstr(req[stringBufLen : stringBufLen*2]),
	}
}

// SetMathResult writes the response union as a plain int32 result,
// zeroing the union first so no bytes leak across slot reuse (design
// note b).
func (s SlotView) SetMathResult(v int32) {
	resp := s.b[offResponse : offResponse+responseLen]
	for i := range resp {
		resp[i] = 0
	}
	binary.LittleEndian.PutUint32(resp[0:], uint32(v))
}

func (s SlotView) MathResult() int32 {
	return int32(binary.LittleEndian.Uint32(s.b[offResponse:]))
}

// SetStringResult writes the response union as a NUL-terminated string.
func (s SlotView) SetStringResult(v string) {
	resp := s.b[offResponse : offResponse+responseLen]
	for i := range resp {
		resp[i] = 0
	}
	copy(resp, v)
}

func (s SlotView) StringResult() string {
	return cstr(s.b[offResponse : offResponse+MaxConcatLen])
}

// SetPosition writes the response union as a SEARCH position.
func (s SlotView) SetPosition(p int32) {
	s.SetMathResult(p)
}

func (s SlotView) Position() int32 {
	return s.MathResult()
}

// Reset zeroes the whole slot and returns it to FREE, used when a
// client consumes a RESPONSE_READY slot. Region initialization zeroes
// the whole region directly instead (internal/transport).
func (s SlotView) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
