package wire

import "encoding/binary"

// Stream Table shared page layout (spec.md §6). Offsets for the control
// header match the spec exactly. The two slot arrays are computed rather
// than pinned to the spec's illustrative 0x020..0x800..0x1000 byte ranges:
// at 128 entries of 16 bytes per ring (the ring-capacity invariant in
// spec.md §4.4 and the boundary test in §8), the two arrays plus the
// 32-byte header add up to slightly more than one 4 KiB page, so the table
// backs onto however many contiguous pages StreamTablePages computes
// rather than forcing a mismatched single page.
const (
	OffRequestHead  = 0x000
	OffRequestTail  = 0x004
	OffResponseHead = 0x008
	OffResponseTail = 0x00C
	OffBufferFreeHead = 0x010

	HeaderSize = 0x020

	RequestSlotSize  = 16
	ResponseSlotSize = 16

	// RingCapacity is the fixed number of entries in each direction.
	RingCapacity = 128

	requestSlotsOffset  = HeaderSize
	responseSlotsOffset = requestSlotsOffset + RingCapacity*RequestSlotSize
	tableLayoutSize     = responseSlotsOffset + RingCapacity*ResponseSlotSize
)

// StreamTablePages returns how many PageSize pages the shared control page
// plus both slot arrays need.
func StreamTablePages() int {
	return (tableLayoutSize + PageSize - 1) / PageSize
}

// RequestType enumerates the Stream Table request kinds (spec.md §4.4).
type RequestType uint8

const (
	ReqRead RequestType = iota
	ReqWrite
	ReqOpen
	ReqCreate
	ReqDestroy
	ReqGetMeta
	ReqSetMeta
	ReqSeek
	ReqShare
	ReqClose
)

// RequestSlot is the packed wire form of one Stream Table request:
// handle(u32) job_id(u32) type(u8) args(7 bytes), 16 bytes total. Args is
// interpreted per Type: an amount (u32), a Slice{offset,length}, a seek
// operand, or a share handle, each left-aligned in the 7-byte field.
type RequestSlot struct {
	Handle uint32
	JobID  uint32
	Type   RequestType
	Args   [7]byte
}

// PutAmount and Amount write and read a u32 argument in the first 4 bytes
// of the 7-byte args field; the remaining bytes are not meaningful.
func (s *RequestSlot) PutAmount(v uint32)  { binary.LittleEndian.PutUint32(s.Args[:4], v) }
func (s *RequestSlot) Amount() uint32      { return binary.LittleEndian.Uint32(s.Args[:4]) }
// PutSlice packs a buffer-pool Slice into args: a 4-byte offset and a
// 3-byte length. The Stream Table rejects a request whose payload exceeds
// its max_request_mem cap, so the length field holds every accepted
// request as long as that cap is below 2^24 bytes; a longer length loses
// its top byte here.
func (s *RequestSlot) PutSlice(sl Slice) {
	binary.LittleEndian.PutUint32(s.Args[:4], sl.Offset)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], sl.Length)
	copy(s.Args[4:7], lenBuf[:3])
}

// Slice reconstructs the Slice argument packed by PutSlice.
func (s *RequestSlot) Slice() Slice {
	var lenBuf [4]byte
	copy(lenBuf[:3], s.Args[4:7])
	return Slice{
		Offset: binary.LittleEndian.Uint32(s.Args[:4]),
		Length: binary.LittleEndian.Uint32(lenBuf[:]),
	}
}

func (s *RequestSlot) PutShareHandle(h uint32) { s.PutAmount(h) }
func (s *RequestSlot) ShareHandle() uint32     { return s.Amount() }

// PutSeek encodes a SeekFrom into args: origin byte then the low 6 bytes
// of the offset, little-endian two's complement. Seek sign-extends them,
// so offsets in [-2^47, 2^47) round-trip; the I/O Queue does not use this
// slot form and passes its SeekFrom whole through its side table.
func (s *RequestSlot) PutSeek(from SeekFrom) {
	s.Args[0] = byte(from.Origin)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(from.Offset))
	copy(s.Args[1:], buf[:6])
}

func (s *RequestSlot) Seek() SeekFrom {
	var buf [8]byte
	copy(buf[:6], s.Args[1:7])
	if buf[5]&0x80 != 0 {
		buf[6], buf[7] = 0xFF, 0xFF
	}
	return SeekFrom{Origin: SeekOrigin(s.Args[0]), Offset: int64(binary.LittleEndian.Uint64(buf[:]))}
}

// Marshal writes the slot's 16-byte wire form.
func (s RequestSlot) Marshal(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], s.Handle)
	binary.LittleEndian.PutUint32(dst[4:8], s.JobID)
	dst[8] = byte(s.Type)
	copy(dst[9:16], s.Args[:])
}

// UnmarshalRequestSlot reads a 16-byte wire form.
func UnmarshalRequestSlot(src []byte) RequestSlot {
	var s RequestSlot
	s.Handle = binary.LittleEndian.Uint32(src[0:4])
	s.JobID = binary.LittleEndian.Uint32(src[4:8])
	s.Type = RequestType(src[8])
	copy(s.Args[:], src[9:16])
	return s
}

// ResponseSlot is {job_id: u32, value: u64, pad: u32}, 16 bytes. Values in
// [MaxUint64-4095, MaxUint64] encode a negative-i16 Error per spec.md §4.4.
type ResponseSlot struct {
	JobID uint32
	Value uint64
}

const errorBand = 4096

// ErrorValue returns the wire encoding of a negative error code (code must
// be in [-4096, -1]): MaxUint64 - magnitude + 1, so -1 maps to MaxUint64
// and -4096 maps to MaxUint64-4095.
func ErrorValue(code int16) uint64 {
	magnitude := uint64(-int64(code))
	return ^uint64(0) - magnitude + 1
}

// IsError reports whether v falls in the reserved error band
// [MaxUint64-4095, MaxUint64].
func IsError(v uint64) bool {
	return v >= ^uint64(0)-errorBand+1
}

// DecodeError recovers the negative i16 error code from an error-band
// value.
func DecodeError(v uint64) int16 {
	magnitude := ^uint64(0) - v + 1
	return int16(-int64(magnitude))
}

// Marshal writes the slot's 16-byte wire form (4 bytes of trailing pad).
func (s ResponseSlot) Marshal(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], s.JobID)
	binary.LittleEndian.PutUint64(dst[4:12], s.Value)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
}

// UnmarshalResponseSlot reads a 16-byte wire form.
func UnmarshalResponseSlot(src []byte) ResponseSlot {
	return ResponseSlot{
		JobID: binary.LittleEndian.Uint32(src[0:4]),
		Value: binary.LittleEndian.Uint64(src[4:12]),
	}
}
