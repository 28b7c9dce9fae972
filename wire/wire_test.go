package wire

import (
	"math"
	"testing"

	"github.com/objcore/kernel/kerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRWXRejectsWriteWithoutRead(t *testing.T) {
	_, err := NewRWX(uint8(W))
	require.Error(t, err)
	assert.Equal(t, kerr.InvalidData, kerr.CodeOf(err))

	rw, err := NewRWX(uint8(R | W))
	require.NoError(t, err)
	assert.True(t, rw.Readable())
	assert.True(t, rw.Writable())
	assert.False(t, rw.Executable())
	assert.Equal(t, "rw-", rw.String())
}

func TestNewRWXRejectsUnknownBits(t *testing.T) {
	_, err := NewRWX(0xF0)
	require.Error(t, err)
}

func TestPPNAddressRoundTrip(t *testing.T) {
	p := PPNFromAddress(0x5000)
	assert.Equal(t, uint64(0x5000), p.Address())
	assert.Equal(t, PPN(5), p)
}

func TestSeekApplyStart(t *testing.T) {
	pos, err := Apply(SeekFrom{Origin: SeekStart, Offset: 42}, 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), pos)
}

func TestSeekApplyCurrentForwardAndBackward(t *testing.T) {
	pos, err := Apply(SeekFrom{Origin: SeekCurrent, Offset: 10}, 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), pos)

	pos, err = Apply(SeekFrom{Origin: SeekCurrent, Offset: -50}, 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), pos)
}

func TestSeekApplyCurrentBackwardPastZeroIsInvalid(t *testing.T) {
	_, err := Apply(SeekFrom{Origin: SeekCurrent, Offset: -200}, 100, 1000)
	require.Error(t, err)
	assert.Equal(t, kerr.InvalidData, kerr.CodeOf(err))
}

func TestSeekApplyCurrentWithMinInt64Overflows(t *testing.T) {
	_, err := Apply(SeekFrom{Origin: SeekCurrent, Offset: math.MinInt64}, 0, 1000)
	require.Error(t, err)
	assert.Equal(t, kerr.InvalidData, kerr.CodeOf(err))
}

func TestSeekApplyEnd(t *testing.T) {
	pos, err := Apply(SeekFrom{Origin: SeekEnd, Offset: -10}, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(990), pos)
}

func TestSliceEmpty(t *testing.T) {
	assert.True(t, Slice{}.Empty())
	assert.False(t, Slice{Length: 1}.Empty())
}

func TestRequestSlotAmountRoundTrip(t *testing.T) {
	var s RequestSlot
	s.Handle = 7
	s.JobID = 99
	s.Type = ReqWrite
	s.PutAmount(1234)

	var buf [RequestSlotSize]byte
	s.Marshal(buf[:])
	got := UnmarshalRequestSlot(buf[:])

	assert.Equal(t, s.Handle, got.Handle)
	assert.Equal(t, s.JobID, got.JobID)
	assert.Equal(t, s.Type, got.Type)
	assert.Equal(t, uint32(1234), got.Amount())
}

func TestRequestSlotSliceRoundTrip(t *testing.T) {
	var s RequestSlot
	s.Type = ReqRead
	sl := Slice{Offset: 0xAABBCC, Length: 0xFFFFFF}
	s.PutSlice(sl)

	var buf [RequestSlotSize]byte
	s.Marshal(buf[:])
	got := UnmarshalRequestSlot(buf[:])

	assert.Equal(t, sl, got.Slice())
}

func TestRequestSlotSliceZero(t *testing.T) {
	var s RequestSlot
	s.PutSlice(Slice{})
	assert.True(t, s.Slice().Empty())
}

func TestRequestSlotShareHandleRoundTrip(t *testing.T) {
	var s RequestSlot
	s.Type = ReqShare
	s.PutShareHandle(0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), s.ShareHandle())
}

func TestRequestSlotSeekRoundTrip(t *testing.T) {
	var s RequestSlot
	s.Type = ReqSeek
	from := SeekFrom{Origin: SeekEnd, Offset: -12345}
	s.PutSeek(from)

	var buf [RequestSlotSize]byte
	s.Marshal(buf[:])
	got := UnmarshalRequestSlot(buf[:])

	assert.Equal(t, from, got.Seek())
}

func TestResponseSlotMarshalRoundTrip(t *testing.T) {
	s := ResponseSlot{JobID: 5, Value: 0xCAFEBABE}
	var buf [ResponseSlotSize]byte
	s.Marshal(buf[:])
	got := UnmarshalResponseSlot(buf[:])
	assert.Equal(t, s, got)
}

func TestErrorValueBoundaries(t *testing.T) {
	assert.Equal(t, ^uint64(0), ErrorValue(-1))
	assert.Equal(t, ^uint64(0)-4095, ErrorValue(-4096))
}

func TestErrorValueDecodeRoundTrip(t *testing.T) {
	for code := int16(-1); code >= -4096; code-- {
		v := ErrorValue(code)
		assert.True(t, IsError(v), "code=%d value=%d should be in error band", code, v)
		assert.Equal(t, code, DecodeError(v))
	}
}

func TestIsErrorExcludesNonErrorValues(t *testing.T) {
	assert.False(t, IsError(0))
	assert.False(t, IsError(^uint64(0)-4096))
}

func TestSubmissionSlotRoundTrip(t *testing.T) {
	s := SubmissionSlot{
		Type:     SubWrite,
		Handle:   3,
		Args:     [6]uint64{1, 2, 3, 4, 5, 6},
		UserData: 0x1122334455667788,
	}
	var buf [SubmissionSlotSize]byte
	s.Marshal(buf[:])
	got := UnmarshalSubmissionSlot(buf[:])
	assert.Equal(t, s, got)
}

func TestCompletionSlotRoundTrip(t *testing.T) {
	c := CompletionSlot{UserData: 42, Value: -7}
	var buf [CompletionSlotSize]byte
	c.Marshal(buf[:])
	got := UnmarshalCompletionSlot(buf[:])
	assert.Equal(t, c, got)
}

func TestQueuePagesGrowsWithSize(t *testing.T) {
	small := QueuePages(4, 4)
	large := QueuePages(10, 10)
	assert.Greater(t, large, small)
	assert.GreaterOrEqual(t, small, 1)
}

func TestStreamTablePagesCoversBothRings(t *testing.T) {
	pages := StreamTablePages()
	assert.GreaterOrEqual(t, pages*PageSize, HeaderSize+2*RingCapacity*RequestSlotSize)
}

func TestStartupImageEncodeDecodeRoundTrip(t *testing.T) {
	img := StartupImage{
		Objects: []NamedObject{
			{Name: "in", Handle: 1},
			{Name: "out", Handle: 2},
		},
		Args: [][]byte{[]byte("objcore-fileserver"), []byte("--root=/srv")},
		Env:  map[string][]byte{"HOME": []byte("/root")},
	}
	data, err := img.Encode()
	require.NoError(t, err)

	got, err := DecodeStartupImage(data)
	require.NoError(t, err)
	assert.Equal(t, img.Objects, got.Objects)
	assert.Equal(t, img.Args, got.Args)
	assert.Equal(t, img.Env, got.Env)
}

func TestDecodeStartupImageTruncatedIsInvalidData(t *testing.T) {
	_, err := DecodeStartupImage([]byte{0x01, 0x00})
	require.Error(t, err)
	assert.Equal(t, kerr.InvalidData, kerr.CodeOf(err))
}
