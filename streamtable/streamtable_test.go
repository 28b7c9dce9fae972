package streamtable

import (
	"encoding/binary"
	"testing"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ring"
	"github.com/objcore/kernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, poolFrames int, blockSizeLog2 uint, allowSharing bool) *Table {
	t.Helper()
	bufferMem, err := memory.NewAnonymous(poolFrames, wire.R|wire.W)
	require.NoError(t, err)
	tbl, err := NewTable(bufferMem, blockSizeLog2, 1<<20, allowSharing)
	require.NoError(t, err)
	t.Cleanup(func() {
		tbl.Close()
		bufferMem.Close()
	})
	return tbl
}

func TestPoolAllocSizeZeroConsumesNoBlock(t *testing.T) {
	bufferMem, err := memory.NewAnonymous(1, wire.R|wire.W)
	require.NoError(t, err)
	defer bufferMem.Close()
	ctrl, err := memory.NewPage(1)
	require.NoError(t, err)
	defer ctrl.Close()
	freeHead := ring.Attach(ctrl.Bytes()[:4])
	freeHead.Store(ring.NilIndex)

	pool, err := NewPool(bufferMem.Bytes(), 6, freeHead)
	require.NoError(t, err)
	pool.Seed()

	sl, err := pool.Alloc(0)
	require.NoError(t, err)
	assert.True(t, sl.Empty())
	pool.Free(sl)
}

func TestPoolAllocSingleBlock(t *testing.T) {
	bufferMem, err := memory.NewAnonymous(1, wire.R|wire.W)
	require.NoError(t, err)
	defer bufferMem.Close()
	ctrl, err := memory.NewPage(1)
	require.NoError(t, err)
	defer ctrl.Close()
	freeHead := ring.Attach(ctrl.Bytes()[:4])
	freeHead.Store(ring.NilIndex)

	pool, err := NewPool(bufferMem.Bytes(), 12, freeHead) // block_size == pool size
	require.NoError(t, err)
	pool.Seed()

	sl, err := pool.Alloc(4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), sl.Length)

	_, err = pool.Alloc(1)
	assert.Equal(t, kerr.CantCreateObject, kerr.CodeOf(err))

	pool.Free(sl)
	sl2, err := pool.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, sl.Offset, sl2.Offset)
}

// TestPoolScatterChainRoundTrip mirrors spec scenario 2: a write of 200
// bytes against a 64-byte block size allocates a header plus four data
// blocks, and the free-list head returns to its starting value once freed.
func TestPoolScatterChainRoundTrip(t *testing.T) {
	bufferMem, err := memory.NewAnonymous(2, wire.R|wire.W) // 8 KiB
	require.NoError(t, err)
	defer bufferMem.Close()
	ctrl, err := memory.NewPage(1)
	require.NoError(t, err)
	defer ctrl.Close()
	freeHead := ring.Attach(ctrl.Bytes()[:4])
	freeHead.Store(ring.NilIndex)

	pool, err := NewPool(bufferMem.Bytes(), 6, freeHead) // block_size = 64
	require.NoError(t, err)
	pool.Seed()
	headBefore := freeHead.Load()

	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	sl, err := pool.Alloc(uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, uint32(200), sl.Length)

	require.NoError(t, pool.WriteAt(sl, 0, payload))
	got := make([]byte, len(payload))
	require.NoError(t, pool.ReadAt(sl, 0, got))
	assert.Equal(t, payload, got)

	pool.Free(sl)
	assert.Equal(t, headBefore, freeHead.Load())
}

func TestPoolExhaustionRollsBackPartialChain(t *testing.T) {
	bufferMem, err := memory.NewAnonymous(1, wire.R|wire.W) // 4 KiB
	require.NoError(t, err)
	defer bufferMem.Close()
	ctrl, err := memory.NewPage(1)
	require.NoError(t, err)
	defer ctrl.Close()
	freeHead := ring.Attach(ctrl.Bytes()[:4])
	freeHead.Store(ring.NilIndex)

	pool, err := NewPool(bufferMem.Bytes(), 6, freeHead) // 64 blocks of 64 bytes
	require.NoError(t, err)
	pool.Seed()

	// ask for more than the whole pool can hold
	_, err = pool.Alloc(1 << 20)
	assert.Equal(t, kerr.CantCreateObject, kerr.CodeOf(err))

	// the pool must still be fully usable afterwards (no leaked blocks)
	sl, err := pool.Alloc(64)
	require.NoError(t, err)
	pool.Free(sl)
}

// TestStreamTableOpenReadClose is spec scenario 1.
func TestStreamTableOpenReadClose(t *testing.T) {
	tbl := newTestTable(t, 2, 6, false)

	publicObj := tbl.Public()
	openTicket := publicObj.Open([]byte("foo"))

	req, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, rootHandle, req.Handle)
	assert.Equal(t, wire.ReqOpen, req.Type)

	path := make([]byte, req.Slice.Length)
	require.NoError(t, tbl.pool.ReadAt(req.Slice, 0, path))
	assert.Equal(t, "foo", string(path))
	tbl.pool.Free(req.Slice)

	require.NoError(t, tbl.Enqueue(req.JobID, 1, nil))

	got, err, ready := openTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)
	so, ok := got.(*StreamObject)
	require.True(t, ok)
	assert.Equal(t, uint32(1), so.handle)

	require.NoError(t, so.Close())
	closeReq, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, uint32(1), closeReq.Handle)
	assert.Equal(t, wire.ReqClose, closeReq.Type)
}

// TestStreamTableLargeWriteSplitAcrossBlocks is spec scenario 2, driven
// through the client/server Object API rather than the pool directly.
func TestStreamTableLargeWriteSplitAcrossBlocks(t *testing.T) {
	tbl := newTestTable(t, 2, 6, false)
	so := &StreamObject{table: tbl, handle: 7}

	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i * 3)
	}
	writeTicket := so.Write(data)

	req, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, wire.ReqWrite, req.Type)
	assert.Equal(t, uint32(200), req.Slice.Length)

	serverCopy := make([]byte, req.Slice.Length)
	require.NoError(t, tbl.pool.ReadAt(req.Slice, 0, serverCopy))
	assert.Equal(t, data, serverCopy)
	tbl.pool.Free(req.Slice)

	require.NoError(t, tbl.Enqueue(req.JobID, uint64(len(data)), nil))
	n, err, ready := writeTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), n)
}

// TestStreamTableShareRoundTrip is spec scenario 3.
func TestStreamTableShareRoundTrip(t *testing.T) {
	tbl := newTestTable(t, 1, 6, true)
	so := &StreamObject{table: tbl, handle: 3}

	someObj := object.NewNotify(nil)
	shareTicket := so.Share(someObj)

	req, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, wire.ReqShare, req.Type)

	// server just echoes the token back as its own Share reply
	require.NoError(t, tbl.Enqueue(req.JobID, uint64(req.Share), nil))

	k, err, ready := shareTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)

	var tokenBytes [4]byte
	binary.LittleEndian.PutUint32(tokenBytes[:], uint32(k))
	openTicket := tbl.Public().Open(tokenBytes[:])

	got, err, ready := openTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Same(t, someObj, got)

	_, ok = tbl.Dequeue()
	assert.False(t, ok, "share-token open must not reach the server")
}

func TestStreamTableShareDisallowedReturnsInvalidOperation(t *testing.T) {
	tbl := newTestTable(t, 1, 6, false)
	so := &StreamObject{table: tbl, handle: 3}

	_, err, ready := so.Share(object.NewNotify(nil)).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidOperation, kerr.CodeOf(err))
}

// TestStreamTableCancelledOnServerDeath is spec scenario 5.
func TestStreamTableCancelledOnServerDeath(t *testing.T) {
	tbl := newTestTable(t, 1, 6, false)
	so := &StreamObject{table: tbl, handle: 5}

	readTicket := so.Read(16)
	_, ok := tbl.Dequeue()
	require.True(t, ok)

	tbl.Shutdown()

	_, err, ready := readTicket.Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.Cancelled, kerr.CodeOf(err))
}

func TestStreamTableRequestRingFullReturnsError(t *testing.T) {
	tbl := newTestTable(t, 2, 6, false)
	so := &StreamObject{table: tbl, handle: 9}

	for i := 0; i < wire.RingCapacity; i++ {
		_, err, ready := so.Seek(wire.SeekFrom{Origin: wire.SeekStart, Offset: 0}).Poll()
		if ready {
			require.NoError(t, err)
		}
	}
	_, err, ready := so.Seek(wire.SeekFrom{Origin: wire.SeekStart, Offset: 0}).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidData, kerr.CodeOf(err))
}

func TestStreamTableGetSetMetaRoundTrip(t *testing.T) {
	tbl := newTestTable(t, 1, 6, false)
	so := &StreamObject{table: tbl, handle: 2}

	setTicket := so.SetMeta([]byte("color"), []byte("blue"))
	req, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, wire.ReqSetMeta, req.Type)

	buf := make([]byte, req.Slice.Length)
	require.NoError(t, tbl.pool.ReadAt(req.Slice, 0, buf))
	propLen := binary.LittleEndian.Uint16(buf[0:2])
	assert.Equal(t, "color", string(buf[2:2+propLen]))
	assert.Equal(t, "blue", string(buf[2+propLen:]))
	tbl.pool.Free(req.Slice)
	require.NoError(t, tbl.Enqueue(req.JobID, uint64(len(buf)), nil))

	_, err, ready := setTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)

	getTicket := so.GetMeta([]byte("color"))
	req2, ok := tbl.Dequeue()
	require.True(t, ok)
	assert.Equal(t, wire.ReqGetMeta, req2.Type)

	reply, err := tbl.pool.Alloc(4)
	require.NoError(t, err)
	require.NoError(t, tbl.pool.WriteAt(reply, 0, []byte("blue")))
	require.NoError(t, tbl.Enqueue(req2.JobID, PackSlice(reply), nil))

	value, err, ready := getTicket.Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, "blue", string(value))
}
