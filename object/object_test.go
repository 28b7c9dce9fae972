package object

import (
	"testing"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bareObject struct{ Base }

func TestBaseDefaultsToInvalidOperation(t *testing.T) {
	var o Object = bareObject{}

	_, err, ready := o.Open(nil).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidOperation, kerr.CodeOf(err))

	_, err, ready = o.Read(10).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidOperation, kerr.CodeOf(err))

	_, ok := o.MemoryObject()
	assert.False(t, ok)

	assert.NoError(t, o.Close())
}

func TestNotifySignalWakesParkedReader(t *testing.T) {
	drained := false
	n := NewNotify(func() { drained = true })

	_, _, ready := n.Read(1).Poll()
	assert.False(t, ready)

	t2 := n.Read(1)
	n.Signal()
	v, err, ready := t2.Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, v)

	_, err, ready = n.Write(nil).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.True(t, drained)
}

func TestNotifyReadImmediateWhenAlreadySignalled(t *testing.T) {
	n := NewNotify(nil)
	n.Signal()
	v, err, ready := n.Read(1).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, v)
}

func TestSharedMemoryWriteSeekReadRoundTrip(t *testing.T) {
	fa := memory.NewFrameAllocator(16)
	sm, err := NewSharedMemory(fa, 1, wire.R|wire.W)
	require.NoError(t, err)
	defer sm.Close()

	data := []byte("hello, object core")
	n, err, ready := sm.Write(data).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), n)

	_, err, ready = sm.Seek(wire.SeekFrom{Origin: wire.SeekStart, Offset: 0}).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	got, err, ready := sm.Read(len(data)).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSharedMemoryMemoryObjectProjection(t *testing.T) {
	fa := memory.NewFrameAllocator(16)
	sm, err := NewSharedMemory(fa, 3, wire.R|wire.W|wire.X)
	require.NoError(t, err)
	defer sm.Close()

	mo, ok := sm.MemoryObject()
	require.True(t, ok)
	assert.Equal(t, 3, mo.PageCount())
	assert.Equal(t, wire.R|wire.W|wire.X, mo.MaxRWX())
}

func TestSubRangeClampsToWindow(t *testing.T) {
	fa := memory.NewFrameAllocator(16)
	sm, err := NewSharedMemory(fa, 1, wire.R|wire.W)
	require.NoError(t, err)
	defer sm.Close()

	full := make([]byte, wire.PageSize)
	for i := range full {
		full[i] = byte(i)
	}
	_, _, _ = sm.Write(full).Poll()

	sr := NewSubRange(sm, 10, 5)
	got, err, ready := sr.Read(100).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, full[10:15], got)

	// window exhausted
	got, err, ready = sr.Read(100).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPermissionMaskedRejectsWriteWhenReadOnly(t *testing.T) {
	fa := memory.NewFrameAllocator(16)
	sm, err := NewSharedMemory(fa, 1, wire.R|wire.W)
	require.NoError(t, err)
	defer sm.Close()

	masked := NewPermissionMasked(sm, wire.R)
	_, err, ready := masked.Write([]byte("x")).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidOperation, kerr.CodeOf(err))
}

func TestPermissionMaskedIntersectsMaxRWX(t *testing.T) {
	fa := memory.NewFrameAllocator(16)
	sm, err := NewSharedMemory(fa, 1, wire.R|wire.W|wire.X)
	require.NoError(t, err)
	defer sm.Close()

	masked := NewPermissionMasked(sm, wire.R)
	mo, ok := masked.MemoryObject()
	require.True(t, ok)
	assert.Equal(t, wire.R, mo.MaxRWX())
}

func TestFileRootCreateOpenDestroy(t *testing.T) {
	fa := memory.NewFrameAllocator(64)
	root := NewFileRoot(fa)

	obj, err, ready := root.Create([]byte("foo")).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	require.NotNil(t, obj)

	again, err, ready := root.Open([]byte("foo")).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Same(t, obj, again)

	_, err, ready = root.Create([]byte("foo")).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.CantCreateObject, kerr.CodeOf(err))

	_, err, ready = root.Destroy([]byte("foo")).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	_, err, ready = root.Open([]byte("foo")).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.DoesNotExist, kerr.CodeOf(err))
}
