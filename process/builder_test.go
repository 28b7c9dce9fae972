package process

import (
	"testing"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessRootCreateNewReturnsBuilder(t *testing.T) {
	root := NewRoot()
	obj, err, ready := root.Create([]byte("new")).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	_, ok := obj.(*Builder)
	assert.True(t, ok)

	_, err, ready = root.Create([]byte("bogus")).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.DoesNotExist, kerr.CodeOf(err))
}

// TestBuilderSpawnInstallsBinaryAndObjectsInOrder exercises the full
// builder sub-path sequence: binary, objects, stack, spawn.
func TestBuilderSpawnInstallsBinaryAndObjectsInOrder(t *testing.T) {
	b := newBuilder()

	binSlot, _, _ := b.Open([]byte("binary")).Poll()
	binaryObj := object.NewNotify(nil)
	_, err, ready := binSlot.Share(binaryObj).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	objsSlot, _, _ := b.Open([]byte("objects")).Poll()
	stdoutObj := object.NewNotify(nil)
	stdoutSlot, _, _ := objsSlot.Create([]byte("stdout")).Poll()
	_, err, ready = stdoutSlot.Share(stdoutObj).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	img := wire.StartupImage{
		Objects: []wire.NamedObject{{Name: "binary", Handle: 0}, {Name: "stdout", Handle: 1}},
		Args:    [][]byte{[]byte("argv0")},
	}
	encoded, err := img.Encode()
	require.NoError(t, err)

	stackSlotObj, _, _ := b.Open([]byte("stack")).Poll()
	n, err, ready := stackSlotObj.Write(encoded).Poll()
	require.True(t, ready)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(encoded)), n)

	spawnSlotObj, _, _ := b.Open([]byte("spawn")).Poll()
	procObj, err, ready := spawnSlotObj.Open(nil).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	h, ok := procObj.(*HandleObject)
	require.True(t, ok)
	proc := h.Process()

	got, ok := proc.Handles.Get(0)
	require.True(t, ok)
	assert.Same(t, binaryObj, got)
	got, ok = proc.Handles.Get(1)
	require.True(t, ok)
	assert.Same(t, stdoutObj, got)

	decoded, err := wire.DecodeStartupImage(proc.StartupImage())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("argv0")}, decoded.Args)
}

func TestBuilderSpawnTwiceFails(t *testing.T) {
	b := newBuilder()
	spawnSlotObj, _, _ := b.Open([]byte("spawn")).Poll()
	_, err, ready := spawnSlotObj.Open(nil).Poll()
	require.True(t, ready)
	require.NoError(t, err)

	_, err, ready = spawnSlotObj.Open(nil).Poll()
	require.True(t, ready)
	assert.Equal(t, kerr.InvalidOperation, kerr.CodeOf(err))
}

func TestHandleObjectCloseExitsProcess(t *testing.T) {
	b := newBuilder()
	spawnSlotObj, _, _ := b.Open([]byte("spawn")).Poll()
	procObj, _, _ := spawnSlotObj.Open(nil).Poll()
	h := procObj.(*HandleObject)

	require.NoError(t, h.Close())
	assert.True(t, h.Process().Exited())
	assert.NoError(t, h.Close(), "closing an already-exited process is a no-op")
}
