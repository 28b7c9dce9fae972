package streamtable

import (
	"testing"

	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerTestTable(t *testing.T) (*Table, *Server) {
	t.Helper()
	bufferMem, err := memory.NewAnonymous(2, wire.R|wire.W)
	require.NoError(t, err)
	tbl, err := NewTable(bufferMem, 6, 1<<20, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		tbl.Close()
		bufferMem.Close()
	})

	fa := memory.NewFrameAllocator(64)
	server := NewServer(tbl, object.NewFileRoot(fa))
	return tbl, server
}

// TestServerCreateWriteSeekReadDestroyRoundTrip drives the full
// client/server loop a real process would run, entirely through the public
// Object surface: Enqueue now drains responses immediately, so issuing a
// request and calling Serve resolves the client ticket synchronously.
func TestServerCreateWriteSeekReadDestroyRoundTrip(t *testing.T) {
	tbl, server := newServerTestTable(t)
	client := tbl.Public()

	createTicket := client.Create([]byte("log"))
	require.Equal(t, 1, server.Serve())
	fileObj, err := ticket.Wait(createTicket)
	require.NoError(t, err)

	writeTicket := fileObj.Write([]byte("boot ok"))
	require.Equal(t, 1, server.Serve())
	n, err := ticket.Wait(writeTicket)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	seekTicket := fileObj.Seek(wire.SeekFrom{Origin: wire.SeekStart})
	require.Equal(t, 1, server.Serve())
	_, err = ticket.Wait(seekTicket)
	require.NoError(t, err)

	readTicket := fileObj.Read(32)
	require.Equal(t, 1, server.Serve())
	data, err := ticket.Wait(readTicket)
	require.NoError(t, err)
	assert.Equal(t, "boot ok", string(data))

	destroyTicket := client.Destroy([]byte("log"))
	require.Equal(t, 1, server.Serve())
	_, err = ticket.Wait(destroyTicket)
	require.NoError(t, err)
}

func TestServerOpenMissingFileReturnsError(t *testing.T) {
	tbl, server := newServerTestTable(t)
	client := tbl.Public()

	openTicket := client.Open([]byte("missing"))
	require.Equal(t, 1, server.Serve())
	_, err := ticket.Wait(openTicket)
	assert.Error(t, err)
}

func TestServerCloseRemovesHandleFromServerTable(t *testing.T) {
	tbl, server := newServerTestTable(t)
	client := tbl.Public()

	createTicket := client.Create([]byte("a"))
	require.Equal(t, 1, server.Serve())
	fileObj, err := ticket.Wait(createTicket)
	require.NoError(t, err)

	require.NoError(t, fileObj.Close())
	require.Equal(t, 1, server.Serve())

	writeTicket := fileObj.Write([]byte("x"))
	require.Equal(t, 1, server.Serve())
	_, err = ticket.Wait(writeTicket)
	assert.Error(t, err)
}
