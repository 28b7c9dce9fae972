package streamtable

import (
	"encoding/binary"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// Server drives one Table's request ring against a handle table of
// server-side Objects: the dispatch loop a process runs once it owns a
// Stream Table, playing the role the I/O Queue's Process/dispatch pair
// plays for the per-process queue, but against request slots instead of
// submission slots.
type Server struct {
	table   *Table
	handles *handle.Arena[object.Object]
}

// NewServer creates a Server over table, installing root as the arena's
// first entry so it lands on rootHandle — the handle every client receives
// implicitly via table.Public(), with no Open round trip required.
func NewServer(table *Table, root object.Object) *Server {
	h := handle.New[object.Object]()
	got := h.Insert(root)
	if uint32(got) != rootHandle {
		panic("streamtable: root object must be a Server's first insertion")
	}
	return &Server{table: table, handles: h}
}

// Serve drains every request currently queued against the table,
// dispatching each and enqueueing its response. It has no equivalent to the
// I/O Queue's pending vector: a variant whose Ticket does not resolve
// immediately (NetConn, Notify) blocks this call until it does.
func (s *Server) Serve() int {
	n := 0
	for {
		req, ok := s.table.Dequeue()
		if !ok {
			return n
		}
		s.dispatch(req)
		n++
	}
}

func (s *Server) dispatch(req Request) {
	if req.Type == wire.ReqClose {
		if obj, ok := s.handles.Remove(handle.Value(req.Handle)); ok {
			obj.Close()
		}
		return
	}

	obj, ok := s.handles.Get(handle.Value(req.Handle))
	if !ok {
		s.table.Enqueue(req.JobID, 0, kerr.New("streamtable.server", kerr.InvalidObject))
		return
	}

	switch req.Type {
	case wire.ReqRead:
		data, err := ticket.Wait(obj.Read(int(req.Amount)))
		s.replyData(req.JobID, data, err)

	case wire.ReqWrite:
		payload, err := s.readPayload(req.Slice)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		n, err := ticket.Wait(obj.Write(payload))
		s.table.Enqueue(req.JobID, n, err)

	case wire.ReqOpen, wire.ReqCreate:
		path, err := s.readPayload(req.Slice)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		var child object.Object
		if req.Type == wire.ReqOpen {
			child, err = ticket.Wait(obj.Open(path))
		} else {
			child, err = ticket.Wait(obj.Create(path))
		}
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		s.table.Enqueue(req.JobID, uint64(s.handles.Insert(child)), nil)

	case wire.ReqDestroy:
		path, err := s.readPayload(req.Slice)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		n, err := ticket.Wait(obj.Destroy(path))
		s.table.Enqueue(req.JobID, n, err)

	case wire.ReqSeek:
		pos, err := ticket.Wait(obj.Seek(req.Seek))
		s.table.Enqueue(req.JobID, pos, err)

	case wire.ReqGetMeta:
		property, err := s.readPayload(req.Slice)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		data, err := ticket.Wait(obj.GetMeta(property))
		s.replyData(req.JobID, data, err)

	case wire.ReqSetMeta:
		buf, err := s.readPayload(req.Slice)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		property, value, err := splitSetMeta(buf)
		if err != nil {
			s.table.Enqueue(req.JobID, 0, err)
			return
		}
		n, err := ticket.Wait(obj.SetMeta(property, value))
		s.table.Enqueue(req.JobID, n, err)

	case wire.ReqShare:
		target, ok := s.table.takeShare(req.Share)
		if !ok {
			s.table.Enqueue(req.JobID, 0, kerr.New("streamtable.server", kerr.InvalidObject))
			return
		}
		n, err := ticket.Wait(obj.Share(target))
		s.table.Enqueue(req.JobID, n, err)

	default:
		s.table.Enqueue(req.JobID, 0, kerr.New("streamtable.server", kerr.InvalidOperation))
	}
}

// readPayload copies req.Slice's content out of the table's buffer pool and
// frees the chain, since a request's argument blocks are never reused past
// the single dispatch that reads them.
func (s *Server) readPayload(sl wire.Slice) ([]byte, error) {
	if sl.Length == 0 {
		return nil, nil
	}
	buf := make([]byte, sl.Length)
	err := s.table.pool.ReadAt(sl, 0, buf)
	s.table.pool.Free(sl)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// replyData packs data into a fresh pool allocation and enqueues it as a
// PackSlice-encoded response value, matching StreamObject's Read/GetMeta
// decode side.
func (s *Server) replyData(jobID uint32, data []byte, err error) {
	if err != nil {
		s.table.Enqueue(jobID, 0, err)
		return
	}
	sl, werr := s.table.pool.Alloc(uint32(len(data)))
	if werr != nil {
		s.table.Enqueue(jobID, 0, werr)
		return
	}
	if len(data) > 0 {
		if werr := s.table.pool.WriteAt(sl, 0, data); werr != nil {
			s.table.pool.Free(sl)
			s.table.Enqueue(jobID, 0, werr)
			return
		}
	}
	s.table.Enqueue(jobID, PackSlice(sl), nil)
}

// splitSetMeta undoes StreamObject.SetMeta's 2-byte length-prefixed
// property/value packing.
func splitSetMeta(buf []byte) (property, value []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, kerr.New("streamtable.server", kerr.InvalidData)
	}
	plen := int(binary.LittleEndian.Uint16(buf[0:2]))
	if 2+plen > len(buf) {
		return nil, nil, kerr.New("streamtable.server", kerr.InvalidData)
	}
	return buf[2 : 2+plen], buf[2+plen:], nil
}
