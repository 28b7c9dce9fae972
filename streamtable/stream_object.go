package streamtable

import (
	"encoding/binary"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// StreamObject is the client-facing Object proxy to a Stream Table server:
// spec.md's "(weak<Table>, handle)" pair. It implements exactly the
// capabilities the wire protocol carries; anything else falls through to
// Base's InvalidOperation.
type StreamObject struct {
	object.Base

	table  *Table
	handle uint32
}

func (s *StreamObject) Read(max int) ticket.Ticket[[]byte] {
	t, w := ticket.New[[]byte]()
	err := s.table.submit(Request{Handle: s.handle, Type: wire.ReqRead, Amount: uint32(max)}, func(v uint64, err error) {
		if err != nil {
			w.Complete(nil, err)
			return
		}
		reply := UnpackSlice(v)
		if reply.Length == 0 {
			w.Complete(nil, nil)
			return
		}
		data := make([]byte, reply.Length)
		if rerr := s.table.pool.ReadAt(reply, 0, data); rerr != nil {
			w.Complete(nil, rerr)
			return
		}
		s.table.pool.Free(reply)
		w.Complete(data, nil)
	})
	if err != nil {
		return ticket.Done[[]byte](nil, err)
	}
	return t
}

func (s *StreamObject) Write(data []byte) ticket.Ticket[uint64] {
	sl, err := s.table.pool.Alloc(uint32(len(data)))
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	if len(data) > 0 {
		if werr := s.table.pool.WriteAt(sl, 0, data); werr != nil {
			s.table.pool.Free(sl)
			return ticket.Done[uint64](0, werr)
		}
	}
	t, w := ticket.New[uint64]()
	err = s.table.submit(Request{Handle: s.handle, Type: wire.ReqWrite, Slice: sl}, func(v uint64, err error) {
		w.Complete(v, err)
	})
	if err != nil {
		s.table.pool.Free(sl)
		return ticket.Done[uint64](0, err)
	}
	return t
}

func (s *StreamObject) openLike(reqType wire.RequestType, path []byte) ticket.Ticket[object.Object] {
	if reqType == wire.ReqOpen && s.table.allowSharing && len(path) == 4 {
		token := binary.LittleEndian.Uint32(path)
		if obj, ok := s.table.takeShare(token); ok {
			return ticket.Done[object.Object](obj, nil)
		}
	}

	sl, err := s.table.pool.Alloc(uint32(len(path)))
	if err != nil {
		return ticket.Done[object.Object](nil, err)
	}
	if len(path) > 0 {
		if werr := s.table.pool.WriteAt(sl, 0, path); werr != nil {
			s.table.pool.Free(sl)
			return ticket.Done[object.Object](nil, werr)
		}
	}
	t, w := ticket.New[object.Object]()
	err = s.table.submit(Request{Handle: s.handle, Type: reqType, Slice: sl}, func(v uint64, err error) {
		if err != nil {
			w.Complete(nil, err)
			return
		}
		w.Complete(&StreamObject{table: s.table, handle: uint32(v)}, nil)
	})
	if err != nil {
		s.table.pool.Free(sl)
		return ticket.Done[object.Object](nil, err)
	}
	return t
}

func (s *StreamObject) Open(path []byte) ticket.Ticket[object.Object] {
	return s.openLike(wire.ReqOpen, path)
}

func (s *StreamObject) Create(path []byte) ticket.Ticket[object.Object] {
	return s.openLike(wire.ReqCreate, path)
}

func (s *StreamObject) Destroy(path []byte) ticket.Ticket[uint64] {
	sl, err := s.table.pool.Alloc(uint32(len(path)))
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	if len(path) > 0 {
		if werr := s.table.pool.WriteAt(sl, 0, path); werr != nil {
			s.table.pool.Free(sl)
			return ticket.Done[uint64](0, werr)
		}
	}
	t, w := ticket.New[uint64]()
	err = s.table.submit(Request{Handle: s.handle, Type: wire.ReqDestroy, Slice: sl}, func(v uint64, err error) {
		w.Complete(v, err)
	})
	if err != nil {
		s.table.pool.Free(sl)
		return ticket.Done[uint64](0, err)
	}
	return t
}

func (s *StreamObject) GetMeta(property []byte) ticket.Ticket[[]byte] {
	sl, err := s.table.pool.Alloc(uint32(len(property)))
	if err != nil {
		return ticket.Done[[]byte](nil, err)
	}
	if len(property) > 0 {
		if werr := s.table.pool.WriteAt(sl, 0, property); werr != nil {
			s.table.pool.Free(sl)
			return ticket.Done[[]byte](nil, werr)
		}
	}
	t, w := ticket.New[[]byte]()
	err = s.table.submit(Request{Handle: s.handle, Type: wire.ReqGetMeta, Slice: sl}, func(v uint64, err error) {
		if err != nil {
			w.Complete(nil, err)
			return
		}
		reply := UnpackSlice(v)
		if reply.Length == 0 {
			w.Complete(nil, nil)
			return
		}
		data := make([]byte, reply.Length)
		if rerr := s.table.pool.ReadAt(reply, 0, data); rerr != nil {
			w.Complete(nil, rerr)
			return
		}
		s.table.pool.Free(reply)
		w.Complete(data, nil)
	})
	if err != nil {
		s.table.pool.Free(sl)
		return ticket.Done[[]byte](nil, err)
	}
	return t
}

// SetMeta packs property and value into one buffer, a 2-byte length
// prefix ahead of property's bytes so the server can split them back
// apart, matching the wire package's other length-prefixed encodings.
func (s *StreamObject) SetMeta(property, value []byte) ticket.Ticket[uint64] {
	if len(property) > 0xFFFF {
		return ticket.Done[uint64](0, kerr.New("stream_object.set_meta", kerr.InvalidData))
	}
	buf := make([]byte, 2+len(property)+len(value))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(property)))
	copy(buf[2:], property)
	copy(buf[2+len(property):], value)

	sl, err := s.table.pool.Alloc(uint32(len(buf)))
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	if werr := s.table.pool.WriteAt(sl, 0, buf); werr != nil {
		s.table.pool.Free(sl)
		return ticket.Done[uint64](0, werr)
	}
	t, w := ticket.New[uint64]()
	err = s.table.submit(Request{Handle: s.handle, Type: wire.ReqSetMeta, Slice: sl}, func(v uint64, err error) {
		w.Complete(v, err)
	})
	if err != nil {
		s.table.pool.Free(sl)
		return ticket.Done[uint64](0, err)
	}
	return t
}

func (s *StreamObject) Seek(from wire.SeekFrom) ticket.Ticket[uint64] {
	t, w := ticket.New[uint64]()
	err := s.table.submit(Request{Handle: s.handle, Type: wire.ReqSeek, Seek: from}, func(v uint64, err error) {
		w.Complete(v, err)
	})
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	return t
}

func (s *StreamObject) Share(target object.Object) ticket.Ticket[uint64] {
	if !s.table.allowSharing {
		return ticket.Done[uint64](0, kerr.New("stream_object.share", kerr.InvalidOperation))
	}
	token := s.table.registerShare(target)
	t, w := ticket.New[uint64]()
	err := s.table.submit(Request{Handle: s.handle, Type: wire.ReqShare, Share: token}, func(v uint64, err error) {
		w.Complete(v, err)
	})
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	return t
}

// Close enqueues a Close request and does not wait for a reply: a drop
// that blocked on the server would defeat the point of fire-and-forget
// teardown.
func (s *StreamObject) Close() error {
	return s.table.submit(Request{Handle: s.handle, Type: wire.ReqClose}, nil)
}
