package object

import (
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// SubRange presents a windowed view [offset, offset+length) of another
// Object: reads/writes/seeks are translated into the underlying Object's
// coordinate space and clamped to the window.
type SubRange struct {
	Base

	inner  Object
	offset uint64
	length uint64
	pos    uint64
}

// NewSubRange wraps inner so only [offset, offset+length) is visible.
func NewSubRange(inner Object, offset, length uint64) *SubRange {
	return &SubRange{inner: inner, offset: offset, length: length}
}

func (s *SubRange) Read(max int) ticket.Ticket[[]byte] {
	remaining := s.length - s.pos
	if remaining == 0 {
		return ticket.Done[[]byte](nil, nil)
	}
	if uint64(max) > remaining {
		max = int(remaining)
	}
	seekTicket := s.inner.Seek(wire.SeekFrom{Origin: wire.SeekStart, Offset: int64(s.offset + s.pos)})
	if _, err, ready := seekTicket.Poll(); ready && err != nil {
		return ticket.Done[[]byte](nil, err)
	}
	data, err, ready := s.inner.Read(max).Poll()
	if !ready {
		return ticket.Done[[]byte](nil, kerr.New("subrange.read", kerr.Other))
	}
	if err != nil {
		return ticket.Done[[]byte](nil, err)
	}
	s.pos += uint64(len(data))
	return ticket.Done[[]byte](data, nil)
}

func (s *SubRange) Write(data []byte) ticket.Ticket[uint64] {
	remaining := s.length - s.pos
	if uint64(len(data)) > remaining {
		data = data[:remaining]
	}
	seekTicket := s.inner.Seek(wire.SeekFrom{Origin: wire.SeekStart, Offset: int64(s.offset + s.pos)})
	if _, err, ready := seekTicket.Poll(); ready && err != nil {
		return ticket.Done[uint64](0, err)
	}
	n, err, ready := s.inner.Write(data).Poll()
	if !ready {
		return ticket.Done[uint64](0, kerr.New("subrange.write", kerr.Other))
	}
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	s.pos += n
	return ticket.Done[uint64](n, nil)
}

func (s *SubRange) Seek(from wire.SeekFrom) ticket.Ticket[uint64] {
	newPos, err := wire.Apply(from, s.pos, s.length)
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	s.pos = newPos
	return ticket.Done[uint64](newPos, nil)
}

func (s *SubRange) Close() error { return nil }
