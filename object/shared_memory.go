package object

import (
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// SharedMemory is an owned page set an Object implements read/write/seek
// and memory_object over: spec.md §3's "Shared Memory" variant. Every file
// a FileRoot creates is one.
type SharedMemory struct {
	Base

	mu     sync.Mutex
	obj    *memory.Object
	frames []wire.PPN
	pos    int64
}

// NewSharedMemory allocates frames pages from fa and wraps them as a
// SharedMemory Object with the given ceiling permission.
func NewSharedMemory(fa *memory.FrameAllocator, frames int, maxRWX wire.RWX) (*SharedMemory, error) {
	obj, err := memory.NewAnonymous(frames, maxRWX)
	if err != nil {
		return nil, err
	}
	start, err := fa.AllocContiguous(frames)
	if err != nil {
		obj.Close()
		return nil, err
	}
	ppns := make([]wire.PPN, frames)
	for i := range ppns {
		ppns[i] = start + wire.PPN(i)
	}
	return &SharedMemory{obj: obj, frames: ppns}, nil
}

func (s *SharedMemory) Read(max int) ticket.Ticket[[]byte] {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.obj.Bytes()
	if s.pos >= int64(len(data)) {
		return ticket.Done[[]byte](nil, nil)
	}
	end := s.pos + int64(max)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	out := append([]byte(nil), data[s.pos:end]...)
	s.pos = end
	return ticket.Done[[]byte](out, nil)
}

func (s *SharedMemory) Write(data []byte) ticket.Ticket[uint64] {
	s.mu.Lock()
	defer s.mu.Unlock()
	backing := s.obj.Bytes()
	if s.pos >= int64(len(backing)) {
		return ticket.Done[uint64](0, kerr.New("shared_memory.write", kerr.InvalidData))
	}
	n := copy(backing[s.pos:], data)
	s.pos += int64(n)
	return ticket.Done[uint64](uint64(n), nil)
}

func (s *SharedMemory) Seek(from wire.SeekFrom) ticket.Ticket[uint64] {
	s.mu.Lock()
	defer s.mu.Unlock()
	newPos, err := wire.Apply(from, uint64(s.pos), uint64(len(s.obj.Bytes())))
	if err != nil {
		return ticket.Done[uint64](0, err)
	}
	s.pos = int64(newPos)
	return ticket.Done[uint64](newPos, nil)
}

func (s *SharedMemory) MemoryObject() (MemoryObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryObjectAdapter{obj: s.obj, pages: s.frames}, true
}

func (s *SharedMemory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obj.Close()
}
