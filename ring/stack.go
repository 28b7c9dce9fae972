package ring

import "sync/atomic"

// FreeStack is a lock-free Treiber stack of block indices, used by the
// Stream Table buffer pool's free list: pushing and popping a fixed-size
// block never needs more than a single index word per node, since the
// "next" pointer for a free block lives inside the block's own storage
// (the pool writes it into the block's last four bytes; see
// streamtable.Pool).
//
// next must return the current next-pointer stored for a given index, and
// setNext must durably write a new one, so FreeStack stays independent of
// where the block storage actually lives (a Go slice in tests, an mmap'd
// page in production).
type FreeStack struct {
	top     topWord
	next    func(index uint32) uint32
	setNext func(index uint32, nextIndex uint32)
}

// topWord is the CAS-able word holding the stack's head index. Both a
// plain atomic.Uint32 and a Cursor attached to shared-memory bytes satisfy
// it, so the same free-list head can live purely in-process or inside a
// page other code also reads (streamtable's buffer pool uses the latter:
// the head word is part of the page layout, matching a real free-list
// that must survive being inspected from outside this package).
type topWord interface {
	Load() uint32
	CompareAndSwap(old, new uint32) bool
}

// NilIndex marks the end of the free list / an empty stack.
const NilIndex uint32 = 0xFFFFFFFF

// NewFreeStack builds an empty stack backed by the given next-pointer
// accessors, with its head word owned privately by the FreeStack.
func NewFreeStack(next func(uint32) uint32, setNext func(uint32, uint32)) *FreeStack {
	w := &atomic.Uint32{}
	w.Store(NilIndex)
	return &FreeStack{top: w, next: next, setNext: setNext}
}

// NewFreeStackAt builds a stack whose head word is top, which the caller
// must have already initialized to NilIndex (or to a valid chain left over
// from a previous attach). Use this when the head word must live in shared
// memory alongside the blocks themselves, e.g. a Cursor over a page.
func NewFreeStackAt(top topWord, next func(uint32) uint32, setNext func(uint32, uint32)) *FreeStack {
	return &FreeStack{top: top, next: next, setNext: setNext}
}

// Push returns a block index to the free list.
func (s *FreeStack) Push(index uint32) {
	for {
		top := s.top.Load()
		s.setNext(index, top)
		if s.top.CompareAndSwap(top, index) {
			return
		}
	}
}

// Pop removes and returns a block index, or ok=false if the stack is
// empty.
func (s *FreeStack) Pop() (index uint32, ok bool) {
	for {
		top := s.top.Load()
		if top == NilIndex {
			return 0, false
		}
		next := s.next(top)
		if s.top.CompareAndSwap(top, next) {
			return top, true
		}
	}
}
