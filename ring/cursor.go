package ring

import "sync/atomic"

// Cursor is a single producer/consumer index living at a fixed byte offset
// inside a shared-memory page (a Stream Table or I/O Queue head/tail word).
// It is a thin atomic view over that memory, not an owner of it: Attach
// binds the cursor to the live backing slice so writes are visible to the
// peer process immediately, the way spec.md's shared-memory rings require.
type Cursor struct {
	word *atomic.Uint32
}

// Attach binds a Cursor to the 4 bytes at buf[0:4]. buf must outlive the
// Cursor and must be part of memory both sides of the ring actually share
// (an mmap'd Memory Object's backing, not a private copy).
func Attach(buf []byte) Cursor {
	if len(buf) < 4 {
		panic("ring: cursor needs at least 4 bytes")
	}
	return Cursor{word: (*atomic.Uint32)(ptrOf(buf))}
}

// Load reads the current index with acquire semantics.
func (c Cursor) Load() uint32 { return c.word.Load() }

// Store writes a new index with release semantics, publishing everything
// the caller wrote to the slot it just produced or consumed.
func (c Cursor) Store(v uint32) { c.word.Store(v) }

// CompareAndSwap attempts to advance the index from old to new.
func (c Cursor) CompareAndSwap(old, new uint32) bool {
	return c.word.CompareAndSwap(old, new)
}

// SlotRing describes a fixed-capacity, power-of-two shared-memory ring in
// terms of its two Cursors (head: next slot to consume, tail: next slot to
// produce) and its entry count. It carries no slot storage itself; callers
// index into the backing page at HeaderSize + (index&Mask)*SlotSize
// themselves, since slot layout is wire-format specific (wire.RequestSlot,
// wire.SubmissionSlot, ...).
type SlotRing struct {
	Head     Cursor
	Tail     Cursor
	Capacity uint32
}

// Mask returns Capacity-1; Capacity must be a power of two.
func (s SlotRing) Mask() uint32 { return s.Capacity - 1 }

// TryProduce reserves the next slot index for a single producer, advancing
// Tail only if the ring is not full relative to the last head value the
// caller observed. It returns the reserved index and ok=false if full.
func (s SlotRing) TryProduce(observedHead uint32) (index uint32, ok bool) {
	tail := s.Tail.Load()
	if tail-observedHead >= s.Capacity {
		return 0, false
	}
	if !s.Tail.CompareAndSwap(tail, tail+1) {
		return 0, false
	}
	return tail & s.Mask(), true
}

// TryConsume reserves the next slot index for a single consumer, advancing
// Head only if the ring is not empty relative to the last tail value the
// caller observed.
func (s SlotRing) TryConsume(observedTail uint32) (index uint32, ok bool) {
	head := s.Head.Load()
	if head == observedTail {
		return 0, false
	}
	if !s.Head.CompareAndSwap(head, head+1) {
		return 0, false
	}
	return head & s.Mask(), true
}
