// Package ring implements the lock-free structures the object/IPC core
// layers its shared-memory rings and buffer pool on: a generic Vyukov-style
// MPMC ring for in-process use, and a LIFO free-list stack for pool blocks.
package ring

import "sync/atomic"

const cacheLinePad = 64

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
	_        [cacheLinePad]byte
}

// MPMC is a bounded lock-free multi-producer multi-consumer ring for
// in-process values that never cross the process boundary; only this
// package's tests use it. Shared-memory rings that cross into untrusted processes use the raw
// head/tail cursors in cursor.go instead, since their cells live in mmap'd
// memory rather than a Go slice.
type MPMC[T any] struct {
	head uint64
	_    [cacheLinePad]byte
	tail uint64
	_    [cacheLinePad]byte
	mask uint64
	cells []cell[T]
}

// NewMPMC allocates a ring whose capacity is rounded up to a power of two.
func NewMPMC[T any](capacity int) *MPMC[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	r := &MPMC[T]{
		mask:  uint64(size - 1),
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Push enqueues val, returning false if the ring is full.
func (r *MPMC[T]) Push(val T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(tail); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		case diff < 0:
			return false
		}
	}
}

// Pop dequeues the oldest value, returning ok=false if the ring is empty.
func (r *MPMC[T]) Pop() (val T, ok bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(head+1); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				val = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return val, true
			}
		case diff < 0:
			return val, false
		}
	}
}

// Len reports an approximate occupancy; under concurrent use it may be
// stale by the time the caller observes it.
func (r *MPMC[T]) Len() int {
	return int(atomic.LoadUint64(&r.tail) - atomic.LoadUint64(&r.head))
}

// Cap returns the fixed, power-of-two capacity.
func (r *MPMC[T]) Cap() int { return len(r.cells) }
