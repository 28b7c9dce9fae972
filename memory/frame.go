// Package memory implements the physical frame allocator, virtual address
// space bookkeeping, and Memory Object backing store the rest of the
// object/IPC core maps Stream Tables and I/O Queues onto.
package memory

import (
	"math/bits"
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/wire"
)

// FrameAllocator hands out physical page frames from a fixed-size pool,
// tracked with one bit per frame the way a real frame allocator tracks
// physical RAM: a 0 bit is free, a 1 bit is allocated. The single-frame
// fast path and the contiguous-run search both scan 64 bits at a time.
type FrameAllocator struct {
	mu      sync.Mutex
	bitmap  []uint64
	total   int
	nextHint int
	free    int
}

// NewFrameAllocator creates an allocator over totalFrames frames, all
// initially free.
func NewFrameAllocator(totalFrames int) *FrameAllocator {
	words := (totalFrames + 63) / 64
	return &FrameAllocator{
		bitmap: make([]uint64, words),
		total:  totalFrames,
		free:   totalFrames,
	}
}

func (a *FrameAllocator) isSet(idx int) bool {
	return a.bitmap[idx/64]&(1<<(uint(idx)%64)) != 0
}

func (a *FrameAllocator) setRange(start, count int, set bool) {
	for i := start; i < start+count; i++ {
		word, bit := i/64, uint(i)%64
		if set {
			a.bitmap[word] |= 1 << bit
		} else {
			a.bitmap[word] &^= 1 << bit
		}
	}
}

// Alloc reserves a single free frame.
func (a *FrameAllocator) Alloc() (wire.PPN, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.findFree(a.nextHint)
	if idx < 0 {
		idx = a.findFree(0)
	}
	if idx < 0 {
		return 0, kerr.New("frame.Alloc", kerr.CantCreateObject)
	}
	a.setRange(idx, 1, true)
	a.free--
	a.nextHint = idx + 1
	return wire.PPN(idx), nil
}

// AllocContiguous reserves count physically contiguous frames, needed for
// Memory Objects large enough that scatter-gather mapping would be
// impractical (e.g. a DMA-visible ring). Returns the first frame.
func (a *FrameAllocator) AllocContiguous(count int) (wire.PPN, error) {
	if count <= 0 {
		return 0, kerr.New("frame.AllocContiguous", kerr.InvalidData)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	start := a.findFreeRun(0, count)
	if start < 0 {
		return 0, kerr.New("frame.AllocContiguous", kerr.CantCreateObject)
	}
	a.setRange(start, count, true)
	a.free -= count
	return wire.PPN(start), nil
}

// Free returns a previously allocated frame to the pool.
func (a *FrameAllocator) Free(p wire.PPN) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := int(p)
	if idx < 0 || idx >= a.total || !a.isSet(idx) {
		return
	}
	a.setRange(idx, 1, false)
	a.free++
}

// FreeContiguous returns count frames starting at p.
func (a *FrameAllocator) FreeContiguous(p wire.PPN, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := int(p)
	if start < 0 || start+count > a.total {
		return
	}
	a.setRange(start, count, false)
	a.free += count
}

// FreeFrames reports the number of frames still available.
func (a *FrameAllocator) FreeFrames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free
}

func (a *FrameAllocator) findFree(from int) int {
	wordIdx := from / 64
	for ; wordIdx < len(a.bitmap); wordIdx++ {
		word := a.bitmap[wordIdx]
		if word == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^word)
		idx := wordIdx*64 + bit
		if idx < a.total {
			return idx
		}
		return -1
	}
	return -1
}

func (a *FrameAllocator) findFreeRun(from, count int) int {
	runStart, runLen := -1, 0
	for i := from; i < a.total; i++ {
		if a.isSet(i) {
			runStart, runLen = -1, 0
			continue
		}
		if runStart < 0 {
			runStart = i
		}
		runLen++
		if runLen >= count {
			return runStart
		}
	}
	return -1
}
