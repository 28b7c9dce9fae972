// Package syscall implements the kernel's system-call surface: spec.md
// §4.7's seventeen-row table plus the do_io fast path, as thin synchronous
// shims over process.Process, memory.FrameAllocator, and the Object
// capability methods. It generalizes the teacher's internal/ctrl.Controller
// shim style (AddDevice/SetParams/StartDevice/DeleteDevice as one function
// per ublk control op) into one function per syscall table row.
package syscall

import (
	"sync"
	"time"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/process"
	"github.com/objcore/kernel/wire"
)

// dmaRegion records the physically-contiguous frame range AllocDMA mapped
// at a given base address, so PhysicalAddress can translate a VA within it
// back to a PPN without AddressSpace needing to carry PPN bookkeeping for
// every ordinary mapping.
type dmaRegion struct {
	start wire.PPN
	pages int
}

// Table is one process's syscall surface: every call below acts on the
// Process and the kernel-wide FrameAllocator it was built with.
type Table struct {
	proc   *process.Process
	frames *memory.FrameAllocator
	now    func() time.Time

	mu   sync.Mutex
	anon map[uint64]*memory.Object
	dma  map[uint64]dmaRegion
}

// New builds a syscall Table for proc, backed by the kernel-wide physical
// frame allocator frames (shared across every process's alloc_dma calls).
func New(proc *process.Process, frames *memory.FrameAllocator) *Table {
	return &Table{
		proc:   proc,
		frames: frames,
		now:    time.Now,
		anon:   make(map[uint64]*memory.Object),
		dma:    make(map[uint64]dmaRegion),
	}
}

func invalidHandle(op string) error { return kerr.New(op, kerr.InvalidObject) }
