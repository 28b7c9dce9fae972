package objcore

import (
	"sync"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/process"
	"github.com/objcore/kernel/syscall"
	"github.com/objcore/kernel/wire"
)

// Kernel wires the frame allocator, the process table, and a Metrics
// Observer together into one instance, the role the teacher's Device plays
// for one ublk block device. Unlike Device, a Kernel is not itself a single
// resource; it is the root object/IPC core every process's syscall Table
// is built against.
type Kernel struct {
	Frames   *memory.FrameAllocator
	Metrics  *Metrics
	Observer Observer

	mu        sync.Mutex
	processes map[*process.Process]struct{}
}

// DefaultTotalFrames is the physical frame pool size a Kernel starts with
// absent an explicit override (4 GiB of 4 KiB frames).
const DefaultTotalFrames = (4 << 30) / wire.PageSize

// New creates a Kernel with totalFrames physical frames available for
// alloc_dma and Shared Memory backing (0 means DefaultTotalFrames), and a
// built-in Metrics wired up as its Observer.
func New(totalFrames int) *Kernel {
	if totalFrames == 0 {
		totalFrames = DefaultTotalFrames
	}
	m := NewMetrics()
	return &Kernel{
		Frames:    memory.NewFrameAllocator(totalFrames),
		Metrics:   m,
		Observer:  NewMetricsObserver(m),
		processes: make(map[*process.Process]struct{}),
	}
}

// SpawnProcess creates a fresh Process with its own syscall Table bound to
// this Kernel's frame allocator, and records the spawn with the Observer.
// ceilingBytes of 0 uses process.DefaultAddressSpaceCeiling.
func (k *Kernel) SpawnProcess(ceilingBytes uint64) (*process.Process, *syscall.Table) {
	p := process.New(ceilingBytes)
	k.mu.Lock()
	k.processes[p] = struct{}{}
	k.mu.Unlock()
	k.Observer.ObserveProcessSpawned()
	return p, syscall.New(p, k.Frames)
}

// ProcessRoot returns a fresh Process Root Object (spec.md's "distinguished
// Object a process starts with"), whose create("new") mints a Process
// Builder. Processes that Builder spawns are not recorded in this Kernel's
// live-process set.
func (k *Kernel) ProcessRoot() *process.Root { return process.NewRoot() }

// RetireProcess drops p from the live-process set once it has exited, and
// records the exit with the Observer. Calling it for a process that never
// exited is a caller error the live-process accounting does not guard
// against, matching spec.md's "process exit" being the only teardown path.
func (k *Kernel) RetireProcess(p *process.Process) {
	k.mu.Lock()
	delete(k.processes, p)
	k.mu.Unlock()
	k.Observer.ObserveProcessExited()
}

// LiveProcesses returns the number of processes SpawnProcess has created
// that have not yet been retired.
func (k *Kernel) LiveProcesses() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.processes)
}

// Alloc performs tbl.Alloc and reports the result to the Observer: spec.md
// op 0, instrumented the way the teacher's Device wraps its backend calls
// with ObserveRead/ObserveWrite.
func (k *Kernel) Alloc(tbl *syscall.Table, pages int, rwx wire.RWX) (uint64, error) {
	addr, err := tbl.Alloc(pages, rwx)
	k.Observer.ObserveAlloc(uint64(pages)*wire.PageSize, err == nil)
	return addr, err
}

// DuplicateHandle performs tbl.DuplicateHandle and reports it to the
// Observer: spec.md op 18.
func (k *Kernel) DuplicateHandle(tbl *syscall.Table, h handle.Value) (handle.Value, error) {
	h2, err := tbl.DuplicateHandle(h)
	k.Observer.ObserveHandleOp(err == nil)
	return h2, err
}

// ProcessIOQueue performs tbl.ProcessIOQueue and reports the queue's
// pending depth and completions produced to the Observer: spec.md op 21.
func (k *Kernel) ProcessIOQueue(tbl *syscall.Table, h handle.Value) error {
	_, readyBefore, err := tbl.IOQueueStats(h)
	if err != nil {
		return err
	}
	if err := tbl.ProcessIOQueue(h); err != nil {
		return err
	}
	pendingAfter, readyAfter, err := tbl.IOQueueStats(h)
	if err != nil {
		return err
	}
	k.Observer.ObserveIOQueueProcess(pendingAfter, readyAfter-readyBefore)
	return nil
}
