package process

import (
	"sync"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
)

// DefaultAddressSpaceCeiling bounds a freshly created Process's virtual
// address space absent an explicit override; real callers size this to
// the target's word width, 128 GiB is a generous placeholder for tests
// and examples.
const DefaultAddressSpaceCeiling = 128 << 30

// Process is the kernel-side record for one running program: its handle
// table (every Object it currently holds, Stream Tables and I/O Queues
// included), its address space, and its thread set. A Builder's spawn
// hands it out wrapped as an Object (see HandleObject).
type Process struct {
	Handles    *handle.Arena[object.Object]
	AddrSpace  *memory.AddressSpace

	mu      sync.Mutex
	threads []*Thread
	nextTID int
	exited  bool
	exitErr error

	startupImage []byte
}

// StartupImage returns the raw bytes a Process Builder's spawn installed
// for this process to read off its initial stack, or nil if this Process
// was not created via a Builder.
func (p *Process) StartupImage() []byte { return p.startupImage }

// New creates a Process with an empty handle table, a fresh address space
// bounded by ceilingBytes (0 means DefaultAddressSpaceCeiling), and one
// initial thread (id 0, the entry thread spawn_thread/wait_thread count
// relative to).
func New(ceilingBytes uint64) *Process {
	if ceilingBytes == 0 {
		ceilingBytes = DefaultAddressSpaceCeiling
	}
	p := &Process{
		Handles:   handle.New[object.Object](),
		AddrSpace: memory.NewAddressSpace(ceilingBytes),
	}
	p.spawnThreadLocked()
	return p
}

func (p *Process) spawnThreadLocked() *Thread {
	t := newThread(p.nextTID)
	p.nextTID++
	p.threads = append(p.threads, t)
	return t
}

// SpawnThread creates an additional thread: spec.md op 19.
func (p *Process) SpawnThread() *Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawnThreadLocked()
}

// Thread looks up a thread by id.
func (p *Process) Thread(id int) (*Thread, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.threads {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Threads returns a snapshot of every thread the process owns.
func (p *Process) Threads() []*Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Thread, len(p.threads))
	copy(out, p.threads)
	return out
}

// Exit terminates every thread with code and marks the process exited:
// spec.md op 16. A process can only exit once.
func (p *Process) Exit(code uint64) error {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return kerr.New("process.exit", kerr.InvalidOperation)
	}
	p.exited = true
	threads := p.threads
	p.mu.Unlock()

	for _, t := range threads {
		t.Exit(code)
	}
	for _, entry := range p.Handles.Drain() {
		entry.Value.Close()
	}
	return nil
}

// Exited reports whether Exit has already run.
func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// DuplicateHandle installs a second handle aliasing the same Object as h:
// spec.md op 18. The Object is not reference counted: both handles refer
// to the same value, and Exit calls its Close once for each handle that
// still holds it.
func (p *Process) DuplicateHandle(h handle.Value) (handle.Value, error) {
	obj, ok := p.Handles.Get(h)
	if !ok {
		return 0, kerr.New("process.duplicate_handle", kerr.InvalidObject)
	}
	return p.Handles.Insert(obj), nil
}
