package object

import (
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// FileRoot is an in-memory namespace Object: Open/Create/Destroy manage a
// flat map of named SharedMemory files. It plays the role spec.md's File
// Root variant plays for a process's object table, and is what
// cmd/objcore-fileserver publishes behind a Stream Table.
type FileRoot struct {
	Base

	mu    sync.Mutex
	fa    *memory.FrameAllocator
	files map[string]*SharedMemory
}

// NewFileRoot creates an empty namespace backed by fa for new file
// allocations.
func NewFileRoot(fa *memory.FrameAllocator) *FileRoot {
	return &FileRoot{fa: fa, files: make(map[string]*SharedMemory)}
}

func (r *FileRoot) Open(path []byte) ticket.Ticket[Object] {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[string(path)]
	if !ok {
		return ticket.Done[Object](nil, kerr.New("fileroot.open", kerr.DoesNotExist))
	}
	return ticket.Done[Object](f, nil)
}

// defaultFileFrames is the page count a freshly Create'd file starts
// with; Write grows within that allocation but does not reallocate, the
// same fixed-capacity-file simplification the teacher's Memory backend
// makes with its shard array.
const defaultFileFrames = 4

func (r *FileRoot) Create(path []byte) ticket.Ticket[Object] {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := string(path)
	if _, exists := r.files[name]; exists {
		return ticket.Done[Object](nil, kerr.New("fileroot.create", kerr.CantCreateObject))
	}
	f, err := NewSharedMemory(r.fa, defaultFileFrames, wire.R|wire.W)
	if err != nil {
		return ticket.Done[Object](nil, kerr.Wrap("fileroot.create", kerr.CantCreateObject, err))
	}
	r.files[name] = f
	return ticket.Done[Object](f, nil)
}

func (r *FileRoot) Destroy(path []byte) ticket.Ticket[uint64] {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := string(path)
	f, ok := r.files[name]
	if !ok {
		return ticket.Done[uint64](0, kerr.New("fileroot.destroy", kerr.DoesNotExist))
	}
	delete(r.files, name)
	f.Close()
	return ticket.Done[uint64](0, nil)
}
