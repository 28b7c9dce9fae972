package process

import (
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
)

// Root is the Process Root Object: spec.md's "Process Root is itself an
// Object whose create("new") returns a Process Builder."
type Root struct{ object.Base }

// NewRoot creates a Process Root.
func NewRoot() *Root { return &Root{} }

func (*Root) Create(path []byte) ticket.Ticket[object.Object] {
	if string(path) != "new" {
		return ticket.Done[object.Object](nil, kerr.New("process_root.create", kerr.DoesNotExist))
	}
	return ticket.Done[object.Object](newBuilder(), nil)
}

// boundObject pairs a name the caller chose (via the objects endpoint's
// Create argument) with the Object eventually Shared onto that slot.
type boundObject struct {
	name string
	obj  object.Object
}

// Builder accumulates a new process's resources before spawn: spec.md's
// "process::Builder incrementally accumulates: the binary ..., a map of
// named objects, argv, envp." Its four sub-paths are reached by Open, each
// returning a small capability object scoped to one field.
type Builder struct {
	object.Base

	mu      sync.Mutex
	binary  object.Object
	objects []boundObject
	// stackImage is the pre-formatted startup image (wire.StartupImage's
	// encoding) the caller writes verbatim; the builder transports it to
	// the new process without reinterpreting it, since only the caller
	// knows which handle numbers it assumed when it formatted the image
	// (matching the order it called objects' Create/Share in).
	stackImage []byte
	spawned    bool
}

func newBuilder() *Builder { return &Builder{} }

func (b *Builder) Open(path []byte) ticket.Ticket[object.Object] {
	switch string(path) {
	case "binary":
		return ticket.Done[object.Object](&binarySlot{b: b}, nil)
	case "objects":
		return ticket.Done[object.Object](&objectsSlot{b: b}, nil)
	case "stack":
		return ticket.Done[object.Object](&stackSlot{b: b}, nil)
	case "spawn":
		return ticket.Done[object.Object](&spawnSlot{b: b}, nil)
	default:
		return ticket.Done[object.Object](nil, kerr.New("builder.open", kerr.DoesNotExist))
	}
}

// binarySlot is the "shareable object slot" spec.md describes for the
// binary: a Share installs the executable's Object.
type binarySlot struct {
	object.Base
	b *Builder
}

func (s *binarySlot) Share(other object.Object) ticket.Ticket[uint64] {
	s.b.mu.Lock()
	s.b.binary = other
	s.b.mu.Unlock()
	return ticket.Done[uint64](0, nil)
}

// objectsSlot is the "share endpoint that assigns small names to handles":
// Create(name) mints a namedSlot the caller then Shares an Object onto.
type objectsSlot struct {
	object.Base
	b *Builder
}

func (s *objectsSlot) Create(path []byte) ticket.Ticket[object.Object] {
	return ticket.Done[object.Object](&namedSlot{b: s.b, name: string(path)}, nil)
}

type namedSlot struct {
	object.Base
	b    *Builder
	name string
}

func (s *namedSlot) Share(other object.Object) ticket.Ticket[uint64] {
	s.b.mu.Lock()
	s.b.objects = append(s.b.objects, boundObject{name: s.name, obj: other})
	s.b.mu.Unlock()
	return ticket.Done[uint64](0, nil)
}

// stackSlot is the "write destination for the pre-formatted stack image":
// the caller already encoded a wire.StartupImage and just hands the bytes
// over verbatim.
type stackSlot struct {
	object.Base
	b *Builder
}

func (s *stackSlot) Write(data []byte) ticket.Ticket[uint64] {
	s.b.mu.Lock()
	s.b.stackImage = append([]byte(nil), data...)
	s.b.mu.Unlock()
	return ticket.Done[uint64](uint64(len(data)), nil)
}

// spawnSlot is the "creates the process" sub-path: opening it performs the
// spawn and hands back the new process as an Object.
type spawnSlot struct {
	object.Base
	b *Builder
}

func (s *spawnSlot) Open(path []byte) ticket.Ticket[object.Object] {
	proc, err := s.b.spawn()
	if err != nil {
		return ticket.Done[object.Object](nil, err)
	}
	return ticket.Done[object.Object](&HandleObject{proc: proc}, nil)
}

// spawn installs the binary and named objects into a fresh Process's
// handle table, in the fixed order (binary first if present, then objects
// in the order they were Shared) that a caller's pre-formatted stack image
// is expected to have assumed, then attaches the caller's stack bytes.
// Spawning twice from the same Builder is rejected: spec.md's builder is
// single-use once it produces a process.
func (b *Builder) spawn() (*Process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spawned {
		return nil, kerr.New("builder.spawn", kerr.InvalidOperation)
	}
	b.spawned = true

	proc := New(0)
	if b.binary != nil {
		proc.Handles.Insert(b.binary)
	}
	for _, bo := range b.objects {
		proc.Handles.Insert(bo.obj)
	}
	proc.startupImage = b.stackImage
	return proc, nil
}

// HandleObject is a Process exposed through the Object capability surface,
// the form another process holds a handle to (e.g. the result of spawn, or
// a wait_thread target reached by handle rather than direct reference).
// Close terminates the process exactly as exit would.
type HandleObject struct {
	object.Base
	proc *Process
}

// Process returns the underlying Process record.
func (h *HandleObject) Process() *Process { return h.proc }

func (h *HandleObject) Close() error {
	if h.proc.Exited() {
		return nil
	}
	return h.proc.Exit(0)
}
