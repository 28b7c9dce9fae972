// Package object implements the uniform polymorphic capability every
// resource in the kernel is represented as: files, devices, memory,
// processes, and notify endpoints all satisfy the same Object interface.
package object

import (
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// Object is the capability surface every variant implements. Operations
// that may need to round-trip to a user-space server return a Ticket
// instead of a direct value/error pair.
type Object interface {
	Open(path []byte) ticket.Ticket[Object]
	Create(path []byte) ticket.Ticket[Object]
	Destroy(path []byte) ticket.Ticket[uint64]
	Read(max int) ticket.Ticket[[]byte]
	Write(data []byte) ticket.Ticket[uint64]
	Seek(from wire.SeekFrom) ticket.Ticket[uint64]
	GetMeta(property []byte) ticket.Ticket[[]byte]
	SetMeta(property, value []byte) ticket.Ticket[uint64]
	Share(other Object) ticket.Ticket[uint64]
	Close() error
	MemoryObject() (MemoryObject, bool)
}

// MemoryObject is the physical-page projection an Object may optionally
// expose, letting an Address Space map it.
type MemoryObject interface {
	Pages() []wire.PPN
	PageCount() int
	DefaultPageFlags() wire.PageFlags
	MaxRWX() wire.RWX
}

// Base gives every concrete variant InvalidOperation on the full
// capability set for free; a variant embeds Base and overrides only the
// operations it actually implements, per spec.md §4.1's default error
// policy ("every operation returns InvalidOperation unless a variant
// overrides it").
type Base struct{}

func (Base) Open(path []byte) ticket.Ticket[Object] {
	return ticket.Done[Object](nil, kerr.New("open", kerr.InvalidOperation))
}

func (Base) Create(path []byte) ticket.Ticket[Object] {
	return ticket.Done[Object](nil, kerr.New("create", kerr.InvalidOperation))
}

func (Base) Destroy(path []byte) ticket.Ticket[uint64] {
	return ticket.Done[uint64](0, kerr.New("destroy", kerr.InvalidOperation))
}

func (Base) Read(max int) ticket.Ticket[[]byte] {
	return ticket.Done[[]byte](nil, kerr.New("read", kerr.InvalidOperation))
}

func (Base) Write(data []byte) ticket.Ticket[uint64] {
	return ticket.Done[uint64](0, kerr.New("write", kerr.InvalidOperation))
}

func (Base) Seek(from wire.SeekFrom) ticket.Ticket[uint64] {
	return ticket.Done[uint64](0, kerr.New("seek", kerr.InvalidOperation))
}

func (Base) GetMeta(property []byte) ticket.Ticket[[]byte] {
	return ticket.Done[[]byte](nil, kerr.New("get_meta", kerr.InvalidOperation))
}

func (Base) SetMeta(property, value []byte) ticket.Ticket[uint64] {
	return ticket.Done[uint64](0, kerr.New("set_meta", kerr.InvalidOperation))
}

func (Base) Share(other Object) ticket.Ticket[uint64] {
	return ticket.Done[uint64](0, kerr.New("share", kerr.InvalidOperation))
}

func (Base) Close() error { return nil }

func (Base) MemoryObject() (MemoryObject, bool) { return nil, false }

// memoryObjectAdapter lets memory.Object satisfy the object package's
// MemoryObject interface without memory importing object (memory has no
// reason to know about Object at all; the adapter lives on this side of
// the dependency).
type memoryObjectAdapter struct {
	obj    *memory.Object
	pages  []wire.PPN
}

func (m memoryObjectAdapter) Pages() []wire.PPN             { return m.pages }
func (m memoryObjectAdapter) PageCount() int                { return len(m.pages) }
func (m memoryObjectAdapter) DefaultPageFlags() wire.PageFlags { return m.obj.PageFlags() }
func (m memoryObjectAdapter) MaxRWX() wire.RWX              { return m.obj.MaxRWX() }
