package object

import (
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// PermissionMasked wraps another Object, AND-masking its memory_object
// projection's max RWX so a capability can be attenuated (e.g. handed to
// a less-trusted process as read-only) without copying the underlying
// pages.
type PermissionMasked struct {
	Base

	inner Object
	mask  wire.RWX
}

// NewPermissionMasked returns inner with its MaxRWX clamped to mask.
func NewPermissionMasked(inner Object, mask wire.RWX) *PermissionMasked {
	return &PermissionMasked{inner: inner, mask: mask}
}

func (p *PermissionMasked) Read(max int) ticket.Ticket[[]byte] {
	if !p.mask.Readable() {
		return ticket.Done[[]byte](nil, kerr.New("permission_masked.read", kerr.InvalidOperation))
	}
	return p.inner.Read(max)
}

func (p *PermissionMasked) Write(data []byte) ticket.Ticket[uint64] {
	if !p.mask.Writable() {
		return ticket.Done[uint64](0, kerr.New("permission_masked.write", kerr.InvalidOperation))
	}
	return p.inner.Write(data)
}

func (p *PermissionMasked) Seek(from wire.SeekFrom) ticket.Ticket[uint64] {
	return p.inner.Seek(from)
}

func (p *PermissionMasked) MemoryObject() (MemoryObject, bool) {
	inner, ok := p.inner.MemoryObject()
	if !ok {
		return nil, false
	}
	return maskedMemoryObject{inner: inner, mask: p.mask}, true
}

func (p *PermissionMasked) Close() error { return p.inner.Close() }

type maskedMemoryObject struct {
	inner MemoryObject
	mask  wire.RWX
}

func (m maskedMemoryObject) Pages() []wire.PPN                 { return m.inner.Pages() }
func (m maskedMemoryObject) PageCount() int                    { return m.inner.PageCount() }
func (m maskedMemoryObject) DefaultPageFlags() wire.PageFlags  { return m.inner.DefaultPageFlags() }
func (m maskedMemoryObject) MaxRWX() wire.RWX                  { return m.inner.MaxRWX().Intersect(m.mask) }
