package memory

import (
	"sync"

	"github.com/objcore/kernel/wire"
)

// Backing distinguishes how an Object's pages were obtained: a freshly
// allocated anonymous region the Object owns, or an existing Page owned
// elsewhere and wrapped read-only by NewShared.
type Backing int

const (
	BackingAnonymous Backing = iota
	BackingShared
)

// Object is the physical-page-backed capability every mapping in an
// Address Space ultimately resolves to: a Memory Object in spec.md's
// terms. It owns one Page and reports the maximum RWX any mapping of it
// may be granted.
type Object struct {
	mu      sync.Mutex
	page    *Page
	maxRWX  wire.RWX
	backing Backing
	flags   wire.PageFlags
}

// NewAnonymous allocates a fresh, zero-filled Memory Object of the given
// frame count with maxRWX as its ceiling permission.
func NewAnonymous(frames int, maxRWX wire.RWX) (*Object, error) {
	p, err := NewPage(frames)
	if err != nil {
		return nil, err
	}
	return &Object{page: p, maxRWX: maxRWX, backing: BackingAnonymous}, nil
}

// NewShared wraps an existing Page as a read-only Memory Object that does
// not own it: Close leaves the Page mapped for its owner to release.
func NewShared(p *Page) *Object {
	return &Object{page: p, maxRWX: wire.R, backing: BackingShared}
}

// Bytes exposes the object's backing storage for in-process readers/
// writers (the Stream Table server's own dequeue path, not a mapped
// process).
func (o *Object) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.page.Bytes()
}

// Size reports the object's length in bytes.
func (o *Object) Size() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return uint64(o.page.Len())
}

// MaxRWX returns the strongest permission any mapping of this object may
// request; AddressSpace.Map clamps a caller's requested RWX against it.
func (o *Object) MaxRWX() wire.RWX { return o.maxRWX }

// PageFlags returns the cacheability hints attached to this object's
// pages.
func (o *Object) PageFlags() wire.PageFlags { return o.flags }

// Close releases the underlying page. A shared object's Close is a no-op:
// the Page stays mapped until whoever owns it closes it.
func (o *Object) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.backing == BackingShared {
		return nil
	}
	return o.page.Close()
}
