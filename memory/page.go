package memory

import (
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/wire"
	"golang.org/x/sys/unix"
)

// Page is one or more page-aligned frames of anonymous shared memory,
// mmap'd with MAP_SHARED so every process that maps the owning Memory
// Object sees the same bytes: this is the actual backing store for Stream
// Table and I/O Queue control pages, and for Share-able payload pages.
type Page struct {
	data   []byte
	frames int
}

// NewPage mmaps frames page-sized, zero-filled, shared pages. In this
// user-space stand-in for a kernel frame allocator, "physical" memory is
// an anonymous MAP_SHARED mapping rather than real RAM, but every
// consumer of Page only ever sees the byte slice, so the distinction is
// invisible above this package.
func NewPage(frames int) (*Page, error) {
	if frames <= 0 {
		return nil, kerr.New("memory.NewPage", kerr.InvalidData)
	}
	size := frames * wire.PageSize
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, kerr.Wrap("memory.NewPage", kerr.CantCreateObject, err)
	}
	return &Page{data: data, frames: frames}, nil
}

// Bytes returns the page's backing slice. Callers sharing this across
// goroutines must coordinate through the wire layout's own atomics
// (ring.Cursor) rather than relying on the slice header itself for safety.
func (p *Page) Bytes() []byte { return p.data }

// Len returns the page's size in bytes.
func (p *Page) Len() int { return len(p.data) }

// Close unmaps the page. Calling it more than once is a programmer error.
func (p *Page) Close() error {
	if p.data == nil {
		return nil
	}
	err := unix.Munmap(p.data)
	p.data = nil
	if err != nil {
		return kerr.Wrap("memory.Page.Close", kerr.Other, err)
	}
	return nil
}
