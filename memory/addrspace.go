package memory

import (
	"sort"
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/wire"
)

// MinAddress is the first page a mapping may ever occupy; everything below
// it is reserved, and a mapping request there fails with kerr.Reserved
// (spec.md §8's "map at address 0" edge case).
const MinAddress = 0x10000

// Mapping records one region mapped into an address space's page-numbered
// range [Base, Base+Pages). Object is set for a plain anonymous mapping
// (Map); Projection is set for a mapping installed via MapProjection (a
// handle's memory_object, per spec.md op 9), which owns no *Object of its
// own to reference back to.
type Mapping struct {
	Base       uint64 // page number, not byte address
	Pages      uint64
	Object     *Object
	Projection MemoryProjection
	RWX        wire.RWX
}

// MemoryProjection mirrors the method set object.MemoryObject exposes, so
// AddressSpace can map a handle's projection without importing the object
// package (which itself imports memory); any object.MemoryObject value
// already satisfies this interface structurally.
type MemoryProjection interface {
	Pages() []wire.PPN
	PageCount() int
	DefaultPageFlags() wire.PageFlags
	MaxRWX() wire.RWX
}

func (m Mapping) end() uint64 { return m.Base + m.Pages }

// AddressSpace tracks the non-overlapping set of Memory Object mappings
// belonging to one process, the user-space analogue of the original
// kernel's sorted KERNEL_MAPPED_OBJECTS vector: insertion keeps the slice
// sorted by base so overlap checks and free-range search are a single
// linear scan.
type AddressSpace struct {
	mu       sync.Mutex
	mappings []Mapping
	ceiling  uint64 // exclusive upper bound on page numbers, in pages
}

// NewAddressSpace creates an empty address space spanning [MinAddress,
// ceilingBytes) once mappings begin.
func NewAddressSpace(ceilingBytes uint64) *AddressSpace {
	return &AddressSpace{ceiling: ceilingBytes / wire.PageSize}
}

// Map places obj's pages at base (a page number) if given, or at the
// first sufficiently large gap otherwise. rwx is checked against the
// object's own maximum; requesting a permission the object does not allow is an
// error rather than a silent downgrade, so callers can detect a
// misconfigured request.
func (a *AddressSpace) Map(base *uint64, obj *Object, rwx wire.RWX) (uint64, error) {
	if rwx.Intersect(obj.MaxRWX()) != rwx {
		return 0, kerr.New("addrspace.Map", kerr.InvalidOperation)
	}
	size := obj.Size()
	if size == 0 {
		return 0, kerr.New("addrspace.Map", kerr.InvalidData)
	}
	pages := (size + wire.PageSize - 1) / wire.PageSize

	a.mu.Lock()
	defer a.mu.Unlock()
	start, index, err := a.reserveLocked(base, pages)
	if err != nil {
		return 0, err
	}
	a.insertLocked(index, Mapping{Base: start, Pages: pages, Object: obj, RWX: rwx})
	return start * wire.PageSize, nil
}

// MapProjection maps a handle's memory_object projection into the address
// space: spec.md op 9. It follows the same placement rules as Map but
// carries no owning *Object, since the projection's lifetime belongs to
// whatever Object produced it.
func (a *AddressSpace) MapProjection(base *uint64, mo MemoryProjection, rwx wire.RWX) (uint64, error) {
	if rwx.Intersect(mo.MaxRWX()) != rwx {
		return 0, kerr.New("addrspace.MapProjection", kerr.InvalidOperation)
	}
	pages := uint64(mo.PageCount())
	if pages == 0 {
		return 0, kerr.New("addrspace.MapProjection", kerr.InvalidData)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	start, index, err := a.reserveLocked(base, pages)
	if err != nil {
		return 0, err
	}
	a.insertLocked(index, Mapping{Base: start, Pages: pages, Projection: mo, RWX: rwx})
	return start * wire.PageSize, nil
}

// reserveLocked finds the page range a Map/MapProjection call should
// occupy, either at the caller-requested base or the first free gap, and
// validates it against the reserved-below-MinAddress and ceiling rules.
// Callers must hold a.mu.
func (a *AddressSpace) reserveLocked(base *uint64, pages uint64) (uint64, int, error) {
	var start uint64
	var index int
	if base != nil {
		start = *base / wire.PageSize
		if start*wire.PageSize != *base {
			return 0, 0, kerr.New("addrspace.reserve", kerr.InvalidData)
		}
		index = sort.Search(len(a.mappings), func(i int) bool { return a.mappings[i].Base >= start })
		if index < len(a.mappings) && a.mappings[index].Base < start+pages {
			return 0, 0, kerr.New("addrspace.reserve", kerr.InvalidData)
		}
		if index > 0 && a.mappings[index-1].end() > start {
			return 0, 0, kerr.New("addrspace.reserve", kerr.InvalidData)
		}
	} else {
		var err error
		start, index, err = a.findFreeRange(pages)
		if err != nil {
			return 0, 0, err
		}
	}

	if start < MinAddress/wire.PageSize {
		return 0, 0, kerr.New("addrspace.reserve", kerr.Reserved)
	}
	if start+pages < start || (a.ceiling != 0 && start+pages > a.ceiling) {
		return 0, 0, kerr.New("addrspace.reserve", kerr.CantCreateObject)
	}
	return start, index, nil
}

// insertLocked inserts m at index, keeping the mapping slice sorted by
// base. Callers must hold a.mu.
func (a *AddressSpace) insertLocked(index int, m Mapping) {
	a.mappings = append(a.mappings, Mapping{})
	copy(a.mappings[index+1:], a.mappings[index:])
	a.mappings[index] = m
}

// findFreeRange scans the sorted mapping list for the first gap at or
// above MinAddress that holds pages entries with one unmapped guard page
// between the new range and each existing mapping it borders, returning
// the page number and insertion index.
func (a *AddressSpace) findFreeRange(pages uint64) (uint64, int, error) {
	cursor := uint64(MinAddress / wire.PageSize)
	for i, m := range a.mappings {
		if m.Base > cursor && m.Base-cursor > pages {
			return cursor, i, nil
		}
		cursor = m.end() + 1
	}
	if a.ceiling != 0 && cursor+pages > a.ceiling {
		return 0, 0, kerr.New("addrspace.findFreeRange", kerr.CantCreateObject)
	}
	return cursor, len(a.mappings), nil
}

// Unmap removes the mapping whose base page number exactly matches base.
func (a *AddressSpace) Unmap(base uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pageNum := base / wire.PageSize
	for i, m := range a.mappings {
		if m.Base == pageNum {
			a.mappings = append(a.mappings[:i], a.mappings[i+1:]...)
			return nil
		}
	}
	return kerr.New("addrspace.Unmap", kerr.InvalidObject)
}

// Lookup finds the mapping containing byte address addr, if any.
func (a *AddressSpace) Lookup(addr uint64) (Mapping, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pageNum := addr / wire.PageSize
	for _, m := range a.mappings {
		if pageNum >= m.Base && pageNum < m.end() {
			return m, true
		}
	}
	return Mapping{}, false
}

// Mappings returns a snapshot of the current mapping list, ordered by
// base address.
func (a *AddressSpace) Mappings() []Mapping {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Mapping, len(a.mappings))
	copy(out, a.mappings)
	return out
}
