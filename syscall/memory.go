package syscall

import (
	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/wire"
)

// Alloc maps pages pages of fresh, zero-filled, anonymous memory into the
// process's address space: spec.md op 0. Returns the byte address the
// mapping landed at.
func (t *Table) Alloc(pages int, rwx wire.RWX) (uint64, error) {
	obj, err := memory.NewAnonymous(pages, rwx)
	if err != nil {
		return 0, err
	}
	addr, err := t.proc.AddrSpace.Map(nil, obj, rwx)
	if err != nil {
		obj.Close()
		return 0, err
	}
	t.mu.Lock()
	t.anon[addr] = obj
	t.mu.Unlock()
	return addr, nil
}

// Dealloc unmaps the region at addr: spec.md op 1. It accepts both an
// Alloc/AllocDMA mapping (owns and closes the backing Memory Object) and a
// MapObject mapping (just removes the mapping; the handle it was projected
// from still owns the memory).
func (t *Table) Dealloc(addr uint64) error {
	if err := t.proc.AddrSpace.Unmap(addr); err != nil {
		return err
	}
	t.mu.Lock()
	obj, ok := t.anon[addr]
	delete(t.anon, addr)
	region, wasDMA := t.dma[addr]
	delete(t.dma, addr)
	t.mu.Unlock()

	if wasDMA {
		t.frames.FreeContiguous(region.start, region.pages)
	}
	if ok {
		return obj.Close()
	}
	return nil
}

// AllocDMA allocates pages physically-contiguous frames and maps them
// anonymously RW into the address space: spec.md op 3. Returns the mapped
// address and the first physical frame, for PhysicalAddress/driver setup.
func (t *Table) AllocDMA(pages int) (uint64, wire.PPN, error) {
	obj, err := memory.NewAnonymous(pages, wire.R|wire.W)
	if err != nil {
		return 0, 0, err
	}
	start, err := t.frames.AllocContiguous(pages)
	if err != nil {
		obj.Close()
		return 0, 0, err
	}
	addr, err := t.proc.AddrSpace.Map(nil, obj, wire.R|wire.W)
	if err != nil {
		t.frames.FreeContiguous(start, pages)
		obj.Close()
		return 0, 0, err
	}
	t.mu.Lock()
	t.anon[addr] = obj
	t.dma[addr] = dmaRegion{start: start, pages: pages}
	t.mu.Unlock()
	return addr, start, nil
}

// PhysicalAddress translates a virtual address within an AllocDMA mapping
// back to its physical frame number: spec.md op 4, "DMA setup only" — it
// is not defined for plain Alloc or MapObject mappings.
func (t *Table) PhysicalAddress(addr uint64) (wire.PPN, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for base, r := range t.dma {
		end := base + uint64(r.pages)*wire.PageSize
		if addr >= base && addr < end {
			offset := (addr - base) / wire.PageSize
			return r.start + wire.PPN(offset), nil
		}
	}
	return 0, kerr.New("syscall.physical_address", kerr.InvalidData)
}

// MapObject maps h's memory_object projection into the address space:
// spec.md op 9. h must name an Object whose MemoryObject() returns ok.
func (t *Table) MapObject(h handle.Value, base *uint64, rwx wire.RWX) (uint64, error) {
	obj, ok := t.proc.Handles.Get(h)
	if !ok {
		return 0, invalidHandle("syscall.map_object")
	}
	mo, ok := obj.MemoryObject()
	if !ok {
		return 0, kerr.New("syscall.map_object", kerr.InvalidOperation)
	}
	return t.proc.AddrSpace.MapProjection(base, mo, rwx)
}
