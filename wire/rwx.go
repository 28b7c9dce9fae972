package wire

import "github.com/objcore/kernel/kerr"

// RWX is a bit-packed permission subset of {Read, Write, Execute}. Write
// without Read is never valid, matching spec.md's data model; constructors
// enforce that rather than leaving it to callers.
type RWX uint8

const (
	R RWX = 1 << 0
	W RWX = 1 << 1
	X RWX = 1 << 2

	rwxMask = R | W | X
)

// NewRWX validates bits and rejects W without R.
func NewRWX(bits uint8) (RWX, error) {
	r := RWX(bits) & rwxMask
	if uint8(r) != bits {
		return 0, kerr.New("rwx", kerr.InvalidData)
	}
	if r&W != 0 && r&R == 0 {
		return 0, kerr.New("rwx", kerr.InvalidData)
	}
	return r, nil
}

// Intersect returns the permissions present in both sets, used when a
// mapping request's RWX is clamped to a Memory Object's maximum.
func (r RWX) Intersect(other RWX) RWX { return r & other }

// Readable, Writable and Executable report individual bits.
func (r RWX) Readable() bool   { return r&R != 0 }
func (r RWX) Writable() bool   { return r&W != 0 }
func (r RWX) Executable() bool { return r&X != 0 }

func (r RWX) String() string {
	b := [3]byte{'-', '-', '-'}
	if r.Readable() {
		b[0] = 'r'
	}
	if r.Writable() {
		b[1] = 'w'
	}
	if r.Executable() {
		b[2] = 'x'
	}
	return string(b[:])
}

// PPN is an opaque physical page-frame number, convertible to/from a
// physical byte address via PageSize.
type PPN uint64

// PageSize is the page granularity the entire core assumes (4 KiB).
const PageSize = 4096

// Address returns the physical byte address this frame starts at.
func (p PPN) Address() uint64 { return uint64(p) * PageSize }

// PPNFromAddress truncates a physical address down to its containing
// frame.
func PPNFromAddress(addr uint64) PPN { return PPN(addr / PageSize) }

// PageFlags carries the cacheability/mapping hints a Memory Object's
// default mapping uses; the core only needs to round-trip these, not
// interpret them (that is MMU/driver territory).
type PageFlags struct {
	Uncached bool
	Global   bool
}
