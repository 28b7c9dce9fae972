package ring

import "unsafe"

// ptrOf returns a pointer to the first 4 bytes of buf, for use as the
// backing store of an atomic.Uint32. Callers must ensure buf is at least
// 4 bytes and 4-byte aligned; shared pages allocated via memory.Page (see
// the memory package) are page-aligned and satisfy this.
func ptrOf(buf []byte) unsafe.Pointer {
	return unsafe.Pointer(&buf[0])
}
