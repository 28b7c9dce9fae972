package ioqueue

// DMARing is a real io_uring-backed transport for a Memory Object
// projection: processes that want genuine async disk I/O underneath a
// FileRoot, instead of the in-memory Shared Memory every other Object
// variant in this repository uses, build against this interface instead of
// calling into a ring directly. The default build uses NewDMARing's stub;
// building with -tags giouring swaps in a real ring via
// github.com/pawelgaczynski/giouring, the same build-tag split the
// teacher's internal/uring package uses for its real-vs-stub io_uring
// backend.
type DMARing interface {
	ReadAt(fd int, buf []byte, offset int64) (int, error)
	Close() error
}
