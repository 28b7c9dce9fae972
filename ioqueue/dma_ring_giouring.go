//go:build giouring

package ioqueue

import (
	"github.com/objcore/kernel/kerr"
	"github.com/pawelgaczynski/giouring"
)

// realDMARing backs DMARing with an actual io_uring instance, the same
// role the teacher's giouring-tagged internal/uring file plays for a ublk
// queue's backend I/O. Nothing else in this repository calls it.
type realDMARing struct {
	ring *giouring.Ring
}

func NewDMARing(queueDepth uint32) (DMARing, error) {
	ring, err := giouring.CreateRing(queueDepth)
	if err != nil {
		return nil, kerr.Wrap("ioqueue.new_dma_ring", kerr.InvalidOperation, err)
	}
	return &realDMARing{ring: ring}, nil
}

// ReadAt submits a single fixed read and blocks for its completion. It does
// not pipeline; a DMA ring that wants queue depth beyond one in flight reads
// has to be built on top of this, not inside it.
func (r *realDMARing) ReadAt(fd int, buf []byte, offset int64) (int, error) {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return 0, kerr.New("ioqueue.dma_read", kerr.CantCreateObject)
	}
	sqe.PrepareRead(int32(fd), buf, uint64(offset))

	if _, err := r.ring.SubmitAndWait(1); err != nil {
		return 0, kerr.Wrap("ioqueue.dma_read", kerr.InvalidOperation, err)
	}
	cqe, err := r.ring.WaitCQE()
	if err != nil {
		return 0, kerr.Wrap("ioqueue.dma_read", kerr.InvalidOperation, err)
	}
	defer r.ring.CQESeen(cqe)

	if cqe.Res < 0 {
		return 0, kerr.Newf("ioqueue.dma_read", kerr.InvalidData, "cqe res %d", cqe.Res)
	}
	return int(cqe.Res), nil
}

func (r *realDMARing) Close() error {
	r.ring.QueueExit()
	return nil
}
