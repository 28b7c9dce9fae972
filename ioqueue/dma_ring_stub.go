//go:build !giouring

package ioqueue

import "github.com/objcore/kernel/kerr"

// NewDMARing reports that no real io_uring backend was built in. Build with
// -tags giouring to link the real ring in dma_ring_giouring.go.
func NewDMARing(queueDepth uint32) (DMARing, error) {
	return nil, kerr.New("ioqueue.new_dma_ring", kerr.InvalidOperation)
}
