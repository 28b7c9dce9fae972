package object

import (
	"sync"

	"github.com/objcore/kernel/ticket"
)

// Notify is an edge-signalled wake endpoint: Read completes once there is
// at least one pending signal, and Write both drains the signal counter
// and lets the owner run an arbitrary side effect (the Stream Table uses
// this to drain its response ring on every notify-write, per spec.md
// §4.4's "writing to it causes the kernel to drain the table's response
// ring").
type Notify struct {
	Base

	mu      sync.Mutex
	pending int
	waiters []ticket.TicketWaker[[]byte]

	// onDrain runs synchronously inside Write, holding no lock of
	// Notify's own; nil means Write just clears the pending counter.
	onDrain func()
}

// NewNotify creates an unsignalled Notify endpoint. onDrain may be nil.
func NewNotify(onDrain func()) *Notify {
	return &Notify{onDrain: onDrain}
}

// Signal increments the pending counter and wakes every parked reader.
// Safe to call from any context; it never blocks.
func (n *Notify) Signal() {
	n.mu.Lock()
	n.pending++
	waiters := n.waiters
	n.waiters = nil
	n.mu.Unlock()
	for _, w := range waiters {
		w.CompleteNonBlocking([]byte{1}, nil)
	}
}

// Read completes immediately if a signal is already pending (consuming
// one unit), or parks the caller's Ticket until Signal is next called.
func (n *Notify) Read(max int) ticket.Ticket[[]byte] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending > 0 {
		n.pending--
		return ticket.Done[[]byte]([]byte{1}, nil)
	}
	t, w := ticket.New[[]byte]()
	n.waiters = append(n.waiters, w)
	return t
}

// Write drains the onDrain side effect and resets the pending counter,
// matching the Stream Table's "write to notify drains responses"
// contract.
func (n *Notify) Write(data []byte) ticket.Ticket[uint64] {
	n.mu.Lock()
	n.pending = 0
	drain := n.onDrain
	n.mu.Unlock()
	if drain != nil {
		drain()
	}
	return ticket.Done[uint64](uint64(len(data)), nil)
}
