// Package process implements Process and Thread: the per-process handle
// arena, address space, and thread set the syscall surface operates on,
// plus the Process Builder that lays out a new process's start-up stack
// image per spec.md §4.6/§6.
package process

import (
	"sync"
	"sync/atomic"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/ticket"
)

// ThreadState tracks a Thread's lifecycle for kill_thread/wait_thread.
type ThreadState int32

const (
	ThreadRunning ThreadState = iota
	ThreadExited
)

// Thread is one schedulable unit within a Process. It carries no real
// scheduler context (there is nothing here to preempt); it exists so
// kill_thread/wait_thread/spawn_thread have something concrete to act on.
type Thread struct {
	ID int

	mu          sync.Mutex
	state       atomic.Int32
	killed      atomic.Bool
	exitCode    uint64
	exitTicket  ticket.Ticket[uint64]
	exitWaker   ticket.TicketWaker[uint64]
}

func newThread(id int) *Thread {
	t := &Thread{ID: id}
	t.exitTicket, t.exitWaker = ticket.New[uint64]()
	return t
}

// State reports the thread's current lifecycle state.
func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// KillRequested reports whether Kill has been called; a real scheduler
// would check this at its next preemption point before it actually tears
// the thread down, per spec.md's "async-terminate" semantics for
// kill_thread.
func (t *Thread) KillRequested() bool { return t.killed.Load() }

// Kill requests asynchronous termination: spec.md op 14 does not block,
// the thread observes KillRequested and calls Exit itself.
func (t *Thread) Kill() { t.killed.Store(true) }

// Exit marks the thread exited with code and completes any wait_thread
// ticket waiting on it. Calling Exit on an already-exited thread is a
// no-op: a thread cannot exit twice.
func (t *Thread) Exit(code uint64) {
	if !t.state.CompareAndSwap(int32(ThreadRunning), int32(ThreadExited)) {
		return
	}
	t.mu.Lock()
	t.exitCode = code
	t.mu.Unlock()
	t.exitWaker.Complete(code, nil)
}

// Wait returns a Ticket resolving to the thread's exit code once it
// exits: spec.md op 15, "block until thread exits."
func (t *Thread) Wait() ticket.Ticket[uint64] {
	if t.State() == ThreadExited {
		t.mu.Lock()
		code := t.exitCode
		t.mu.Unlock()
		return ticket.Done[uint64](code, nil)
	}
	return t.exitTicket
}

// errAlreadyExited builds the InvalidObject error for an operation on a
// thread that has already exited; nothing in this package calls it.
func errAlreadyExited(op string) error { return kerr.New(op, kerr.InvalidObject) }
