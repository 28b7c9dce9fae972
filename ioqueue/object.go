package ioqueue

import "github.com/objcore/kernel/object"

// IOQueueObject exposes a Queue through the Object capability surface so
// create_io_queue can hand the caller a handle like any other resource,
// and destroy_io_queue/process_io_queue/wait_io_queue can recover the
// concrete *Queue a handle names. It lives in this package rather than
// object/ (where SPEC_FULL's package table first placed it) because Queue
// already imports object for its handle table's element type; object
// importing ioqueue back would cycle.
type IOQueueObject struct {
	object.Base
	q *Queue
}

// NewIOQueueObject wraps q for insertion into a process's handle table.
func NewIOQueueObject(q *Queue) *IOQueueObject { return &IOQueueObject{q: q} }

// Queue returns the underlying Queue.
func (o *IOQueueObject) Queue() *Queue { return o.q }

// Close drops the queue: spec.md op 13, destroy_io_queue.
func (o *IOQueueObject) Close() error { return o.q.Close() }
