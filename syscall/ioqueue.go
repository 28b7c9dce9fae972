package syscall

import (
	"time"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/ioqueue"
	"github.com/objcore/kernel/kerr"
)

// queueFor resolves h to the *ioqueue.Queue it names, failing InvalidObject
// if h is stale or does not name an I/O Queue handle.
func (t *Table) queueFor(h handle.Value, op string) (*ioqueue.Queue, error) {
	obj, ok := t.proc.Handles.Get(h)
	if !ok {
		return nil, invalidHandle(op)
	}
	qo, ok := obj.(*ioqueue.IOQueueObject)
	if !ok {
		return nil, kerr.New(op, kerr.InvalidObject)
	}
	return qo.Queue(), nil
}

// CreateIOQueue makes an SQ/CQ pair of 2^sizeLog2 entries each and installs
// it in the handle table: spec.md op 20.
func (t *Table) CreateIOQueue(sizeLog2 uint8) (handle.Value, error) {
	q, err := ioqueue.New(sizeLog2, t.proc.Handles)
	if err != nil {
		return 0, err
	}
	return t.proc.Handles.Insert(ioqueue.NewIOQueueObject(q)), nil
}

// DestroyIOQueue drops the I/O queue named by h: spec.md op 13.
func (t *Table) DestroyIOQueue(h handle.Value) error {
	obj, ok := t.proc.Handles.Remove(h)
	if !ok {
		return invalidHandle("syscall.destroy_io_queue")
	}
	qo, ok := obj.(*ioqueue.IOQueueObject)
	if !ok {
		return kerr.New("syscall.destroy_io_queue", kerr.InvalidObject)
	}
	return qo.Close()
}

// ProcessIOQueue drains submissions and emits completions for the I/O
// queue named by h: spec.md op 21.
func (t *Table) ProcessIOQueue(h handle.Value) error {
	q, err := t.queueFor(h, "syscall.process_io_queue")
	if err != nil {
		return err
	}
	q.Process()
	return nil
}

// IOQueueStats reports h's current pending-vector depth and the number of
// unpopped completions, for metrics observers — it consumes nothing.
func (t *Table) IOQueueStats(h handle.Value) (pending int, completionsReady int, err error) {
	q, err := t.queueFor(h, "syscall.io_queue_stats")
	if err != nil {
		return 0, 0, err
	}
	return q.PendingCount(), q.CompletionsReady(), nil
}

// WaitIOQueue processes h's queue and sleeps until there is a completion
// or timeout elapses, returning whether anything completed: spec.md op 22.
func (t *Table) WaitIOQueue(h handle.Value, timeout time.Duration) (bool, error) {
	q, err := t.queueFor(h, "syscall.wait_io_queue")
	if err != nil {
		return false, err
	}
	return q.Wait(timeout), nil
}
