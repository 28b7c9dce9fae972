package ioqueue

import (
	"time"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// eraseObjectTicket bridges a Ticket[object.Object] into the ticket
// package's type-erased AnyTicket. Ticket[T] is invariant in Go generics,
// so a Ticket[object.Object] cannot be passed directly where a
// Ticket[any] is expected; this registers a relay waker that re-polls the
// original ticket and forwards its value into a fresh Ticket[any] once it
// resolves.
func eraseObjectTicket(t ticket.Ticket[object.Object]) ticket.AnyTicket {
	if v, err, ready := t.Poll(); ready {
		return ticket.NewObjectTicket(ticket.Done[any](v, err))
	}
	any2, anyW := ticket.New[any]()
	if v, err, ready := t.Await(ticket.WakerFunc(func() {
		v2, err2, _ := t.Poll()
		anyW.Complete(v2, err2)
	})); ready {
		anyW.Complete(v, err)
	}
	return ticket.NewObjectTicket(any2)
}

// Process drains the submission ring, dispatching each entry against the
// handle table and either completing it immediately or parking it in the
// pending vector, then polls that vector once: spec.md's process_io_queue.
func (q *Queue) Process() {
	for {
		observedTail := q.subRing.Tail.Load()
		idx, ok := q.subRing.TryConsume(observedTail)
		if !ok {
			break
		}
		slot := wire.UnmarshalSubmissionSlot(q.subSlotBytes(idx))
		q.dispatch(slot)
	}
	q.pollPending()
}

func decodeSeek(p payload) wire.SeekFrom { return p.seek }

func (q *Queue) dispatch(slot wire.SubmissionSlot) {
	if slot.Type == wire.SubClose {
		q.takePayload(slot.Args[0])
		q.tables.Remove(handle.Value(slot.Handle))
		return
	}

	p := q.takePayload(slot.Args[0])
	obj, ok := q.tables.Get(handle.Value(slot.Handle))
	if !ok {
		q.pushCompletionErr(slot.UserData, kerr.New("ioqueue.dispatch", kerr.InvalidObject))
		return
	}

	var at ticket.AnyTicket
	var replyBuf []byte
	switch slot.Type {
	case wire.SubRead:
		replyBuf = p.replyBuf
		at = ticket.NewDataTicket(obj.Read(int(p.amount)))
	case wire.SubWrite:
		at = ticket.NewU64Ticket(obj.Write(p.writeData))
	case wire.SubOpen:
		at = eraseObjectTicket(obj.Open(p.path))
	case wire.SubCreate:
		at = eraseObjectTicket(obj.Create(p.path))
	case wire.SubDestroy:
		at = ticket.NewU64Ticket(obj.Destroy(p.path))
	case wire.SubSeek:
		at = ticket.NewU64Ticket(obj.Seek(decodeSeek(p)))
	case wire.SubGetMeta:
		replyBuf = p.replyBuf
		at = ticket.NewDataTicket(obj.GetMeta(p.path))
	case wire.SubSetMeta:
		at = ticket.NewU64Ticket(obj.SetMeta(p.path, p.writeData))
	case wire.SubShare:
		at = ticket.NewU64Ticket(obj.Share(p.share))
	case wire.SubPoll, wire.SubPeek:
		q.pushCompletionErr(slot.UserData, kerr.New("ioqueue.dispatch", kerr.InvalidOperation))
		return
	default:
		q.pushCompletionErr(slot.UserData, kerr.New("ioqueue.dispatch", kerr.InvalidOperation))
		return
	}

	if v, err, ready := at.Poll(); ready {
		q.completeNow(slot.UserData, replyBuf, v, err)
		return
	}
	q.mu.Lock()
	q.pending.Add(&pendingOp{userData: slot.UserData, replyBuf: replyBuf, ticket: at})
	q.mu.Unlock()
}

// completeNow turns a resolved AnyTicketValue into a completion slot.
// value's meaning depends on which request type produced it: a plain
// count (Write/Destroy/SetMeta/Share), a position (Seek), a fresh handle
// (Open/Create), or a byte count copied into the caller's reply buffer
// (Read/GetMeta).
func (q *Queue) completeNow(userData uint64, replyBuf []byte, v ticket.AnyTicketValue, err error) {
	if err != nil {
		q.pushCompletionErr(userData, err)
		return
	}
	var value int64
	switch v.Kind {
	case ticket.KindU64:
		value = int64(v.U64Val)
	case ticket.KindData:
		value = int64(copy(replyBuf, v.DataVal))
	case ticket.KindObject:
		obj, _ := v.ObjectVal.(object.Object)
		value = int64(q.tables.Insert(obj))
	}
	q.pushCompletion(userData, value)
}

// pollPending rotates the pending vector exactly once, completing whatever
// is ready now and re-parking the rest: responses are generated in the
// order this scan finds them ready, not in submission order.
func (q *Queue) pollPending() {
	q.mu.Lock()
	n := q.pending.Length()
	q.mu.Unlock()

	for i := 0; i < n; i++ {
		q.mu.Lock()
		op := q.pending.Remove().(*pendingOp)
		q.mu.Unlock()

		if v, err, ready := op.ticket.Poll(); ready {
			q.completeNow(op.userData, op.replyBuf, v, err)
			continue
		}
		q.mu.Lock()
		q.pending.Add(op)
		q.mu.Unlock()
	}
}

// PendingCount reports how many submissions are parked awaiting a Ticket.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Length()
}

// Wait is spec.md's wait_io_queue: process once, and if nothing completed,
// keep trying until timeout elapses. A zero timeout behaves like Process
// followed by a single completion check.
func (q *Queue) Wait(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		q.Process()
		if q.hasCompletion() {
			return true
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (q *Queue) hasCompletion() bool {
	return q.compRing.Head.Load() != q.compRing.Tail.Load()
}
