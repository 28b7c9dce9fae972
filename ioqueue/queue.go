// Package ioqueue implements the per-process I/O Queue: a pair of
// shared-memory rings (submission, completion) through which a process
// drives Object operations without a syscall per request, plus the pending
// vector that tracks submissions whose Ticket has not yet resolved.
package ioqueue

import (
	"sync"

	eapacheq "github.com/eapache/queue"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ring"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// Submission is the decoded, Go-native form of a request a process pushes
// onto the queue. The wire submission ring (wire.SubmissionSlot) is the
// authoritative record of queue depth and dispatch order; Submission's
// variable-length fields (paths, payloads, reply buffers) are held
// alongside it in a side table keyed by a kernel-assigned token, since this
// repository has no cross-process page-table translation to turn a real
// pointer/length argument pair into a []byte the way a native kernel would.
type Submission struct {
	Type     wire.SubmissionType
	Handle   handle.Value
	UserData uint64

	// Amount is the requested read length for SubRead.
	Amount uint32
	// WriteData is the payload for SubWrite, or the property value for
	// SubSetMeta (Path carries the property name in that case).
	WriteData []byte
	// ReplyBuf is the caller-owned destination for SubRead/SubGetMeta
	// results: the pointer/length pair a real kernel would copy into
	// directly, modeled here as a pre-sized slice.
	ReplyBuf []byte
	Path     []byte
	Seek     wire.SeekFrom
	// Share is the Object being handed to the target via SubShare.
	Share object.Object
}

type payload struct {
	amount    uint32
	writeData []byte
	replyBuf  []byte
	path      []byte
	seek      wire.SeekFrom
	share     object.Object
}

type pendingOp struct {
	userData uint64
	replyBuf []byte
	ticket   ticket.AnyTicket
}

// Queue is one process's I/O Queue: the shared control page backing the two
// rings, the handle table submissions are resolved against, and the
// bookkeeping the dispatch loop needs to turn tickets into completions.
type Queue struct {
	page   *memory.Page
	tables *handle.Arena[object.Object]

	subRing  ring.SlotRing
	compRing ring.SlotRing

	subSlotsOffset  int
	compSlotsOffset int

	mu        sync.Mutex
	payloads  map[uint64]payload
	nextToken uint64
	pending   *eapacheq.Queue
}

// New creates an I/O Queue with 2^sizeLog2 entries in each ring, per
// spec.md's create_io_queue(size). tables is the process's handle arena;
// submissions reference handles from it and Open/Create completions insert
// the resulting Object back into it.
func New(sizeLog2 uint8, tables *handle.Arena[object.Object]) (*Queue, error) {
	if sizeLog2 == 0 || sizeLog2 > wire.MaxQueueSizeLog2 {
		return nil, kerr.New("ioqueue.new", kerr.InvalidData)
	}
	entries := uint32(1) << sizeLog2
	page, err := memory.NewPage(wire.QueuePages(sizeLog2, sizeLog2))
	if err != nil {
		return nil, err
	}

	buf := page.Bytes()
	subOffset := wire.IOQueueHeaderSize
	compOffset := subOffset + int(entries)*wire.SubmissionSlotSize

	q := &Queue{
		page:           page,
		tables:         tables,
		payloads:       make(map[uint64]payload),
		pending:        eapacheq.New(),
		subSlotsOffset: subOffset,
		compSlotsOffset: compOffset,
		subRing: ring.SlotRing{
			Head:     ring.Attach(buf[wire.OffSubmissionHead:]),
			Tail:     ring.Attach(buf[wire.OffSubmissionTail:]),
			Capacity: entries,
		},
		compRing: ring.SlotRing{
			Head:     ring.Attach(buf[wire.OffCompletionHead:]),
			Tail:     ring.Attach(buf[wire.OffCompletionTail:]),
			Capacity: entries,
		},
	}
	return q, nil
}

// Close releases the queue's shared control page.
func (q *Queue) Close() error { return q.page.Close() }

func (q *Queue) subSlotBytes(idx uint32) []byte {
	off := q.subSlotsOffset + int(idx)*wire.SubmissionSlotSize
	return q.page.Bytes()[off : off+wire.SubmissionSlotSize]
}

func (q *Queue) compSlotBytes(idx uint32) []byte {
	off := q.compSlotsOffset + int(idx)*wire.CompletionSlotSize
	return q.page.Bytes()[off : off+wire.CompletionSlotSize]
}

// Submit pushes s onto the submission ring. It fails with InvalidData once
// the submissions not yet completed (undispatched plus pending) and the
// completions not yet popped add up to the completion ring's capacity, so
// every accepted submission has a free completion slot reserved for it.
func (q *Queue) Submit(s Submission) error {
	q.mu.Lock()
	if len(q.payloads)+q.pending.Length()+q.CompletionsReady() >= int(q.compRing.Capacity) {
		q.mu.Unlock()
		return kerr.New("ioqueue.submit", kerr.InvalidData)
	}
	token := q.nextToken
	q.nextToken++
	q.payloads[token] = payload{
		amount:    s.Amount,
		writeData: s.WriteData,
		replyBuf:  s.ReplyBuf,
		path:      s.Path,
		seek:      s.Seek,
		share:     s.Share,
	}
	q.mu.Unlock()

	slot := wire.SubmissionSlot{
		Type:     s.Type,
		Handle:   uint32(s.Handle),
		UserData: s.UserData,
		Args:     [6]uint64{0: token},
	}

	observedHead := q.subRing.Head.Load()
	idx, ok := q.subRing.TryProduce(observedHead)
	if !ok {
		q.mu.Lock()
		delete(q.payloads, token)
		q.mu.Unlock()
		return kerr.New("ioqueue.submit", kerr.InvalidData)
	}
	slot.Marshal(q.subSlotBytes(idx))
	return nil
}

func (q *Queue) takePayload(token uint64) payload {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := q.payloads[token]
	delete(q.payloads, token)
	return p
}

func (q *Queue) pushCompletion(userData uint64, value int64) error {
	observedHead := q.compRing.Head.Load()
	idx, ok := q.compRing.TryProduce(observedHead)
	if !ok {
		return kerr.New("ioqueue.complete", kerr.InvalidData)
	}
	wire.CompletionSlot{UserData: userData, Value: value}.Marshal(q.compSlotBytes(idx))
	return nil
}

func (q *Queue) pushCompletionErr(userData uint64, err error) {
	q.pushCompletion(userData, int64(kerr.CodeOf(err).Wire()))
}

// CompletionsReady reports how many completions are waiting to be popped,
// without consuming any of them: a non-destructive depth gauge for metrics.
func (q *Queue) CompletionsReady() int {
	return int(q.compRing.Tail.Load() - q.compRing.Head.Load())
}

// PollCompletion pops the next completion, or ok=false if none is waiting.
func (q *Queue) PollCompletion() (wire.CompletionSlot, bool) {
	observedTail := q.compRing.Tail.Load()
	idx, ok := q.compRing.TryConsume(observedTail)
	if !ok {
		return wire.CompletionSlot{}, false
	}
	return wire.UnmarshalCompletionSlot(q.compSlotBytes(idx)), true
}
