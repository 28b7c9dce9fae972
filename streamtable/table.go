package streamtable

import (
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/memory"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ring"
	"github.com/objcore/kernel/wire"
)

// rootHandle is the server handle identifying the table's public Object
// (the one a client gets back from new_stream_table without any Open
// round trip).
const rootHandle uint32 = 0

const (
	requestSlotsOffset  = wire.HeaderSize
	responseSlotsOffset = requestSlotsOffset + wire.RingCapacity*wire.RequestSlotSize
)

// Table is a Stream Table: the shared control page (ring indices, buffer
// free-list head) plus the buffer pool, a client-side job arena mapping
// in-flight job ids to completion callbacks, and a share arena for
// allow_sharing handoffs. One Table instance plays both the "client
// queue" and "server queue" role described in the original ring design,
// since both sides here live in the same process.
type Table struct {
	page *memory.Page
	pool *Pool

	reqRing  ring.SlotRing
	respRing ring.SlotRing

	mu           sync.Mutex
	jobs         map[uint32]func(value uint64, err error)
	nextJobID    uint32
	shareArena   map[uint32]object.Object
	nextShareTok uint32

	allowSharing  bool
	maxRequestMem uint32

	notify *object.Notify
	public *StreamObject
}

// NewTable creates a Stream Table whose buffer pool is backed by
// bufferMem's pages, per spec's new_stream_table(buffer_mem,
// block_size_log2, max_request_mem, allow_sharing). It returns the table,
// for the server side to Dequeue/Enqueue against; Public returns the Object
// a client receives in place of a direct handle.
func NewTable(bufferMem *memory.Object, blockSizeLog2 uint, maxRequestMem uint32, allowSharing bool) (*Table, error) {
	ctrl, err := memory.NewPage(wire.StreamTablePages())
	if err != nil {
		return nil, err
	}
	t := &Table{
		page:          ctrl,
		jobs:          make(map[uint32]func(uint64, error)),
		shareArena:    make(map[uint32]object.Object),
		allowSharing:  allowSharing,
		maxRequestMem: maxRequestMem,
	}

	buf := ctrl.Bytes()
	t.reqRing = ring.SlotRing{
		Head:     ring.Attach(buf[wire.OffRequestHead:]),
		Tail:     ring.Attach(buf[wire.OffRequestTail:]),
		Capacity: wire.RingCapacity,
	}
	t.respRing = ring.SlotRing{
		Head:     ring.Attach(buf[wire.OffResponseHead:]),
		Tail:     ring.Attach(buf[wire.OffResponseTail:]),
		Capacity: wire.RingCapacity,
	}
	freeHead := ring.Attach(buf[wire.OffBufferFreeHead:])
	freeHead.Store(ring.NilIndex)

	pool, err := NewPool(bufferMem.Bytes(), blockSizeLog2, freeHead)
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	pool.Seed()
	t.pool = pool

	t.notify = object.NewNotify(t.drainResponses)
	t.public = &StreamObject{table: t, handle: rootHandle}
	return t, nil
}

// Notify returns the table's server-side wake endpoint, signaled once per
// submitted request.
func (t *Table) Notify() object.Object { return t.notify }

// Public returns the client-facing root Object new_stream_table hands
// back alongside the table itself.
func (t *Table) Public() object.Object { return t.public }

// Close releases the table's control page. The buffer pool's backing
// memory is owned by whoever created it and is not touched here.
func (t *Table) Close() error { return t.page.Close() }

func (t *Table) requestSlotBytes(idx uint32) []byte {
	off := requestSlotsOffset + int(idx)*wire.RequestSlotSize
	return t.page.Bytes()[off : off+wire.RequestSlotSize]
}

func (t *Table) responseSlotBytes(idx uint32) []byte {
	off := responseSlotsOffset + int(idx)*wire.ResponseSlotSize
	return t.page.Bytes()[off : off+wire.ResponseSlotSize]
}

// submit enqueues a client request and registers complete to run when its
// response arrives. A nil complete is valid (Close fires-and-forgets).
// maxRequestMem holds the per-request byte cap minus one, so a payload of
// more than maxRequestMem+1 bytes is rejected with InvalidData.
func (t *Table) submit(req Request, complete func(value uint64, err error)) error {
	if req.Slice.Length > 0 && req.Slice.Length-1 > t.maxRequestMem {
		return kerr.New("streamtable.submit", kerr.InvalidData)
	}
	t.mu.Lock()
	jobID := t.nextJobID
	t.nextJobID++
	if complete != nil {
		t.jobs[jobID] = complete
	}
	t.mu.Unlock()

	req.JobID = jobID
	slot := requestToSlot(req)

	observedHead := t.reqRing.Head.Load()
	idx, ok := t.reqRing.TryProduce(observedHead)
	if !ok {
		t.mu.Lock()
		delete(t.jobs, jobID)
		t.mu.Unlock()
		return kerr.New("streamtable.submit", kerr.InvalidData)
	}
	slot.Marshal(t.requestSlotBytes(idx))
	t.notify.Signal()
	return nil
}

// Dequeue pops the next request, or ok=false if none is waiting. The
// server's read on the table's Notify Object is what a real process would
// block on before calling this; tests call it directly.
func (t *Table) Dequeue() (Request, bool) {
	observedTail := t.reqRing.Tail.Load()
	idx, ok := t.reqRing.TryConsume(observedTail)
	if !ok {
		return Request{}, false
	}
	slot := wire.UnmarshalRequestSlot(t.requestSlotBytes(idx))
	return slotToRequest(slot), true
}

// Enqueue pushes a response for jobID and immediately drains the response
// ring into the waiting client tickets. Pass err non-nil to deliver a
// wire-encoded error instead of value; value is otherwise interpreted
// according to the originating request's type (an Amount, a Handle, a
// packed Slice via PackSlice, a seek Position, or a Share token).
//
// A real deployment's client and server are different processes, so a
// client ticket only resolves once the client side writes to the table's
// Notify Object (drainResponses, below) to pull completions across that
// boundary. Both sides live in this repository's single process, so
// Enqueue drains on the spot rather than requiring every caller to also
// remember to poke Notify.
func (t *Table) Enqueue(jobID uint32, value uint64, err error) error {
	if err != nil {
		value = wire.ErrorValue(kerr.CodeOf(err).Wire())
	}
	slot := wire.ResponseSlot{JobID: jobID, Value: value}
	observedHead := t.respRing.Head.Load()
	idx, ok := t.respRing.TryProduce(observedHead)
	if !ok {
		return kerr.New("streamtable.enqueue", kerr.InvalidData)
	}
	slot.Marshal(t.responseSlotBytes(idx))
	t.drainResponses()
	return nil
}

// drainResponses is the table Notify's onDrain hook: "writing to it causes
// the kernel to drain the table's response ring, delivering completions
// to client tickets."
func (t *Table) drainResponses() {
	for {
		observedTail := t.respRing.Tail.Load()
		idx, ok := t.respRing.TryConsume(observedTail)
		if !ok {
			return
		}
		slot := wire.UnmarshalResponseSlot(t.responseSlotBytes(idx))

		t.mu.Lock()
		complete := t.jobs[slot.JobID]
		delete(t.jobs, slot.JobID)
		t.mu.Unlock()
		if complete == nil {
			continue
		}
		if wire.IsError(slot.Value) {
			complete(0, kerr.New("streamtable", kerr.WireToCode(wire.DecodeError(slot.Value))))
		} else {
			complete(slot.Value, nil)
		}
	}
}

// Shutdown completes every still-pending job with Cancelled, modeling the
// server process dying: "Stream Object drop is cancellation-safe."
func (t *Table) Shutdown() {
	t.mu.Lock()
	jobs := t.jobs
	t.jobs = make(map[uint32]func(uint64, error))
	t.mu.Unlock()
	for _, complete := range jobs {
		complete(0, kerr.New("streamtable.shutdown", kerr.Cancelled))
	}
}

func (t *Table) registerShare(obj object.Object) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	token := t.nextShareTok
	t.nextShareTok++
	t.shareArena[token] = obj
	return token
}

func (t *Table) takeShare(token uint32) (object.Object, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.shareArena[token]
	if ok {
		delete(t.shareArena, token)
	}
	return obj, ok
}

// PackSlice and UnpackSlice are the response-value encoding for ops whose
// reply is buffer-pool bytes rather than a bare number: offset in the low
// 32 bits, length in the high 32, since both already fit one u32 each.
func PackSlice(s wire.Slice) uint64 {
	return uint64(s.Offset) | uint64(s.Length)<<32
}

func UnpackSlice(v uint64) wire.Slice {
	return wire.Slice{Offset: uint32(v), Length: uint32(v >> 32)}
}
