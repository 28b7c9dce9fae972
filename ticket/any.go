package ticket

// Kind tags which of the three payload shapes an AnyTicket/AnyTicketWaker
// currently holds. The I/O Queue's pending vector needs to store
// heterogeneous in-flight work in one container;
// rather than force every caller through interface{} and a type switch at
// every use, Kind lets dispatch code branch once.
type Kind int

const (
	KindObject Kind = iota
	KindU64
	KindData
)

// AnyTicketValue is the erased result of an AnyTicket, produced once Poll
// or Await reports ready. ObjectVal holds an object.Object when Kind is
// KindObject; it is typed as any here so this package does not import the
// object package (object imports ticket for Ticket[Object] return types,
// so the dependency can only run one way).
type AnyTicketValue struct {
	Kind      Kind
	ObjectVal any
	U64Val    uint64
	DataVal   []byte
}

// AnyTicket erases a Ticket[object.Object], Ticket[uint64], or
// Ticket[[]byte] into one value so pending-work slices do not need a
// separate arm per payload shape.
type AnyTicket struct {
	kind   Kind
	object Ticket[any]
	u64    Ticket[uint64]
	data   Ticket[[]byte]
}

// AnyTicketWaker is the write-side counterpart of AnyTicket.
type AnyTicketWaker struct {
	kind   Kind
	object TicketWaker[any]
	u64    TicketWaker[uint64]
	data   TicketWaker[[]byte]
}

// NewObjectTicket wraps a Ticket[object.Object]-shaped ticket (passed as
// Ticket[any] by the caller, which does hold object.Object values) as an
// AnyTicket.
func NewObjectTicket(t Ticket[any]) AnyTicket { return AnyTicket{kind: KindObject, object: t} }

// NewU64Ticket wraps a Ticket[uint64] as an AnyTicket.
func NewU64Ticket(t Ticket[uint64]) AnyTicket { return AnyTicket{kind: KindU64, u64: t} }

// NewDataTicket wraps a Ticket[[]byte] as an AnyTicket.
func NewDataTicket(t Ticket[[]byte]) AnyTicket { return AnyTicket{kind: KindData, data: t} }

// NewObjectWaker wraps a TicketWaker[object.Object]-shaped waker.
func NewObjectWaker(w TicketWaker[any]) AnyTicketWaker {
	return AnyTicketWaker{kind: KindObject, object: w}
}

// NewU64Waker wraps a TicketWaker[uint64].
func NewU64Waker(w TicketWaker[uint64]) AnyTicketWaker { return AnyTicketWaker{kind: KindU64, u64: w} }

// NewDataWaker wraps a TicketWaker[[]byte].
func NewDataWaker(w TicketWaker[[]byte]) AnyTicketWaker {
	return AnyTicketWaker{kind: KindData, data: w}
}

// Kind reports which payload shape is held.
func (a AnyTicket) Kind() Kind { return a.kind }

// Poll returns the erased result if ready.
func (a AnyTicket) Poll() (AnyTicketValue, error, bool) {
	switch a.kind {
	case KindObject:
		v, err, ready := a.object.Poll()
		return AnyTicketValue{Kind: KindObject, ObjectVal: v}, err, ready
	case KindU64:
		v, err, ready := a.u64.Poll()
		return AnyTicketValue{Kind: KindU64, U64Val: v}, err, ready
	default:
		v, err, ready := a.data.Poll()
		return AnyTicketValue{Kind: KindData, DataVal: v}, err, ready
	}
}

// Await registers w and returns the erased result if already ready.
func (a AnyTicket) Await(w Waker) (AnyTicketValue, error, bool) {
	switch a.kind {
	case KindObject:
		v, err, ready := a.object.Await(w)
		return AnyTicketValue{Kind: KindObject, ObjectVal: v}, err, ready
	case KindU64:
		v, err, ready := a.u64.Await(w)
		return AnyTicketValue{Kind: KindU64, U64Val: v}, err, ready
	default:
		v, err, ready := a.data.Await(w)
		return AnyTicketValue{Kind: KindData, DataVal: v}, err, ready
	}
}

// CompleteObject completes a KindObject waker with a successful value.
// Panics if the waker does not hold a KindObject ticket; callers dispatch
// on Kind before choosing which Complete* method to call, the same way the
// original per-request-type switch does.
func (w AnyTicketWaker) CompleteObject(v any, err error) {
	if w.kind != KindObject {
		panic("ticket: CompleteObject on non-object waker")
	}
	w.object.Complete(v, err)
}

// CompleteU64 completes a KindU64 waker with a successful value.
func (w AnyTicketWaker) CompleteU64(v uint64, err error) {
	if w.kind != KindU64 {
		panic("ticket: CompleteU64 on non-u64 waker")
	}
	w.u64.Complete(v, err)
}

// CompleteData completes a KindData waker with a successful value.
func (w AnyTicketWaker) CompleteData(v []byte, err error) {
	if w.kind != KindData {
		panic("ticket: CompleteData on non-data waker")
	}
	w.data.Complete(v, err)
}

// CompleteErr completes whichever underlying ticket this waker holds with
// err and the zero value, used by cancellation sweeps that do not care
// about payload shape.
func (w AnyTicketWaker) CompleteErr(err error) {
	switch w.kind {
	case KindObject:
		w.object.CompleteErr(err)
	case KindU64:
		w.u64.CompleteErr(err)
	default:
		w.data.CompleteErr(err)
	}
}

// CompleteErrNonBlocking is the isr_complete_err equivalent.
func (w AnyTicketWaker) CompleteErrNonBlocking(err error) {
	switch w.kind {
	case KindObject:
		w.object.CompleteNonBlocking(nil, err)
	case KindU64:
		w.u64.CompleteNonBlocking(0, err)
	default:
		w.data.CompleteNonBlocking(nil, err)
	}
}
