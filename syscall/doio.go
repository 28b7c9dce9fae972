package syscall

import (
	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/ticket"
	"github.com/objcore/kernel/wire"
)

// DoIOOp names the operation a DoIO call performs, mirroring the submission
// types an I/O Queue dispatches, minus Close (do_io closes a handle by
// simply not installing it, the caller just drops the reference).
type DoIOOp int

const (
	DoIOOpen DoIOOp = iota
	DoIOCreate
	DoIORead
	DoIOWrite
	DoIODestroy
	DoIOSeek
	DoIOGetMeta
	DoIOSetMeta
	DoIOShare
)

// DoIOArgs carries the operation-specific arguments for DoIO, the
// synchronous analogue of ioqueue.Submission's variable-length fields.
type DoIOArgs struct {
	Path      []byte
	Amount    int
	WriteData []byte
	Seek      wire.SeekFrom
	Share     object.Object
}

// DoIOResult carries whichever field DoIO's op populates.
type DoIOResult struct {
	Handle handle.Value
	Data   []byte
	Value  uint64
}

// DoIO performs a one-off synchronous operation on a handle without going
// through an I/O Queue's ring: spec.md's "do_io" fast path, for processes
// that do not need queue batching. It blocks the calling thread until the
// Object's Ticket resolves.
func (t *Table) DoIO(h handle.Value, op DoIOOp, args DoIOArgs) (DoIOResult, error) {
	obj, ok := t.proc.Handles.Get(h)
	if !ok {
		return DoIOResult{}, invalidHandle("syscall.do_io")
	}

	switch op {
	case DoIOOpen:
		child, err := ticket.Wait(obj.Open(args.Path))
		if err != nil {
			return DoIOResult{}, err
		}
		return DoIOResult{Handle: t.proc.Handles.Insert(child)}, nil
	case DoIOCreate:
		child, err := ticket.Wait(obj.Create(args.Path))
		if err != nil {
			return DoIOResult{}, err
		}
		return DoIOResult{Handle: t.proc.Handles.Insert(child)}, nil
	case DoIORead:
		data, err := ticket.Wait(obj.Read(args.Amount))
		return DoIOResult{Data: data}, err
	case DoIOWrite:
		n, err := ticket.Wait(obj.Write(args.WriteData))
		return DoIOResult{Value: n}, err
	case DoIODestroy:
		n, err := ticket.Wait(obj.Destroy(args.Path))
		return DoIOResult{Value: n}, err
	case DoIOSeek:
		n, err := ticket.Wait(obj.Seek(args.Seek))
		return DoIOResult{Value: n}, err
	case DoIOGetMeta:
		data, err := ticket.Wait(obj.GetMeta(args.Path))
		return DoIOResult{Data: data}, err
	case DoIOSetMeta:
		n, err := ticket.Wait(obj.SetMeta(args.Path, args.WriteData))
		return DoIOResult{Value: n}, err
	case DoIOShare:
		n, err := ticket.Wait(obj.Share(args.Share))
		return DoIOResult{Value: n}, err
	default:
		return DoIOResult{}, kerr.New("syscall.do_io", kerr.InvalidOperation)
	}
}
