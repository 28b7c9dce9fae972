package streamtable

import "github.com/objcore/kernel/wire"

// Request is the decoded form of a Stream Table request slot (spec.md
// §4.4): Handle names which server-side object the operation targets,
// JobID threads a response back to the right client ticket, and the
// remaining fields hold whichever argument Type calls for.
type Request struct {
	Handle uint32
	JobID  uint32
	Type   wire.RequestType
	Amount uint32
	Slice  wire.Slice
	Seek   wire.SeekFrom
	Share  uint32
}

func requestToSlot(r Request) wire.RequestSlot {
	s := wire.RequestSlot{Handle: r.Handle, JobID: r.JobID, Type: r.Type}
	switch r.Type {
	case wire.ReqRead:
		s.PutAmount(r.Amount)
	case wire.ReqWrite, wire.ReqOpen, wire.ReqCreate, wire.ReqDestroy, wire.ReqGetMeta, wire.ReqSetMeta:
		s.PutSlice(r.Slice)
	case wire.ReqSeek:
		s.PutSeek(r.Seek)
	case wire.ReqShare:
		s.PutShareHandle(r.Share)
	case wire.ReqClose:
	}
	return s
}

func slotToRequest(s wire.RequestSlot) Request {
	r := Request{Handle: s.Handle, JobID: s.JobID, Type: s.Type}
	switch s.Type {
	case wire.ReqRead:
		r.Amount = s.Amount()
	case wire.ReqWrite, wire.ReqOpen, wire.ReqCreate, wire.ReqDestroy, wire.ReqGetMeta, wire.ReqSetMeta:
		r.Slice = s.Slice()
	case wire.ReqSeek:
		r.Seek = s.Seek()
	case wire.ReqShare:
		r.Share = s.ShareHandle()
	}
	return r
}
