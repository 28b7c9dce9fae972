package object

import (
	"io"
	"net"
	"sync"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/ticket"
)

// NetRoot is a loopback network namespace Object: two Opens against the
// same name connect their callers through an in-memory duplex pipe, the
// socket-pair half of spec.md's Root Object family with no real network
// stack underneath it. The standard library's net.Pipe is the only thing
// in the retrieved pack that models a connected byte stream; none of the
// pack's third-party dependencies (golang.org/x/sys/unix, giouring,
// eapache/queue) have anything to say about in-process duplex pipes, so
// this one variant is stdlib by necessity rather than by default.
type NetRoot struct {
	Base

	mu      sync.Mutex
	waiting map[string]net.Conn
}

// NewNetRoot creates an empty loopback namespace.
func NewNetRoot() *NetRoot {
	return &NetRoot{waiting: make(map[string]net.Conn)}
}

// Open connects the caller to name: the first Open of a name parks one end
// of a fresh pipe and returns the other; the second Open of the same name
// claims the parked end, completing the pair, and a third Open starts a new
// pair from scratch.
func (r *NetRoot) Open(path []byte) ticket.Ticket[Object] {
	name := string(path)
	r.mu.Lock()
	defer r.mu.Unlock()

	if peer, ok := r.waiting[name]; ok {
		delete(r.waiting, name)
		return ticket.Done[Object](&NetConn{conn: peer}, nil)
	}
	mine, theirs := net.Pipe()
	r.waiting[name] = theirs
	return ticket.Done[Object](&NetConn{conn: mine}, nil)
}

// NetConn is one endpoint of a NetRoot loopback connection. Read and Write
// round-trip through the pipe's goroutine-synchronous rendezvous, so
// NetConn completes its Tickets off of a background goroutine — the only
// variant in this repository that does so (Notify and StreamObject also
// return pending Tickets, but complete them from a Signal or a response
// drain rather than a goroutine of their own).
type NetConn struct {
	Base
	conn net.Conn
}

func (n *NetConn) Read(max int) ticket.Ticket[[]byte] {
	t, w := ticket.New[[]byte]()
	go func() {
		buf := make([]byte, max)
		nRead, err := n.conn.Read(buf)
		if err != nil && err != io.EOF {
			w.Complete(nil, kerr.Wrap("net_conn.read", kerr.InvalidOperation, err))
			return
		}
		w.Complete(buf[:nRead], nil)
	}()
	return t
}

func (n *NetConn) Write(data []byte) ticket.Ticket[uint64] {
	t, w := ticket.New[uint64]()
	go func() {
		written, err := n.conn.Write(data)
		if err != nil {
			w.Complete(0, kerr.Wrap("net_conn.write", kerr.InvalidOperation, err))
			return
		}
		w.Complete(uint64(written), nil)
	}()
	return t
}

func (n *NetConn) Close() error { return n.conn.Close() }
