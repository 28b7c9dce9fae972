// Package kerr defines the object/IPC core's exhaustive error taxonomy.
//
// Every operation in this repository that can fail resolves to one of the
// Codes below instead of an ad-hoc error string, because the same failure
// has to cross three different wires unchanged: a Go error returned to a
// caller inside the kernel, a response slot on a Stream Table ring, and a
// completion slot on an I/O Queue ring. Code.Wire gives the negative int16
// that the latter two use.
package kerr

import (
	"errors"
	"fmt"
)

// Code is a high-level error category. The zero value is not a valid code;
// use OK only to mean "no error" when decoding a wire value.
type Code int16

const (
	OK Code = 0

	// DoesNotExist is returned by open/lookup of an absent path or sub-range.
	DoesNotExist Code = -1
	// InvalidOperation means this Object does not implement the requested
	// capability; it is the default for every unimplemented Object method.
	InvalidOperation Code = -2
	// InvalidObject means a handle is stale (generation mismatch) or names
	// an Object of the wrong kind for the operation attempted.
	InvalidObject Code = -3
	// InvalidData means malformed input: a bad path, an invalid RWX
	// combination, an unaligned offset, a block size that does not evenly
	// divide the pool, or seek arithmetic overflow.
	InvalidData Code = -4
	// CantCreateObject covers allocator/handle-arena exhaustion and
	// mappings that would overflow the address space.
	CantCreateObject Code = -5
	// Cancelled means the peer (stream table server, process) is gone;
	// used exclusively for tickets completed by a drop/teardown path.
	Cancelled Code = -6
	// Reserved means a mapping was requested below the first reserved page.
	Reserved Code = -7
	// Other is the catch-all for anything that does not fit the above.
	Other Code = -4096
)

var names = map[Code]string{
	OK:               "ok",
	DoesNotExist:     "does not exist",
	InvalidOperation: "invalid operation",
	InvalidObject:    "invalid object",
	InvalidData:      "invalid data",
	CantCreateObject: "cannot create object",
	Cancelled:        "cancelled",
	Reserved:         "reserved",
	Other:            "other",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int16(c))
}

// Wire returns the code as the negative int16 the Stream Table response
// slot and the I/O Queue completion slot encode errors with. Valid wire
// error values occupy [-4096, -1]; the caller is expected to have already
// checked the value is in that band before calling WireToCode.
func (c Code) Wire() int16 { return int16(c) }

// WireToCode decodes a negative int16 response/completion value back into
// a Code. It does not validate range; callers check v < 0 first.
func WireToCode(v int16) Code { return Code(v) }

// Error is a structured error carrying enough context to reconstruct what
// failed and where, in the shape the rest of the repository returns.
type Error struct {
	Op    string // operation that failed, e.g. "open", "process_io_queue"
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		return fmt.Sprintf("kerr: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("kerr: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is against both *Error (compares Code) and a bare Code
// value wrapped as an error via New.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// New builds an *Error with no wrapped cause.
func New(op string, code Code) *Error {
	return &Error{Op: op, Code: code, Msg: code.String()}
}

// Newf builds an *Error with a formatted message.
func Newf(op string, code Code, format string, args ...any) *Error {
	return &Error{Op: op, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches op/code context to an existing error without discarding it.
// A nil inner returns nil, matching the teacher's WrapError idiom.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ie.Code, Msg: ie.Msg, Inner: ie}
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// CodeOf extracts the Code from err, returning Other if err is not (and
// does not wrap) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if err == nil {
		return OK
	}
	return Other
}

// Is reports whether err's Code equals code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
