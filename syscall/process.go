package syscall

import (
	"time"

	"github.com/objcore/kernel/handle"
	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/object"
	"github.com/objcore/kernel/process"
	"github.com/objcore/kernel/ticket"
)

// bootTime anchors MonotonicTime: the clock never runs backwards and never
// depends on wall-clock adjustments, the same contract a real kernel's
// monotonic clock gives userspace.
var bootTime = time.Now()

// MonotonicTime reads the monotonic clock: spec.md op 2.
func (t *Table) MonotonicTime() time.Duration { return t.now().Sub(bootTime) }

// Sleep blocks the calling thread for d: spec.md op 10. There is no
// scheduler here to suspend and resume, so this is a direct time.Sleep;
// the suspension-point contract spec.md §5 describes is still honored,
// just without a context switch underneath it.
func (t *Table) Sleep(d time.Duration) { time.Sleep(d) }

// KillThread requests asynchronous termination of tid: spec.md op 14.
func (t *Table) KillThread(tid int) error {
	th, ok := t.proc.Thread(tid)
	if !ok {
		return kerr.New("syscall.kill_thread", kerr.InvalidObject)
	}
	th.Kill()
	return nil
}

// WaitThread blocks until tid exits, returning its exit code: spec.md
// op 15.
func (t *Table) WaitThread(tid int) (uint64, error) {
	th, ok := t.proc.Thread(tid)
	if !ok {
		return 0, kerr.New("syscall.wait_thread", kerr.InvalidObject)
	}
	return ticket.Wait(th.Wait())
}

// Exit terminates the current process: spec.md op 16.
func (t *Table) Exit(code uint64) error { return t.proc.Exit(code) }

// CreateRoot mints a fresh Root Object, installs it in the current
// process's handle table, and returns its handle: spec.md op 17. A new
// namespace Object (the same variant FileRoot generalizes) is the
// distinguished Root Object a driver publishes sub-objects under.
func (t *Table) CreateRoot() handle.Value {
	root := object.NewFileRoot(t.frames)
	return t.proc.Handles.Insert(root)
}

// DuplicateHandle installs a second handle aliasing h's Object: spec.md
// op 18.
func (t *Table) DuplicateHandle(h handle.Value) (handle.Value, error) {
	return t.proc.DuplicateHandle(h)
}

// SpawnThread creates an additional thread in the current process: spec.md
// op 19.
func (t *Table) SpawnThread() *process.Thread { return t.proc.SpawnThread() }
