package paio

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/gopaio/paio/internal/kaio"
)

// Op selects the operation a Request performs, the thin opcode-translation
// layer spec.md calls out as trivial: POSIX read/write/fsync/no-op map
// directly onto kernel AIO opcodes.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpFsync
	OpFdsync
	// OpNop is lio_listio's LIO_NOP: present in the list but not
	// submitted at all.
	OpNop
)

// Request is both the caller-facing control block (POSIX's struct aiocb)
// and the library's internal bookkeeping record merged into a single
// value: the pointer the caller holds onto IS the record the registry and
// watcher operate on. This collapses musl's two-struct design (a
// caller-owned aiocb plus an internal __aiocb_stuff located by scanning
// for a matching ctx_id) into one Go-idiomatic allocation located by
// pointer identity instead of by value search; see DESIGN.md.
type Request struct {
	// Caller-populated fields.
	FD       int
	Opcode   Op
	Priority int16
	Buffer   []byte
	Offset   int64
	Sigevent Sigevent

	// Filled in by Submit.
	ctx kaio.ContextID
	tid int
	cb  kaio.Iocb

	// errv holds inProgress until the watcher (or a synchronous Fsync
	// fallback) observes completion, at which point it holds a
	// non-negative errno (0 == success). Never mutated again afterward.
	errv atomic.Int32
	// result holds resultPending until errv leaves inProgress; written
	// first, with release semantics relative to errv, per the ordering
	// contract in spec.md §5.
	result atomic.Int64

	// waiterNotifier is the eventfd a suspending caller installed to be
	// woken on this record's completion, or -1 if none. Installing it
	// requires a writer lock on the owning slot; see engine.suspend in
	// lifecycle.go and watcher.go for the lost-wakeup discipline.
	waiterNotifier atomic.Int64

	// listErr is stamped by ListIO when per-entry submission fails, so a
	// later Error call can surface it without the record ever having
	// been inserted into a slot.
	listErr atomic.Int32

	// removed guards against double reap/cancel of the same record.
	removed atomic.Bool

	next *Request
}

func newRequest(fd int, op Op, buf []byte, offset int64, prio int16, sev Sigevent) *Request {
	r := &Request{
		FD:       fd,
		Opcode:   op,
		Priority: prio,
		Buffer:   buf,
		Offset:   offset,
		Sigevent: sev,
	}
	r.errv.Store(inProgress)
	r.result.Store(resultPending)
	r.waiterNotifier.Store(-1)
	return r
}

// Error reports the request's current status: inProgress's int value
// while outstanding, 0 on success, or a positive errno. A request that
// was successfully canceled or already reaped, and never otherwise
// reached a terminal status, reports EINVAL — it is no longer tracked
// anywhere the watcher could complete it.
func (r *Request) Error() int {
	if le := r.listErr.Load(); le != 0 {
		return int(le)
	}
	if r.removed.Load() && r.errv.Load() == inProgress {
		return int(unix.EINVAL)
	}
	return int(r.errv.Load())
}

// done reports whether the watcher (or a synchronous path) has recorded a
// terminal status for this request.
func (r *Request) done() bool {
	return r.errv.Load() != inProgress
}
