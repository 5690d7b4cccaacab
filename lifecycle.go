package paio

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gopaio/paio/internal/kaio"
)

// ListIOMax bounds lio_listio's nent argument. AIOMax holds musl's limit on
// the total number of outstanding AIO operations; nothing in this package
// reads it, so the number of outstanding requests is not capped.
// Linux's sysconf has no kernel-backed answer for _SC_AIO_LISTIO_MAX or
// _SC_AIO_MAX (musl's own libc falls through to these same constants every
// time on Linux), so they are simply hardcoded, matching musl aio.c.
var (
	ListIOMax = 1024 * 1024
	AIOMax    = 10 * 1024 * 1024
)

// engine bundles everything the public operations need: the registry, the
// Notifier, the kernel AIO adapter, and the watcher task. A single
// package-level instance backs the public free functions (Read, Write,
// ...), constructed lazily via a three-state init exactly like spec.md
// §4.5 describes; tests construct their own engine directly (with a Fake
// adapter) to avoid sharing global state.
type engine struct {
	adapter  kaio.Adapter
	registry *registry
	notify   *notifier
	watch    *watcher
	likelyTid atomic.Int64
	stop     chan struct{}
}

func newEngine(adapter kaio.Adapter, tidMax int) (*engine, error) {
	n, err := newNotifier()
	if err != nil {
		return nil, err
	}
	eng := &engine{
		adapter:  adapter,
		registry: newRegistry(tidMax),
		notify:   n,
		stop:     make(chan struct{}),
	}
	eng.likelyTid.Store(int64(kaio.Gettid()))
	eng.watch = newWatcher(eng)
	go eng.watch.run(eng.stop)
	return eng, nil
}

const (
	initUninit int32 = iota
	initIniting
	initInited
)

var (
	initState atomic.Int32
	global    *engine
	globalErr error
)

// ensureInit performs the three-state CAS (UNINIT -> INITING -> INITED)
// spec.md §4.5 specifies, so concurrent first callers converge on exactly
// one setup; everyone else spins until it is done.
func ensureInit() error {
	for {
		switch initState.Load() {
		case initInited:
			return globalErr
		case initUninit:
			if initState.CompareAndSwap(initUninit, initIniting) {
				global, globalErr = newEngine(kaio.Linux, DefaultTIDMax)
				if globalErr != nil {
					logger.Err().Err(globalErr).Log("paio: engine init failed")
				} else {
					logger.Info().Int("tidMax", DefaultTIDMax).Log("paio: engine initialized")
				}
				initState.Store(initInited)
				return globalErr
			}
		default:
			runtime.Gosched()
		}
	}
}

// Init forces initialization of the package-level engine immediately,
// using DefaultTIDMax, instead of waiting for the first operation to
// trigger it lazily.
func Init() error {
	return ensureInit()
}

// InitSize forces initialization with a caller-chosen registry ceiling,
// for hosts whose pid_max (and therefore tid space) exceeds
// DefaultTIDMax. It is a no-op, returning the original error, if the
// engine has already been initialized.
func InitSize(tidMax int) error {
	if initState.CompareAndSwap(initUninit, initIniting) {
		global, globalErr = newEngine(kaio.Linux, tidMax)
		initState.Store(initInited)
	}
	return ensureInit()
}

func currentTID() int {
	return kaio.Gettid()
}

// submit is the shared body of Read/Write/Fsync's asynchronous path:
// build a kernel iocb, bind the Notifier, submit via the adapter, and on
// success insert the record into the submitter's slot. Spec.md §4.5
// submission steps 1-6.
func (eng *engine) submit(r *Request) error {
	tid := currentTID()
	r.tid = tid

	ctx, err := eng.adapter.Setup(1)
	if err != nil {
		return err
	}

	iocb := kaio.Iocb{
		Opcode:  opcodeFor(r.Opcode),
		Fildes:  uint32(r.FD),
		Offset:  r.Offset,
		ReqPrio: r.Priority,
		Flags:   kaio.FlagResFD,
		ResFD:   uint32(eng.notify.fd),
		Data:    uint64(uintptr(unsafe.Pointer(r))),
	}
	if len(r.Buffer) > 0 {
		iocb.Buf = uint64(uintptr(unsafe.Pointer(&r.Buffer[0])))
		iocb.Nbytes = uint64(len(r.Buffer))
	}
	r.cb = iocb
	r.ctx = ctx

	if err := eng.adapter.Submit(ctx, &r.cb); err != nil {
		_ = eng.adapter.Destroy(ctx)
		// The context is already gone: zero it out so a later Fsync
		// fallback (or any other code path that still holds r) never
		// destroys it a second time, per spec.md §3 invariant 6.
		r.ctx = 0
		return err
	}

	eng.registry.insert(r)
	return nil
}

func opcodeFor(op Op) uint16 {
	switch op {
	case OpRead:
		return kaio.CmdPread
	case OpWrite:
		return kaio.CmdPwrite
	case OpFsync:
		return kaio.CmdFsync
	case OpFdsync:
		return kaio.CmdFdsync
	default:
		return kaio.CmdNoop
	}
}

// fsyncSync is the synchronous fallback for Fsync on kernels whose
// io_submit rejects FSYNC/FDSYNC iocbs with EINVAL: the request is
// completed immediately, inline, preserving the non-blocking-submission
// contract from the caller's point of view (see SPEC_FULL.md
// SUPPLEMENTED FEATURES #4).
func (eng *engine) fsyncSync(r *Request, op SyncOp) {
	var err error
	if op == SyncData {
		err = unix.Fdatasync(r.FD)
	} else {
		err = unix.Fsync(r.FD)
	}
	r.result.Store(0)
	if err != nil {
		if errno, ok := err.(unix.Errno); ok {
			r.errv.Store(int32(errno))
		} else {
			r.errv.Store(int32(unix.EIO))
		}
	} else {
		r.errv.Store(0)
	}
	// submit() already set r.tid (and failed before ever inserting); the
	// fallback still needs the record reachable from Return/Cancel like
	// any normally-submitted request.
	eng.registry.insert(r)
}

// suspend blocks until at least one of reqs completes or timeout elapses,
// implementing spec.md §4.5's Suspension contract precisely, including
// the writer-lock lost-wakeup discipline.
func (eng *engine) suspend(reqs []*Request, timeout time.Duration) error {
	fd, err := kaio.NewEventfd()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	found := false
	ready := false
	for _, r := range reqs {
		s := eng.registry.slotFor(r.tid)
		s.lock.Lock()
		live := findLocked(s, r)
		if live {
			found = true
			if r.done() {
				ready = true
			} else {
				r.waiterNotifier.Store(int64(fd))
			}
		} else if r.done() {
			// Already reaped-free of its slot but carrying a terminal
			// status (e.g. completed then removed by something else
			// observing it first) still counts as ready.
			found = true
			ready = true
		}
		s.lock.Unlock()
	}

	defer func() {
		for _, r := range reqs {
			s := eng.registry.slotFor(r.tid)
			s.lock.RLock()
			r.waiterNotifier.Store(-1)
			s.lock.RUnlock()
		}
	}()

	if !found {
		return unix.EAGAIN
	}
	if ready {
		return nil
	}

	readable, err := kaio.WaitReadable(fd, timeout)
	if err != nil {
		return unix.EINTR
	}
	if !readable {
		return unix.EAGAIN
	}
	return nil
}

// cancelOne targets a single record, under a writer lock on its owning
// slot, per spec.md §4.5 Cancellation (targeted mode).
func (eng *engine) cancelOne(r *Request) CancelResult {
	s := eng.registry.slotFor(r.tid)
	s.lock.Lock()
	defer s.lock.Unlock()

	if !findLocked(s, r) {
		return Canceled
	}
	if _, err := eng.adapter.Cancel(r.ctx, &r.cb); err != nil {
		return NotCanceled
	}
	_ = eng.adapter.Destroy(r.ctx)
	eng.unlinkLocked(r)
	r.removed.Store(true)
	return Canceled
}

// unlinkLocked removes r from its owning slot's list, reporting whether
// it was actually found there. Caller must already hold that slot's
// writer lock.
func (eng *engine) unlinkLocked(r *Request) bool {
	s := eng.registry.slotFor(r.tid)
	if s.head == r {
		s.head = r.next
		r.next = nil
		return true
	}
	for cur := s.head; cur != nil; cur = cur.next {
		if cur.next == r {
			cur.next = r.next
			r.next = nil
			return true
		}
	}
	return false
}

// cancelAllForFD implements spec.md §4.5 Cancellation's bulk-by-fd mode,
// honoring the REDESIGN FLAG: an empty match set (including an entirely
// empty slot) returns ALL_DONE rather than EBADF.
func (eng *engine) cancelAllForFD(tid, fd int) CancelResult {
	allDone := true
	eng.registry.removeMatchingFD(tid, fd, func(r *Request) bool {
		if _, err := eng.adapter.Cancel(r.ctx, &r.cb); err != nil {
			allDone = false
			return false
		}
		_ = eng.adapter.Destroy(r.ctx)
		r.removed.Store(true)
		return true
	})
	if allDone {
		return AllDone
	}
	return NotCanceled
}

// reap implements spec.md §4.5 Final reap: unlink under a writer lock,
// read result, destroy the kernel context, and mark the record consumed
// so a second call observes EINVAL.
func (eng *engine) reap(r *Request) (int64, error) {
	if r.removed.Swap(true) {
		return 0, unix.EINVAL
	}
	s := eng.registry.slotFor(r.tid)
	s.lock.Lock()
	found := eng.unlinkLocked(r)
	s.lock.Unlock()
	if !found {
		return 0, unix.EINVAL
	}
	res := r.result.Load()
	_ = eng.adapter.Destroy(r.ctx)
	return res, nil
}

// errnoOf extracts a positive errno from err, for stamping into a
// Request's listErr slot; non-errno errors are reported as EIO since the
// list-error slot only ever holds an errno value.
func errnoOf(err error) int32 {
	if errno, ok := err.(unix.Errno); ok {
		return int32(errno)
	}
	return int32(unix.EIO)
}

func syncOpFor(op Op) SyncOp {
	if op == OpFdsync {
		return SyncData
	}
	return SyncFull
}

// listIO implements spec.md §4.5's List submission (lio_listio): validate
// nent against ListIOMax, dispatch every entry by opcode, stamp per-entry
// submission failures into that entry's listErr slot, and in wait mode
// suspend on each entry in submission order before returning.
func (eng *engine) listIO(mode ListIOMode, list []*Request, sev *Sigevent) error {
	if len(list) > ListIOMax {
		return unix.EINVAL
	}

	failed := false
	for _, r := range list {
		if r == nil {
			failed = true
			continue
		}
		if sev != nil && r.Sigevent.Notify == NotifyNone {
			r.Sigevent = *sev
		}

		var err error
		switch r.Opcode {
		case OpNop:
			continue
		case OpRead, OpWrite:
			err = eng.submit(r)
		case OpFsync, OpFdsync:
			err = eng.submit(r)
			if err == unix.EINVAL {
				eng.fsyncSync(r, syncOpFor(r.Opcode))
				err = nil
			}
		default:
			err = unix.EINVAL
		}
		if err != nil {
			r.listErr.Store(errnoOf(err))
			failed = true
		}
	}
	if failed {
		return unix.EAGAIN
	}

	if mode == ListIOWait {
		for _, r := range list {
			if r == nil || r.Opcode == OpNop {
				continue
			}
			if err := eng.suspend([]*Request{r}, NoTimeout); err != nil {
				return err
			}
		}
	}
	return nil
}
