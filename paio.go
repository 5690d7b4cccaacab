// Package paio implements the POSIX asynchronous I/O surface
// (aio_read/aio_write/aio_fsync/aio_error/aio_return/aio_cancel/
// aio_suspend/lio_listio) as a user-space shim over Linux's native kernel
// AIO facility (io_setup/io_submit/io_cancel/io_getevents). A single
// background watcher drains kernel completions through a process-wide
// eventfd and routes them back to whichever caller is waiting.
//
// Every exported function here is near-direct dispatch into the engine
// implemented across aiocb.go, registry.go, notifier.go, watcher.go and
// lifecycle.go: the package surface itself does no interesting work.
package paio

import (
	"time"

	"golang.org/x/sys/unix"
)

// NoTimeout passed to Suspend means block indefinitely, mirroring
// aio_suspend's NULL timespec argument.
const NoTimeout time.Duration = -1

// NewRequest builds a Request for a read or write, bundling the caller's
// fd/buffer/offset/priority/sigevent into the control block Read, Write,
// Fsync and ListIO all operate on. The Opcode field is overwritten by
// whichever of Read/Write/Fsync actually submits it.
func NewRequest(fd int, buf []byte, offset int64, prio int16, sev Sigevent) *Request {
	return newRequest(fd, OpRead, buf, offset, prio, sev)
}

// Read submits an asynchronous read for r. r.Buffer must already be sized
// to the number of bytes requested; its contents are undefined until
// Error reports completion.
func Read(r *Request) error {
	if r == nil {
		return unix.EINVAL
	}
	if err := ensureInit(); err != nil {
		return err
	}
	r.Opcode = OpRead
	return global.submit(r)
}

// Write submits an asynchronous write of r.Buffer.
func Write(r *Request) error {
	if r == nil {
		return unix.EINVAL
	}
	if err := ensureInit(); err != nil {
		return err
	}
	r.Opcode = OpWrite
	return global.submit(r)
}

// Fsync submits an asynchronous fsync (op == SyncFull) or fdatasync
// (op == SyncData) against r.FD. On kernels whose io_submit rejects
// FSYNC/FDSYNC iocbs with EINVAL, it falls back to a synchronous call and
// reports the request as already complete — see SPEC_FULL.md's
// supplemented-feature #4.
func Fsync(op SyncOp, r *Request) error {
	if r == nil {
		return unix.EINVAL
	}
	if err := ensureInit(); err != nil {
		return err
	}
	if op == SyncData {
		r.Opcode = OpFdsync
	} else {
		r.Opcode = OpFsync
	}
	err := global.submit(r)
	if err == unix.EINVAL {
		global.fsyncSync(r, op)
		return nil
	}
	return err
}

// Error reports r's current status: EINPROGRESS while outstanding, 0 on
// success, or a positive errno. A nil r reports EINVAL.
func Error(r *Request) int {
	if r == nil {
		return int(unix.EINVAL)
	}
	return r.Error()
}

// Return reaps a completed request: unlinks it from its owning slot,
// destroys its kernel context, and returns the final byte count. It must
// be called at most once per request and does not block; callers should
// have already observed completion via Error or Suspend.
func Return(r *Request) (int64, error) {
	if r == nil {
		return 0, unix.EINVAL
	}
	if err := ensureInit(); err != nil {
		return 0, err
	}
	return global.reap(r)
}

// Cancel attempts to cancel r, or every outstanding request on fd
// submitted by the calling thread if r is nil (bulk-by-fd mode).
func Cancel(fd int, r *Request) (CancelResult, error) {
	if err := ensureInit(); err != nil {
		return NotCanceled, err
	}
	if r != nil {
		return global.cancelOne(r), nil
	}
	return global.cancelAllForFD(currentTID(), fd), nil
}

// Suspend blocks the calling goroutine until at least one request in reqs
// completes, or timeout elapses (NoTimeout blocks indefinitely).
func Suspend(reqs []*Request, timeout time.Duration) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return global.suspend(reqs, timeout)
}

// ListIO submits every non-nil, non-OpNop entry in list. If sev is
// non-nil, it is applied as the default Sigevent for any entry that did
// not set its own. In ListIOWait mode, ListIO suspends on each submitted
// entry in order before returning; any per-entry submission failure is
// stamped into that entry's status (visible via Error) and the whole call
// fails with EAGAIN.
func ListIO(mode ListIOMode, list []*Request, sev *Sigevent) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return global.listIO(mode, list, sev)
}
