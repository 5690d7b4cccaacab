//go:build linux

package kaio

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux is the real kernel AIO adapter, issuing the io_* family directly
// via raw syscalls (golang.org/x/sys/unix has no typed wrappers for these
// since they predate the package's AIO-aware additions, but it does
// export the stable per-architecture syscall-number tables used here).
var Linux Adapter = linuxAdapter{}

type linuxAdapter struct{}

func (linuxAdapter) Setup(nr uint32) (ContextID, error) {
	var ctx uint64
	_, _, errno := unix.Syscall(unix.SYS_IO_SETUP, uintptr(nr), uintptr(unsafe.Pointer(&ctx)), 0)
	if errno != 0 {
		return 0, errno
	}
	return ContextID(ctx), nil
}

func (linuxAdapter) Destroy(ctx ContextID) error {
	_, _, errno := unix.Syscall(unix.SYS_IO_DESTROY, uintptr(ctx), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (linuxAdapter) Submit(ctx ContextID, iocb *Iocb) error {
	iocbs := [1]*Iocb{iocb}
	n, _, errno := unix.Syscall(unix.SYS_IO_SUBMIT, uintptr(ctx), 1, uintptr(unsafe.Pointer(&iocbs[0])))
	if errno != 0 {
		return errno
	}
	if int(n) != 1 {
		return errors.New("kaio: io_submit accepted zero requests")
	}
	return nil
}

func (linuxAdapter) Cancel(ctx ContextID, iocb *Iocb) (Event, error) {
	var ev Event
	_, _, errno := unix.Syscall6(unix.SYS_IO_CANCEL, uintptr(ctx), uintptr(unsafe.Pointer(iocb)), uintptr(unsafe.Pointer(&ev)), 0, 0, 0)
	if errno != 0 {
		return Event{}, errno
	}
	return ev, nil
}

func (linuxAdapter) GetEvents(ctx ContextID, min, max int, timeout time.Duration) ([]Event, error) {
	if max <= 0 {
		return nil, nil
	}
	events := make([]Event, max)
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	n, _, errno := unix.Syscall6(unix.SYS_IO_GETEVENTS, uintptr(ctx), uintptr(min), uintptr(max), uintptr(unsafe.Pointer(&events[0])), uintptr(unsafe.Pointer(&ts)), 0)
	if errno != 0 {
		return nil, errno
	}
	return events[:n], nil
}

// NewEventfd creates a fresh, zero-initialized eventfd used either as the
// process-wide Notifier or as a per-suspend-call readiness handle.
func NewEventfd() (int, error) {
	return unix.Eventfd(0, unix.EFD_CLOEXEC)
}

// ReadEventfd performs the Notifier's blocking 8-byte read, returning the
// accumulated completion credit the kernel has posted.
func ReadEventfd(fd int) (uint64, error) {
	var buf [8]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n != 8 {
			return 0, errors.New("kaio: short eventfd read")
		}
		return unix.LittleEndian.Uint64(buf[:]), nil
	}
}

// PostEventfd writes a single wakeup token to fd. Errors are the caller's
// to ignore: per spec.md §4.4, a failed write to a waiter's handle is
// benign (the waiter may already have torn it down).
func PostEventfd(fd int) error {
	var buf [8]byte
	unix.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(fd, buf[:])
	return err
}

// WaitReadable blocks until fd becomes readable or timeout elapses.
// timeout < 0 blocks indefinitely. Implemented with a throwaway epoll
// instance rather than pselect, since that is the Go-idiomatic way to get
// a millisecond-granularity wait on a single fd without reaching for
// cgo-only APIs.
func WaitReadable(fd int, timeout time.Duration) (ready bool, err error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return false, err
	}
	defer unix.Close(epfd)

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return false, err
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}

	events := make([]unix.EpollEvent, 1)
	for {
		n, err := unix.EpollWait(epfd, events, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// Gettid returns the kernel thread id of the calling OS thread, the
// registry's per-thread slot key.
func Gettid() int {
	return unix.Gettid()
}

// SigQueue delivers sig with an attached value to thread tid of the
// calling process, via rt_tgsigqueueinfo — the thread-targeted analogue
// of sigqueue(3), mirroring musl aio.c's use of sigqueue() for completion
// notification but aimed at a specific thread rather than the process.
func SigQueue(tid, sig int, value int64) error {
	type sigqueueInfo struct {
		signo, errno, code int32
		pad                int32
		pid                int32
		uid                uint32
		value              int64
		_                  [128 - 32]byte // siginfo_t is a fixed 128 bytes on linux/amd64 and arm64
	}

	si := sigqueueInfo{
		signo: int32(sig),
		code:  -1, // SI_QUEUE
		pid:   int32(unix.Getpid()),
		uid:   uint32(unix.Getuid()),
		value: value,
	}

	_, _, errno := unix.Syscall6(unix.SYS_RT_TGSIGQUEUEINFO,
		uintptr(unix.Getpid()), uintptr(tid), uintptr(sig),
		uintptr(unsafe.Pointer(&si)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
