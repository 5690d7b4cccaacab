package paio

import (
	"golang.org/x/sys/unix"
)

// CancelResult is the tri-state outcome of Cancel, mirroring aio_cancel's
// CANCELED/NOT_CANCELED/ALL_DONE return values.
type CancelResult int

const (
	// Canceled is the targeted-mode (non-nil Request) result when the
	// request was canceled before completion, or when it was no longer
	// tracked at all (already reaped or canceled).
	Canceled CancelResult = iota
	// NotCanceled means at least one targeted request had already
	// progressed too far to cancel and will complete normally.
	NotCanceled
	// AllDone is the bulk-by-fd result when every matching request in the
	// caller's slot was canceled, including (per the REDESIGN FLAG
	// resolution recorded in DESIGN.md) the case where the slot held no
	// matching fd at all.
	AllDone
)

func (r CancelResult) String() string {
	switch r {
	case Canceled:
		return "CANCELED"
	case NotCanceled:
		return "NOT_CANCELED"
	case AllDone:
		return "ALL_DONE"
	default:
		return "UNKNOWN"
	}
}

// SyncOp selects the flavor of Fsync, mirroring aio_fsync's O_SYNC/O_DSYNC
// distinction.
type SyncOp int

const (
	// SyncFull requests a full fsync (data and metadata).
	SyncFull SyncOp = iota
	// SyncData requests a data-only sync (fdatasync).
	SyncData
)

// ListIOMode selects whether ListIO blocks until every entry completes.
type ListIOMode int

const (
	// ListIOWait blocks until every submitted entry has completed.
	ListIOWait ListIOMode = iota
	// ListIONoWait returns as soon as every entry has been submitted.
	ListIONoWait
)

// inProgress is the sentinel stored in Request.errv while an operation has
// not yet completed. It deliberately reuses the real EINPROGRESS errno
// value, exactly as musl's aio.c does, so that Error() needs no special
// case to distinguish "still running" from "done with this errno".
const inProgress = int32(unix.EINPROGRESS)

// InProgress is the value Error reports while a request is still
// outstanding, exported so callers can compare against it directly
// instead of hardcoding EINPROGRESS.
const InProgress = int(unix.EINPROGRESS)

// resultPending is the sentinel stored in Request.result before the
// watcher has observed a completion.
const resultPending int64 = -1
