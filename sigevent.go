package paio

import (
	"github.com/gopaio/paio/internal/kaio"
)

// NotifyMode selects how (or whether) completion is announced via signal,
// mirroring sigevent.sigev_notify.
type NotifyMode int

const (
	// NotifyNone suppresses signal delivery entirely; only Error/Suspend
	// observe completion.
	NotifyNone NotifyMode = iota
	// NotifySignal queues Signo with Value to the submitting thread on
	// completion.
	NotifySignal
)

// Sigevent describes optional best-effort completion notification. The
// zero value is NotifyNone: no signal is ever sent.
type Sigevent struct {
	Notify NotifyMode
	Signo  int
	Value  int64
}

// queue delivers the configured signal to tid, ignoring failures: per
// spec.md §4.4, signal notification is best-effort, and the watcher must
// never stall or panic because a target thread has already exited.
func (s Sigevent) queue(tid int) {
	if s.Notify != NotifySignal || s.Signo == 0 {
		return
	}
	_ = kaio.SigQueue(tid, s.Signo, s.Value)
}
