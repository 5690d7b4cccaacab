package paio

import (
	"time"

	"github.com/gopaio/paio/internal/kaio"
)

// pollTimeout is the "tiny timeout" spec.md §4.4 step 2 calls for on each
// per-record get_events probe: long enough that a genuinely-ready
// completion is never missed by a hair, short enough that one slow record
// can't stall the whole scan.
const pollTimeout = 50 * time.Microsecond

// watcher is the Watcher (C4): the single long-lived task that drains the
// Notifier and harvests completions for every in-flight record across the
// registry.
type watcher struct {
	eng *engine
}

func newWatcher(eng *engine) *watcher {
	return &watcher{eng: eng}
}

// run is the watcher's unbounded loop. It never returns under normal
// operation; per spec.md §9, there is no API to stop it short of process
// exit. stop is provided purely so tests can run an engine in isolation
// without leaking a goroutine past the test. It is checked only between
// passes, so a watcher blocked reading the Notifier returns once a credit
// is posted to the Notifier after stop is closed.
func (w *watcher) run(stop <-chan struct{}) {
	var credit uint64
	for {
		if credit == 0 {
			select {
			case <-stop:
				return
			default:
			}
			c, err := w.eng.notify.wait()
			if err != nil {
				// Swallowed per spec.md §7: a watcher-internal error
				// leaves outstanding records IN_PROGRESS for the next
				// pass rather than propagating anywhere.
				logger.Info().Err(err).Log("paio: notifier read failed, retrying")
				continue
			}
			credit += c
		}
		if credit == 0 {
			continue
		}

		start := int(w.eng.likelyTid.Load())
		w.eng.registry.forEachInFlight(start, func(r *Request) bool {
			events, err := w.eng.adapter.GetEvents(r.ctx, 1, 1, pollTimeout)
			if err != nil || len(events) == 0 {
				return credit > 0
			}
			w.complete(r, events[0])
			credit--
			return credit > 0
		})

		select {
		case <-stop:
			return
		default:
		}
	}
}

// complete applies one harvested kernel event to its record, honoring the
// result-before-error ordering contract from spec.md §5, then wakes any
// registered waiter and queues any configured completion signal.
func (w *watcher) complete(r *Request, ev kaio.Event) {
	res := ev.Res
	r.result.CompareAndSwap(resultPending, res)

	var errno int32
	if res >= 0 {
		errno = 0
	} else {
		errno = int32(-res)
	}
	r.errv.CompareAndSwap(inProgress, errno)

	w.wake(r)
	r.Sigevent.queue(r.tid)
}

// wake delivers a single wakeup token to whatever per-call readiness
// handle is currently installed on r, if any. Reading waiterNotifier here
// races only with a suspending thread's writer-locked install, which is
// why that install must take the slot's writer lock: see engine.suspend in
// lifecycle.go and spec.md §4.5's lost-wakeup discussion.
func (w *watcher) wake(r *Request) {
	fd := r.waiterNotifier.Load()
	if fd < 0 {
		return
	}
	_ = kaio.PostEventfd(int(fd))
}
