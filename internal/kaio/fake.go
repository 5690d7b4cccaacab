package kaio

import (
	"errors"
	"sync"
	"time"
)

// Fake is an in-memory Adapter double used by the package's own tests
// (and by tests elsewhere in the module) in place of real kernel AIO, so
// completion ordering and cancellation races can be driven deterministically
// from test code via Complete/CompleteErr rather than waiting on an actual
// disk.
//
// It tracks the double-free invariant spec.md §8 asks the real adapter to
// uphold: Destroy after Destroy, or Submit after Destroy, is reported as a
// Stats counter rather than panicking, so tests can assert on it. Contexts
// that are set up and never destroyed are not counted.
type Fake struct {
	mu      sync.Mutex
	nextCtx uint64
	ctxs    map[ContextID]*fakeCtx

	destroyedTwice int
	submitAfterEnd int
}

type fakeCtx struct {
	pending map[uint64]*Iocb // keyed by Iocb.Data
	ready   []Event
	live    bool
}

// NewFake returns a ready-to-use Fake adapter.
func NewFake() *Fake {
	return &Fake{ctxs: make(map[ContextID]*fakeCtx)}
}

func (f *Fake) Setup(nr uint32) (ContextID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCtx++
	id := ContextID(f.nextCtx)
	f.ctxs[id] = &fakeCtx{pending: make(map[uint64]*Iocb), live: true}
	return id, nil
}

func (f *Fake) Destroy(ctx ContextID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.ctxs[ctx]
	if !ok || !c.live {
		f.destroyedTwice++
		return errors.New("kaio: double destroy")
	}
	c.live = false
	return nil
}

func (f *Fake) Submit(ctx ContextID, iocb *Iocb) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.ctxs[ctx]
	if !ok || !c.live {
		f.submitAfterEnd++
		return errors.New("kaio: submit on dead context")
	}
	cp := *iocb
	c.pending[iocb.Data] = &cp
	return nil
}

// Cancel succeeds (returning an Event carrying the iocb's Data, with Res
// left zero) only if the request has not yet been completed via Complete;
// once completed, the real kernel would already have delivered it, so
// Cancel reports not-found.
func (f *Fake) Cancel(ctx ContextID, iocb *Iocb) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.ctxs[ctx]
	if !ok {
		return Event{}, errors.New("kaio: unknown context")
	}
	if _, pending := c.pending[iocb.Data]; !pending {
		return Event{}, errors.New("kaio: request not found or already complete")
	}
	delete(c.pending, iocb.Data)
	return Event{Data: iocb.Data}, nil
}

// GetEvents drains whatever has been posted via Complete, waiting up to
// timeout for at least min if none are yet ready.
func (f *Fake) GetEvents(ctx ContextID, min, max int, timeout time.Duration) ([]Event, error) {
	deadline := time.Now().Add(timeout)
	for {
		f.mu.Lock()
		c, ok := f.ctxs[ctx]
		if !ok {
			f.mu.Unlock()
			return nil, errors.New("kaio: unknown context")
		}
		if len(c.ready) >= min || timeout <= 0 {
			n := len(c.ready)
			if n > max {
				n = max
			}
			out := append([]Event(nil), c.ready[:n]...)
			c.ready = c.ready[n:]
			f.mu.Unlock()
			return out, nil
		}
		f.mu.Unlock()
		if timeout > 0 && time.Now().After(deadline) {
			return nil, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Complete posts a successful completion for the request identified by
// data (Iocb.Data), as the kernel would after finishing the I/O.
func (f *Fake) Complete(ctx ContextID, data uint64, res int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.ctxs[ctx]
	if !ok {
		return
	}
	delete(c.pending, data)
	c.ready = append(c.ready, Event{Data: data, Res: res})
}

// Stats reports the double-free/use-after-destroy counters tests assert
// against.
type Stats struct {
	DestroyedTwice int
	SubmitAfterEnd int
}

func (f *Fake) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{DestroyedTwice: f.destroyedTwice, SubmitAfterEnd: f.submitAfterEnd}
}
