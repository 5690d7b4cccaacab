// Package rwspin implements a hand-built multi-reader/single-writer
// spinlock over a single atomic word, the lock scheme specified for the
// per-thread request registry: the lower 16 bits count writers holding
// the lock (0 or 1), the upper 16 bits count concurrent readers.
//
// It exists as its own package because it is independently testable and
// has no dependency on anything else in this module; a sync.RWMutex would
// satisfy the same contract (multi-reader, single-writer, no reentrancy)
// and is noted as an acceptable substitute.
package rwspin

import "sync/atomic"

const (
	readerUnit uint32 = 1 << 16
	writerUnit uint32 = 1
	writerMask uint32 = readerUnit - 1
)

// Lock is a spinning reader/writer lock. The zero value is an unlocked
// Lock ready for use.
type Lock struct {
	word atomic.Uint32
}

// RLock acquires a reader lock, spinning while any writer holds the lock.
func (l *Lock) RLock() {
	for {
		// optimistic add: if a writer is present (any of the lower 16
		// bits set), back out and retry.
		if l.word.Add(readerUnit)&writerMask == 0 {
			return
		}
		l.word.Add(^(readerUnit - 1))
	}
}

// RUnlock releases a reader lock acquired with RLock.
func (l *Lock) RUnlock() {
	l.word.Add(^(readerUnit - 1))
}

// Lock acquires an exclusive writer lock, spinning while any reader or
// writer holds the lock. Writers are exclusive: there must be no lock of
// any kind outstanding.
func (l *Lock) Lock() {
	for l.word.Add(writerUnit) != writerUnit {
		l.word.Add(^(writerUnit - 1))
	}
}

// Unlock releases a writer lock acquired with Lock.
func (l *Lock) Unlock() {
	l.word.Add(^(writerUnit - 1))
}
