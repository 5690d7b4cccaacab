package paio

import (
	"github.com/gopaio/paio/internal/rwspin"
)

// DefaultTIDMax is the registry's default slot-count ceiling. Linux tids
// are allocated from the same space as pids and, by default,
// /proc/sys/kernel/pid_max is 32768 on 32-bit systems and commonly left at
// that value on 64-bit ones too; 33000 gives headroom without the
// unbounded cost of indexing by the full 22-bit pid_max some 64-bit hosts
// configure. Hosts that raise pid_max further should call InitSize.
const DefaultTIDMax = 33000

// slot is one per-thread-id entry of the registry: a singly linked list of
// live requests guarded by an RW spinlock, exactly the layout spec.md §3
// specifies for a Per-Thread Slot.
type slot struct {
	lock rwspin.Lock
	head *Request
}

// registry is the array of slots indexed by tid modulo its size. A direct
// tid-indexed array, not a hash map, since spec.md §9 calls a direct
// reimplementation's O(1) lookup the baseline and only sanctions a hash
// map as an alternative; this module takes the baseline.
type registry struct {
	slots []slot
}

func newRegistry(tidMax int) *registry {
	return &registry{slots: make([]slot, tidMax+1)}
}

func (reg *registry) slotFor(tid int) *slot {
	return &reg.slots[tid%len(reg.slots)]
}

// insert prepends r to its owning slot's list under a writer lock, per
// spec.md §4.5 submission step 6.
func (reg *registry) insert(r *Request) {
	s := reg.slotFor(r.tid)
	s.lock.Lock()
	r.next = s.head
	s.head = r
	s.lock.Unlock()
}

// find reports whether target is in tid's slot, under a reader lock. In
// this design the pointer itself identifies the record, so the list is
// searched by pointer identity rather than by ctx, and find serves as an
// "is this record still live" check. Cancel and Return hold the slot's
// writer lock and so use findLocked/unlinkLocked instead; Error does not
// search the list at all.
func (reg *registry) find(tid int, target *Request) bool {
	s := reg.slotFor(tid)
	s.lock.RLock()
	defer s.lock.RUnlock()
	return findLocked(s, target)
}

// findLocked is find's list walk without taking any lock itself, for
// callers that already hold tid's slot lock (reader or writer). rwspin.Lock
// is not reentrant, so a caller holding the writer lock must use this
// instead of find, which would spin forever trying to take its own reader
// lock.
func findLocked(s *slot, target *Request) bool {
	for cur := s.head; cur != nil; cur = cur.next {
		if cur == target {
			return true
		}
	}
	return false
}

// remove unlinks target from tid's slot under a writer lock, returning
// whether it was found. Safe to call concurrently with find/forEach (they
// take only a reader lock) and with other remove calls on different
// slots.
func (reg *registry) remove(tid int, target *Request) bool {
	s := reg.slotFor(tid)
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.head == target {
		s.head = target.next
		target.next = nil
		return true
	}
	for cur := s.head; cur != nil; cur = cur.next {
		if cur.next == target {
			cur.next = target.next
			target.next = nil
			return true
		}
	}
	return false
}

// removeMatchingFD removes and returns every record in tid's slot whose
// FD equals fd and for which match returns true, under a single writer
// lock, for Cancel's bulk-by-fd mode. Records match rejects stay linked.
func (reg *registry) removeMatchingFD(tid int, fd int, match func(*Request) bool) []*Request {
	s := reg.slotFor(tid)
	s.lock.Lock()
	defer s.lock.Unlock()

	var matched []*Request
	var prev *Request
	cur := s.head
	for cur != nil {
		next := cur.next
		if cur.FD == fd && match(cur) {
			if prev == nil {
				s.head = next
			} else {
				prev.next = next
			}
			cur.next = nil
			matched = append(matched, cur)
		} else {
			prev = cur
		}
		cur = next
	}
	return matched
}

// isEmpty reports whether tid's slot currently holds no records, under a
// reader lock.
func (reg *registry) isEmpty(tid int) bool {
	s := reg.slotFor(tid)
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.head == nil
}

// forEachInFlight walks every slot starting at start, wrapping modulo the
// registry's size, taking a reader lock per slot in turn — the watcher's
// scan order from spec.md §4.4 step 2. visit returns false to stop the
// entire scan early (used when the local completion credit hits zero).
func (reg *registry) forEachInFlight(start int, visit func(r *Request) (keepGoing bool)) {
	n := len(reg.slots)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		s := &reg.slots[idx]
		s.lock.RLock()
		cont := true
		for cur := s.head; cur != nil && cont; cur = cur.next {
			if cur.errv.Load() != inProgress {
				continue
			}
			cont = visit(cur)
		}
		s.lock.RUnlock()
		if !cont {
			return
		}
	}
}
