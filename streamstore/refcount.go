package streamstore

import (
	"sync"
	"sync/atomic"
)

// refTable tracks live references to content blobs by digest. A digest's
// count transitions Live (>=1) -> PendingDelete (0, file still present)
// while a concurrent reader or writer races to either resurrect it or
// win the right to delete the backing file.
type refTable struct {
	counts sync.Map // digest string -> *atomic.Int64
}

func newRefTable() *refTable {
	return &refTable{}
}

// acquire increments the reference count for digest, creating the entry
// if absent, and returns the count observed after the increment.
func (r *refTable) acquire(digest string) int64 {
	v, _ := r.counts.LoadOrStore(digest, new(atomic.Int64))
	counter := v.(*atomic.Int64)
	return counter.Add(1)
}

// release decrements the reference count for digest and reports whether
// this call is the one that drove it to zero. Only the caller that wins
// that race should delete the backing content file: a concurrent acquire
// landing between the decrement and the zero-check must not also see
// itself as the winner, so the decrement-to-zero transition is followed
// by a CAS that only succeeds if nothing has re-incremented in between.
func (r *refTable) release(digest string) bool {
	v, ok := r.counts.Load(digest)
	if !ok {
		return false
	}
	counter := v.(*atomic.Int64)

	for {
		cur := counter.Load()
		if cur <= 0 {
			return false
		}
		next := cur - 1
		if !counter.CompareAndSwap(cur, next) {
			continue
		}
		if next != 0 {
			return false
		}
		// We drove the counter to zero. Only delete the map entry (and
		// claim deletion rights) if it is still zero; a racing acquire
		// that ran LoadOrStore after our CompareAndSwap but before this
		// check would have bumped it back up already.
		if counter.CompareAndSwap(0, 0) && counter.Load() == 0 {
			r.counts.Delete(digest)
			return true
		}
		return false
	}
}

// count returns the current reference count for digest, or 0 if unknown.
func (r *refTable) count(digest string) int64 {
	v, ok := r.counts.Load(digest)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}
