package malloc

import "sync/atomic"
import "unsafe"

// abandoned is the process wide stack of heaps whose owning thread
// has terminated while live chunks remain. The only operations are
// atomic prepend of a list and atomic claim of the whole stack;
// claiming everything at once sidesteps the A-B-A problem.
var abandoned unsafe.Pointer // *Heap

// abandonedprepend atomically prepend a list of abandoned heaps.
// O(n) in the list length, which is expected to be short.
func abandonedprepend(first *Heap) {
	if first == nil {
		return
	}
	// fast path when the stack happens to be empty
	if atomic.CompareAndSwapPointer(&abandoned, nil, unsafe.Pointer(first)) {
		return
	}
	last := first
	for last.abandonednext != nil {
		last = last.abandonednext
	}
	for {
		next := (*Heap)(atomic.LoadPointer(&abandoned))
		last.abandonednext = next
		if atomic.CompareAndSwapPointer(
			&abandoned, unsafe.Pointer(next), unsafe.Pointer(first)) {
			return
		}
	}
}

// tryreclaimabandoned absorb one, or all, abandoned heaps into this
// heap. The entire stack is claimed atomically; when reclaiming a
// single heap the remainder is prepended back.
func (heap *Heap) tryreclaimabandoned(all bool) {
	if !heap.initialized() || heap.noreclaim {
		return
	}
	// pre-read to avoid the exchange on the common empty path
	if atomic.LoadPointer(&abandoned) == nil {
		return
	}
	reclaim := (*Heap)(atomic.SwapPointer(&abandoned, nil))
	if reclaim == nil {
		return
	}
	if !all {
		next := reclaim.abandonednext
		reclaim.abandonednext = nil
		abandonedprepend(next)
	}
	for reclaim != nil {
		next := reclaim.abandonednext
		reclaim.abandonednext = nil
		debugf("%v reclaiming %v pages from thread %v into thread %v\n",
			logprefix, reclaim.pagecount, reclaim.threadid, heap.threadid)
		heap.absorb(reclaim)
		segmentsabsorb(heap.threadid, &heap.tld.segments, &reclaim.tld.segments)
		reclaim.tld = nil // release the shell
		heap.tld.stats.nreclaims++
		reclaim = next
	}
}
