package malloc

import "sync"

// collect modes, ordering matters: anything above normal signals
// force to the deferred-free callback, anything at force or above
// releases cached segments.
const (
	collectnormal  = 0
	collectforce   = 1
	collectabandon = 2
)

var deferred struct {
	sync.Mutex
	fn func(force bool)
}

// RegisterDeferredFree install a callback invoked at the start of
// every collect, before pages are drained. Applications use it to
// flush their own free lists. Pass nil to uninstall.
func RegisterDeferredFree(fn func(force bool)) {
	deferred.Lock()
	deferred.fn = fn
	deferred.Unlock()
}

func deferredfree(heap *Heap, force bool) {
	deferred.Lock()
	fn := deferred.fn
	deferred.Unlock()
	if fn != nil {
		fn(force)
	}
}

func pagecollectvisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	force := arg1.(int) >= collectforce
	pagefreecollect(page, true)
	if page.used == 0 {
		pq.remove(page)
		heap.pagecount--
		heap.tld.stats.npagefree++
		segmentpagefree(page, force, &heap.tld.segments)
	} else if pq == &heap.pages[ma.nbins] && page.free != nil {
		// a full page has space again, move it back to its bin
		pq.remove(page)
		page.setflags(0)
		heap.pages[page.bin].pushback(page)
	}
	return true
}

func (heap *Heap) collectx(mode int) {
	if !heap.initialized() {
		return
	}
	deferredfree(heap, mode > collectnormal)

	// absorb outstanding abandoned heaps, but not when abandoning
	if mode != collectabandon {
		heap.tryreclaimabandoned(mode == collectforce)
	}

	// claim chunks queued by remote threads
	heap.delayedfreedrain()

	// merge per-page free lists, retire pages that became empty
	heap.visitpages(pagecollectvisitor, mode, nil)

	if mode >= collectforce {
		segmentthreadcollect(&heap.tld.segments)
		if ismainthread() {
			memcollect()
		}
	}
}

// Collect drain pending work for this heap: deferred callbacks,
// delayed frees and retired pages. With force, a heap that accepts
// abandoned heaps also absorbs every outstanding one (heaps created by
// NewHeap never absorb), and cached segments are released back to the
// OS allocator.
func (heap *Heap) Collect(force bool) {
	if force {
		heap.collectx(collectforce)
		return
	}
	heap.collectx(collectnormal)
}

// Collect the calling thread's default heap.
func Collect(force bool) {
	GetDefault().Collect(force)
}

// collectabandon release resources of a backing heap that is about to
// be abandoned due to thread termination.
func (heap *Heap) collectabandon() {
	heap.collectx(collectabandon)
	heap.tld.stats.done(heap.threadid)
	if heap.pagecount == 0 {
		heap.backingrelease()
		return
	}
	// still live chunks: publish on the abandoned stack
	heap.abandonednext = nil
	abandonedprepend(heap)
	statsabandoned(heap)
}
