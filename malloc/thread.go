package malloc

import "runtime"
import "sync"

import "golang.org/x/sys/unix"

// Tld thread-local descriptor shared by all heaps owned by one OS
// thread. Only the owning thread mutates it, except during
// reclamation when the reclaimer absorbs the segment state of a
// terminated thread.
type Tld struct {
	threadid    int64
	heapbacking *Heap // first heap of the thread, owns this tld
	heapdefault *Heap // target of package level Malloc/Collect
	segments    segmentsTld
	stats       Stats
}

var threads = struct {
	sync.Mutex
	tlds map[int64]*Tld
}{tlds: make(map[int64]*Tld)}

// mainthreadid is the thread running package initialization.
var mainthreadid = currentthreadid()

func currentthreadid() int64 {
	return int64(unix.Gettid())
}

func ismainthread() bool {
	return currentthreadid() == mainthreadid
}

// ThreadInit bind the calling goroutine to its OS thread and set up
// the thread's backing heap and descriptor. Idempotent on a thread
// that is already initialized. Returns the backing heap.
func ThreadInit() *Heap {
	ensureinit()
	runtime.LockOSThread()
	tid := currentthreadid()

	threads.Lock()
	defer threads.Unlock()
	if tld, ok := threads.tlds[tid]; ok {
		return tld.heapbacking
	}
	tld := &Tld{threadid: tid}
	heap := newheap(tld, nil)
	heap.noreclaim = !ma.reclaim
	tld.heapbacking, tld.heapdefault = heap, heap
	threads.tlds[tid] = tld
	pstats.Lock()
	pstats.nthreads++
	pstats.Unlock()
	debugf("%v thread %v initialized\n", logprefix, tid)
	return heap
}

// ThreadDone tear down the calling thread's backing heap, which is
// abandoned if it still holds live chunks, released otherwise. Child
// heaps created by NewHeap are not deleted here.
// Unlocks the goroutine from its OS thread.
func ThreadDone() {
	tld := currenttld()
	if tld == nil {
		return
	}
	unregistertld(tld)
	tld.heapdefault = nil
	tld.heapbacking.collectabandon()
	runtime.UnlockOSThread()
}

// unregistertld detach a descriptor from the thread registry, so the
// thread re-initializes afresh on its next allocator use.
func unregistertld(tld *Tld) {
	threads.Lock()
	if threads.tlds[tld.threadid] == tld {
		delete(threads.tlds, tld.threadid)
	}
	threads.Unlock()
}

func currenttld() *Tld {
	tid := currentthreadid()
	threads.Lock()
	tld := threads.tlds[tid]
	threads.Unlock()
	return tld
}

func ensurethread() *Tld {
	if tld := currenttld(); tld != nil {
		return tld
	}
	ThreadInit()
	return currenttld()
}

// GetDefault return the calling thread's default heap, initializing
// the thread on first use.
func GetDefault() *Heap {
	ensureinit()
	return ensurethread().heapdefault
}

// GetBacking return the calling thread's backing heap, initializing
// the thread on first use.
func GetBacking() *Heap {
	ensureinit()
	return ensurethread().heapbacking
}

// SetDefault swap the calling thread's default heap, returning the
// previous default. The heap must belong to the calling thread.
func SetDefault(heap *Heap) *Heap {
	if heap == nil || heap.tld == nil {
		return nil
	}
	tld := ensurethread()
	if heap.tld != tld {
		panicerr("heap belongs to thread %v", heap.threadid)
	}
	old := tld.heapdefault
	tld.heapdefault = heap
	return old
}
