package malloc

import "unsafe"

import "github.com/bnclabs/gomalloc/api"

// Heap a collection of pages owned by a single thread, used as a
// source of allocations. Foreign threads interact with a heap only
// through its delayed-free channel and, after its thread has
// terminated, through the abandoned stack.
type Heap struct {
	tld      *Tld
	threadid int64

	pages     []pageQueue // one queue per slab bin, plus the full queue
	pagecount int64       // total pages linked from pages[]

	delayedfree unsafe.Pointer // atomic chunk list, obfuscated links

	random uint64
	cookie uint64
	key    [2]uint64

	noreclaim bool // refuse absorbing abandoned heaps; Destroy is legal

	abandonednext *Heap // link while on the abandoned stack
}

var _ api.Mallocer = (*Heap)(nil)

// heapempty canonical template copied into every new heap.
var heapempty = Heap{}

func newheap(tld *Tld, parent *Heap) *Heap {
	heap := &Heap{}
	*heap = heapempty
	heap.tld = tld
	heap.threadid = tld.threadid
	heap.pages = make([]pageQueue, ma.nbins+1)
	if parent != nil {
		randomsplit(&parent.random, &heap.random)
	} else {
		heap.random = randomseed()
	}
	heap.cookie = heap.randomnext() | 1
	heap.key[0] = heap.randomnext()
	heap.key[1] = heap.randomnext()
	return heap
}

// NewHeap create a heap for the calling thread, with its own PRNG
// state and obfuscation keys split off the backing heap's. The new
// heap does not absorb abandoned heaps, which also makes Destroy
// legal on it. Returns nil when the thread cannot be initialized.
func NewHeap() *Heap {
	bheap := GetBacking()
	if bheap == nil {
		return nil
	}
	heap := newheap(bheap.tld, bheap)
	heap.noreclaim = true
	return heap
}

func (heap *Heap) initialized() bool {
	return heap != nil && heap.tld != nil
}

func (heap *Heap) isbacking() bool {
	return heap.tld != nil && heap.tld.heapbacking == heap
}

// release the heap shell once its pages are gone. A backing heap is
// left as it is here; it is released by collectabandon, on thread
// termination or on its own Delete.
func (heap *Heap) release() {
	if !heap.initialized() || heap.isbacking() {
		return
	}
	if heap.tld.heapdefault == heap {
		heap.tld.heapdefault = heap.tld.heapbacking
	}
	heap.tld = nil
}

// backingrelease free a backing heap whose pages are gone, dropping
// the thread descriptor with it.
func (heap *Heap) backingrelease() {
	segmentthreadcollect(&heap.tld.segments)
	if heap.tld.heapdefault == heap {
		heap.tld.heapdefault = nil
	}
	heap.tld.heapbacking = nil
	heap.tld = nil
}

//---- absorb

// absorb transfer every page and the delayed-free channel of `from`
// into this heap. Pages move first: a remote free racing with the
// splice pushes onto whichever heap it read from the page, and both
// channels are swept by this heap's next drain.
func (heap *Heap) absorb(from *Heap) {
	if from == nil || from.pagecount == 0 {
		return
	}
	for i := 0; i <= ma.nbins; i++ {
		count := heap.pages[i].appendq(heap, &from.pages[i])
		heap.pagecount += count
		from.pagecount -= count
	}
	heap.absorbdelayed(from)
	from.resetpages()
}

//---- safe delete

// Delete the heap without freeing chunks still allocated from it. A
// non-backing heap hands its pages to the thread's backing heap; the
// backing heap abandons them for another thread to reclaim. No-op on
// an uninitialized heap.
func (heap *Heap) Delete() {
	if !heap.initialized() {
		return
	}
	if !heap.isbacking() {
		heap.tld.heapbacking.absorb(heap)
		heap.release()
		return
	}
	// the backing heap abandons its pages; the thread registration
	// goes with it, a later allocator use re-initializes the thread.
	unregistertld(heap.tld)
	heap.collectabandon()
}

//---- destroy

// Destroy the heap and every page in it regardless of live chunks.
// Chunks still held by the application become invalid. Only legal on
// a heap that never absorbs foreign pages; otherwise silently
// downgraded to a safe Delete. Callers guarantee no further remote
// frees target this heap.
func (heap *Heap) Destroy() {
	if !heap.initialized() {
		return
	}
	if !heap.noreclaim {
		debugf("%v destroy downgraded to delete\n", logprefix)
		heap.Delete()
		return
	}
	heap.destroypages()
	heap.release()
}

func pagedestroyvisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	// pretend the page is all free, without touching chunk memory
	page.used = 0
	heap.tld.stats.npagefree++
	segmentpagefree(page, false, &heap.tld.segments)
	return true
}

func (heap *Heap) destroypages() {
	heap.visitpages(pagedestroyvisitor, nil, nil)
	heap.resetpages()
}

//---- analysis

func heapofblock(ptr unsafe.Pointer) *Heap {
	if ptr == nil {
		return nil
	}
	seg := segmentof(ptr)
	if seg == nil || seg.cookie != segmentcookie(seg.base) {
		return nil
	}
	page := seg.pageof(ptr)
	if page == nil || page.blocksize == 0 {
		return nil
	}
	return page.heapload()
}

// Contains report whether `ptr` lies in a page of this heap. A
// corrupted segment cookie reports false, never aborts.
func (heap *Heap) Contains(ptr unsafe.Pointer) bool {
	if !heap.initialized() {
		return false
	}
	return heapofblock(ptr) == heap
}

func pagecheckowned(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	ptr, found := arg1.(unsafe.Pointer), arg2.(*bool)
	start, _ := pagestart(page.segment, page)
	end := uintptr(start) + uintptr(int64(page.capacity)*page.blocksize)
	if uintptr(ptr) < uintptr(start) || uintptr(ptr) >= end {
		return true // keep looking
	}
	offset := int64(uintptr(ptr) - uintptr(start))
	*found = (offset%page.blocksize) == 0 && !page.blockisfree(ptr)
	return false // the pointer cannot be in any other page
}

// Owned report whether `ptr` is the base of a chunk currently
// allocated from this heap. Only word aligned pointers are ever
// reported owned. Chunks pending on the delayed or remote free lists
// still count as owned until the owner collects.
func (heap *Heap) Owned(ptr unsafe.Pointer) bool {
	if !heap.initialized() || ptr == nil {
		return false
	}
	if (uintptr(ptr) & uintptr(Alignment-1)) != 0 {
		return false
	}
	found := false
	heap.visitpages(pagecheckowned, ptr, &found)
	return found
}

// Owned report whether `ptr` is a chunk currently allocated from the
// calling thread's default heap.
func Owned(ptr unsafe.Pointer) bool {
	return GetDefault().Owned(ptr)
}

//---- api.Mallocer

// Slabs implement api.Mallocer{} interface.
func (heap *Heap) Slabs() []int64 {
	return ma.slabs
}

// Slabsize implement api.Mallocer{} interface.
func (heap *Heap) Slabsize(ptr unsafe.Pointer) int64 {
	return mustpage(ptr).blocksize
}

// Release implement api.Mallocer{} interface, alias for Delete.
func (heap *Heap) Release() {
	heap.Delete()
}

func pageinfovisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	acc := arg1.(*[3]int64)
	acc[0] += int64(page.capacity) * page.blocksize
	acc[1] += int64(page.used) * page.blocksize
	acc[2] += int64(unsafe.Sizeof(*page))
	return true
}

// Info implement api.Mallocer{} interface.
func (heap *Heap) Info() (capacity, heapmem, alloc, overhead int64) {
	if !heap.initialized() {
		return 0, 0, 0, 0
	}
	var acc [3]int64
	heap.visitpages(pageinfovisitor, &acc, nil)
	self := int64(unsafe.Sizeof(*heap))
	slicesz := int64(cap(heap.pages)) * int64(unsafe.Sizeof(pageQueue{}))
	return ma.capacity, acc[0], acc[1], self + slicesz + acc[2]
}

func pageutilvisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	committed, allocated := arg1.([]float64), arg2.([]float64)
	committed[page.bin] += float64(int64(page.capacity) * page.blocksize)
	allocated[page.bin] += float64(int64(page.used) * page.blocksize)
	return true
}

// Utilization implement api.Mallocer{} interface.
func (heap *Heap) Utilization() ([]int, []float64) {
	if !heap.initialized() {
		return nil, nil
	}
	committed := make([]float64, len(ma.slabs))
	allocated := make([]float64, len(ma.slabs))
	heap.visitpages(pageutilvisitor, committed, allocated)

	ss, zs := make([]int, 0), make([]float64, 0)
	for bin, size := range ma.slabs {
		if committed[bin] > 0 {
			ss = append(ss, int(size))
			zs = append(zs, (allocated[bin]/committed[bin])*100)
		}
	}
	return ss, zs
}

//---- validation, used by tests

func pagevalidvisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	count := arg1.(*int64)
	(*count)++
	return page.heapload() == heap && page.segment != nil
}

func (heap *Heap) isvalid() bool {
	if !heap.initialized() {
		return false
	}
	count := int64(0)
	ok := heap.visitpages(pagevalidvisitor, &count, nil)
	if !ok || count != heap.pagecount {
		return false
	}
	// the delayed channel must be walkable under our keys
	limit := 1 << 24
	for block := heap.delayedfreeload(); block != nil; {
		if limit--; limit < 0 {
			return false
		}
		if segmentof(block) == nil {
			return false
		}
		block = heap.blocknextx(block)
	}
	return true
}
