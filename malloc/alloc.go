package malloc

import "unsafe"

// Malloc allocate `n` bytes from the calling thread's default heap.
func Malloc(n int64) unsafe.Pointer {
	return GetDefault().Alloc(n)
}

// Alloc implement api.Mallocer{} interface. Allocate a chunk of `n`
// bytes from this heap, owner thread only. Returns nil on an
// uninitialized heap.
func (heap *Heap) Alloc(n int64) unsafe.Pointer {
	if !heap.initialized() {
		return nil
	}
	if n <= 0 {
		panicerr("Alloc size %v", n)
	}
	if largest := ma.slabs[len(ma.slabs)-1]; n > largest {
		panicerr("Alloc size %v exceeds maxblock size %v", n, largest)
	}
	slab, bin := suitableslab(n)
	if ptr := heap.allocfast(bin); ptr != nil {
		return ptr
	}
	return heap.allocslow(slab, bin)
}

// Allocslab implement api.Mallocer{} interface.
func (heap *Heap) Allocslab(slab int64) unsafe.Pointer {
	if !heap.initialized() {
		return nil
	}
	bin := slabbin(slab)
	if ptr := heap.allocfast(bin); ptr != nil {
		return ptr
	}
	return heap.allocslow(slab, bin)
}

// allocfast serve from the bin's queue, rotating exhausted pages into
// the full queue. Pages in the full queue route remote frees to the
// delayed channel until a collect moves them back.
func (heap *Heap) allocfast(bin int) unsafe.Pointer {
	pq := &heap.pages[bin]
	for {
		page := pq.first
		if page == nil {
			return nil
		}
		if page.free == nil {
			pagefreecollect(page, false)
		}
		if page.free != nil {
			return page.allocblock()
		}
		pq.remove(page)
		page.setflags(pageflagfull | pageflagdelayed)
		heap.pages[ma.nbins].pushback(page)
	}
}

// allocslow opportunistically reclaim abandoned heaps, then carve a
// fresh page out of the thread's segments.
func (heap *Heap) allocslow(slab int64, bin int) unsafe.Pointer {
	if !heap.noreclaim {
		heap.tryreclaimabandoned(false)
		if ptr := heap.allocfast(bin); ptr != nil {
			return ptr
		}
	}
	page := segmentpagealloc(heap.tld, slab)
	page.bin = bin
	page.heapstore(heap)
	heap.pages[bin].pushfront(page)
	heap.pagecount++
	return page.allocblock()
}

// Realloc grow a chunk to `n` bytes, in place when the chunk's slab
// already fits, otherwise by moving it within the calling thread's
// default heap.
func Realloc(ptr unsafe.Pointer, n int64) unsafe.Pointer {
	if ptr == nil {
		return Malloc(n)
	}
	page := mustpage(ptr)
	if n <= page.blocksize {
		return ptr
	}
	newptr := Malloc(n)
	src := unsafe.Slice((*byte)(ptr), page.blocksize)
	copy(unsafe.Slice((*byte)(newptr), page.blocksize), src)
	Free(ptr)
	return newptr
}

// Free a chunk allocated from any heap of any thread. A chunk freed
// by the owning thread goes to its page's local list; a chunk freed
// by a foreign thread is pushed onto the page's remote stack or onto
// the owning heap's delayed channel, for the owner to collect.
func Free(ptr unsafe.Pointer) {
	freeblock(ptr)
}

// Free implement api.Mallocer{} interface.
func (heap *Heap) Free(ptr unsafe.Pointer) {
	if !heap.initialized() {
		return
	}
	freeblock(ptr)
}

func freeblock(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	page := mustpage(ptr)
	start, _ := pagestart(page.segment, page)
	diffptr := uint64(uintptr(ptr) - uintptr(start))
	if (diffptr % uint64(page.blocksize)) != 0 {
		panicerr("free(): unaligned pointer: %x,%v", diffptr, page.blocksize)
	}
	heap := page.heapload()
	if heap != nil && heap.threadid == currentthreadid() {
		page.freelocal(ptr)
		return
	}
	page.freeremote(ptr)
}
