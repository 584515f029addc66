package malloc

import "sort"
import "sync"
import "unsafe"

// Segment is a slab of OS memory carved into fixed size pages. Pages
// from one segment can be owned by different heaps of the same
// thread. The segment's cookie ties its metadata to its address so
// that pointer resolution can reject corrupted or foreign memory.
type Segment struct {
	base     unsafe.Pointer
	size     int64
	pagesize int64
	cookie   uint64
	threadid int64 // owning thread, retagged on absorb
	used     int64 // pages handed out to heaps
	pages    []Page
	free     *Page    // free pages, chained on Page.next
	next     *Segment // link in tld open/cache and region lists
}

var segcookieseed = randomseed()

func segmentcookie(base unsafe.Pointer) uint64 {
	return uint64(uintptr(base)) ^ segcookieseed
}

func newsegment(threadid, size, pagesize int64) *Segment {
	npages := int(size / pagesize)
	seg := &Segment{
		base:     osmalloc(size),
		size:     size,
		pagesize: pagesize,
		threadid: threadid,
		pages:    make([]Page, npages),
	}
	seg.cookie = segmentcookie(seg.base)
	for i := npages - 1; i >= 0; i-- {
		page := &seg.pages[i]
		page.segment, page.index = seg, i
		page.next = seg.free
		seg.free = page
	}
	registersegment(seg)
	return seg
}

// pagestart return the chunk region of a page and its size.
func pagestart(seg *Segment, page *Page) (unsafe.Pointer, int64) {
	start := uintptr(seg.base) + uintptr(int64(page.index)*seg.pagesize)
	return unsafe.Pointer(start), seg.pagesize
}

// pageof resolve a pointer within this segment to its page.
func (seg *Segment) pageof(ptr unsafe.Pointer) *Page {
	offset := int64(uintptr(ptr) - uintptr(seg.base))
	index := int(offset / seg.pagesize)
	if index < 0 || index >= len(seg.pages) {
		return nil
	}
	return &seg.pages[index]
}

//---- per-thread segment state

// segmentsTld segment lists of one thread, mutated only by the owner,
// transferred wholesale to a reclaiming thread on absorb.
type segmentsTld struct {
	open    *Segment // segments that may still have free pages
	cache   *Segment // fully free segments kept for reuse
	ncached int64
	count   int64 // segments owned by this thread
}

func (segs *segmentsTld) unlinkopen(seg *Segment) {
	if segs.open == seg {
		segs.open = seg.next
		seg.next = nil
		return
	}
	for s := segs.open; s != nil; s = s.next {
		if s.next == seg {
			s.next = seg.next
			seg.next = nil
			return
		}
	}
}

// segmentpagealloc carve a page for chunks of `blocksize` bytes out
// of the thread's segments, acquiring a new segment if none has a
// free page.
func segmentpagealloc(tld *Tld, blocksize int64) *Page {
	segs := &tld.segments
	var seg *Segment
	for s := segs.open; s != nil; s = s.next {
		if s.free != nil {
			seg = s
			break
		}
	}
	if seg == nil {
		if seg = segs.cache; seg != nil {
			segs.cache = seg.next
			segs.ncached--
		} else {
			seg = regionalloc(tld.threadid)
			segs.count++
		}
		seg.next = segs.open
		segs.open = seg
	}
	page := seg.free
	seg.free = page.next
	page.next = nil
	seg.used++
	pageinit(page, blocksize)
	tld.stats.npagealloc++
	return page
}

// segmentpagefree return an empty page to its segment. With force a
// fully-free segment bypasses the thread cache and goes straight to
// the region cache.
func segmentpagefree(page *Page, force bool, segs *segmentsTld) {
	seg := page.segment
	page.reset()
	page.next = seg.free
	seg.free = page
	seg.used--
	if seg.used == 0 {
		segs.unlinkopen(seg)
		if force {
			segs.count--
			regionrelease(seg)
		} else {
			seg.next = segs.cache
			segs.cache = seg
			segs.ncached++
		}
	}
}

// segmentthreadcollect drain the thread's segment cache into the
// region cache.
func segmentthreadcollect(segs *segmentsTld) {
	for seg := segs.cache; seg != nil; {
		next := seg.next
		regionrelease(seg)
		segs.count--
		seg = next
	}
	segs.cache, segs.ncached = nil, 0
}

// segmentsabsorb transfer segment ownership from a terminated
// thread's descriptor to the reclaimer's.
func segmentsabsorb(threadid int64, to, from *segmentsTld) {
	for seg := from.open; seg != nil; seg = seg.next {
		seg.threadid = threadid
	}
	for seg := from.cache; seg != nil; seg = seg.next {
		seg.threadid = threadid
	}
	to.open = appendseglist(to.open, from.open)
	to.cache = appendseglist(to.cache, from.cache)
	to.ncached += from.ncached
	to.count += from.count
	from.open, from.cache, from.ncached, from.count = nil, nil, 0, 0
}

func appendseglist(list, tail *Segment) *Segment {
	if list == nil {
		return tail
	}
	seg := list
	for seg.next != nil {
		seg = seg.next
	}
	seg.next = tail
	return list
}

//---- process wide segment registry

// registry maps raw pointers back to their segment, sorted by base
// address. Read locked on the free path, write locked only on
// segment acquisition and OS release.
var registry struct {
	sync.RWMutex
	segments []*Segment
}

func registersegment(seg *Segment) {
	registry.Lock()
	defer registry.Unlock()
	segments := registry.segments
	i := sort.Search(len(segments), func(j int) bool {
		return uintptr(segments[j].base) >= uintptr(seg.base)
	})
	segments = append(segments, nil)
	copy(segments[i+1:], segments[i:])
	segments[i] = seg
	registry.segments = segments
}

func deregistersegment(seg *Segment) {
	registry.Lock()
	defer registry.Unlock()
	segments := registry.segments
	i := sort.Search(len(segments), func(j int) bool {
		return uintptr(segments[j].base) >= uintptr(seg.base)
	})
	if i < len(segments) && segments[i] == seg {
		copy(segments[i:], segments[i+1:])
		registry.segments = segments[:len(segments)-1]
	}
}

// segmentof resolve any pointer to its enclosing segment, nil when
// the pointer is not allocator memory.
func segmentof(ptr unsafe.Pointer) *Segment {
	registry.RLock()
	defer registry.RUnlock()
	segments := registry.segments
	i := sort.Search(len(segments), func(j int) bool {
		return uintptr(segments[j].base) > uintptr(ptr)
	})
	if i == 0 {
		return nil
	}
	seg := segments[i-1]
	if uintptr(ptr) >= uintptr(seg.base)+uintptr(seg.size) {
		return nil
	}
	return seg
}

// mustpage resolve a pointer known to be allocator memory to its
// page, panicking otherwise.
func mustpage(ptr unsafe.Pointer) *Page {
	seg := segmentof(ptr)
	if seg == nil {
		panicerr("free(): invalid pointer %v", ptr)
	} else if seg.cookie != segmentcookie(seg.base) {
		panicerr("free(): corrupted segment cookie for %v", ptr)
	}
	page := seg.pageof(ptr)
	if page == nil || page.blocksize == 0 {
		panicerr("free(): pointer %v into dead page", ptr)
	}
	return page
}
