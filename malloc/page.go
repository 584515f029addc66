package malloc

import "sync/atomic"
import "unsafe"

// page flag bits, written only by the owning thread, read by remote
// freeing threads.
const (
	pageflagfull    = uint32(0x1) // page sits in the full queue
	pageflagdelayed = uint32(0x2) // remote frees go to the heap's delayed channel
)

// Page a fixed size span carved out of a segment, holding chunks of
// exactly one slab size. `free`, `localfree`, `used`, `bin` and the
// queue links are owned by the heap's thread; `threadfree` is a
// lock-free stack fed by remote frees; `heap` is the atomic back
// reference used to route remote frees.
type Page struct {
	segment *Segment
	index   int

	blocksize int64 // zero while the page is free in its segment
	capacity  int32 // number of chunks in the page
	reserved  int32
	used      int32
	bin       int

	flags      uint32         // atomic
	heap       unsafe.Pointer // atomic *Heap
	threadfree unsafe.Pointer // atomic chunk list, remote frees

	free      unsafe.Pointer // chunk list, owner only
	localfree unsafe.Pointer // chunk list, owner only

	prev *Page
	next *Page
}

func pageinit(page *Page, blocksize int64) {
	start, psize := pagestart(page.segment, page)
	capacity := psize / blocksize
	page.blocksize = blocksize
	page.capacity, page.reserved = int32(capacity), int32(capacity)
	page.used = 0
	atomic.StoreUint32(&page.flags, 0)
	atomic.StorePointer(&page.threadfree, nil)
	page.free, page.localfree = nil, nil
	for i := capacity - 1; i >= 0; i-- {
		block := unsafe.Pointer(uintptr(start) + uintptr(i*blocksize))
		blocksetnext(block, page.free)
		page.free = block
	}
}

func (page *Page) reset() {
	atomic.StoreUint32(&page.flags, 0)
	page.heapstore(nil)
	atomic.StorePointer(&page.threadfree, nil)
	page.free, page.localfree = nil, nil
	page.blocksize, page.capacity, page.reserved = 0, 0, 0
	page.used, page.bin = 0, 0
	page.prev, page.next = nil, nil
}

func (page *Page) heapload() *Heap {
	return (*Heap)(atomic.LoadPointer(&page.heap))
}

func (page *Page) heapstore(heap *Heap) {
	atomic.StorePointer(&page.heap, unsafe.Pointer(heap))
}

func (page *Page) setflags(flags uint32) {
	atomic.StoreUint32(&page.flags, flags)
}

func (page *Page) isfull() bool {
	return (atomic.LoadUint32(&page.flags) & pageflagfull) != 0
}

func (page *Page) isdelayed() bool {
	return (atomic.LoadUint32(&page.flags) & pageflagdelayed) != 0
}

// allocblock pop a chunk from the page's free list, owner thread
// only.
func (page *Page) allocblock() unsafe.Pointer {
	block := page.free
	page.free = blocknext(block)
	page.used++
	initblock(block, page.blocksize)
	if (uintptr(block) & uintptr(Alignment-1)) != 0 {
		panicerr("allocated pointer is not %v byte aligned", Alignment)
	}
	return block
}

// freelocal return a chunk freed by the owning thread.
func (page *Page) freelocal(block unsafe.Pointer) {
	blocksetnext(block, page.localfree)
	page.localfree = block
	page.used--
}

// freeremote return a chunk freed by a foreign thread. Routed to the
// owning heap's delayed channel while the page sits in the full
// queue, to the page's own threadfree stack otherwise. The heap
// pointer and the flag are re-read on contention so an absorb racing
// with this push lands the chunk on a heap that will drain it.
func (page *Page) freeremote(block unsafe.Pointer) {
	for {
		if page.isdelayed() {
			if heap := page.heapload(); heap != nil {
				heap.delayedpush(block)
				return
			}
			continue
		}
		head := atomic.LoadPointer(&page.threadfree)
		blocksetnext(block, head)
		if atomic.CompareAndSwapPointer(&page.threadfree, head, block) {
			return
		}
	}
}

// pagefreecollect merge the page's local and remote free lists into
// its free list, owner thread only. Without force the remote stack is
// only stolen when a cheap pre-read says it is non-empty.
func pagefreecollect(page *Page, force bool) {
	if page.localfree != nil {
		if page.free == nil {
			page.free = page.localfree
		} else {
			last := page.localfree
			for blocknext(last) != nil {
				last = blocknext(last)
			}
			blocksetnext(last, page.free)
			page.free = page.localfree
		}
		page.localfree = nil
	}

	if !force && atomic.LoadPointer(&page.threadfree) == nil {
		return
	}
	tfree := atomic.SwapPointer(&page.threadfree, nil)
	if tfree == nil {
		return
	}
	count, last := int32(1), tfree
	for blocknext(last) != nil {
		last = blocknext(last)
		count++
	}
	blocksetnext(last, page.free)
	page.free = tfree
	page.used -= count
}

// blockisfree report whether `block` sits on the page's free or
// local-free list. Chunks pending on threadfree are still accounted
// as allocated until the owner collects.
func (page *Page) blockisfree(block unsafe.Pointer) bool {
	for b := page.free; b != nil; b = blocknext(b) {
		if b == block {
			return true
		}
	}
	for b := page.localfree; b != nil; b = blocknext(b) {
		if b == block {
			return true
		}
	}
	return false
}
