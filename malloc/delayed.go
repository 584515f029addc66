package malloc

import "math/bits"
import "sync/atomic"
import "unsafe"

// The delayed-free channel is a many-producer single-consumer stack.
// Remote threads prepend chunks with a CAS, the owning thread drains
// with an exchange-to-empty. Links are stored XOR-obfuscated under
// the heap's keys so a stray write into a chunk cannot produce a
// walkable pointer.

func ptrencode(ptr unsafe.Pointer, k0, k1 uint64) uint64 {
	return bits.RotateLeft64(uint64(uintptr(ptr))^k1, int(k0&63)) + k0
}

func ptrdecode(x, k0, k1 uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(bits.RotateLeft64(x-k0, -int(k0&63)) ^ k1))
}

func (heap *Heap) blocknextx(block unsafe.Pointer) unsafe.Pointer {
	return ptrdecode(*(*uint64)(block), heap.key[0], heap.key[1])
}

func (heap *Heap) blocksetnextx(block, next unsafe.Pointer) {
	*(*uint64)(block) = ptrencode(next, heap.key[0], heap.key[1])
}

func (heap *Heap) delayedfreeload() unsafe.Pointer {
	return atomic.LoadPointer(&heap.delayedfree)
}

// delayedpush prepend a remotely freed chunk, called from foreign
// threads.
func (heap *Heap) delayedpush(block unsafe.Pointer) {
	for {
		head := atomic.LoadPointer(&heap.delayedfree)
		heap.blocksetnextx(block, head)
		if atomic.CompareAndSwapPointer(&heap.delayedfree, head, block) {
			return
		}
	}
}

// delayedfreedrain claim the whole channel and hand every chunk back
// to its page, owner thread only.
func (heap *Heap) delayedfreedrain() {
	block := atomic.SwapPointer(&heap.delayedfree, nil)
	for block != nil {
		next := heap.blocknextx(block)
		page := mustpage(block)
		page.freelocal(block)
		block = next
	}
}

// absorbdelayed steal `from`'s channel, re-encode every link under
// this heap's keys and prepend the stolen list onto this heap's
// channel. Remote frees racing on either channel are tolerated by the
// CAS loops.
func (heap *Heap) absorbdelayed(from *Heap) {
	var first unsafe.Pointer
	for {
		first = atomic.LoadPointer(&from.delayedfree)
		if atomic.CompareAndSwapPointer(&from.delayedfree, first, nil) {
			break
		}
	}
	if first == nil {
		return
	}
	last := first
	for {
		next := from.blocknextx(last)
		if next == nil {
			break
		}
		heap.blocksetnextx(last, next) // re-encode in place
		last = next
	}
	for {
		head := atomic.LoadPointer(&heap.delayedfree)
		heap.blocksetnextx(last, head)
		if atomic.CompareAndSwapPointer(&heap.delayedfree, head, first) {
			return
		}
	}
}
