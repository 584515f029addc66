package malloc

import "unsafe"

import "github.com/bnclabs/gomalloc/api"

type visitblocksargs struct {
	visitblocks bool
	visitor     api.BlockVisitor
	arg         interface{}
}

func pageareavisitor(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool {

	args := arg1.(*visitblocksargs)
	pagefreecollect(page, false) // update used
	start, _ := pagestart(page.segment, page)
	area := api.HeapArea{
		Blocks:    start,
		Reserved:  int64(page.reserved) * page.blocksize,
		Committed: int64(page.capacity) * page.blocksize,
		Used:      int64(page.used),
		Blocksize: page.blocksize,
	}
	if !args.visitor(heap, &area, nil, page.blocksize, args.arg) {
		return false
	}
	if args.visitblocks {
		return pagevisitblocks(heap, page, &area, args.visitor, args.arg)
	}
	return true
}

// pagevisitblocks visit every allocated chunk of the page. A bitmap
// of free chunks is materialized from the free list, then capacity is
// walked stepping only over cleared bits; whole words of free chunks
// are skipped at word granularity.
func pagevisitblocks(
	heap *Heap, page *Page, area *api.HeapArea,
	visitor api.BlockVisitor, arg interface{}) bool {

	pagefreecollect(page, true)
	if page.used == 0 {
		return true
	}
	start, _ := pagestart(page.segment, page)
	bsize := page.blocksize

	if page.capacity == 1 {
		// single chunk page
		return visitor(heap, area, start, bsize, arg)
	}

	words := make([]uint64, (int(page.capacity)+63)/64)
	for block := page.free; block != nil; block = blocknext(block) {
		offset := int64(uintptr(block) - uintptr(start))
		idx := int(offset / bsize)
		words[idx>>6] |= uint64(1) << uint(idx&63)
	}

	for i := 0; i < int(page.capacity); i++ {
		bit := uint(i & 63)
		m := words[i>>6]
		if bit == 0 && m == ^uint64(0) {
			i += 63 // skip a run of free chunks
			continue
		}
		if (m & (uint64(1) << bit)) == 0 {
			block := unsafe.Pointer(uintptr(start) + uintptr(int64(i)*bsize))
			if !visitor(heap, area, block, bsize, arg) {
				return false
			}
		}
	}
	return true
}

// VisitBlocks walk all areas of the heap, one per page, and when
// `visitblocks` is set every allocated chunk within each area. The
// walk is fail-fast: a visitor returning false terminates it.
func (heap *Heap) VisitBlocks(
	visitblocks bool, visitor api.BlockVisitor, arg interface{}) bool {

	if !heap.initialized() || visitor == nil {
		return false
	}
	args := &visitblocksargs{visitblocks, visitor, arg}
	return heap.visitpages(pageareavisitor, args, nil)
}
