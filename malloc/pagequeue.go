package malloc

// pageQueue a doubly linked list of pages, one per slab bin plus the
// full queue. Owner thread only.
type pageQueue struct {
	first *Page
	last  *Page
}

func (pq *pageQueue) pushfront(page *Page) {
	page.prev, page.next = nil, pq.first
	if pq.first != nil {
		pq.first.prev = page
	} else {
		pq.last = page
	}
	pq.first = page
}

func (pq *pageQueue) pushback(page *Page) {
	page.prev, page.next = pq.last, nil
	if pq.last != nil {
		pq.last.next = page
	} else {
		pq.first = page
	}
	pq.last = page
}

func (pq *pageQueue) remove(page *Page) {
	if page.prev != nil {
		page.prev.next = page.next
	} else {
		pq.first = page.next
	}
	if page.next != nil {
		page.next.prev = page.prev
	} else {
		pq.last = page.prev
	}
	page.prev, page.next = nil, nil
}

// appendq splice every page of `from` onto the tail of this queue,
// re-pointing each spliced page at `to`. Returns the number of pages
// moved.
func (pq *pageQueue) appendq(to *Heap, from *pageQueue) int64 {
	count := int64(0)
	for page := from.first; page != nil; page = page.next {
		page.heapstore(to)
		count++
	}
	if from.first == nil {
		return 0
	}
	if pq.last == nil {
		pq.first, pq.last = from.first, from.last
	} else {
		pq.last.next = from.first
		from.first.prev = pq.last
		pq.last = from.last
	}
	from.first, from.last = nil, nil
	return count
}

func (pq *pageQueue) len() int64 {
	count := int64(0)
	for page := pq.first; page != nil; page = page.next {
		count++
	}
	return count
}

// pageVisitor return true to keep going, false to break the walk.
type pageVisitor func(
	heap *Heap, pq *pageQueue, page *Page, arg1, arg2 interface{}) bool

// visitpages walk all pages of the heap in bin order. The next link
// is captured before the callback so a visitor may unlink the page it
// is visiting.
func (heap *Heap) visitpages(fn pageVisitor, arg1, arg2 interface{}) bool {
	if heap == nil || heap.pagecount == 0 {
		return true
	}
	for i := 0; i <= ma.nbins; i++ {
		pq := &heap.pages[i]
		for page := pq.first; page != nil; {
			next := page.next // capture, the visitor may unlink page
			if !fn(heap, pq, page, arg1, arg2) {
				return false
			}
			page = next
		}
	}
	return true
}

// resetpages clear every queue without freeing pages.
func (heap *Heap) resetpages() {
	for i := range heap.pages {
		heap.pages[i] = pageQueue{}
	}
	heap.pagecount = 0
}
