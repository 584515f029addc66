package malloc

import "sync"

import "github.com/dustin/go-humanize"

// Stats per thread counters, owned by the thread's tld. Finalized
// into the process wide counters when the thread terminates.
type Stats struct {
	npagealloc int64 // pages carved out of segments for this thread
	npagefree  int64 // pages returned to their segments
	nreclaims  int64 // abandoned heaps absorbed into this thread
}

var pstats struct {
	sync.Mutex
	nthreads   int64
	npagealloc int64
	npagefree  int64
	nreclaims  int64
	nabandons  int64
}

// done finalize the thread's counters into process counters, called
// exactly once when the owning thread terminates or abandons.
func (stats *Stats) done(threadid int64) {
	pstats.Lock()
	pstats.npagealloc += stats.npagealloc
	pstats.npagefree += stats.npagefree
	pstats.nreclaims += stats.nreclaims
	pstats.Unlock()
	fmsg := "%v thread %v done, %v pages carved, %v freed, %v reclaims\n"
	infof(fmsg, logprefix, threadid,
		stats.npagealloc, stats.npagefree, stats.nreclaims)
	stats.npagealloc, stats.npagefree, stats.nreclaims = 0, 0, 0
}

func statsabandoned(heap *Heap) {
	pstats.Lock()
	pstats.nabandons++
	pstats.Unlock()
	fmsg := "%v heap for thread %v abandoned with %v pages (%v)\n"
	infof(fmsg, logprefix, heap.threadid, heap.pagecount,
		humanize.Bytes(uint64(heap.pagecount*ma.pagesize)))
}
