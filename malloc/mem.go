package malloc

import "sync"

import "github.com/dustin/go-humanize"

// region is the process wide cache of fully-free segments, behind the
// per thread segment caches. Segments land here when a thread
// collects with force or terminates, and are handed back out before
// any fresh OS acquisition.
var region struct {
	sync.Mutex
	cache    *Segment
	ncached  int64
	reserved int64 // bytes held from the OS, cached or live
}

// regionalloc return a cached segment, or acquire a fresh one from
// the OS within the configured capacity.
func regionalloc(threadid int64) *Segment {
	region.Lock()
	if seg := region.cache; seg != nil {
		region.cache = seg.next
		region.ncached--
		region.Unlock()
		seg.next = nil
		seg.threadid = threadid
		return seg
	}
	if region.reserved+ma.segmentsize > ma.capacity {
		region.Unlock()
		panic(ErrorOutofMemory)
	}
	region.reserved += ma.segmentsize
	region.Unlock()
	return newsegment(threadid, ma.segmentsize, ma.pagesize)
}

// regionrelease park a fully-free segment in the region cache.
func regionrelease(seg *Segment) {
	seg.threadid = 0
	region.Lock()
	seg.next = region.cache
	region.cache = seg
	region.ncached++
	region.Unlock()
}

// memcollect release every cached segment back to the OS. Invoked by
// a forced collect on the process's main thread.
func memcollect() {
	region.Lock()
	seg := region.cache
	region.cache, region.ncached = nil, 0
	region.Unlock()

	freed := int64(0)
	for seg != nil {
		next := seg.next
		freed += seg.size
		deregistersegment(seg)
		osfree(seg.base)
		seg = next
	}
	if freed > 0 {
		region.Lock()
		region.reserved -= freed
		region.Unlock()
		infof("%v released %v to OS\n", logprefix, humanize.Bytes(uint64(freed)))
	}
}

// regionreserved bytes currently held from the OS.
func regionreserved() int64 {
	region.Lock()
	defer region.Unlock()
	return region.reserved
}

// regioncached number of segments parked in the region cache.
func regioncached() int64 {
	region.Lock()
	defer region.Unlock()
	return region.ncached
}
