package malloc

import "sync"
import "sync/atomic"

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Alignment every chunk handed out by a heap is aligned to this
// boundary. minblock and maxblock should be multiples of Alignment.
const Alignment = int64(8)

// Sizeinterval minblock and maxblock should be multiples of
// Sizeinterval.
const Sizeinterval = int64(32)

// MEMUtilization is the ratio between allocated memory to application
// and useful memory allocated from OS.
const MEMUtilization = float64(0.95)

// Maxarenasize maximum OS memory manageable by the allocator. Can be
// used as default for the `capacity` setting.
const Maxarenasize = int64(1024 * 1024 * 1024 * 1024) // 1TB

// Maxpools maximum number of slab-sizes, hence page-queues, allowed
// in a heap.
const Maxpools = int64(512)

// Malloc configurable parameters and default settings.
//
// "minblock" (int64, default: 32)
//		Minimum size of a chunk.
//
// "maxblock" (int64, default: 4096)
//		Maximum size of a chunk, shall not exceed "page.size".
//
// "page.size" (int64, default: 65536)
//		Size of a single page, every page holds chunks of exactly
//		one slab size.
//
// "segment.size" (int64, default: 4194304)
//		Size of a segment acquired from the OS, carved into pages.
//
// "capacity" (int64, default: free system memory)
//		Maximum OS memory acquirable by the allocator, across all
//		threads.
//
// "reclaim" (bool, default: true)
//		Whether backing heaps absorb heaps abandoned by terminated
//		threads.
func Defaultsettings() s.Settings {
	capacity := Maxarenasize
	if _, _, free := getsysmem(); free > 0 && int64(free) < capacity {
		capacity = int64(free)
	}
	return s.Settings{
		"minblock":     int64(32),
		"maxblock":     int64(4096),
		"page.size":    int64(64 * 1024),
		"segment.size": int64(4 * 1024 * 1024),
		"capacity":     capacity,
		"reclaim":      true,
	}
}

// ma is the process wide allocator image, populated once from
// settings. Heaps and segments share it read-only after that.
var ma struct {
	once     sync.Once
	initdone int64 // atomic, 1 after ensureinit
	setts    s.Settings

	minblock    int64
	maxblock    int64
	pagesize    int64
	segmentsize int64
	capacity    int64
	reclaim     bool

	slabs []int64 // sorted slab sizes, one page-queue per slab
	nbins int     // len(slabs); index nbins is the full-queue
}

// Configure the allocator before its first use. Supplied settings
// override Defaultsettings(). Calling Configure after the first
// ThreadInit(), GetDefault() or NewHeap() panics.
func Configure(setts s.Settings) {
	if atomic.LoadInt64(&ma.initdone) == 1 {
		panicerr("allocator already initialized")
	}
	ma.setts = (s.Settings{}).Mixin(Defaultsettings(), setts)
}

func ensureinit() {
	ma.once.Do(func() {
		setts := ma.setts
		if setts == nil {
			setts = Defaultsettings()
		}
		ma.minblock = setts.Int64("minblock")
		ma.maxblock = setts.Int64("maxblock")
		ma.pagesize = setts.Int64("page.size")
		ma.segmentsize = setts.Int64("segment.size")
		ma.capacity = setts.Int64("capacity")
		ma.reclaim = setts.Bool("reclaim")

		if ma.maxblock > ma.pagesize {
			panicerr("maxblock %v exceeds page.size %v", ma.maxblock, ma.pagesize)
		} else if (ma.segmentsize % ma.pagesize) != 0 {
			panicerr("segment.size %v not multiple of page.size", ma.segmentsize)
		} else if ma.capacity > Maxarenasize {
			panicerr("capacity cannot exceed %v bytes (%v)", Maxarenasize, ma.capacity)
		}
		ma.slabs = Blocksizes(ma.minblock, ma.maxblock)
		ma.nbins = len(ma.slabs)
		if int64(ma.nbins) > Maxpools {
			panicerr("number of slabs exceeds %v", Maxpools)
		}
		atomic.StoreInt64(&ma.initdone, 1)
		infof("%v initialized with %v slabs, segments of %v\n",
			logprefix, ma.nbins, ma.segmentsize)
	})
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.Free
}
