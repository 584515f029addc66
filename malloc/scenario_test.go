package malloc

import "testing"
import "unsafe"

import "github.com/stretchr/testify/require"

// Lone-thread lifecycle: a child heap's live chunks survive its
// deletion inside the backing heap.
func TestScenarioLoneThread(t *testing.T) {
	bheap := GetBacking()
	bheap.Collect(true)

	child := NewHeap()
	ptrs := make([]unsafe.Pointer, 3)
	for i := range ptrs {
		ptrs[i] = child.Alloc(32)
	}
	Free(ptrs[0])
	Free(ptrs[1])

	cpages, bpages := child.pagecount, bheap.pagecount
	child.Delete()
	require.Equal(t, int64(0), child.pagecount)
	require.Equal(t, bpages+cpages, bheap.pagecount)
	require.True(t, bheap.Owned(ptrs[2]))
	require.True(t, bheap.Contains(ptrs[2]))

	Free(ptrs[2])
	bheap.Collect(false)
}

// Cross-thread free: a chunk freed on a foreign thread stays owned
// until the owner collects, then lands on its page's free list.
func TestScenarioCrossThreadFree(t *testing.T) {
	heap := GetDefault()
	ptr := Malloc(64)
	keep := Malloc(64) // keeps the page linked across the collect

	freed := make(chan struct{})
	go func() {
		defer close(freed)
		ThreadInit()
		Free(ptr) // remote free
		ThreadDone()
	}()
	<-freed

	require.True(t, heap.Owned(ptr))
	heap.Collect(false)
	require.False(t, heap.Owned(ptr))
	require.True(t, heap.Contains(ptr)) // on its page's free list now

	Free(keep)
	heap.Collect(false)
}

// Abandon and reclaim: an allocation on another thread absorbs
// exactly one abandoned heap.
func TestScenarioAbandonReclaim(t *testing.T) {
	require.Equal(t, 0, abandonedlen())

	ptrchan := make(chan unsafe.Pointer, 2)
	runthread(func(heap *Heap) {
		child := NewHeap()
		ptrchan <- child.Alloc(128)
		ptrchan <- child.Alloc(128)
		child.Delete()
	})
	require.Equal(t, 1, abandonedlen())
	p1, p2 := <-ptrchan, <-ptrchan

	okchan := make(chan bool, 3)
	runthread(func(heap *Heap) {
		q := Malloc(8192) // slow path triggers an opportunistic reclaim
		okchan <- abandonedlen() == 0
		okchan <- heap.Owned(p1)
		okchan <- heap.Owned(p2)
		Free(p1)
		Free(p2)
		Free(q)
		heap.Collect(false)
	})
	require.True(t, <-okchan)
	require.True(t, <-okchan)
	require.True(t, <-okchan)
	require.Equal(t, 0, abandonedlen())
}

// Abandon and reclaim-all: a forced collect absorbs every
// outstanding abandoned heap at once.
func TestScenarioReclaimAll(t *testing.T) {
	require.Equal(t, 0, abandonedlen())

	nthreads := 3
	ptrchan := make(chan unsafe.Pointer, nthreads)
	for i := 0; i < nthreads; i++ {
		runthread(func(heap *Heap) {
			child := NewHeap()
			ptrchan <- child.Alloc(128)
			child.Delete()
		})
	}
	require.Equal(t, nthreads, abandonedlen())

	okchan := make(chan bool, 1+nthreads)
	runthread(func(heap *Heap) {
		heap.Collect(true)
		okchan <- abandonedlen() == 0
		for i := 0; i < nthreads; i++ {
			ptr := <-ptrchan
			okchan <- heap.Owned(ptr)
			Free(ptr)
		}
		heap.Collect(false)
	})
	for i := 0; i < 1+nthreads; i++ {
		require.True(t, <-okchan)
	}
	require.Equal(t, 0, abandonedlen())
}

// Destroy skips live chunks and recycles the storage.
func TestScenarioDestroy(t *testing.T) {
	heap := NewHeap()
	ptr := heap.Alloc(48)
	require.True(t, heap.noreclaim)

	reserved := regionreserved()
	heap.Destroy()
	require.Equal(t, int64(0), heap.pagecount)
	require.False(t, GetBacking().Contains(ptr))

	// subsequent allocations reuse the revoked storage
	q := Malloc(48)
	require.Equal(t, reserved, regionreserved())
	Free(q)
	Collect(false)
}

// Absorb preserves the delayed-free channel: chunks remote-freed to a
// child heap survive its deletion and drain into the backing heap.
func TestScenarioAbsorbDelayed(t *testing.T) {
	bheap := GetBacking()
	bheap.Collect(true)
	require.Equal(t, 0, delayedcount(bheap))

	child := NewHeap()
	capacity := int(ma.pagesize / 64)
	ptrs := make([]unsafe.Pointer, capacity+1)
	for i := range ptrs {
		ptrs[i] = child.Alloc(64)
	}
	// the first page is exhausted and sits in the full queue now,
	// remote frees to it go through the delayed channel
	freed := make(chan struct{})
	go func() {
		defer close(freed)
		ThreadInit()
		Free(ptrs[0])
		Free(ptrs[1])
		Free(ptrs[2])
		ThreadDone()
	}()
	<-freed
	require.Equal(t, 3, delayedcount(child))

	child.Delete()
	require.Equal(t, 3, delayedcount(bheap))
	require.True(t, bheap.Owned(ptrs[3]))

	bheap.Collect(false) // drain recovers all three chunks
	require.Equal(t, 0, delayedcount(bheap))
	require.False(t, bheap.Owned(ptrs[0]))
	require.False(t, bheap.Owned(ptrs[1]))
	require.False(t, bheap.Owned(ptrs[2]))

	for _, ptr := range ptrs[3:] {
		Free(ptr)
	}
	bheap.Collect(false)
}
