// Package malloc supplies custom multi-threaded memory management
// with explicit heaps. Each OS thread gets its own backing heap so
// the hot allocation and free paths are lock-free in the common case,
// while chunks freed from foreign threads are routed back to their
// owning heap through per-heap lock-free channels.
//
// Threads bind to the allocator with ThreadInit() and detach with
// ThreadDone(). A thread that terminates while chunks it allocated
// are still live abandons its heap onto a process wide stack; other
// threads absorb abandoned heaps on demand, so memory is neither
// leaked nor dangled across thread lifetimes.
//
// Additional heaps can be carved out with NewHeap(). Deleting a heap
// transfers its live pages to the thread's backing heap; destroying
// it bulk-releases its storage and is only legal on heaps that never
// absorbed foreign pages.
//
// Allocator wide parameters are supplied once through Configure():
//
//   capacity     : OS memory manageable by the allocator, in bytes.
//   minblock     : chunks less than minblock sizes cannot be allocated.
//   maxblock     : chunks greater than maxblock sizes cannot be allocated.
//   page.size    : size of a page, every page holds a single slab size.
//   segment.size : size of OS slabs carved into pages.
//   reclaim      : whether backing heaps absorb abandoned heaps.
package malloc
