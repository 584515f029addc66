package malloc

import "os"
import "testing"

import s "github.com/bnclabs/gosettings"

func TestMain(m *testing.M) {
	Configure(s.Settings{
		"minblock":     int64(32),
		"maxblock":     int64(8192),
		"page.size":    int64(8192),
		"segment.size": int64(256 * 1024),
		"capacity":     int64(1024 * 1024 * 1024),
		"reclaim":      true,
	})
	os.Exit(m.Run())
}

// runthread run fn on its own OS thread with the allocator
// initialized, tear the thread down and wait for completion.
func runthread(fn func(heap *Heap)) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		heap := ThreadInit()
		fn(heap)
		ThreadDone()
	}()
	<-done
}

func delayedcount(heap *Heap) int {
	count := 0
	for block := heap.delayedfreeload(); block != nil; {
		count++
		block = heap.blocknextx(block)
	}
	return count
}
