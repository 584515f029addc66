package malloc

import "testing"
import "unsafe"

import "github.com/bnclabs/gomalloc/api"

func TestVisitBlocks(t *testing.T) {
	child := NewHeap()
	defer child.Delete()

	ptrs := make([]unsafe.Pointer, 10)
	for i := range ptrs {
		ptrs[i] = child.Alloc(64)
	}
	Free(ptrs[1])
	Free(ptrs[4])
	Free(ptrs[7])
	live := map[unsafe.Pointer]bool{}
	for i, ptr := range ptrs {
		if i != 1 && i != 4 && i != 7 {
			live[ptr] = true
		}
	}

	areas, blocks := 0, map[unsafe.Pointer]bool{}
	ok := child.VisitBlocks(true, func(
		m api.Mallocer, area *api.HeapArea,
		block unsafe.Pointer, blocksize int64, arg interface{}) bool {

		if block == nil {
			areas++
			if area.Committed <= 0 || area.Blocksize != 64 {
				t.Errorf("unexpected area %+v", area)
			}
			return true
		}
		blocks[block] = true
		if blocksize != 64 {
			t.Errorf("expected %v, got %v", 64, blocksize)
		}
		return true
	}, nil)
	if ok == false {
		t.Errorf("walk terminated early")
	}
	if areas != 1 {
		t.Errorf("expected %v areas, got %v", 1, areas)
	}
	if len(blocks) != len(live) {
		t.Errorf("expected %v blocks, got %v", len(live), len(blocks))
	}
	for ptr := range live {
		if blocks[ptr] == false {
			t.Errorf("live chunk %v not visited", ptr)
		}
	}

	// fail-fast on visitor returning false
	visits := 0
	ok = child.VisitBlocks(true, func(
		m api.Mallocer, area *api.HeapArea,
		block unsafe.Pointer, blocksize int64, arg interface{}) bool {

		visits++
		return false
	}, nil)
	if ok == true {
		t.Errorf("expected early termination")
	} else if visits != 1 {
		t.Errorf("expected %v visit, got %v", 1, visits)
	}

	for ptr := range live {
		Free(ptr)
	}
}

func TestVisitSingleBlock(t *testing.T) {
	child := NewHeap()
	defer child.Delete()

	ptr := child.Alloc(8192) // slab == page size, single chunk pages
	blocks := []unsafe.Pointer{}
	child.VisitBlocks(true, func(
		m api.Mallocer, area *api.HeapArea,
		block unsafe.Pointer, blocksize int64, arg interface{}) bool {

		if block == nil {
			if area.Committed != 8192 {
				t.Errorf("expected %v, got %v", 8192, area.Committed)
			}
			return true
		}
		blocks = append(blocks, block)
		return true
	}, nil)
	if len(blocks) != 1 {
		t.Errorf("expected %v block, got %v", 1, len(blocks))
	} else if blocks[0] != ptr {
		t.Errorf("expected %v, got %v", ptr, blocks[0])
	}

	Free(ptr)
	blocks = blocks[:0]
	child.VisitBlocks(true, func(
		m api.Mallocer, area *api.HeapArea,
		block unsafe.Pointer, blocksize int64, arg interface{}) bool {

		if block != nil {
			blocks = append(blocks, block)
		}
		return true
	}, nil)
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %v", len(blocks))
	}
}

func TestVisitAreasOnly(t *testing.T) {
	child := NewHeap()
	defer child.Delete()

	for i := 0; i < 300; i++ { // two pages worth of 32 byte chunks
		child.Alloc(32)
	}
	areas, blocks := 0, 0
	child.VisitBlocks(false, func(
		m api.Mallocer, area *api.HeapArea,
		block unsafe.Pointer, blocksize int64, arg interface{}) bool {

		if block == nil {
			areas++
		} else {
			blocks++
		}
		return true
	}, nil)
	if int64(areas) != child.pagecount {
		t.Errorf("expected %v areas, got %v", child.pagecount, areas)
	}
	if blocks != 0 {
		t.Errorf("expected no block visits, got %v", blocks)
	}
	child.Destroy()
}
