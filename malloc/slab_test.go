package malloc

import "testing"

func TestBlocksizes(t *testing.T) {
	sizes := Blocksizes(32, 8192)
	if sizes[0] != 32 {
		t.Errorf("expected %v, got %v", 32, sizes[0])
	} else if sizes[len(sizes)-1] != 8192 {
		t.Errorf("expected %v, got %v", 8192, sizes[len(sizes)-1])
	}
	for i, size := range sizes {
		if (size % Sizeinterval) != 0 {
			t.Errorf("size %v not multiple of %v", size, Sizeinterval)
		}
		if i > 0 && sizes[i-1] >= size {
			t.Errorf("sizes not increasing at %v: %v %v", i, sizes[i-1], size)
		}
	}

	// panic cases
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		Blocksizes(8192, 32)
	}()
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		Blocksizes(33, 8192)
	}()
}

func TestSuitableSize(t *testing.T) {
	sizes := Blocksizes(32, 8192)
	for n := int64(1); n <= 8192; n += 13 {
		slab := SuitableSize(sizes, n)
		if slab < n {
			t.Errorf("slab %v smaller than %v", slab, n)
		}
		for _, size := range sizes { // smallest suitable slab
			if size >= n && size < slab {
				t.Errorf("slab %v for %v, %v is better", slab, n, size)
			}
		}
	}
}

func TestSlabbin(t *testing.T) {
	for bin, slab := range ma.slabs {
		if x := slabbin(slab); x != bin {
			t.Errorf("expected %v, got %v", bin, x)
		}
	}
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		slabbin(33)
	}()
}

func BenchmarkSuitableSize(b *testing.B) {
	sizes := Blocksizes(32, 8192)
	for i := 0; i < b.N; i++ {
		SuitableSize(sizes, int64(i%8192)+1)
	}
}
