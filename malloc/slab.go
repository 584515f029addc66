package malloc

import "fmt"

// SuitableSize picks an optimal slab-size for given size, to achieve
// MEMUtilization.
func SuitableSize(slabs []int64, size int64) int64 {
	for {
		switch len(slabs) {
		case 1:
			return slabs[0]

		case 2:
			if size <= slabs[0] {
				return slabs[0]
			} else if size <= slabs[1] {
				return slabs[1]
			}
			panic("size greater than configured")

		default:
			pivot := len(slabs) / 2
			if slabs[pivot] < size {
				slabs = slabs[pivot+1:]
			} else {
				slabs = slabs[0 : pivot+1]
			}
		}
	}
}

// Blocksizes generate suitable slab-sizes between minblock-size and
// maxblock-size, to achieve MEMUtilization.
func Blocksizes(minblock, maxblock int64) []int64 {
	if maxblock < minblock { // validate and cure the input params
		panic("minblock < maxblock")
	} else if (minblock % Sizeinterval) != 0 {
		fmsg := "minblock %v is not multiple of %v"
		panic(fmt.Errorf(fmsg, minblock, Sizeinterval))
	} else if (maxblock % Sizeinterval) != 0 {
		panic(fmt.Errorf("maxblock is not multiple of %v", Sizeinterval))
	}

	nextsize := func(from int64) int64 {
		addby := int64(float64(from) * (1.0 - MEMUtilization))
		if addby <= 32 {
			addby = 32
		} else if addby&0x1f != 0 {
			addby = (addby >> 5) << 5
		}
		size := from + addby
		for (float64(from+size)/2.0)/float64(size) > MEMUtilization {
			size += addby
		}
		return size
	}

	sizes := make([]int64, 0, 64)
	for size := minblock; size < maxblock; {
		sizes = append(sizes, size)
		size = nextsize(size)
	}
	sizes = append(sizes, maxblock)
	return sizes
}

// suitableslab return the slab size and its bin index for an
// allocation of `size` bytes.
func suitableslab(size int64) (slab int64, bin int) {
	slab = SuitableSize(ma.slabs, size)
	return slab, slabbin(slab)
}

// slabbin return the bin index for an exact slab size.
func slabbin(slab int64) int {
	low, high := 0, len(ma.slabs)
	for low < high {
		pivot := (low + high) / 2
		if ma.slabs[pivot] < slab {
			low = pivot + 1
		} else {
			high = pivot
		}
	}
	if low >= len(ma.slabs) || ma.slabs[low] != slab {
		panicerr("slab %v not configured", slab)
	}
	return low
}
