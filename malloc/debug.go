//go:build debug
// +build debug

package malloc

import "unsafe"

func initblock(block unsafe.Pointer, size int64) {
	dst := unsafe.Slice((*byte)(block), size)
	for len(dst) >= len(poolblkinit) {
		copy(dst, poolblkinit)
		dst = dst[len(poolblkinit):]
	}
	copy(dst, poolblkinit)
}
