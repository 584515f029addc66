package malloc

//#include <stdlib.h>
import "C"

import "unsafe"

// osmalloc acquire `size` bytes from the OS allocator.
func osmalloc(size int64) unsafe.Pointer {
	ptr := C.malloc(C.size_t(size))
	if ptr == nil {
		panic(ErrorOutofMemory)
	}
	if (uintptr(ptr) & uintptr(Alignment-1)) != 0 {
		panicerr("os pointer is not %v byte aligned", Alignment)
	}
	return unsafe.Pointer(ptr)
}

// osfree return memory acquired via osmalloc back to the OS.
func osfree(ptr unsafe.Pointer) {
	C.free(ptr)
}
