package malloc

import "fmt"
import "errors"
import "unsafe"

// ErrorOutofMemory when the configured `capacity` is exhausted.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}

// free chunks double up as list nodes, the first word of the chunk
// holds the link.

func blocknext(block unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(block)
}

func blocksetnext(block, next unsafe.Pointer) {
	*(*unsafe.Pointer)(block) = next
}

var poolblkinit = make([]byte, 1024)

func init() {
	for i := 0; i < len(poolblkinit); i++ {
		poolblkinit[i] = 0xff
	}
}
