package api

import "unsafe"

// HeapArea describes one contiguous run of same-sized chunks inside a
// mallocer, typically a single page.
type HeapArea struct {
	// Blocks is the start of the chunk region.
	Blocks unsafe.Pointer
	// Reserved bytes in the area.
	Reserved int64
	// Committed bytes in the area.
	Committed int64
	// Used is the number of chunks allocated to the application.
	Used int64
	// Blocksize is the size of every chunk in the area.
	Blocksize int64
}

// BlockVisitor callback to visit areas and chunks of a mallocer. For
// every area the visitor is called once with a nil `block`, and, when
// chunk visiting is requested, once per allocated chunk with `block`
// pointing to the chunk base. Return false to stop the walk.
type BlockVisitor func(
	m Mallocer, area *HeapArea,
	block unsafe.Pointer, blocksize int64, arg interface{}) bool
