package pool

import "sync"

// Accumulator pool for spectrum summation; one slice per in-flight query.
var int64SlicePool = sync.Pool{
	New: func() any { return &[]int64{} },
}

// GetInt64Slice retrieves and resizes an int64 slice from the pool.
//
// The returned slice has length equal to size and all elements zeroed. The
// caller must call the returned cleanup function (typically with defer) to
// return the slice to the pool.
func GetInt64Slice(size int) ([]int64, func()) {
	ptr, _ := int64SlicePool.Get().(*[]int64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]int64, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
		clear(slice)
	}

	return slice, func() { int64SlicePool.Put(ptr) }
}
