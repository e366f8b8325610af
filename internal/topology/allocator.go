package topology

import "sort"

// Allocator hands out small positive intnet numbers and recycles freed ones.
// The lowest freed number is always reused first so numbering stays dense.
//
// An Allocator is owned by exactly one Store and is not safe for concurrent
// use.
type Allocator struct {
	free    []int // sorted ascending
	current int
}

// NewAllocator creates an allocator whose high-water mark is current
func NewAllocator(current int) *Allocator {
	if current < 0 {
		current = 0
	}
	return &Allocator{current: current}
}

// GetNext returns the smallest freed number, or the next number past the
// high-water mark when nothing has been freed
func (a *Allocator) GetNext() int {
	if len(a.free) > 0 {
		n := a.free[0]
		a.free = a.free[1:]
		return n
	}
	a.current++
	return a.current
}

// Remove returns n to the free list. Numbers above the high-water mark come
// from stale references and are ignored, as are non-positive numbers and
// numbers already free.
func (a *Allocator) Remove(n int) {
	if n < 1 || n > a.current {
		return
	}
	i := sort.SearchInts(a.free, n)
	if i < len(a.free) && a.free[i] == n {
		return
	}
	a.free = append(a.free, 0)
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = n
}

// SetCurrent resets the high-water mark, used when a configuration with a
// known maximum number is loaded. The free list is cleared with it.
func (a *Allocator) SetCurrent(n int) {
	if n < 0 {
		n = 0
	}
	a.current = n
	a.free = nil
}

// Current returns the high-water mark
func (a *Allocator) Current() int {
	return a.current
}

// Free returns a copy of the free list
func (a *Allocator) Free() []int {
	return append([]int(nil), a.free...)
}
