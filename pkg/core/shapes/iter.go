// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"

	"github.com/gomlx/exceptions"
)

// Iter iterates sequentially over all indices of the shape, in row-major order.
//
// It yields the flat offset and the index (one position per axis). The yielded index slice is owned
// by Iter and reused between iterations: don't change it inside the loop, and clone it if it must be kept.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return s.IterOn(make([]int, s.Rank()))
}

// IterOn is like Iter, but updates the given index slice, which must have length s.Rank().
func (s Shape) IterOn(index []int) iter.Seq2[int, []int] {
	if len(index) != s.Rank() {
		exceptions.Panicf("Shape.IterOn given len(index)=%d, it must be equal to the rank %d", len(index), s.Rank())
	}
	return func(yield func(int, []int) bool) {
		if !s.Ok() || s.IsZeroSize() {
			return
		}
		rank := s.Rank()
		for axis := range index {
			index[axis] = 0
		}
		if rank == 0 {
			_ = yield(0, index)
			return
		}
		offset := 0
		for {
			if !yield(offset, index) {
				return
			}
			offset++

			// Increment the index like an N-dimensional counter, last axis first.
			axis := rank - 1
			for ; axis >= 0; axis-- {
				index[axis]++
				if index[axis] < s.Dimensions[axis] {
					break
				}
				index[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}
