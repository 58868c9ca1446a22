// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import "github.com/gomlx/exceptions"

// OffsetToIndex converts a flat row-major offset in [0, s.Size()) to the index (one position per axis)
// of that element.
//
// Walking offsets in increasing order visits indices in row-major order, the last axis varying fastest.
// It is the exact inverse of IndexToOffset.
//
// It panics if offset is out of range: that is a bug in the caller, not a recoverable condition.
func (s Shape) OffsetToIndex(offset int) []int {
	index := make([]int, s.Rank())
	s.OffsetToIndexInto(offset, index)
	return index
}

// OffsetToIndexInto is like OffsetToIndex, but writes the result into index, which must have length s.Rank().
// It doesn't allocate, and is the version used in compute loops.
func (s Shape) OffsetToIndexInto(offset int, index []int) {
	if len(index) != s.Rank() {
		exceptions.Panicf("Shape.OffsetToIndexInto: len(index)=%d, but shape %s has rank %d", len(index), s, s.Rank())
	}
	if offset < 0 || offset >= s.Size() {
		exceptions.Panicf("Shape.OffsetToIndex(%d) out of range [0, %d) for shape %s", offset, s.Size(), s)
	}
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		dim := s.Dimensions[axis]
		index[axis] = offset % dim
		offset /= dim
	}
}

// IndexToOffset converts an index (one position per axis) to its flat row-major offset.
//
// It is the exact inverse of OffsetToIndex. It panics if len(index) != s.Rank() or if any
// position is outside [0, s.Dimensions[axis]).
func (s Shape) IndexToOffset(index []int) (offset int) {
	if len(index) != s.Rank() {
		exceptions.Panicf("Shape.IndexToOffset: index %v has %d positions, but shape %s has rank %d", index, len(index), s, s.Rank())
	}
	for axis, pos := range index {
		dim := s.Dimensions[axis]
		if pos < 0 || pos >= dim {
			exceptions.Panicf("Shape.IndexToOffset: index %v axis %d position %d out of range [0, %d) for shape %s",
				index, axis, pos, dim, s)
		}
		offset = offset*dim + pos
	}
	return
}
