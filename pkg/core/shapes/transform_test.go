// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestOffsetToIndex(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3, 4)
	require.Equal(t, []int{0, 0, 0}, s.OffsetToIndex(0))
	require.Equal(t, []int{0, 0, 3}, s.OffsetToIndex(3))
	require.Equal(t, []int{0, 1, 0}, s.OffsetToIndex(4))
	require.Equal(t, []int{1, 0, 0}, s.OffsetToIndex(12))
	require.Equal(t, []int{1, 2, 3}, s.OffsetToIndex(23))

	require.Equal(t, 0, s.IndexToOffset([]int{0, 0, 0}))
	require.Equal(t, 9, s.IndexToOffset([]int{0, 2, 1}))
	require.Equal(t, 23, s.IndexToOffset([]int{1, 2, 3}))

	scalar := Make(dtypes.Float32)
	require.Empty(t, scalar.OffsetToIndex(0))
	require.Equal(t, 0, scalar.IndexToOffset(nil))
}

func TestTransform_RoundTrip(t *testing.T) {
	for _, dims := range [][]int{
		{1},
		{7},
		{2, 4},
		{3, 1, 5},
		{2, 3, 4, 5},
		{1, 1, 1, 1, 1, 1, 1, 2},
		{2, 2, 3, 1, 2, 2, 1, 3},
	} {
		s := Make(dtypes.Float32, dims...)
		index := make([]int, s.Rank())
		for offset := range s.Size() {
			s.OffsetToIndexInto(offset, index)
			require.Equal(t, offset, s.IndexToOffset(index), "shape=%s offset=%d index=%v", s, offset, index)
		}

		// Symmetric property: every valid index survives the round trip, and agrees with Iter.
		for offset, iterIndex := range s.Iter() {
			require.Equal(t, offset, s.IndexToOffset(iterIndex))
			require.True(t, slices.Equal(iterIndex, s.OffsetToIndex(offset)), "shape=%s offset=%d", s, offset)
		}
	}
}

func TestTransform_Preconditions(t *testing.T) {
	s := Make(dtypes.Float32, 2, 4)
	require.Panics(t, func() { _ = s.OffsetToIndex(-1) })
	require.Panics(t, func() { _ = s.OffsetToIndex(8) })
	require.Panics(t, func() { _ = s.IndexToOffset([]int{1}) })
	require.Panics(t, func() { _ = s.IndexToOffset([]int{2, 0}) })
	require.Panics(t, func() { _ = s.IndexToOffset([]int{0, -1}) })
	require.Panics(t, func() { s.OffsetToIndexInto(0, make([]int, 3)) })
	require.Panics(t, func() { _ = Make(dtypes.Float32, 0, 3).OffsetToIndex(0) })

	// Failures carry a descriptive message.
	err := exceptions.TryCatch[error](func() { _ = s.IndexToOffset([]int{0, 4}) })
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}
