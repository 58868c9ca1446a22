// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"golang.org/x/sync/errgroup"
)

// splitChunks splits the range [0, n) into contiguous chunks of at least minChunk elements,
// at most maxParallelism of them. It returns the chunk boundaries: chunk i is [bounds[i], bounds[i+1]).
func splitChunks(n, maxParallelism, minChunk int) (bounds []int) {
	if minChunk < 1 {
		minChunk = 1
	}
	numChunks := n / minChunk
	if numChunks > maxParallelism {
		numChunks = maxParallelism
	}
	if numChunks < 1 {
		numChunks = 1
	}
	bounds = make([]int, numChunks+1)
	for i := range numChunks {
		bounds[i] = i * n / numChunks
	}
	bounds[numChunks] = n
	return
}

// runChunked calls fn on disjoint ranges of [0, n), covering it completely.
//
// With maxParallelism <= 1, or when n is too small to be split in chunks of minChunk elements,
// fn is called once, inline. Otherwise the chunks run in separate goroutines, with at most maxParallelism
// running at a time, and runChunked returns the first error.
func runChunked(n, maxParallelism, minChunk int, fn func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	bounds := []int{0, n}
	if maxParallelism > 1 {
		bounds = splitChunks(n, maxParallelism, minChunk)
	}
	if len(bounds) == 2 {
		return fn(0, n)
	}
	var g errgroup.Group
	g.SetLimit(maxParallelism)
	for i := range len(bounds) - 1 {
		lo, hi := bounds[i], bounds[i+1]
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}
