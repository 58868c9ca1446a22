// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Allocator is the tensor storage provider. The execution core asks it for storage once per graph value,
// at load time, and never frees what it receives: ownership and pooling policy belong to the Allocator.
type Allocator interface {
	// Allocate returns storage with at least shape.Memory() bytes.
	Allocate(shape shapes.Shape) ([]byte, error)
}

// GoAllocator allocates storage on the Go heap, leaving it to the garbage collector.
// It is the default Allocator.
type GoAllocator struct{}

var _ Allocator = GoAllocator{}

// Allocate implements Allocator.
func (GoAllocator) Allocate(shape shapes.Shape) ([]byte, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("GoAllocator.Allocate: invalid shape %s", shape)
	}
	return make([]byte, shape.Memory()), nil
}

// NewFromAllocator allocates storage for shape with alloc and returns the corresponding Descriptor.
func NewFromAllocator(alloc Allocator, shape shapes.Shape) (*Descriptor, error) {
	storage, err := alloc.Allocate(shape)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to allocate storage for shape %s", shape)
	}
	return New(shape, storage)
}
