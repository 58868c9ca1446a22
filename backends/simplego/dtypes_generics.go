// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/layerexec/backends"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// MaxDTypes is the upper bound on dtypes.DType values handled by a DTypeDispatcher.
const MaxDTypes = 32

// DTypeDispatcher holds one function of type F per dtype.
type DTypeDispatcher[F any] struct {
	Name  string
	fnMap [MaxDTypes]F
	isSet [MaxDTypes]bool
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher[F any](name string) *DTypeDispatcher[F] {
	return &DTypeDispatcher[F]{Name: name}
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher[F]) Register(dtype dtypes.DType, fn F) {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
	d.isSet[dtype] = true
}

// Get returns the function registered for dtype, or an error wrapping backends.ErrUnsupported.
func (d *DTypeDispatcher[F]) Get(dtype dtypes.DType) (F, error) {
	if dtype >= MaxDTypes || !d.isSet[dtype] {
		var zero F
		return zero, errors.Wrapf(backends.ErrUnsupported, "element kind %s not supported by %s", dtype, d.Name)
	}
	return d.fnMap[dtype], nil
}

// FloatConstraints enumerates the element types with a compute path for floating-point only operators.
type FloatConstraints interface {
	float32 | float64 | float16.Float16 | bfloat16.BFloat16
}
