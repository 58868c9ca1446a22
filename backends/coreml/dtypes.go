// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package coreml

import (
	"github.com/gomlx/go-coreml/model"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/pkg/errors"
)

// DTypeToMIL converts an element kind to the CoreML MIL data type.
//
// Kinds without a MIL counterpart return an error wrapping backends.ErrUnsupported.
func DTypeToMIL(dtype dtypes.DType) (model.DType, error) {
	switch dtype {
	case dtypes.Float16:
		return model.Float16, nil
	case dtypes.Float32:
		return model.Float32, nil
	case dtypes.Float64:
		return model.Float64, nil
	case dtypes.Int8:
		return model.Int8, nil
	case dtypes.Int16:
		return model.Int16, nil
	case dtypes.Int32:
		return model.Int32, nil
	case dtypes.Int64:
		return model.Int64, nil
	case dtypes.Bool:
		return model.Bool, nil
	default:
		return 0, errors.Wrapf(backends.ErrUnsupported, "element kind %s has no CoreML MIL data type", dtype)
	}
}

// dimsToMIL converts dimensions to the int64 used by MIL.
func dimsToMIL(dims []int) []int64 {
	out := make([]int64, len(dims))
	for i, dim := range dims {
		out[i] = int64(dim)
	}
	return out
}

func milToDims(dims []int64) []int {
	out := make([]int, len(dims))
	for i, dim := range dims {
		out[i] = int(dim)
	}
	return out
}

// shapeMatches reports whether the MIL data type and dimensions correspond to shape.
func shapeMatches(shape shapes.Shape, dtype model.DType, dims []int64) bool {
	want, err := DTypeToMIL(shape.DType)
	if err != nil || want != dtype || len(dims) != shape.Rank() {
		return false
	}
	for axis, dim := range dims {
		if int(dim) != shape.Dimensions[axis] {
			return false
		}
	}
	return true
}
