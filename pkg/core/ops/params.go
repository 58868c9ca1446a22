// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConfiguration is returned (wrapped) when an operator's parameters are unusable for its inputs:
// list length mismatches, out-of-range axes, zero strides, a missing or mismatched parameter.
var ErrConfiguration = errors.New("invalid operator configuration")

// Param is the typed parameter record of a node. The set of implementations is closed: there is exactly
// one per OpType.
type Param interface {
	// OpType this parameter configures.
	OpType() OpType

	fmt.Stringer

	isParam()
}

// IdentityParam configures OpTypeIdentity. It has no fields.
type IdentityParam struct{}

func (IdentityParam) OpType() OpType { return OpTypeIdentity }
func (IdentityParam) String() string { return "Identity()" }
func (IdentityParam) isParam() {}

// ReshapeParam configures OpTypeReshape: the output has the same elements, in the same row-major order,
// with the given Dimensions.
type ReshapeParam struct {
	Dimensions []int
}

func (ReshapeParam) OpType() OpType { return OpTypeReshape }
func (p ReshapeParam) String() string { return fmt.Sprintf("Reshape(dims=%v)", p.Dimensions) }
func (ReshapeParam) isParam() {}

// FlattenParam configures OpTypeFlatten: the input is reshaped to a matrix, whose first dimension is
// the product of the input dimensions before Axis, and second dimension the product of the remaining ones.
//
// Axis may be negative, counting from the end, and is within [-rank, rank].
type FlattenParam struct {
	Axis int
}

func (FlattenParam) OpType() OpType { return OpTypeFlatten }
func (p FlattenParam) String() string { return fmt.Sprintf("Flatten(axis=%d)", p.Axis) }
func (FlattenParam) isParam() {}

// OutputDimensions returns the 2D output dimensions for an input with the given dimensions, or an error
// wrapping ErrConfiguration if Axis is out of range.
func (p FlattenParam) OutputDimensions(inputDims []int) ([]int, error) {
	rank := len(inputDims)
	axis := p.Axis
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis > rank {
		return nil, errors.Wrapf(ErrConfiguration, "flatten: axis %d out of range for an input of rank %d", p.Axis, rank)
	}
	outer, inner := 1, 1
	for i, dim := range inputDims {
		if i < axis {
			outer *= dim
		} else {
			inner *= dim
		}
	}
	return []int{outer, inner}, nil
}

// StridedSliceParam configures OpTypeStridedSlice.
//
// Begins, Ends and Strides are indexed in parallel with Axes: for Axes[i], the output position j along
// that axis reads from the input position Begins[i] + j*Strides[i]. Axes not listed are passed through
// unchanged (begin 0, stride 1, full extent).
//
// The output shape is not derived from these values: it is the declared shape of the node's output.
// Ends bound the positions that may be read: with a positive stride positions must be < end, with a
// negative stride they must be > end.
type StridedSliceParam struct {
	Begins, Ends, Strides []int
	Axes                  []int
}

func (StridedSliceParam) OpType() OpType { return OpTypeStridedSlice }
func (p StridedSliceParam) String() string {
	return fmt.Sprintf("StridedSlice(axes=%v, begins=%v, ends=%v, strides=%v)", p.Axes, p.Begins, p.Ends, p.Strides)
}
func (StridedSliceParam) isParam() {}

// Validate checks the parameter against the rank of the input.
//
// It returns an error wrapping ErrConfiguration if the four lists don't have the same length, if there
// are more sliced axes than inputRank, if Axes are not strictly increasing within [0, inputRank) or
// if any stride is zero.
func (p StridedSliceParam) Validate(inputRank int) error {
	n := len(p.Axes)
	if len(p.Begins) != n || len(p.Ends) != n || len(p.Strides) != n {
		return errors.Wrapf(ErrConfiguration, "strided slice: begins, ends, strides and axes must have the same length, got %d, %d, %d and %d",
			len(p.Begins), len(p.Ends), len(p.Strides), n)
	}
	if n > inputRank {
		return errors.Wrapf(ErrConfiguration, "strided slice: %d axes given for an input of rank %d", n, inputRank)
	}
	for i, axis := range p.Axes {
		if axis < 0 || axis >= inputRank {
			return errors.Wrapf(ErrConfiguration, "strided slice: axis %d out of range for an input of rank %d", axis, inputRank)
		}
		if i > 0 && axis <= p.Axes[i-1] {
			return errors.Wrapf(ErrConfiguration, "strided slice: axes must be strictly increasing, got %v", p.Axes)
		}
		if p.Strides[i] == 0 {
			return errors.Wrapf(ErrConfiguration, "strided slice: stride for axis %d is zero", axis)
		}
	}
	return nil
}

// Expand returns the per-axis begin and stride for every axis of an input of the given rank: sliced
// axes take their configured values, pass-through axes get begin 0 and stride 1.
//
// The parameter must have been validated for inputRank.
func (p StridedSliceParam) Expand(inputRank int) (begins, strides []int) {
	begins = make([]int, inputRank)
	strides = make([]int, inputRank)
	for axis := range strides {
		strides[axis] = 1
	}
	for i, axis := range p.Axes {
		begins[axis] = p.Begins[i]
		strides[axis] = p.Strides[i]
	}
	return
}

// CheckBounds verifies that every input position read to produce an output of outputDims stays inside
// inputDims and inside the configured [begin, end) range of each sliced axis.
//
// The parameter must have been validated for len(inputDims), and len(outputDims) must equal len(inputDims).
func (p StridedSliceParam) CheckBounds(inputDims, outputDims []int) error {
	if len(outputDims) != len(inputDims) {
		return errors.Wrapf(ErrConfiguration, "strided slice: output rank %d differs from input rank %d",
			len(outputDims), len(inputDims))
	}
	sliced := make([]bool, len(inputDims))
	for i, axis := range p.Axes {
		sliced[axis] = true
		outDim := outputDims[axis]
		if outDim == 0 {
			continue
		}
		begin, end, stride := p.Begins[i], p.Ends[i], p.Strides[i]
		dim := inputDims[axis]
		if begin < 0 || begin >= dim {
			return errors.Wrapf(ErrConfiguration, "strided slice: axis %d begins at position %d, outside of the input dimension %d",
				axis, begin, dim)
		}
		// The span (outDim-1)*stride must fit in dim-1: checked by division so it can't overflow.
		if outDim > 1 {
			maxStride := (dim - 1) / (outDim - 1)
			if stride > maxStride || stride < -maxStride {
				return errors.Wrapf(ErrConfiguration, "strided slice: axis %d can't read %d positions with stride %d from the input dimension %d",
					axis, outDim, stride, dim)
			}
		}
		last := begin + (outDim-1)*stride
		if last < 0 || last >= dim {
			return errors.Wrapf(ErrConfiguration, "strided slice: axis %d reads positions %d to %d, outside of the input dimension %d",
				axis, begin, last, dim)
		}
		if (stride > 0 && last >= end) || (stride < 0 && last <= end) {
			return errors.Wrapf(ErrConfiguration, "strided slice: axis %d reads position %d, beyond end=%d (begin=%d, stride=%d, output dimension %d)",
				axis, last, end, begin, stride, outDim)
		}
	}
	for axis, ok := range sliced {
		if !ok && outputDims[axis] != inputDims[axis] {
			return errors.Wrapf(ErrConfiguration, "strided slice: pass-through axis %d has output dimension %d, but input dimension %d",
				axis, outputDims[axis], inputDims[axis])
		}
	}
	return nil
}

// Compile-time check that each Param implementation matches its OpType.
var (
	_ Param = IdentityParam{}
	_ Param = ReshapeParam{}
	_ Param = FlattenParam{}
	_ Param = StridedSliceParam{}
)

// Check returns an error wrapping ErrConfiguration if param is nil or doesn't configure op.
func Check(op OpType, param Param) error {
	if param == nil {
		return errors.Wrapf(ErrConfiguration, "missing parameter for operator %s", op)
	}
	if param.OpType() != op {
		return errors.Wrapf(ErrConfiguration, "operator %s given a parameter for %s: %s", op, param.OpType(), param)
	}
	return nil
}
