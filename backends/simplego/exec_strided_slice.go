// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/gomlx/layerexec/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// stridedSliceKernel fills output offsets [lo, hi) from the input, following plan.
type stridedSliceKernel func(input, output *tensors.Descriptor, plan *stridedSlicePlan, lo, hi int)

var stridedSliceDTypeMap = NewDTypeDispatcher[stridedSliceKernel]("StridedSlice")

func init() {
	stridedSliceDTypeMap.Register(dtypes.Float32, execStridedSliceGeneric[float32])
	stridedSliceDTypeMap.Register(dtypes.Float64, execStridedSliceGeneric[float64])
	stridedSliceDTypeMap.Register(dtypes.Float16, execStridedSliceGeneric[float16.Float16])
	stridedSliceDTypeMap.Register(dtypes.BFloat16, execStridedSliceGeneric[bfloat16.BFloat16])
}

// stridedSlicePlan is derived from the parameter and the current shapes by InferShape.
type stridedSlicePlan struct {
	// begins and strides per input axis: pass-through axes have begin 0 and stride 1.
	begins, strides []int

	// steps[axis] is the change in the flat input offset when the output position on axis increments.
	steps []int
}

// stridedSlice implements the gather-style strided slice operator.
type stridedSlice struct {
	node          string
	param         ops.StridedSliceParam
	input, output *tensors.Descriptor
	kernel        stridedSliceKernel
	config        backends.Config
	plan          stridedSlicePlan
}

var _ backends.Accumulator = (*stridedSlice)(nil)

func newStridedSlice(b *backends.Binding) (backends.Accumulator, error) {
	if err := b.CheckArity(1, 1); err != nil {
		return nil, err
	}
	param, ok := b.Node.Param.(ops.StridedSliceParam)
	if !ok {
		return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: StridedSlice requires a StridedSliceParam, got %T", b.Node.Name, b.Node.Param)
	}
	input, output := b.Inputs[0], b.Outputs[0]
	if input.DType() != output.DType() {
		return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: StridedSlice input is %s, but output is declared %s",
			b.Node.Name, input.DType(), output.DType())
	}
	kernel, err := stridedSliceDTypeMap.Get(input.DType())
	if err != nil {
		return nil, err
	}
	acc := &stridedSlice{
		node:   b.Node.Name,
		param:  param,
		input:  input,
		output: output,
		kernel: kernel,
		config: b.Config,
	}
	if err := acc.InferShape(); err != nil {
		return nil, err
	}
	return acc, nil
}

// InferShape keeps the declared output shape: it only checks that the parameter and the current
// shapes are consistent, and prepares the compute plan.
func (s *stridedSlice) InferShape() error {
	inputShape, outputShape := s.input.Shape(), s.output.Shape()
	if err := s.param.Validate(inputShape.Rank()); err != nil {
		return errors.WithMessagef(err, "node %q", s.node)
	}
	if err := s.param.CheckBounds(inputShape.Dimensions, outputShape.Dimensions); err != nil {
		return errors.WithMessagef(err, "node %q: input %s, output %s", s.node, inputShape, outputShape)
	}
	rank := inputShape.Rank()
	s.plan.begins, s.plan.strides = s.param.Expand(rank)
	s.plan.steps = inputShape.Strides()
	for axis := range rank {
		s.plan.steps[axis] *= s.plan.strides[axis]
	}
	return nil
}

// Compute fills the output, splitting the output offsets in chunks processed in parallel.
func (s *stridedSlice) Compute() error {
	return runChunked(s.output.Size(), s.config.Parallelism, s.config.MinChunk, func(lo, hi int) error {
		s.kernel(s.input, s.output, &s.plan, lo, hi)
		return nil
	})
}

// execStridedSliceGeneric converts the first output offset to its output index, maps it to the input index
// and offset, and from there walks both incrementally, output last axis first.
func execStridedSliceGeneric[T FloatConstraints](input, output *tensors.Descriptor, plan *stridedSlicePlan, lo, hi int) {
	if lo >= hi {
		return
	}
	inputFlat := tensors.MustFlat[T](input)
	outputFlat := tensors.MustFlat[T](output)
	outputShape := output.Shape()
	outputDims := outputShape.Dimensions
	rank := outputShape.Rank()

	outputIdx := make([]int, rank)
	outputShape.OffsetToIndexInto(lo, outputIdx)
	inputIdx := make([]int, rank)
	for axis, pos := range outputIdx {
		inputIdx[axis] = plan.begins[axis] + pos*plan.strides[axis]
	}
	inputOffset := input.Shape().IndexToOffset(inputIdx)

	for outputOffset := lo; ; {
		outputFlat[outputOffset] = inputFlat[inputOffset]
		outputOffset++
		if outputOffset == hi {
			return
		}
		for axis := rank - 1; axis >= 0; axis-- {
			outputIdx[axis]++
			inputOffset += plan.steps[axis]
			if outputIdx[axis] < outputDims[axis] {
				break
			}
			// Rewind this axis and carry to the previous one.
			outputIdx[axis] = 0
			inputOffset -= outputDims[axis] * plan.steps[axis]
		}
	}
}
