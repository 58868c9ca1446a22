// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/gomlx/layerexec/pkg/core/tensors"
	"github.com/pkg/errors"
)

// copyOp implements the operators whose output holds the input elements unchanged, in the same
// row-major order: Identity, Reshape and Flatten. They differ only in the output shape.
type copyOp struct {
	node          string
	input, output *tensors.Descriptor

	// outputShape returns the output shape for the given input shape.
	outputShape func(input shapes.Shape) (shapes.Shape, error)
}

var _ backends.Accumulator = (*copyOp)(nil)

func newCopyOp(b *backends.Binding, outputShape func(shapes.Shape) (shapes.Shape, error)) (*copyOp, error) {
	if err := b.CheckArity(1, 1); err != nil {
		return nil, err
	}
	input, output := b.Inputs[0], b.Outputs[0]
	if input.DType() != output.DType() {
		return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: %s input is %s, but output is declared %s",
			b.Node.Name, b.Node.Op, input.DType(), output.DType())
	}
	acc := &copyOp{node: b.Node.Name, input: input, output: output, outputShape: outputShape}
	if err := acc.InferShape(); err != nil {
		return nil, err
	}
	return acc, nil
}

func newIdentity(b *backends.Binding) (backends.Accumulator, error) {
	return newCopyOp(b, func(input shapes.Shape) (shapes.Shape, error) { return input, nil })
}

func newReshape(b *backends.Binding) (backends.Accumulator, error) {
	param, ok := b.Node.Param.(ops.ReshapeParam)
	if !ok {
		return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: Reshape requires a ReshapeParam, got %T", b.Node.Name, b.Node.Param)
	}
	for _, dim := range param.Dimensions {
		if dim < 0 {
			return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: Reshape to negative dimensions %v", b.Node.Name, param.Dimensions)
		}
	}
	dims := param.Dimensions
	return newCopyOp(b, func(input shapes.Shape) (shapes.Shape, error) {
		shape := shapes.Make(input.DType, dims...)
		if shape.Size() != input.Size() {
			return shapes.Invalid(), errors.Wrapf(ops.ErrConfiguration, "Reshape of %s to dimensions %v changes the number of elements",
				input, dims)
		}
		return shape, nil
	})
}

func newFlatten(b *backends.Binding) (backends.Accumulator, error) {
	param, ok := b.Node.Param.(ops.FlattenParam)
	if !ok {
		return nil, errors.Wrapf(ops.ErrConfiguration, "node %q: Flatten requires a FlattenParam, got %T", b.Node.Name, b.Node.Param)
	}
	return newCopyOp(b, func(input shapes.Shape) (shapes.Shape, error) {
		dims, err := param.OutputDimensions(input.Dimensions)
		if err != nil {
			return shapes.Invalid(), err
		}
		return shapes.Make(input.DType, dims...), nil
	})
}

// InferShape sets the output shape from the current input shape. The output storage must be large enough.
func (c *copyOp) InferShape() error {
	shape, err := c.outputShape(c.input.Shape())
	if err != nil {
		return errors.WithMessagef(err, "node %q", c.node)
	}
	if err := c.output.Reshape(shape); err != nil {
		return errors.WithMessagef(err, "node %q", c.node)
	}
	return nil
}

// Compute copies the input bytes to the output.
func (c *copyOp) Compute() error {
	copy(c.output.Bytes(), c.input.Bytes())
	return nil
}
