// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package coreml

import (
	"github.com/gomlx/go-coreml/model"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/pkg/errors"
)

// Unit converts one graph node to MIL operations.
//
// It receives the MIL builder, the node being converted and the MIL values bound to the node inputs,
// in the order of the graph node inputs. It must add the MIL operation(s), record each of the node
// outputs with Node.AddOutput, in order, and record the operator attributes with Node.SetAttribute.
type Unit func(mil *model.Builder, node *Node, inputs []*model.Value) error

// Units is the registry of conversion units, keyed by (DeviceCoreML, op).
var Units = backends.NewRegistry[Unit]("coreml-units")

// Register the conversion units of this package in r.
//
// It must be called during startup, before r is frozen: see package backends/default.
func Register(r *backends.Registry[Unit]) {
	r.Register(Device, ops.OpTypeIdentity, convertIdentity)
	r.Register(Device, ops.OpTypeReshape, convertReshape)
	r.Register(Device, ops.OpTypeStridedSlice, convertStridedSlice)
	r.Register(Device, ops.OpTypeFlatten, convertFlatten)
}

func checkInputs(node *Node, inputs []*model.Value, n int) error {
	if len(inputs) != n {
		return errors.Wrapf(ops.ErrConfiguration, "%s requires %d input(s), got %d", node.Op(), n, len(inputs))
	}
	return nil
}

func convertIdentity(mil *model.Builder, node *Node, inputs []*model.Value) error {
	if err := checkInputs(node, inputs, 1); err != nil {
		return err
	}
	node.AddOutput(mil.Identity(node.Source().Outputs[0].Name, inputs[0]))
	return nil
}

func convertReshape(mil *model.Builder, node *Node, inputs []*model.Value) error {
	if err := checkInputs(node, inputs, 1); err != nil {
		return err
	}
	param := node.Param().(ops.ReshapeParam)
	return emitReshape(mil, node, inputs[0], dimsToMIL(param.Dimensions))
}

// convertFlatten emits a MIL reshape to the 2D shape of the flattened input. The original axis is
// recorded in the "axis" attribute.
func convertFlatten(mil *model.Builder, node *Node, inputs []*model.Value) error {
	if err := checkInputs(node, inputs, 1); err != nil {
		return err
	}
	param := node.Param().(ops.FlattenParam)
	x := inputs[0]
	dims, err := param.OutputDimensions(milToDims(x.Shape()))
	if err != nil {
		return err
	}
	node.SetAttribute("axis", []int64{int64(param.Axis)})
	return emitReshape(mil, node, x, dimsToMIL(dims))
}

func emitReshape(mil *model.Builder, node *Node, x *model.Value, dims []int64) error {
	inputSize, outputSize := int64(1), int64(1)
	for _, dim := range x.Shape() {
		inputSize *= dim
	}
	for _, dim := range dims {
		outputSize *= dim
	}
	if inputSize != outputSize {
		return errors.Wrapf(ops.ErrConfiguration, "%s of %v to %v changes the number of elements", node.Op(), x.Shape(), dims)
	}
	node.SetAttribute("shape", dims)
	node.AddOutput(mil.Reshape(x, dims))
	return nil
}

// convertStridedSlice emits a MIL slice_by_index over every axis of the input: sliced axes take the
// configured begin and stride, pass-through axes take 0, their dimension and 1.
//
// MIL derives the output dimension from end, so the end emitted for a sliced axis is the tightest one,
// just past the last position read. The configured ends are recorded in the "slice_end" attribute.
func convertStridedSlice(mil *model.Builder, node *Node, inputs []*model.Value) error {
	if err := checkInputs(node, inputs, 1); err != nil {
		return err
	}
	param := node.Param().(ops.StridedSliceParam)
	x := inputs[0]
	inputDims := milToDims(x.Shape())
	if err := param.Validate(len(inputDims)); err != nil {
		return err
	}
	outputs := node.Source().Outputs
	if len(outputs) != 1 {
		return errors.Wrapf(ops.ErrConfiguration, "StridedSlice declares %d outputs, it must have exactly one", len(outputs))
	}
	outputDims := outputs[0].Shape.Dimensions
	if err := param.CheckBounds(inputDims, outputDims); err != nil {
		return err
	}

	rank := len(inputDims)
	begin := make([]int64, rank)
	end := make([]int64, rank)
	stride := make([]int64, rank)
	for axis, dim := range inputDims {
		end[axis] = int64(dim)
		stride[axis] = 1
	}
	sliceEnd := make([]int64, len(param.Axes))
	for i, axis := range param.Axes {
		if param.Strides[i] < 0 {
			return errors.Wrapf(backends.ErrUnsupported, "StridedSlice with negative stride %d on axis %d can't be converted to CoreML",
				param.Strides[i], axis)
		}
		sliceEnd[i] = int64(param.Ends[i])
		stride[axis] = int64(param.Strides[i])
		if outputDims[axis] == 0 {
			begin[axis], end[axis] = 0, 0
			continue
		}
		begin[axis] = int64(param.Begins[i])
		end[axis] = begin[axis] + int64(outputDims[axis]-1)*stride[axis] + 1
	}
	node.SetAttribute("begin", begin)
	node.SetAttribute("end", end)
	node.SetAttribute("stride", stride)
	node.SetAttribute("slice_end", sliceEnd)
	node.AddOutput(mil.SliceByIndex(x, begin, end, stride))
	return nil
}
