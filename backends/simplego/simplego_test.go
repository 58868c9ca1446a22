// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/graph"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/gomlx/layerexec/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

var sequential = backends.Config{Device: Device, Parallelism: 1, MinChunk: backends.DefaultMinChunk}

// bind creates the binding of a single node, with a freshly allocated output of the given shape.
func bind(op ops.OpType, param ops.Param, input *tensors.Descriptor, output shapes.Shape, config backends.Config) *backends.Binding {
	node := &graph.Node{
		Name:    "node",
		Op:      op,
		Param:   param,
		Inputs:  []string{"x"},
		Outputs: []graph.Value{{Name: "y", Shape: output}},
	}
	return &backends.Binding{
		Node:    node,
		Inputs:  []*tensors.Descriptor{input},
		Outputs: []*tensors.Descriptor{must.M1(tensors.NewFromAllocator(tensors.GoAllocator{}, output))},
		Config:  config,
	}
}

// runStridedSlice binds and executes the strided slice, returning the output descriptor.
func runStridedSlice(t *testing.T, param ops.StridedSliceParam, input *tensors.Descriptor, output shapes.Shape, config backends.Config) *tensors.Descriptor {
	b := bind(ops.OpTypeStridedSlice, param, input, output, config)
	acc, err := newStridedSlice(b)
	require.NoError(t, err)
	require.NoError(t, acc.InferShape())
	require.NoError(t, acc.Compute())
	return b.Outputs[0]
}

// referenceStridedSlice computes the strided slice one output offset at a time, converting each offset to
// coordinates and back.
func referenceStridedSlice[T any](param ops.StridedSliceParam, inputShape shapes.Shape, input []T, outputShape shapes.Shape) []T {
	output := make([]T, outputShape.Size())
	inputIdx := make([]int, inputShape.Rank())
	for offset := range output {
		outputIdx := outputShape.OffsetToIndex(offset)
		cursor := 0
		for dim, pos := range outputIdx {
			if cursor < len(param.Axes) && param.Axes[cursor] == dim {
				inputIdx[dim] = param.Begins[cursor] + pos*param.Strides[cursor]
				cursor++
			} else {
				inputIdx[dim] = pos
			}
		}
		output[offset] = input[inputShape.IndexToOffset(inputIdx)]
	}
	return output
}

func TestStridedSlice_Gather(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5, 6, 7}, 2, 4)
	param := ops.StridedSliceParam{Begins: []int{1}, Ends: []int{4}, Strides: []int{2}, Axes: []int{1}}
	output := runStridedSlice(t, param, input, shapes.Make(dtypes.Float32, 2, 2), sequential)
	require.Equal(t, []float32{1, 3, 5, 7}, tensors.MustFlat[float32](output))

	// Both axes sliced, one of them reversed.
	param = ops.StridedSliceParam{Begins: []int{1, 3}, Ends: []int{2, -1}, Strides: []int{1, -2}, Axes: []int{0, 1}}
	output = runStridedSlice(t, param, input, shapes.Make(dtypes.Float32, 1, 2), sequential)
	require.Equal(t, []float32{7, 5}, tensors.MustFlat[float32](output))
}

func TestStridedSlice_PassThrough(t *testing.T) {
	for _, dims := range [][]int{{}, {5}, {2, 3}, {3, 1, 4}, {2, 2, 2, 3}} {
		shape := shapes.Make(dtypes.Float64, dims...)
		data := make([]float64, shape.Size())
		for i := range data {
			data[i] = float64(i) * 1.5
		}
		input := tensors.FromFlatDataAndDimensions(data, dims...)
		output := runStridedSlice(t, ops.StridedSliceParam{}, input, shape, sequential)
		require.Equal(t, data, tensors.MustFlat[float64](output), "shape %s", shape)
	}
}

func TestStridedSlice_HalfPrecision(t *testing.T) {
	half := make([]float16.Float16, 6)
	brain := make([]bfloat16.BFloat16, 6)
	for i := range half {
		half[i] = float16.Fromfloat32(float32(i))
		brain[i] = bfloat16.FromFloat32(float32(i))
	}
	param := ops.StridedSliceParam{Begins: []int{2}, Ends: []int{-1}, Strides: []int{-1}, Axes: []int{1}}

	output := runStridedSlice(t, param, tensors.FromFlatDataAndDimensions(half, 2, 3), shapes.Make(dtypes.Float16, 2, 3), sequential)
	var got []float32
	for _, v := range tensors.MustFlat[float16.Float16](output) {
		got = append(got, v.Float32())
	}
	require.Equal(t, []float32{2, 1, 0, 5, 4, 3}, got)

	output = runStridedSlice(t, param, tensors.FromFlatDataAndDimensions(brain, 2, 3), shapes.Make(dtypes.BFloat16, 2, 3), sequential)
	got = got[:0]
	for _, v := range tensors.MustFlat[bfloat16.BFloat16](output) {
		got = append(got, v.Float32())
	}
	require.Equal(t, []float32{2, 1, 0, 5, 4, 3}, got)
}

func TestStridedSlice_Unsupported(t *testing.T) {
	for _, input := range []*tensors.Descriptor{
		tensors.FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 4),
		tensors.FromFlatDataAndDimensions([]int32{1, 2, 3, 4}, 4),
	} {
		b := bind(ops.OpTypeStridedSlice, ops.StridedSliceParam{}, input, input.Shape(), sequential)
		_, err := newStridedSlice(b)
		require.Error(t, err)
		require.ErrorIs(t, err, backends.ErrUnsupported)
		require.Contains(t, err.Error(), input.DType().String())
	}
}

func TestStridedSlice_ConfigurationErrors(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5, 6, 7}, 2, 4)
	out := shapes.Make(dtypes.Float32, 2, 2)
	for name, testCase := range map[string]struct {
		param  ops.Param
		output shapes.Shape
	}{
		"nil-param":     {nil, out},
		"wrong-param":   {ops.ReshapeParam{Dimensions: []int{4}}, out},
		"zero-stride":   {ops.StridedSliceParam{Begins: []int{1}, Ends: []int{4}, Strides: []int{0}, Axes: []int{1}}, out},
		"bad-axis":      {ops.StridedSliceParam{Begins: []int{1}, Ends: []int{4}, Strides: []int{1}, Axes: []int{2}}, out},
		"out-of-bounds": {ops.StridedSliceParam{Begins: []int{3}, Ends: []int{8}, Strides: []int{2}, Axes: []int{1}}, out},
		"beyond-end":    {ops.StridedSliceParam{Begins: []int{1}, Ends: []int{3}, Strides: []int{2}, Axes: []int{1}}, out},
		"pass-through":  {ops.StridedSliceParam{}, out},
		"dtype":         {ops.StridedSliceParam{}, shapes.Make(dtypes.Float64, 2, 4)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newStridedSlice(bind(ops.OpTypeStridedSlice, testCase.param, input, testCase.output, sequential))
			require.Error(t, err)
			require.ErrorIs(t, err, ops.ErrConfiguration)
		})
	}

	// Huge strides would overflow the position of the last element read: rejected at bind time, also when
	// compute would run in parallel.
	vector := tensors.FromFlatDataAndDimensions(make([]float32, 10), 10)
	parallel := backends.Config{Device: Device, Parallelism: 4, MinChunk: 1}
	for _, stride := range []int{math.MaxInt, math.MinInt, math.MaxInt/2 + 1} {
		param := ops.StridedSliceParam{Begins: []int{3}, Ends: []int{10}, Strides: []int{stride}, Axes: []int{0}}
		for _, config := range []backends.Config{sequential, parallel} {
			_, err := newStridedSlice(bind(ops.OpTypeStridedSlice, param, vector, shapes.Make(dtypes.Float32, 3), config))
			require.ErrorIs(t, err, ops.ErrConfiguration, "stride %d", stride)
		}
	}
}

func TestStridedSlice_InferShapeAfterInputChange(t *testing.T) {
	storage := make([]byte, 64)
	input := must.M1(tensors.New(shapes.Make(dtypes.Float32, 2, 4), storage))
	param := ops.StridedSliceParam{Begins: []int{1}, Ends: []int{4}, Strides: []int{2}, Axes: []int{1}}
	b := bind(ops.OpTypeStridedSlice, param, input, shapes.Make(dtypes.Float32, 2, 2), sequential)
	acc := must.M1(newStridedSlice(b))

	// Larger leading axis: pass-through axis now mismatches the declared output.
	require.NoError(t, input.Reshape(shapes.Make(dtypes.Float32, 4, 4)))
	require.ErrorIs(t, acc.InferShape(), ops.ErrConfiguration)

	// Back to a consistent shape.
	require.NoError(t, input.Reshape(shapes.Make(dtypes.Float32, 2, 4)))
	require.NoError(t, acc.InferShape())
	require.NoError(t, acc.Compute())
}

func TestStridedSlice_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	inputShape := shapes.Make(dtypes.Float32, 7, 9, 11, 5)
	data := make([]float32, inputShape.Size())
	for i := range data {
		data[i] = rng.Float32()
	}
	input := tensors.FromFlatDataAndDimensions(data, inputShape.Dimensions...)
	param := ops.StridedSliceParam{
		Begins:  []int{1, 10, 4},
		Ends:    []int{9, -1, -1},
		Strides: []int{2, -3, -1},
		Axes:    []int{1, 2, 3},
	}
	outputShape := shapes.Make(dtypes.Float32, 7, 4, 4, 5)
	want := referenceStridedSlice(param, inputShape, data, outputShape)

	got := tensors.MustFlat[float32](runStridedSlice(t, param, input, outputShape, sequential))
	require.Equal(t, want, got)

	for _, config := range []backends.Config{
		{Device: Device, Parallelism: 4, MinChunk: 1},
		{Device: Device, Parallelism: 3, MinChunk: 17},
		{Device: Device, Parallelism: 16, MinChunk: 100},
		{Device: Device, Parallelism: 8, MinChunk: 1 << 20},
	} {
		got := tensors.MustFlat[float32](runStridedSlice(t, param, input, outputShape, config))
		require.Equal(t, want, got, "config %s", config)
	}
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []int{0, 10}, splitChunks(10, 4, 8))
	assert.Equal(t, []int{0, 5, 10}, splitChunks(10, 4, 5))
	assert.Equal(t, []int{0, 2, 5, 7, 10}, splitChunks(10, 4, 1))
	assert.Equal(t, []int{0, 1, 2, 3}, splitChunks(3, 8, 0))

	var covered, calls atomic.Int64
	require.NoError(t, runChunked(1000, 4, 10, func(lo, hi int) error {
		if lo >= hi {
			return errors.Errorf("empty chunk [%d, %d)", lo, hi)
		}
		covered.Add(int64(hi - lo))
		calls.Add(1)
		return nil
	}))
	require.Equal(t, int64(1000), covered.Load())
	require.Equal(t, int64(4), calls.Load())

	// Errors from any chunk are returned.
	err := runChunked(1000, 4, 10, func(lo, hi int) error {
		if lo == 0 {
			return errors.New("first chunk failed")
		}
		return nil
	})
	require.Error(t, err)
}

func TestIdentityAndReshape(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]int8{1, 2, 3, 4, 5, 6}, 2, 3)
	b := bind(ops.OpTypeIdentity, ops.IdentityParam{}, input, input.Shape(), sequential)
	acc := must.M1(newIdentity(b))
	require.NoError(t, acc.Compute())
	require.Equal(t, []int8{1, 2, 3, 4, 5, 6}, tensors.MustFlat[int8](b.Outputs[0]))

	b = bind(ops.OpTypeReshape, ops.ReshapeParam{Dimensions: []int{3, 2}}, input, shapes.Make(dtypes.Int8, 3, 2), sequential)
	acc = must.M1(newReshape(b))
	require.NoError(t, acc.Compute())
	require.Equal(t, []int{3, 2}, b.Outputs[0].Shape().Dimensions)
	require.Equal(t, []int8{1, 2, 3, 4, 5, 6}, tensors.MustFlat[int8](b.Outputs[0]))

	_, err := newReshape(bind(ops.OpTypeReshape, ops.ReshapeParam{Dimensions: []int{4}}, input, shapes.Make(dtypes.Int8, 4), sequential))
	require.ErrorIs(t, err, ops.ErrConfiguration)
	_, err = newReshape(bind(ops.OpTypeReshape, ops.IdentityParam{}, input, shapes.Make(dtypes.Int8, 6), sequential))
	require.ErrorIs(t, err, ops.ErrConfiguration)
	_, err = newIdentity(bind(ops.OpTypeIdentity, ops.IdentityParam{}, input, shapes.Make(dtypes.Float32, 2, 3), sequential))
	require.ErrorIs(t, err, ops.ErrConfiguration)
}

func TestFlatten(t *testing.T) {
	input := tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, 2, 3, 2)
	b := bind(ops.OpTypeFlatten, ops.FlattenParam{Axis: 1}, input, shapes.Make(dtypes.Float32, 2, 6), sequential)
	acc := must.M1(newFlatten(b))
	require.NoError(t, acc.Compute())
	require.Equal(t, []int{2, 6}, b.Outputs[0].Shape().Dimensions)
	require.Equal(t, tensors.MustFlat[float32](input), tensors.MustFlat[float32](b.Outputs[0]))

	// Input shape changes: output follows, within the allocated storage.
	require.NoError(t, input.Reshape(shapes.Make(dtypes.Float32, 3, 2, 2)))
	require.NoError(t, acc.InferShape())
	require.Equal(t, []int{3, 4}, b.Outputs[0].Shape().Dimensions)

	// Negative axis counts from the end.
	b = bind(ops.OpTypeFlatten, ops.FlattenParam{Axis: -1}, input, shapes.Make(dtypes.Float32, 6, 2), sequential)
	must.M1(newFlatten(b))
	require.Equal(t, []int{6, 2}, b.Outputs[0].Shape().Dimensions)

	_, err := newFlatten(bind(ops.OpTypeFlatten, ops.FlattenParam{Axis: 4}, input, shapes.Make(dtypes.Float32, 12, 1), sequential))
	require.ErrorIs(t, err, ops.ErrConfiguration)
	_, err = newFlatten(bind(ops.OpTypeFlatten, ops.ReshapeParam{Dimensions: []int{12}}, input, shapes.Make(dtypes.Float32, 12), sequential))
	require.ErrorIs(t, err, ops.ErrConfiguration)
}

func TestRegister(t *testing.T) {
	r := backends.NewRegistry[backends.AccumulatorFactory]("simplego-test")
	Register(r)
	require.Len(t, r.Keys(), 4)
	for _, op := range ops.OpTypeValues() {
		if !op.IsValid() {
			continue
		}
		_, err := r.Lookup(Device, op)
		require.NoError(t, err, "op %s", op)
	}
	_, err := r.Lookup(backends.DeviceCoreML, ops.OpTypeStridedSlice)
	require.ErrorIs(t, err, backends.ErrNotRegistered)
}
