// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the contract between the execution core and the devices that implement
// operators: the Accumulator two-phase interface, the Binding that connects an accumulator to its
// graph node and tensors, and the Device Registry that maps (device, operator) pairs to factories.
//
// Devices register their factories during a single-threaded startup phase (see package
// backends/default), after which the registries are frozen and safe for concurrent lookups.
//
// Recoverable failures are returned as errors, classified by ErrNotRegistered, ErrUnsupported and
// ops.ErrConfiguration. Registration bugs (duplicates, registering after freeze) panic,
// see package github.com/gomlx/exceptions.
package backends

import (
	"github.com/gomlx/layerexec/pkg/core/graph"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/gomlx/layerexec/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrNotRegistered is returned (wrapped) when no implementation is registered for a (device, operator) pair.
	ErrNotRegistered = errors.New("no implementation for this operator on this device")

	// ErrUnsupported is returned (wrapped) for unimplemented paths, e.g. an element kind an operator
	// doesn't handle.
	ErrUnsupported = errors.New("unsupported")
)

// DeviceKind identifies a class of compute device.
type DeviceKind int

//go:generate go tool enumer -type=DeviceKind -trimprefix=Device -transform=lower -output=gen_devicekind_enumer.go backends.go

const (
	DeviceInvalid DeviceKind = iota

	// DeviceCPU is the general compute path, implemented in pure Go by package backends/simplego.
	DeviceCPU

	// DeviceCoreML is the accelerator path: the graph is converted to an Apple CoreML MIL program
	// by package backends/coreml and compiled/executed externally.
	DeviceCoreML

	// DeviceLast should always be kept the last, it is used as a counter/marker for DeviceKind.
	DeviceLast
)

// IsValid returns whether d is one of the defined device kinds.
func (d DeviceKind) IsValid() bool {
	return d > DeviceInvalid && d < DeviceLast
}

// Accumulator is the executable unit bound to one graph node on one device.
//
// The two phases are always called in order: InferShape whenever input shapes may have changed,
// then Compute once per inference. Both must only read the input descriptors and write the storage
// (and, for InferShape, the shape) of the output descriptors.
type Accumulator interface {
	// InferShape prepares the output shapes from the current input shapes.
	InferShape() error

	// Compute fills the output descriptors from the inputs.
	Compute() error
}

// Binding connects a graph node to the descriptors of its inputs and outputs, in the node's order.
type Binding struct {
	Node    *graph.Node
	Inputs  []*tensors.Descriptor
	Outputs []*tensors.Descriptor
	Config  Config
}

// CheckArity returns an error wrapping ops.ErrConfiguration if the binding doesn't have the
// given number of inputs and outputs.
func (b *Binding) CheckArity(numInputs, numOutputs int) error {
	if len(b.Inputs) != numInputs || len(b.Outputs) != numOutputs {
		return errors.Wrapf(ops.ErrConfiguration, "node %q (%s) requires %d input(s) and %d output(s), got %d and %d",
			b.Node.Name, b.Node.Op, numInputs, numOutputs, len(b.Inputs), len(b.Outputs))
	}
	return nil
}

// AccumulatorFactory creates the Accumulator for a binding. It validates the node parameter against
// the bound descriptors, reporting problems as errors wrapping ops.ErrConfiguration or ErrUnsupported.
type AccumulatorFactory func(b *Binding) (Accumulator, error)

// Accumulators is the Device Registry of accumulator factories.
var Accumulators = NewRegistry[AccumulatorFactory]("accumulators")

// Resolve looks up the factory for (device, b.Node.Op) in Accumulators and instantiates it.
//
// The parameter of the node is checked before the factory is called.
func Resolve(device DeviceKind, b *Binding) (Accumulator, error) {
	factory, err := Accumulators.Lookup(device, b.Node.Op)
	if err != nil {
		return nil, errors.WithMessagef(err, "resolving node %q", b.Node.Name)
	}
	if err := b.Node.CheckParam(); err != nil {
		return nil, err
	}
	acc, err := factory(b)
	if err != nil {
		return nil, errors.WithMessagef(err, "binding node %q (%s) on device %s", b.Node.Name, b.Node.Op, device)
	}
	if klog.V(2).Enabled() {
		klog.Infof("resolved node %q (%s) on device %s", b.Node.Name, b.Node.Op, device)
	}
	return acc, nil
}
