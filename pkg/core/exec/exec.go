// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package exec plays the model loader and inference driver role on the general compute path: it binds
// every node of a graph to an accumulator of the configured device, and runs the two phases of the
// accumulators in order.
//
// Typical use:
//
//	cfg, err := backends.DefaultConfig()
//	e, err := exec.Load(g, cfg, nil)
//	x, _ := e.Input("x")
//	copy(tensors.MustFlat[float32](x), data)
//	err = e.Run()
//	y, _ := e.Output("y")
//
// The accumulators are resolved in backends.Accumulators, which must have been populated and frozen
// before, see package backends/default.
package exec

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/graph"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/gomlx/layerexec/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// step is one node bound to its accumulator.
type step struct {
	node *graph.Node
	acc  backends.Accumulator
}

// Executable is a graph bound to accumulators and to tensor storage, ready to run.
//
// It is not safe for concurrent use: each inference call runs single-threaded, except for what the
// accumulators parallelize internally.
type Executable struct {
	graph  *graph.Graph
	config backends.Config

	values     map[string]*tensors.Descriptor
	parameters []*tensors.Descriptor
	steps      []step

	// inferredShapes are the parameter shapes of the last shape inference pass. Nil before the first Run.
	inferredShapes []shapes.Shape

	memory    uint64
	finalized bool
}

// Load validates the graph, allocates the storage of every graph value with alloc, and binds every node
// to an accumulator of the device cfg.Device.
//
// If alloc is nil, tensors.GoAllocator is used. Any failure aborts the load, and the error names the graph
// node, its operator and the device.
func Load(g *graph.Graph, cfg backends.Config, alloc tensors.Allocator) (*Executable, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !backends.Accumulators.IsFrozen() {
		klog.Warningf("exec.Load(%q): registry %s is not frozen, registration must finish before inference starts",
			g.Name(), backends.Accumulators.Name())
	}
	if alloc == nil {
		alloc = tensors.GoAllocator{}
	}
	e := &Executable{
		graph:  g,
		config: cfg,
		values: make(map[string]*tensors.Descriptor),
	}
	allocate := func(v graph.Value) (*tensors.Descriptor, error) {
		d, err := tensors.NewFromAllocator(alloc, v.Shape)
		if err != nil {
			return nil, errors.WithMessagef(err, "loading graph %q: value %q", g.Name(), v.Name)
		}
		e.values[v.Name] = d
		e.memory += uint64(d.Capacity())
		return d, nil
	}
	for _, p := range g.Parameters() {
		d, err := allocate(p)
		if err != nil {
			return nil, err
		}
		e.parameters = append(e.parameters, d)
	}

	for _, node := range g.Nodes() {
		b := &backends.Binding{Node: node, Config: cfg}
		for _, input := range node.Inputs {
			b.Inputs = append(b.Inputs, e.values[input])
		}
		for _, output := range node.Outputs {
			d, err := allocate(output)
			if err != nil {
				return nil, err
			}
			b.Outputs = append(b.Outputs, d)
		}
		acc, err := backends.Resolve(cfg.Device, b)
		if err != nil {
			resolveFailuresTotal.WithLabelValues(cfg.Device.String(), node.Op.String()).Inc()
			return nil, errors.WithMessagef(err, "loading graph %q: node %q (%s) on device %s", g.Name(), node.Name, node.Op, cfg.Device)
		}
		e.steps = append(e.steps, step{node: node, acc: acc})
	}
	allocatedBytes.Add(float64(e.memory))
	klog.V(1).Infof("exec: loaded graph %q on %s: %d nodes, %s of tensor storage", g.Name(), cfg, len(e.steps), humanize.Bytes(e.memory))
	return e, nil
}

// Graph returns the graph this executable was loaded from.
func (e *Executable) Graph() *graph.Graph { return e.graph }

// Config returns the configuration the executable was loaded with.
func (e *Executable) Config() backends.Config { return e.config }

// Input returns the descriptor bound to the named graph parameter.
//
// The caller writes the input data to its storage, and may change its shape with Descriptor.Reshape,
// within the allocated capacity, before calling Run.
func (e *Executable) Input(name string) (*tensors.Descriptor, error) {
	if e.finalized {
		return nil, errors.Errorf("Executable(%q).Input called after Finalize", e.graph.Name())
	}
	for i, p := range e.graph.Parameters() {
		if p.Name == name {
			return e.parameters[i], nil
		}
	}
	return nil, errors.Errorf("graph %q has no parameter %q", e.graph.Name(), name)
}

// Output returns the descriptor bound to the named graph output.
func (e *Executable) Output(name string) (*tensors.Descriptor, error) {
	if e.finalized {
		return nil, errors.Errorf("Executable(%q).Output called after Finalize", e.graph.Name())
	}
	for _, output := range e.graph.Outputs() {
		if output == name {
			return e.values[name], nil
		}
	}
	return nil, errors.Errorf("graph %q has no output %q", e.graph.Name(), name)
}

// Shapes returns the current shape of every value in the graph.
func (e *Executable) Shapes() map[string]shapes.Shape {
	result := make(map[string]shapes.Shape, len(e.values))
	for name, d := range e.values {
		result[name] = d.Shape().Clone()
	}
	return result
}

// parametersChanged reports whether the shapes of the parameters differ from the last inferred ones.
func (e *Executable) parametersChanged() bool {
	if e.inferredShapes == nil {
		return true
	}
	for i, p := range e.parameters {
		if !p.Shape().Equal(e.inferredShapes[i]) {
			return true
		}
	}
	return false
}

// Run executes the graph once.
//
// On the first run, and whenever a parameter shape changed since the last one, InferShape is called on every
// accumulator in order. Then Compute is called on every accumulator. The first error aborts the run.
func (e *Executable) Run() error {
	if e.finalized {
		return errors.Errorf("Executable(%q).Run called after Finalize", e.graph.Name())
	}
	device := e.config.Device.String()
	start := time.Now()
	defer func() {
		runDurationSeconds.WithLabelValues(device).Observe(time.Since(start).Seconds())
	}()

	if e.parametersChanged() {
		e.inferredShapes = nil
		shapeInferenceTotal.WithLabelValues(device).Inc()
		for _, s := range e.steps {
			if err := s.acc.InferShape(); err != nil {
				return errors.WithMessagef(err, "graph %q: shape inference of node %q (%s)", e.graph.Name(), s.node.Name, s.node.Op)
			}
		}
		e.inferredShapes = make([]shapes.Shape, len(e.parameters))
		for i, p := range e.parameters {
			e.inferredShapes[i] = p.Shape().Clone()
		}
		if klog.V(2).Enabled() {
			klog.Infof("exec: graph %q shapes inferred for inputs %v", e.graph.Name(), e.inferredShapes)
		}
	}

	for _, s := range e.steps {
		if err := s.acc.Compute(); err != nil {
			return errors.WithMessagef(err, "graph %q: compute of node %q (%s)", e.graph.Name(), s.node.Name, s.node.Op)
		}
		operatorComputeTotal.WithLabelValues(device, s.node.Op.String()).Inc()
	}
	return nil
}

// Finalize releases the references to the tensor storage, and makes the executable invalid.
func (e *Executable) Finalize() {
	if e.finalized {
		return
	}
	e.finalized = true
	allocatedBytes.Sub(float64(e.memory))
	e.values = nil
	e.parameters = nil
	e.steps = nil
}

// String implements fmt.Stringer.
func (e *Executable) String() string {
	return fmt.Sprintf("Executable(%q, %s, %d nodes)", e.graph.Name(), e.config, len(e.steps))
}
