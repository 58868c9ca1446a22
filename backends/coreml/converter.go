// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package coreml

import (
	"github.com/gomlx/go-coreml/model"
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/graph"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/klog/v2"
)

// Device this package converts graphs for.
const Device = backends.DeviceCoreML

// Converter translates graph nodes, one at a time and in topological order, into a MIL program.
//
// It is not safe for concurrent use: conversion runs once, synchronously, at model-build time.
type Converter struct {
	name  string
	units *backends.Registry[Unit]
	mil   *model.Builder

	// table maps graph value names to their MIL handles, in the order they were registered.
	table *orderedmap.OrderedMap[string, *Handle]

	// milNames holds the names of the values defined in the MIL program: inputs and operation outputs.
	milNames map[string]bool

	nodes   []*Node
	outputs []string

	// err is the first error: once set, the conversion is aborted.
	err      error
	finished bool
}

// NewConverter creates a Converter for a MIL program with the given name, using the units in Units.
func NewConverter(name string) *Converter {
	return NewConverterWithUnits(name, Units)
}

// NewConverterWithUnits creates a Converter that resolves conversion units in the given registry.
func NewConverterWithUnits(name string, units *backends.Registry[Unit]) *Converter {
	return &Converter{
		name:     name,
		units:    units,
		mil:      model.NewBuilder(name),
		table:    orderedmap.New[string, *Handle](),
		milNames: make(map[string]bool),
	}
}

// Name of the program being built.
func (c *Converter) Name() string { return c.name }

// Err returns the error that aborted the conversion, if any.
func (c *Converter) Err() error { return c.err }

// abort records the first error. Conversion can't continue after it.
func (c *Converter) abort(err error) error {
	if c.err == nil {
		c.err = err
		klog.V(1).Infof("coreml: conversion of %q aborted: %v", c.name, err)
	}
	return c.err
}

func (c *Converter) checkUsable(method string) error {
	if c.err != nil {
		return c.err
	}
	if c.finished {
		return errors.Errorf("coreml.Converter(%q).%s called after Finish", c.name, method)
	}
	return nil
}

// Lookup returns the handle registered for the graph value name.
func (c *Converter) Lookup(name string) (*Handle, bool) {
	return c.table.Get(name)
}

// ValueNames returns the names of the values converted so far, in the order they were registered.
func (c *Converter) ValueNames() []string {
	names := make([]string, 0, c.table.Len())
	for pair := c.table.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Nodes returns the nodes converted so far.
func (c *Converter) Nodes() []*Node { return c.nodes }

// Declare adds an input to the program, registered under name.
func (c *Converter) Declare(name string, shape shapes.Shape) (*Handle, error) {
	if err := c.checkUsable("Declare"); err != nil {
		return nil, err
	}
	if _, found := c.table.Get(name); found || c.milNames[name] {
		return nil, c.abort(errors.Wrapf(graph.ErrGraphConstruction, "coreml: input %q declared more than once", name))
	}
	dtype, err := DTypeToMIL(shape.DType)
	if err != nil {
		return nil, c.abort(errors.WithMessagef(err, "coreml: input %q", name))
	}
	h := &Handle{value: c.mil.Input(name, dtype, dimsToMIL(shape.Dimensions)...)}
	c.table.Set(name, h)
	c.milNames[name] = true
	return h, nil
}

// ConvertNode converts one graph node and registers its outputs for the nodes downstream.
//
// Every input of the node must have been registered already, either by Declare or by the conversion of an
// earlier node. Any error aborts the whole conversion.
func (c *Converter) ConvertNode(source *graph.Node) (*Node, error) {
	if err := c.checkUsable("ConvertNode"); err != nil {
		return nil, err
	}
	node, err := c.convertNode(source)
	if err != nil {
		return nil, c.abort(err)
	}
	c.nodes = append(c.nodes, node)
	if klog.V(2).Enabled() {
		klog.Infof("coreml: converted %s", node)
	}
	return node, nil
}

func (c *Converter) convertNode(source *graph.Node) (*Node, error) {
	if err := source.CheckParam(); err != nil {
		return nil, err
	}
	unit, err := c.units.Lookup(Device, source.Op)
	if err != nil {
		return nil, errors.WithMessagef(err, "converting node %q", source.Name)
	}

	node := &Node{source: source}
	inputs := make([]*model.Value, len(source.Inputs))
	for i, name := range source.Inputs {
		h, found := c.table.Get(name)
		if !found {
			return nil, errors.Wrapf(graph.ErrGraphConstruction,
				"converting node %q: upstream value %q was not converted yet (malformed or out-of-order graph)", source.Name, name)
		}
		node.inputs = append(node.inputs, h)
		inputs[i] = h.value
	}
	for _, output := range source.Outputs {
		if _, found := c.table.Get(output.Name); found {
			return nil, errors.Wrapf(graph.ErrGraphConstruction, "converting node %q: output name %q already registered",
				source.Name, output.Name)
		}
	}

	if err := unit(c.mil, node, inputs); err != nil {
		return nil, errors.WithMessagef(err, "converting node %q (%s)", source.Name, source.Op)
	}
	node.sealed = true
	if err := c.mil.Err(); err != nil {
		return nil, errors.Wrapf(graph.ErrGraphConstruction, "converting node %q (%s): MIL builder failed: %v", source.Name, source.Op, err)
	}

	if len(node.outputs) != len(source.Outputs) {
		return nil, errors.Wrapf(graph.ErrGraphConstruction, "converting node %q (%s): produced %d outputs, %d declared",
			source.Name, source.Op, len(node.outputs), len(source.Outputs))
	}
	for i, output := range source.Outputs {
		h := node.outputs[i]
		if !shapeMatches(output.Shape, h.DType(), h.Shape()) {
			return nil, errors.Wrapf(graph.ErrGraphConstruction, "converting node %q (%s): output %q declared as %s, but MIL value is %s",
				source.Name, source.Op, output.Name, output.Shape, h)
		}
	}
	milNames := make(map[string]bool, len(node.outputs))
	for _, h := range node.outputs {
		if c.milNames[h.Name()] || milNames[h.Name()] {
			return nil, errors.Wrapf(graph.ErrGraphConstruction, "converting node %q (%s): MIL value name %q is already used in the program",
				source.Name, source.Op, h.Name())
		}
		milNames[h.Name()] = true
	}
	for i, output := range source.Outputs {
		c.table.Set(output.Name, node.outputs[i])
		c.milNames[node.outputs[i].Name()] = true
	}
	return node, nil
}

// MarkOutput marks the registered value name as an output of the program, under the same name.
func (c *Converter) MarkOutput(name string) error {
	if err := c.checkUsable("MarkOutput"); err != nil {
		return err
	}
	h, found := c.table.Get(name)
	if !found {
		return c.abort(errors.Wrapf(graph.ErrGraphConstruction, "coreml: output %q was not converted", name))
	}
	if name != h.Name() && c.milNames[name] {
		// Renaming the output would define a second MIL value with the same name.
		return c.abort(errors.Wrapf(graph.ErrGraphConstruction, "coreml: output %q (MIL value %q) clashes with another MIL value name",
			name, h.Name()))
	}
	c.mil.Output(name, h.value)
	c.milNames[name] = true
	c.outputs = append(c.outputs, name)
	return nil
}

// Finish builds the Program. The Converter can't be used afterwards.
func (c *Converter) Finish() (*Program, error) {
	if err := c.checkUsable("Finish"); err != nil {
		return nil, err
	}
	if len(c.outputs) == 0 {
		return nil, c.abort(errors.Wrapf(graph.ErrGraphConstruction, "coreml: program %q has no outputs", c.name))
	}
	if err := c.mil.Err(); err != nil {
		return nil, c.abort(errors.Wrapf(graph.ErrGraphConstruction, "coreml: program %q: %v", c.name, err))
	}
	c.finished = true
	p := &Program{
		Name:    c.name,
		MIL:     c.mil.Build(),
		Inputs:  c.mil.InputSpecs(),
		Outputs: c.mil.OutputSpecs(),
		Nodes:   c.nodes,
	}
	klog.V(1).Infof("coreml: program %q converted: %d nodes, %d inputs, %d outputs", c.name, len(p.Nodes), len(p.Inputs), len(p.Outputs))
	return p, nil
}

// Program is the result of a conversion. It is shared read-only with the CoreML compiler: don't modify it.
type Program struct {
	Name string

	// MIL is the program proto, ready to be serialized and compiled by CoreML.
	MIL *model.Program

	Inputs, Outputs []model.FeatureSpec

	// Nodes converted, in order, with their attributes.
	Nodes []*Node
}

// Convert translates the whole graph: it declares the parameters, converts every node in order and
// marks the graph outputs. The first error aborts the conversion and no Program is returned.
func Convert(g *graph.Graph) (*Program, error) {
	return ConvertWithUnits(g, Units)
}

// ConvertWithUnits is like Convert, but resolves conversion units in the given registry.
func ConvertWithUnits(g *graph.Graph, units *backends.Registry[Unit]) (*Program, error) {
	c := NewConverterWithUnits(g.Name(), units)
	for _, p := range g.Parameters() {
		if _, err := c.Declare(p.Name, p.Shape); err != nil {
			return nil, errors.WithMessagef(err, "converting graph %q", g.Name())
		}
	}
	for _, node := range g.Nodes() {
		if _, err := c.ConvertNode(node); err != nil {
			return nil, errors.WithMessagef(err, "converting graph %q", g.Name())
		}
	}
	for _, output := range g.Outputs() {
		if err := c.MarkOutput(output); err != nil {
			return nil, errors.WithMessagef(err, "converting graph %q", g.Name())
		}
	}
	p, err := c.Finish()
	if err != nil {
		return nil, errors.WithMessagef(err, "converting graph %q", g.Name())
	}
	return p, nil
}
