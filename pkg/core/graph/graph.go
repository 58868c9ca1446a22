// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph holds the operator graph handed to the execution core by the model loader: named
// parameters, nodes in topological order, and the names of the graph outputs.
//
// The graph only describes the computation. Binding nodes to device accumulators is done by package exec,
// and translation to an external accelerator graph by the backends/coreml bridge.
package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/pkg/errors"
)

// ErrGraphConstruction is returned (wrapped) when a graph is malformed: duplicate names, an input that
// refers to a value not yet produced, or an output that doesn't exist.
var ErrGraphConstruction = errors.New("malformed graph")

// Value is a named tensor in the graph: either a parameter or the output of a node.
type Value struct {
	Name  string
	Shape shapes.Shape
}

// String implements fmt.Stringer.
func (v Value) String() string { return fmt.Sprintf("%q%s", v.Name, v.Shape) }

// Node is one operator application.
type Node struct {
	Name  string
	Op    ops.OpType
	Param ops.Param

	// Inputs are the names of the values consumed, in the operator's order.
	Inputs []string

	// Outputs are the values produced, with their declared shapes.
	Outputs []Value
}

// CheckParam returns an error wrapping ops.ErrConfiguration if the node's parameter is missing or
// doesn't match its operator kind.
func (n *Node) CheckParam() error {
	if err := ops.Check(n.Op, n.Param); err != nil {
		return errors.WithMessagef(err, "node %q", n.Name)
	}
	return nil
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	outputs := make([]string, len(n.Outputs))
	for i, v := range n.Outputs {
		outputs[i] = v.String()
	}
	return fmt.Sprintf("%s = %s:%s(%s)", strings.Join(outputs, ", "), n.Name, n.Op, strings.Join(n.Inputs, ", "))
}

// Graph of operators, in topological order.
type Graph struct {
	name       string
	parameters []Value
	nodes      []*Node
	outputs    []string
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// AddParameter declares an input of the graph, to be fed by the caller.
func (g *Graph) AddParameter(name string, shape shapes.Shape) Value {
	v := Value{Name: name, Shape: shape}
	g.parameters = append(g.parameters, v)
	return v
}

// AddNode appends a node to the graph. Nodes must be added in topological order, which is checked
// by Validate and by the consumers of the graph, not here.
func (g *Graph) AddNode(name string, op ops.OpType, param ops.Param, inputs []string, outputs ...Value) *Node {
	node := &Node{
		Name:    name,
		Op:      op,
		Param:   param,
		Inputs:  inputs,
		Outputs: outputs,
	}
	g.nodes = append(g.nodes, node)
	return node
}

// MarkOutputs appends the named values to the outputs of the graph.
func (g *Graph) MarkOutputs(names ...string) {
	g.outputs = append(g.outputs, names...)
}

// Parameters returns the graph inputs. Don't modify the returned slice.
func (g *Graph) Parameters() []Value { return g.parameters }

// Nodes returns the nodes in order. Don't modify the returned slice.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Outputs returns the names of the graph outputs. Don't modify the returned slice.
func (g *Graph) Outputs() []string { return g.outputs }

// Validate checks the structure of the graph: value and node names are unique, every node input
// refers to a parameter or to the output of an earlier node, every declared shape is valid, and every
// graph output exists.
//
// Operator parameters are not checked here, see Node.CheckParam.
func (g *Graph) Validate() error {
	values := make(map[string]bool, len(g.parameters)+len(g.nodes))
	declare := func(v Value, owner string) error {
		if v.Name == "" {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: %s declares a value with an empty name", g.name, owner)
		}
		if values[v.Name] {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: value %q declared more than once (by %s)", g.name, v.Name, owner)
		}
		if !v.Shape.Ok() {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: value %q declared by %s has an invalid shape", g.name, v.Name, owner)
		}
		values[v.Name] = true
		return nil
	}
	for _, p := range g.parameters {
		if err := declare(p, "parameter"); err != nil {
			return err
		}
	}

	nodeNames := make(map[string]bool, len(g.nodes))
	for _, node := range g.nodes {
		if nodeNames[node.Name] {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: node name %q used more than once", g.name, node.Name)
		}
		nodeNames[node.Name] = true
		if !node.Op.IsValid() {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: node %q has invalid operator %s", g.name, node.Name, node.Op)
		}
		for _, input := range node.Inputs {
			if !values[input] {
				return errors.Wrapf(ErrGraphConstruction, "graph %q: node %q consumes %q, which is not produced by any earlier node or parameter",
					g.name, node.Name, input)
			}
		}
		if len(node.Outputs) == 0 {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: node %q has no outputs", g.name, node.Name)
		}
		for _, output := range node.Outputs {
			if err := declare(output, fmt.Sprintf("node %q", node.Name)); err != nil {
				return err
			}
		}
	}

	for _, output := range g.outputs {
		if !values[output] {
			return errors.Wrapf(ErrGraphConstruction, "graph %q: output %q does not exist", g.name, output)
		}
	}
	return nil
}

// String returns a multi-line listing of the graph.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph %q:\n", g.name)
	for _, p := range g.parameters {
		fmt.Fprintf(&sb, "\tparameter %s\n", p)
	}
	for _, node := range g.nodes {
		fmt.Fprintf(&sb, "\t%s\n", node)
	}
	fmt.Fprintf(&sb, "\toutputs: %s\n", strings.Join(g.outputs, ", "))
	return sb.String()
}
