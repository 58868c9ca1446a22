// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package coreml

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-coreml/model"
	"github.com/gomlx/layerexec/pkg/core/graph"
	"github.com/gomlx/layerexec/pkg/core/ops"
)

// Handle is a reference to a value in the MIL program being built. It is shared with the MIL builder,
// which keeps its own reference: it is never mutated once recorded.
type Handle struct {
	value *model.Value
}

// Name of the MIL value. It may differ from the graph value name it was registered under.
func (h *Handle) Name() string { return h.value.Name() }

// Shape of the MIL value.
func (h *Handle) Shape() []int64 { return slices.Clone(h.value.Shape()) }

// DType of the MIL value.
func (h *Handle) DType() model.DType { return h.value.DType() }

// String implements fmt.Stringer.
func (h *Handle) String() string { return fmt.Sprintf("%s(%s)%v", h.value.Name(), h.value.DType(), h.value.Shape()) }

// Attribute is an operator attribute recorded by the conversion unit.
type Attribute struct {
	Name   string
	Values []int64
}

// Node is the MIL side of one converted graph node.
//
// A Unit receives it with its inputs bound, and fills in its outputs and attributes. After the unit
// returns the Node is sealed and becomes read-only.
type Node struct {
	source     *graph.Node
	inputs     []*Handle
	outputs    []*Handle
	attributes []Attribute
	sealed     bool
}

// Name of the source graph node.
func (n *Node) Name() string { return n.source.Name }

// Op returns the operator kind of the source graph node.
func (n *Node) Op() ops.OpType { return n.source.Op }

// Param returns the parameter of the source graph node.
func (n *Node) Param() ops.Param { return n.source.Param }

// Source returns the graph node this node was converted from.
func (n *Node) Source() *graph.Node { return n.source }

// Inputs returns the handles bound to the node inputs, in the order of the source node inputs.
func (n *Node) Inputs() []*Handle { return n.inputs }

// Outputs returns the handles produced by the node, in the order of the source node outputs.
func (n *Node) Outputs() []*Handle { return n.outputs }

// Attributes returns the attributes set by the unit, in the order they were set.
func (n *Node) Attributes() []Attribute { return n.attributes }

// Attribute returns the values of the named attribute, and whether it was set.
func (n *Node) Attribute(name string) ([]int64, bool) {
	for _, attr := range n.attributes {
		if attr.Name == name {
			return attr.Values, true
		}
	}
	return nil, false
}

// SetAttribute records an attribute of the MIL operation. It can only be called by the Unit converting the node.
func (n *Node) SetAttribute(name string, values []int64) {
	n.assertNotSealed("SetAttribute")
	n.attributes = append(n.attributes, Attribute{Name: name, Values: slices.Clone(values)})
}

// AddOutput records the next output of the node. It can only be called by the Unit converting the node.
func (n *Node) AddOutput(value *model.Value) {
	n.assertNotSealed("AddOutput")
	n.outputs = append(n.outputs, &Handle{value: value})
}

func (n *Node) assertNotSealed(method string) {
	if n.sealed {
		exceptions.Panicf("coreml.Node.%s called on node %q after its conversion finished", method, n.source.Name)
	}
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s:%s(inputs=%v, outputs=%v, attributes=%v)", n.source.Name, n.source.Op, n.inputs, n.outputs, n.attributes)
}
