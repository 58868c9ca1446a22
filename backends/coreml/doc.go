// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package coreml is the Graph Conversion Bridge for the CoreML accelerator path.
//
// Architectures executed on CoreML are not run node by node: at model-build time each graph node is
// translated into one node of a CoreML MIL (Machine Learning Intermediate Language) program, using the
// pure Go builder in github.com/gomlx/go-coreml/model. The resulting Program is compiled and executed by
// CoreML itself, this package never computes anything.
//
// # Usage
//
//	program, err := coreml.Convert(g)
//
// Or, node by node:
//
//	c := coreml.NewConverter("main")
//	c.Declare("x", shapes.Make(dtypes.Float32, 2, 4))
//	_, err := c.ConvertNode(node)
//	...
//	err = c.MarkOutput("y")
//	program, err := c.Finish()
//
// # Errors
//
// A node whose inputs were not converted yet (malformed or out-of-order graph) is a
// graph.ErrGraphConstruction, and it aborts the whole conversion: after the first error every further
// call on the Converter returns it, and no Program is produced. Element kinds without a MIL data type
// (BFloat16, unsigned integers) and negative strides are backends.ErrUnsupported. Value names share one
// namespace in the MIL program, so a graph value or output named like a generated MIL value (e.g. "slice_3")
// is also a graph.ErrGraphConstruction.
//
// # Conversion units
//
// Each operator kind is converted by a Unit registered in Units, keyed by (backends.DeviceCoreML, op).
// Register adds the units of this package, see package backends/default.
package coreml
