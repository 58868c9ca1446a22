// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines the operator kinds supported by the execution core and their typed parameters.
//
// Each OpType has exactly one Param type, and a graph node carries its parameter as an ops.Param.
// The mapping is checked once, when the node is bound to an accumulator, so operators never need to
// downcast a generic parameter record at compute time.
package ops

// OpType is an enum of the operator kinds known to the execution core.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeIdentity
	OpTypeReshape
	OpTypeStridedSlice
	OpTypeFlatten

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// IsValid returns whether op is one of the defined operator kinds, excluding OpTypeInvalid and OpTypeLast.
func (op OpType) IsValid() bool {
	return op > OpTypeInvalid && op < OpTypeLast
}
