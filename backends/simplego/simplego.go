// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements the general compute (CPU) device in pure Go.
//
// It provides accumulators for the strided slice, identity, reshape and flatten operators. The strided slice
// compute loop is data-parallel over output offsets, see backends.Config for how to control it.
package simplego

import (
	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/pkg/core/ops"
)

// Device this package implements.
const Device = backends.DeviceCPU

// Register the accumulator factories of this device in r.
//
// It must be called during startup, before r is frozen: see package backends/default.
func Register(r *backends.Registry[backends.AccumulatorFactory]) {
	r.Register(Device, ops.OpTypeIdentity, newIdentity)
	r.Register(Device, ops.OpTypeReshape, newReshape)
	r.Register(Device, ops.OpTypeStridedSlice, newStridedSlice)
	r.Register(Device, ops.OpTypeFlatten, newFlatten)
}
