// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package _default

import (
	"testing"

	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/backends/coreml"
	"github.com/gomlx/layerexec/backends/simplego"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	Initialize()
	Initialize()
	require.True(t, backends.Accumulators.IsFrozen())
	require.True(t, coreml.Units.IsFrozen())

	for _, op := range ops.OpTypeValues() {
		if !op.IsValid() {
			continue
		}
		_, err := backends.Accumulators.Lookup(backends.DeviceCPU, op)
		require.NoError(t, err, "accumulator for %s", op)
		_, err = coreml.Units.Lookup(backends.DeviceCoreML, op)
		require.NoError(t, err, "conversion unit for %s", op)
	}

	// The accelerator path has no per-node accumulators.
	_, err := backends.Accumulators.Lookup(backends.DeviceCoreML, ops.OpTypeStridedSlice)
	require.ErrorIs(t, err, backends.ErrNotRegistered)

	// Registration after the freeze is a programming error.
	require.Panics(t, func() { simplego.Register(backends.Accumulators) })
}
