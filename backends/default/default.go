// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default registers the default devices, namely SimpleGo (CPU) and the CoreML conversion bridge,
// and freezes the registries.
//
// To use it simply include:
//
//	import _ "github.com/gomlx/layerexec/backends/default"
//
// Packages that register their own accumulators or conversion units must do it before this package is
// initialized, or build their startup sequence on Initialize instead.
package _default

import (
	"sync"

	"github.com/gomlx/layerexec/backends"
	"github.com/gomlx/layerexec/backends/coreml"
	"github.com/gomlx/layerexec/backends/simplego"
	"k8s.io/klog/v2"
)

var initOnce sync.Once

func init() {
	Initialize()
}

// Initialize registers every default device in backends.Accumulators and coreml.Units, and freezes both.
// It is idempotent.
func Initialize() {
	initOnce.Do(func() {
		simplego.Register(backends.Accumulators)
		coreml.Register(coreml.Units)
		backends.Accumulators.Freeze()
		coreml.Units.Freeze()
		klog.V(1).Infof("default devices registered: %d accumulators, %d conversion units",
			len(backends.Accumulators.Keys()), len(coreml.Units.Keys()))
	})
}
