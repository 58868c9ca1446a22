// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/layerexec/pkg/core/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Key of a registry entry.
type Key struct {
	Device DeviceKind
	Op     ops.OpType
}

// String implements fmt.Stringer.
func (k Key) String() string { return fmt.Sprintf("%s/%s", k.Device, k.Op) }

// Registry maps (device, operator) pairs to values of type F, typically factories.
//
// It is populated during a single-threaded startup phase with Register, and then frozen with Freeze.
// Register is not synchronized. Lookup never locks: once the registry is frozen it can be called
// concurrently.
type Registry[F any] struct {
	name    string
	entries map[Key]F
	frozen  atomic.Bool
}

// NewRegistry creates an empty registry. The name is used in messages.
func NewRegistry[F any](name string) *Registry[F] {
	return &Registry[F]{name: name, entries: make(map[Key]F)}
}

// Name of the registry.
func (r *Registry[F]) Name() string { return r.name }

// Register value for the (device, op) pair.
//
// It panics if the pair is already registered, if the registry is frozen, if device or op are not valid,
// or if value is nil. Those are build-time configuration bugs.
func (r *Registry[F]) Register(device DeviceKind, op ops.OpType, value F) {
	key := Key{device, op}
	if r.frozen.Load() {
		exceptions.Panicf("registry %s: Register(%s) called after the registry was frozen", r.name, key)
	}
	if !device.IsValid() || !op.IsValid() {
		exceptions.Panicf("registry %s: Register(%s) with invalid device or operator", r.name, key)
	}
	if isNil(value) {
		exceptions.Panicf("registry %s: Register(%s) with a nil value", r.name, key)
	}
	if _, found := r.entries[key]; found {
		exceptions.Panicf("registry %s: %s registered twice", r.name, key)
	}
	r.entries[key] = value
	klog.V(2).Infof("registry %s: registered %s", r.name, key)
}

// Freeze marks the registry read-only. Further calls to Register panic. Freezing twice is a no-op.
func (r *Registry[F]) Freeze() {
	if r.frozen.Swap(true) {
		return
	}
	klog.V(1).Infof("registry %s frozen with %d entries", r.name, len(r.entries))
}

// IsFrozen reports whether Freeze was called.
func (r *Registry[F]) IsFrozen() bool { return r.frozen.Load() }

// Lookup returns the value registered for (device, op), or an error wrapping ErrNotRegistered.
func (r *Registry[F]) Lookup(device DeviceKind, op ops.OpType) (F, error) {
	value, found := r.entries[Key{device, op}]
	if !found {
		var zero F
		return zero, errors.Wrapf(ErrNotRegistered, "operator %s on device %s (registry %s)", op, device, r.name)
	}
	return value, nil
}

// Keys returns the registered pairs, sorted by device and operator.
func (r *Registry[F]) Keys() []Key {
	keys := make([]Key, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if c := cmp.Compare(a.Device, b.Device); c != 0 {
			return c
		}
		return cmp.Compare(a.Op, b.Op)
	})
	return keys
}

// isNil reports whether value is a nil func, pointer, interface, map or slice.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
