// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors defines the Descriptor: the shape plus a borrowed reference to the storage of a tensor,
// as seen by the operators.
//
// Descriptors never own their storage: it is handed out by an Allocator (the tensor storage provider)
// that lives outside of the execution core. Operators read the shape and the raw bytes, and write only
// to the storage of their output descriptors.
package tensors

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/layerexec/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Descriptor of a tensor: its shape and a borrowed reference to its storage.
//
// The storage may be larger than what the shape requires, which allows the shape to be changed
// (see Reshape) without reallocating. The invariant len(storage) >= shape.Memory() always holds.
type Descriptor struct {
	shape   shapes.Shape
	storage []byte
}

// New creates a Descriptor for the given shape backed by storage.
//
// It returns an error if the shape is invalid or storage is smaller than shape.Memory().
func New(shape shapes.Shape, storage []byte) (*Descriptor, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("tensors.New: invalid shape %s", shape)
	}
	if uintptr(len(storage)) < shape.Memory() {
		return nil, errors.Errorf("tensors.New: storage of %d bytes is too small for shape %s, which requires %d bytes",
			len(storage), shape, shape.Memory())
	}
	return &Descriptor{shape: shape.Clone(), storage: storage}, nil
}

// Shape returns the current shape of the tensor. Don't modify the returned Dimensions.
func (d *Descriptor) Shape() shapes.Shape { return d.shape }

// DType returns the element kind of the tensor.
func (d *Descriptor) DType() dtypes.DType { return d.shape.DType }

// Size returns the number of elements.
func (d *Descriptor) Size() int { return d.shape.Size() }

// Capacity returns the number of bytes of the underlying storage.
func (d *Descriptor) Capacity() int { return len(d.storage) }

// Bytes returns the portion of the storage used by the current shape.
func (d *Descriptor) Bytes() []byte {
	return d.storage[:d.shape.Memory()]
}

// Reshape changes the shape of the descriptor, keeping the same storage.
//
// The dtype can't change, and the storage must be large enough for the new shape.
func (d *Descriptor) Reshape(shape shapes.Shape) error {
	if shape.DType != d.shape.DType {
		return errors.Errorf("Descriptor.Reshape(%s): dtype cannot change from %s", shape, d.shape.DType)
	}
	if uintptr(len(d.storage)) < shape.Memory() {
		return errors.Errorf("Descriptor.Reshape(%s): storage of %s is too small, it requires %s",
			shape, humanize.Bytes(uint64(len(d.storage))), humanize.Bytes(uint64(shape.Memory())))
	}
	d.shape = shape.Clone()
	return nil
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.shape, humanize.Bytes(uint64(d.shape.Memory())))
}

// Flat returns the storage of the descriptor viewed as a flat slice of T, with d.Size() elements.
//
// It returns an error if T doesn't match the descriptor dtype. The returned slice aliases the storage.
func Flat[T dtypes.Supported](d *Descriptor) ([]T, error) {
	dtype := dtypes.FromGenericsType[T]()
	if dtype != d.shape.DType {
		var zero T
		return nil, errors.Errorf("tensors.Flat[%T]: descriptor has dtype %s, not %s", zero, d.shape.DType, dtype)
	}
	return unsafeFlat[T](d.storage, d.shape.Size()), nil
}

// MustFlat is like Flat, but panics in case of a dtype mismatch.
func MustFlat[T dtypes.Supported](d *Descriptor) []T {
	flat, err := Flat[T](d)
	if err != nil {
		panic(err)
	}
	return flat
}

// unsafeFlat reinterprets the first n elements of storage as a []T.
func unsafeFlat[T any](storage []byte, n int) []T {
	if n == 0 {
		return []T{}
	}
	var zero T
	if uintptr(len(storage)) < uintptr(n)*unsafe.Sizeof(zero) {
		exceptions.Panicf("tensors: storage of %d bytes can't hold %d elements of %T", len(storage), n, zero)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&storage[0])), n)
}

// CopyFlatData returns a copy of the contents of the descriptor as a flat slice of T.
func CopyFlatData[T dtypes.Supported](d *Descriptor) ([]T, error) {
	flat, err := Flat[T](d)
	if err != nil {
		return nil, err
	}
	return append([]T(nil), flat...), nil
}

// FromFlatDataAndDimensions creates a Descriptor with freshly allocated storage, holding a copy of data.
//
// It is mostly used by tests and by callers feeding inputs. It panics if len(data) doesn't match the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Descriptor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions: got %d elements, but shape %s requires %d", len(data), shape, shape.Size())
	}
	d := &Descriptor{shape: shape, storage: make([]byte, shape.Memory())}
	copy(unsafeFlat[T](d.storage, len(data)), data)
	return d
}
