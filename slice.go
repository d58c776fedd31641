package ffitypes

import "unsafe"

// MutSliceRef is a mutable, non-owning pointer/length view of a contiguous
// run of T. It is trivially copyable, never responsible for freeing, and
// valid only while the referenced storage is alive. A view built over a null
// pointer is wrapped to the empty sentinel.
type MutSliceRef[T any] struct {
	data uintptr
	size uintptr
}

// NewMutSliceRef captures the data pointer and element count of a Go slice.
// The view holds a bare address, not a reference: the caller must keep s
// alive (runtime.KeepAlive) for as long as the view is read.
func NewMutSliceRef[T any](s []T) MutSliceRef[T] {
	return MutSliceRef[T]{
		data: wrapAddr(unsafe.SliceData(s)),
		size: uintptr(len(s)),
	}
}

// MutSliceRefFromPtr wraps a raw pointer and length. A nil pointer is
// substituted with the empty sentinel.
func MutSliceRefFromPtr[T any](p *T, n uintptr) MutSliceRef[T] {
	return MutSliceRef[T]{data: wrapAddr(p), size: n}
}

// Len returns the element count.
func (s MutSliceRef[T]) Len() int { return int(s.size) }

// SizeBytes returns the byte extent of the view.
func (s MutSliceRef[T]) SizeBytes() uintptr {
	var zero T
	return s.size * unsafe.Sizeof(zero)
}

// IsEmpty reports whether the view has no elements.
func (s MutSliceRef[T]) IsEmpty() bool { return s.size == 0 }

// Data returns the data pointer, nil when the view is empty. The stored
// data word of an empty view is the sentinel; see DataAddr.
func (s MutSliceRef[T]) Data() *T { return ptrAt[T](s.data, s.size) }

// DataAddr returns the stored data word: the backing address for a
// non-empty view, the sentinel for an empty one.
func (s MutSliceRef[T]) DataAddr() uintptr { return s.data }

// At returns the element at index i. Out-of-bounds access is a contract
// violation and panics.
func (s MutSliceRef[T]) At(i int) T {
	s.check(i)
	return *s.elem(i)
}

// Set stores v at index i. Out-of-bounds access panics.
func (s MutSliceRef[T]) Set(i int, v T) {
	s.check(i)
	*s.elem(i) = v
}

// Front returns the first element. Panics when empty.
func (s MutSliceRef[T]) Front() T { return s.At(0) }

// Back returns the last element. Panics when empty.
func (s MutSliceRef[T]) Back() T { return s.At(int(s.size) - 1) }

// Slice returns the view as a Go slice sharing the same backing storage.
// Nil when empty.
func (s MutSliceRef[T]) Slice() []T { return goSlice[T](s.data, s.size) }

// Extent returns the bare pointer/length pair.
func (s MutSliceRef[T]) Extent() Extent[T] {
	return Extent[T]{Data: ptrAt[T](s.data, s.size), Len: s.size}
}

// ReadOnly narrows the view to a SliceRef.
func (s MutSliceRef[T]) ReadOnly() SliceRef[T] {
	return SliceRef[T]{MutSliceRef[T]{data: s.data, size: s.size}}
}

// Into copies the view into its raw boundary form.
func (s MutSliceRef[T]) Into() CMutSliceRef[T] {
	return CMutSliceRef[T]{data: s.data, size: s.size}
}

func (s MutSliceRef[T]) check(i int) {
	if i < 0 || uintptr(i) >= s.size {
		panic("ffitypes: slice index out of range")
	}
}

func (s MutSliceRef[T]) elem(i int) *T {
	var zero T
	//nolint:govet,gosec // bounds-checked offset into foreign or pinned storage
	return (*T)(unsafe.Pointer(s.data + uintptr(i)*unsafe.Sizeof(zero)))
}

// SliceRef is the read-only variant of MutSliceRef. The restriction is a
// nominal one: the two share a layout, and SliceRef simply exposes no
// mutating operations.
type SliceRef[T any] struct {
	inner MutSliceRef[T]
}

// NewSliceRef captures the data pointer and element count of a Go slice.
func NewSliceRef[T any](s []T) SliceRef[T] {
	return NewMutSliceRef(s).ReadOnly()
}

// SliceRefFromPtr wraps a raw pointer and length, substituting the sentinel
// for nil.
func SliceRefFromPtr[T any](p *T, n uintptr) SliceRef[T] {
	return MutSliceRefFromPtr(p, n).ReadOnly()
}

// BytesOf views a fixed-size value as a read-only byte slice ref. The view
// borrows v's storage and must not outlive it.
func BytesOf[T any](v *T) SliceRef[byte] {
	return SliceRefFromPtr((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// Len returns the element count.
func (s SliceRef[T]) Len() int { return s.inner.Len() }

// SizeBytes returns the byte extent of the view.
func (s SliceRef[T]) SizeBytes() uintptr { return s.inner.SizeBytes() }

// IsEmpty reports whether the view has no elements.
func (s SliceRef[T]) IsEmpty() bool { return s.inner.IsEmpty() }

// Data returns the data pointer, nil when empty.
func (s SliceRef[T]) Data() *T { return s.inner.Data() }

// DataAddr returns the stored data word (the sentinel when empty).
func (s SliceRef[T]) DataAddr() uintptr { return s.inner.DataAddr() }

// At returns the element at index i, panicking when out of bounds.
func (s SliceRef[T]) At(i int) T { return s.inner.At(i) }

// Front returns the first element. Panics when empty.
func (s SliceRef[T]) Front() T { return s.inner.Front() }

// Back returns the last element. Panics when empty.
func (s SliceRef[T]) Back() T { return s.inner.Back() }

// Slice returns the view as a Go slice sharing the backing storage.
func (s SliceRef[T]) Slice() []T { return s.inner.Slice() }

// Extent returns the bare pointer/length pair.
func (s SliceRef[T]) Extent() Extent[T] { return s.inner.Extent() }

// Into copies the view into its raw boundary form. Byte element views that
// must match a byte-specific generated signature use IntoByteRef instead.
func (s SliceRef[T]) Into() CSliceRef[T] {
	return CSliceRef[T]{data: s.inner.data, size: s.inner.size}
}

// IntoByteRef copies a byte view into the byte-specific raw form. The
// generic and byte raw layouts are identical bit for bit, but the boundary
// generator emits distinct nominal types for them.
func IntoByteRef(s SliceRef[byte]) CByteSliceRef {
	return CByteSliceRef{data: s.inner.data, size: s.inner.size}
}

// CharStrFromBytes reinterprets a byte view as unvalidated text.
func CharStrFromBytes(s SliceRef[byte]) CharStrRef {
	return CharStrRef{data: s.inner.data, size: s.inner.size}
}

// StrFromBytesUnchecked reinterprets a byte view as trusted UTF-8 text
// without validating it. The caller asserts validity.
func StrFromBytesUnchecked(s SliceRef[byte]) StrRef {
	return CharStrFromBytes(s).AsStrUnchecked()
}

// CMutSliceRef is the raw boundary form of MutSliceRef: a plain
// pointer/length struct with no behavior beyond field transfer.
type CMutSliceRef[T any] struct {
	data uintptr
	size uintptr
}

// Ref copies the raw value back into its borrowing counterpart.
func (c CMutSliceRef[T]) Ref() MutSliceRef[T] {
	return MutSliceRef[T]{data: c.data, size: c.size}
}

// CSliceRef is the raw boundary form of SliceRef.
type CSliceRef[T any] struct {
	data uintptr
	size uintptr
}

// Ref copies the raw value back into its borrowing counterpart.
func (c CSliceRef[T]) Ref() SliceRef[T] {
	return SliceRef[T]{MutSliceRef[T]{data: c.data, size: c.size}}
}

// CByteSliceRef is the byte-specific raw form of SliceRef[byte]. It is
// structurally identical to CSliceRef[byte] but kept nominally distinct so
// generated boundary signatures can tell the two apart.
type CByteSliceRef struct {
	data uintptr
	size uintptr
}

// Ref copies the raw value back into its borrowing counterpart.
func (c CByteSliceRef) Ref() SliceRef[byte] {
	return SliceRef[byte]{MutSliceRef[byte]{data: c.data, size: c.size}}
}
