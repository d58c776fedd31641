// Package ffitypes provides ownership-aware wrappers for boxed values, slices
// and strings that cross a C function-call boundary without copying.
//
// Types come in pairs. The owned form (OptionBox, BoxedSlice, BoxedStr, ...)
// carries drop behavior: it owns at most one allocation made by the foreign
// allocating side and releases it exactly once through the installed
// Allocator. The raw form (CBox, CBoxedSlice, CBoxedStr, ...) is a plain
// pointer/length struct with the exact memory layout the calling convention
// expects and no drop behavior at all. It exists only to pass through the
// boundary.
//
// A raw boxed value is a pending obligation: every one produced must be
// converted to its owned counterpart (Owned) or handed back across the
// boundary exactly once. Holding a raw boxed value and doing neither leaks
// the allocation.
//
// Moving an owned value (Take, Release, Into) leaves the source empty, and
// dropping an empty value is a no-op, so each allocation is released at most
// once no matter how many times it changes hands.
//
// Slice and string wrappers store their data word as a bare address, not a
// typed Go pointer: empty values hold the reserved sentinel address, which
// must never enter a pointer the runtime scans. Typed pointers are
// materialized only for non-empty values.
//
// All memory handed to these wrappers must originate from the allocating
// side. This package never allocates or frees backing storage itself except
// through the Allocator hooks.
package ffitypes

import "unsafe"

// sentinelAddr is the reserved non-null address marking "empty, no backing
// storage" for slices and strings. The allocating side never produces a null
// data pointer, even for empty slices, so null cannot serve as the empty
// marker. The sentinel is never dereferenced and never passed to the
// allocator: every destroy path checks the length first.
const sentinelAddr uintptr = 1

// wrapAddr captures p's address as a bare word, substituting the sentinel
// for nil so that wrapped slices and strings always carry a non-null data
// word.
func wrapAddr[T any](p *T) uintptr {
	if p == nil {
		return sentinelAddr
	}
	return uintptr(unsafe.Pointer(p))
}

// ptrAt converts a stored data word back to a typed pointer. Nil for a zero
// length, so the sentinel never becomes a typed pointer.
func ptrAt[T any](addr, n uintptr) *T {
	if n == 0 {
		return nil
	}
	//nolint:govet,gosec // addr points into foreign or pinned storage
	return (*T)(unsafe.Pointer(addr))
}

// Extent is a bare pointer/length pair describing the backing storage of a
// slice or string. It is the value Release hands back when an owned wrapper
// gives up its allocation without dropping it. Empty extents carry a nil
// Data pointer.
type Extent[T any] struct {
	Data *T
	Len  uintptr
}

// goSlice reconstitutes a Go slice over a stored data word. Returns nil for
// a zero length so the sentinel is never dereferenced.
func goSlice[T any](addr, n uintptr) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(ptrAt[T](addr, n), n)
}
