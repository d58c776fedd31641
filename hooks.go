package ffitypes

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Allocator is the set of boundary calls the allocating side must supply.
// Every drop and clone performed by the owned types in this package goes
// through exactly one of these hooks, with a raw (boundary-layout) value
// built by moving the owned value's fields into it.
//
// The hooks are never invoked for empty values: drop paths check length
// (or pointer nullity for scalar boxes) before calling out, since freeing
// the empty sentinel is undefined.
type Allocator interface {
	// DropBoxedString deallocates the backing storage of a boxed string.
	DropBoxedString(s CBoxedStr)
	// DropBoxedBytes deallocates the backing storage of a boxed byte slice.
	DropBoxedBytes(b CBoxedByteSlice)
	// CloneBoxedString allocates a fresh copy of the boxed string.
	CloneBoxedString(s *CBoxedStr) CBoxedStr
	// CloneBoxedBytes allocates a fresh copy of the boxed byte slice.
	CloneBoxedBytes(b *CBoxedByteSlice) CBoxedByteSlice
	// DropBox deallocates a scalar box given its pointer alone.
	DropBox(ptr unsafe.Pointer)
}

var (
	allocatorMu sync.RWMutex
	// installed is the process-wide allocating side. Everything in this
	// package that needs to release or duplicate foreign memory calls
	// through it.
	installed Allocator
)

// Install sets the process-wide allocating side and returns the previously
// installed one (nil if none). It must be called before any owned value is
// dropped or cloned.
func Install(a Allocator) Allocator {
	allocatorMu.Lock()
	defer allocatorMu.Unlock()
	prev := installed
	installed = a
	return prev
}

// allocator returns the installed allocating side or panics. Dropping
// foreign memory with no allocator to receive it is a wiring bug, not a
// runtime condition.
func allocator() Allocator {
	allocatorMu.RLock()
	defer allocatorMu.RUnlock()
	if installed == nil {
		panic("ffitypes: no allocator installed")
	}
	return installed
}

// SliceGlue supplies drop and clone behavior for BoxedSlice elements other
// than bytes. Byte slices always go through the Allocator hooks directly;
// any other element type must have glue registered before a live
// BoxedSlice of it is dropped or cloned.
type SliceGlue[T any] struct {
	Drop  func(Extent[T])
	Clone func(Extent[T]) Extent[T]
}

// sliceGlues maps an element type to its SliceGlue[T].
var sliceGlues sync.Map // reflect.Type -> any

// RegisterSliceGlue installs drop/clone glue for BoxedSlice[T]. Registering
// glue for byte elements is a programming error: bytes are routed to the
// Allocator hooks unconditionally.
func RegisterSliceGlue[T any](g SliceGlue[T]) {
	var zero T
	if _, isByte := any(zero).(byte); isByte {
		panic("ffitypes: byte slices use the allocator hooks, not registered glue")
	}
	sliceGlues.Store(reflect.TypeOf((*T)(nil)), g)
}

func sliceGlueFor[T any]() (SliceGlue[T], bool) {
	v, ok := sliceGlues.Load(reflect.TypeOf((*T)(nil)))
	if !ok {
		return SliceGlue[T]{}, false
	}
	return v.(SliceGlue[T]), true
}

func noGluePanic[T any](op string) string {
	return fmt.Sprintf("ffitypes: no slice glue registered for element type %v (%s)",
		reflect.TypeOf((*T)(nil)).Elem(), op)
}
