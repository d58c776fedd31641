package ffitypes

import "unsafe"

// Opaque marks a box whose content type is erased. An erased box can be
// moved and forwarded but never dropped locally: the allocating side cannot
// be told how to free a value of unknown type, so Drop and Reset on a live
// OptionBox[Opaque] are hard failures.
type Opaque struct{ _ [0]byte }

// OptionBox is an owned, nullable scalar box. It holds exclusive ownership
// of zero or one heap allocation made by the allocating side and releases it
// through Allocator.DropBox exactly once.
//
// OptionBox values must not be duplicated by plain assignment: copy the
// handle and both copies believe they own the pointee. Use Take to move
// ownership and Release or Into to give it up.
type OptionBox[T any] struct {
	ptr *T
}

// NoneBox returns an empty box. Dropping it is a no-op.
func NoneBox[T any]() OptionBox[T] {
	return OptionBox[T]{}
}

// Get returns the raw pointer without affecting ownership. Nil when empty.
func (b *OptionBox[T]) Get() *T {
	return b.ptr
}

// IsNil reports whether the box is empty.
func (b *OptionBox[T]) IsNil() bool {
	return b.ptr == nil
}

// Deref returns the pointed-to value. Dereferencing an empty box is a
// contract violation and panics.
func (b *OptionBox[T]) Deref() T {
	if b.ptr == nil {
		panic("ffitypes: deref of empty box")
	}
	return *b.ptr
}

// Release returns the raw pointer and empties the box without dropping the
// pointee. The caller takes over the untracked pointer.
func (b *OptionBox[T]) Release() *T {
	p := b.ptr
	b.ptr = nil
	return p
}

// Reset drops the current pointee (if any) through the allocating side, then
// takes ownership of p.
func (b *OptionBox[T]) Reset(p *T) {
	b.Drop()
	b.ptr = p
}

// Take moves ownership out of b into the returned box, leaving b empty.
func (b *OptionBox[T]) Take() OptionBox[T] {
	return OptionBox[T]{ptr: b.Release()}
}

// Into moves the pointer into the raw, drop-less form and empties the box.
// The returned CBox must be converted back to owned or handed across the
// boundary exactly once.
func (b *OptionBox[T]) Into() CBox[T] {
	return CBox[T]{ptr: b.Release()}
}

// AsC returns a raw view of the box without giving up ownership. The view
// must not outlive b and must not be consumed: b still drops the pointee.
func (b *OptionBox[T]) AsC() CBox[T] {
	return CBox[T]{ptr: b.ptr}
}

// Drop releases the pointee through the allocating side. Empty boxes drop as
// a no-op. Dropping an erased box is a contract violation and panics.
func (b *OptionBox[T]) Drop() {
	if b.ptr == nil {
		return
	}
	if _, erased := any(b.ptr).(*Opaque); erased {
		panic("ffitypes: drop of erased box")
	}
	a := allocator()
	a.DropBox(unsafe.Pointer(b.Release()))
}

// Box is OptionBox narrowed by a non-null precondition. The precondition is
// checked at construction only; after moves the value can be empty like any
// other owned handle.
type Box[T any] struct {
	OptionBox[T]
}

// BoxOf wraps a non-null pointer owned by the allocating side. Panics on nil.
func BoxOf[T any](p *T) Box[T] {
	if p == nil {
		panic("ffitypes: Box constructed from null pointer")
	}
	return Box[T]{OptionBox[T]{ptr: p}}
}

// CBox is the raw counterpart of OptionBox: a single pointer field with no
// drop behavior, bit-identical to the boundary's one-word box layout.
//
// A live CBox must be consumed exactly once, either by Owned or by handing
// it back across the boundary. Anything else leaks the allocation.
type CBox[T any] struct {
	ptr *T
}

// COptionBox is the nullable spelling of CBox. The two share one layout; the
// distinct name exists for boundary signatures generated from Option types.
type COptionBox[T any] = CBox[T]

// NewCBox wraps a pointer freshly allocated by the allocating side. Only
// allocating-side adapters should call this; everything else obtains raw
// boxes by converting owned ones.
func NewCBox[T any](p *T) CBox[T] {
	return CBox[T]{ptr: p}
}

// IsNil reports whether the raw box holds a null pointer.
func (c *CBox[T]) IsNil() bool {
	return c.ptr == nil
}

// Owned reconstitutes drop behavior, consuming the raw box: c is emptied and
// the returned OptionBox owns the allocation.
func (c *CBox[T]) Owned() OptionBox[T] {
	return OptionBox[T]{ptr: c.Release()}
}

// Release returns the raw pointer and empties c. Escape hatch: the caller
// now owns an untracked pointer.
func (c *CBox[T]) Release() *T {
	p := c.ptr
	c.ptr = nil
	return p
}
