package ffitypes

// BoxedSlice owns a contiguous run of T allocated by the allocating side.
// It layers ownership on top of the MutSliceRef view API: dropping a
// non-empty BoxedSlice hands the extent back through the allocator hooks
// (byte elements) or through registered SliceGlue (anything else).
//
// The empty state carries the sentinel data word with length zero; drop
// paths gate on the length, so empties never reach the allocator.
type BoxedSlice[T any] struct {
	MutSliceRef[T]
}

// EmptyBoxedSlice returns a boxed slice that owns nothing.
func EmptyBoxedSlice[T any]() BoxedSlice[T] {
	return BoxedSlice[T]{MutSliceRef[T]{data: sentinelAddr, size: 0}}
}

// Drop releases the backing storage through the allocating side. Empty
// slices drop as a no-op. Non-byte element types without registered glue
// cannot be dropped locally; attempting to is a contract violation.
func (b *BoxedSlice[T]) Drop() {
	if b.size == 0 {
		b.data = sentinelAddr
		return
	}
	ext := b.Extent()
	if _, isByte := any(ext).(Extent[byte]); isByte {
		a := allocator()
		raw := CBoxedByteSlice{data: b.data, size: b.size}
		b.Release()
		a.DropBoxedBytes(raw)
		return
	}
	if g, ok := sliceGlueFor[T](); ok && g.Drop != nil {
		b.Release()
		g.Drop(ext)
		return
	}
	// a failed drop leaves the value intact so the caller can retry once
	// the wiring is fixed
	panic(noGluePanic[T]("drop"))
}

// Release empties the boxed slice and returns its extent without dropping.
// The caller takes over the untracked allocation.
func (b *BoxedSlice[T]) Release() Extent[T] {
	ext := b.Extent()
	b.data = sentinelAddr
	b.size = 0
	return ext
}

// Reset drops the current backing storage (if any), then takes ownership of
// the given extent.
func (b *BoxedSlice[T]) Reset(e Extent[T]) {
	b.Drop()
	b.data = wrapAddr(e.Data)
	b.size = e.Len
}

// Take moves ownership out of b into the returned slice, leaving b empty.
func (b *BoxedSlice[T]) Take() BoxedSlice[T] {
	out := BoxedSlice[T]{MutSliceRef[T]{data: b.data, size: b.size}}
	b.data = sentinelAddr
	b.size = 0
	return out
}

// Clone asks the allocating side for an independently owned deep copy.
// Empty slices clone to empty without calling out.
func (b *BoxedSlice[T]) Clone() BoxedSlice[T] {
	if b.size == 0 {
		return EmptyBoxedSlice[T]()
	}
	ext := b.Extent()
	if _, isByte := any(ext).(Extent[byte]); isByte {
		raw := CBoxedByteSlice{data: b.data, size: b.size}
		cloned := allocator().CloneBoxedBytes(&raw)
		return BoxedSlice[T]{MutSliceRef[T]{data: cloned.data, size: cloned.size}}
	}
	if g, ok := sliceGlueFor[T](); ok && g.Clone != nil {
		ne := g.Clone(ext)
		return BoxedSlice[T]{MutSliceRef[T]{data: wrapAddr(ne.Data), size: ne.Len}}
	}
	panic(noGluePanic[T]("clone"))
}

// Into moves the extent into the drop-less raw form and empties b. Byte
// element slices crossing a byte-specific generated signature use
// IntoBoxedBytes instead.
func (b *BoxedSlice[T]) Into() CBoxedSlice[T] {
	out := CBoxedSlice[T]{data: b.data, size: b.size}
	b.data = sentinelAddr
	b.size = 0
	return out
}

// IntoBoxedBytes moves a boxed byte slice into the byte-specific raw form
// and empties it.
func IntoBoxedBytes(b *BoxedSlice[byte]) CBoxedByteSlice {
	out := CBoxedByteSlice{data: b.data, size: b.size}
	b.data = sentinelAddr
	b.size = 0
	return out
}

// AsSlice borrows the content as a mutable view. The view must not outlive
// the boxed slice.
func (b *BoxedSlice[T]) AsSlice() MutSliceRef[T] {
	return MutSliceRef[T]{data: b.data, size: b.size}
}

// AsC returns a raw view without giving up ownership. The view must not
// outlive b and must not be consumed: b still drops the allocation.
func (b *BoxedSlice[T]) AsC() CBoxedSlice[T] {
	return CBoxedSlice[T]{data: b.data, size: b.size}
}

// CBoxedSlice is the raw boundary form of BoxedSlice: a plain
// pointer/length struct with no drop behavior. A live value must be
// consumed exactly once, by Owned or by crossing the boundary.
type CBoxedSlice[T any] struct {
	data uintptr
	size uintptr
}

// NewCBoxedSlice wraps an extent freshly allocated by the allocating side.
// Only allocating-side adapters should call this.
func NewCBoxedSlice[T any](p *T, n uintptr) CBoxedSlice[T] {
	return CBoxedSlice[T]{data: wrapAddr(p), size: n}
}

// Owned reconstitutes drop behavior, consuming the raw value: c is emptied
// and the returned BoxedSlice owns the allocation.
func (c *CBoxedSlice[T]) Owned() BoxedSlice[T] {
	out := BoxedSlice[T]{MutSliceRef[T]{data: c.data, size: c.size}}
	c.data = sentinelAddr
	c.size = 0
	return out
}

// Extent returns the pointer/length pair without consuming c.
func (c *CBoxedSlice[T]) Extent() Extent[T] {
	return Extent[T]{Data: ptrAt[T](c.data, c.size), Len: c.size}
}

// Release empties c and returns its extent. The caller takes over the
// untracked allocation.
func (c *CBoxedSlice[T]) Release() Extent[T] {
	ext := c.Extent()
	c.data = sentinelAddr
	c.size = 0
	return ext
}

// CBoxedByteSlice is the byte-specific raw form of BoxedSlice[byte],
// nominally distinct from CBoxedSlice[byte] so generated boundary
// signatures can tell bytes from generic elements.
type CBoxedByteSlice struct {
	data uintptr
	size uintptr
}

// NewCBoxedBytes wraps an extent freshly allocated by the allocating side.
func NewCBoxedBytes(p *byte, n uintptr) CBoxedByteSlice {
	return CBoxedByteSlice{data: wrapAddr(p), size: n}
}

// Owned reconstitutes drop behavior, consuming the raw value.
func (c *CBoxedByteSlice) Owned() BoxedSlice[byte] {
	out := BoxedSlice[byte]{MutSliceRef[byte]{data: c.data, size: c.size}}
	c.data = sentinelAddr
	c.size = 0
	return out
}

// Extent returns the pointer/length pair without consuming c.
func (c *CBoxedByteSlice) Extent() Extent[byte] {
	return Extent[byte]{Data: ptrAt[byte](c.data, c.size), Len: c.size}
}

// Release empties c and returns its extent.
func (c *CBoxedByteSlice) Release() Extent[byte] {
	ext := c.Extent()
	c.data = sentinelAddr
	c.size = 0
	return ext
}

// CopyAndDrop consumes the raw value: the content is copied into a
// Go-managed slice and the foreign allocation is dropped. This is the
// typical inbound path for values that should live on as ordinary Go data.
func (c *CBoxedByteSlice) CopyAndDrop() []byte {
	owned := c.Owned()
	out := append([]byte(nil), owned.Slice()...)
	owned.Drop()
	return out
}
