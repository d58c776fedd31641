package ffitypes

import (
	"errors"
	"unicode/utf8"
	"unsafe"
)

// ErrInvalidUTF8 is returned when bytes claimed to be text fail validation.
var ErrInvalidUTF8 = errors.New("ffitypes: invalid UTF-8 sequence")

// CharStrRef is a byte/length pair interpreted as text without validation.
// It is the entry point for strings constructed locally: the bytes may or
// may not be valid UTF-8, and nothing here checks. Upgrade to StrRef with
// ToStr (validating) or AsStrUnchecked (trusting).
type CharStrRef struct {
	data uintptr
	size uintptr
}

// NewCharStrRef borrows the bytes of a Go string. The view holds a bare
// address, not a reference: the caller must keep s alive for as long as the
// view is read.
func NewCharStrRef(s string) CharStrRef {
	return CharStrRef{
		data: wrapAddr(unsafe.StringData(s)),
		size: uintptr(len(s)),
	}
}

// CharStrRefFromBytes borrows a Go byte slice as unvalidated text.
func CharStrRefFromBytes(b []byte) CharStrRef {
	return CharStrRef{
		data: wrapAddr(unsafe.SliceData(b)),
		size: uintptr(len(b)),
	}
}

// Len returns the byte length.
func (s CharStrRef) Len() int { return int(s.size) }

// IsEmpty reports whether the text has no bytes.
func (s CharStrRef) IsEmpty() bool { return s.size == 0 }

// Data returns the data pointer, nil when empty.
func (s CharStrRef) Data() *byte { return ptrAt[byte](s.data, s.size) }

// DataAddr returns the stored data word (the sentinel when empty).
func (s CharStrRef) DataAddr() uintptr { return s.data }

// At returns the byte at index i, panicking when out of bounds.
func (s CharStrRef) At(i int) byte {
	if i < 0 || uintptr(i) >= s.size {
		panic("ffitypes: string index out of range")
	}
	//nolint:govet,gosec // bounds-checked offset into foreign or pinned storage
	return *(*byte)(unsafe.Pointer(s.data + uintptr(i)))
}

// Bytes returns the text as a Go byte slice sharing the backing storage.
func (s CharStrRef) Bytes() []byte { return goSlice[byte](s.data, s.size) }

// String returns a Go-managed copy of the bytes.
func (s CharStrRef) String() string { return string(s.Bytes()) }

// Equal reports whether two text views hold the same bytes.
func (s CharStrRef) Equal(other CharStrRef) bool {
	return s.String() == other.String()
}

// EqualString compares the view's bytes against a Go string.
func (s CharStrRef) EqualString(other string) bool {
	return s.size == uintptr(len(other)) && s.String() == other
}

// ToStr validates the bytes and upgrades the view to trusted text.
func (s CharStrRef) ToStr() (StrRef, error) {
	if !utf8.Valid(s.Bytes()) {
		return StrRef{}, ErrInvalidUTF8
	}
	return s.AsStrUnchecked(), nil
}

// AsStrUnchecked upgrades the view to trusted text without validating.
// The caller asserts the bytes are valid UTF-8.
func (s CharStrRef) AsStrUnchecked() StrRef {
	return StrRef{data: s.data, size: s.size}
}

// StrRef is a non-owning view of text trusted to be valid UTF-8. The
// guarantee is a construction contract, not a runtime check: StrRef values
// come from BoxedStr borrows, from validated upgrades, or from Go strings.
type StrRef struct {
	data uintptr
	size uintptr
}

// NewStrRef borrows the bytes of a Go string as trusted text.
func NewStrRef(s string) StrRef {
	return StrRef{
		data: wrapAddr(unsafe.StringData(s)),
		size: uintptr(len(s)),
	}
}

// Len returns the byte length.
func (s StrRef) Len() int { return int(s.size) }

// IsEmpty reports whether the text has no bytes.
func (s StrRef) IsEmpty() bool { return s.size == 0 }

// Data returns the data pointer, nil when empty.
func (s StrRef) Data() *byte { return ptrAt[byte](s.data, s.size) }

// DataAddr returns the stored data word (the sentinel when empty).
func (s StrRef) DataAddr() uintptr { return s.data }

// Bytes returns the text as a Go byte slice sharing the backing storage.
func (s StrRef) Bytes() []byte { return goSlice[byte](s.data, s.size) }

// String returns a Go-managed copy of the text.
func (s StrRef) String() string { return string(s.Bytes()) }

// AsCharStr widens the trusted view back to unvalidated text.
func (s StrRef) AsCharStr() CharStrRef {
	return CharStrRef{data: s.data, size: s.size}
}

// Into copies the view into its raw boundary form.
func (s StrRef) Into() CStrRef {
	return CStrRef{data: s.data, size: s.size}
}

// BoxedStr owns a string allocated by the allocating side. Same ownership
// contract as BoxedSlice[byte], routed through the string-specific hooks so
// boundary signatures keep bytes and text distinct.
type BoxedStr struct {
	data uintptr
	size uintptr
}

// EmptyBoxedStr returns a boxed string that owns nothing.
func EmptyBoxedStr() BoxedStr {
	return BoxedStr{data: sentinelAddr, size: 0}
}

// Len returns the byte length.
func (b *BoxedStr) Len() int { return int(b.size) }

// IsEmpty reports whether the string has no bytes.
func (b *BoxedStr) IsEmpty() bool { return b.size == 0 }

// Data returns the data pointer, nil when empty.
func (b *BoxedStr) Data() *byte { return ptrAt[byte](b.data, b.size) }

// DataAddr returns the stored data word (the sentinel when empty).
func (b *BoxedStr) DataAddr() uintptr { return b.data }

// Str borrows the content as trusted text. The view must not outlive the
// boxed string.
func (b *BoxedStr) Str() StrRef {
	return StrRef{data: b.data, size: b.size}
}

// Bytes returns the content as a Go byte slice sharing the backing storage.
func (b *BoxedStr) Bytes() []byte { return goSlice[byte](b.data, b.size) }

// String returns a Go-managed copy of the text.
func (b *BoxedStr) String() string { return string(b.Bytes()) }

// Drop releases the backing storage through the allocating side. Empty
// strings drop as a no-op. A failed drop leaves the value intact so the
// caller can retry once an allocator is installed.
func (b *BoxedStr) Drop() {
	if b.size == 0 {
		b.data = sentinelAddr
		return
	}
	a := allocator()
	raw := CBoxedStr{data: b.data, size: b.size}
	b.data = sentinelAddr
	b.size = 0
	a.DropBoxedString(raw)
}

// Release empties the boxed string and returns its extent without dropping.
func (b *BoxedStr) Release() Extent[byte] {
	ext := Extent[byte]{Data: ptrAt[byte](b.data, b.size), Len: b.size}
	b.data = sentinelAddr
	b.size = 0
	return ext
}

// Reset drops the current backing storage (if any), then takes ownership of
// the given extent.
func (b *BoxedStr) Reset(e Extent[byte]) {
	b.Drop()
	b.data = wrapAddr(e.Data)
	b.size = e.Len
}

// Take moves ownership out of b into the returned string, leaving b empty.
func (b *BoxedStr) Take() BoxedStr {
	out := BoxedStr{data: b.data, size: b.size}
	b.data = sentinelAddr
	b.size = 0
	return out
}

// Clone asks the allocating side for an independently owned deep copy.
func (b *BoxedStr) Clone() BoxedStr {
	if b.size == 0 {
		return EmptyBoxedStr()
	}
	raw := CBoxedStr{data: b.data, size: b.size}
	cloned := allocator().CloneBoxedString(&raw)
	return BoxedStr{data: cloned.data, size: cloned.size}
}

// Into moves the extent into the drop-less raw form and empties b.
func (b *BoxedStr) Into() CBoxedStr {
	out := CBoxedStr{data: b.data, size: b.size}
	b.data = sentinelAddr
	b.size = 0
	return out
}

// AsC returns a raw view without giving up ownership. The view must not
// outlive b and must not be consumed: b still drops the allocation.
func (b *BoxedStr) AsC() CBoxedStr {
	return CBoxedStr{data: b.data, size: b.size}
}

// CStrRef is the raw boundary form of StrRef. Structurally identical to
// CByteSliceRef but nominally distinct: boundary signatures distinguish
// bytes from text even though the bit layout matches.
type CStrRef struct {
	data uintptr
	size uintptr
}

// Ref copies the raw value back into its borrowing counterpart.
func (c CStrRef) Ref() StrRef {
	return StrRef{data: c.data, size: c.size}
}

// CBoxedStr is the raw boundary form of BoxedStr. A live value must be
// consumed exactly once, by Owned or by crossing the boundary.
type CBoxedStr struct {
	data uintptr
	size uintptr
}

// NewCBoxedStr wraps an extent freshly allocated by the allocating side.
// Only allocating-side adapters should call this.
func NewCBoxedStr(p *byte, n uintptr) CBoxedStr {
	return CBoxedStr{data: wrapAddr(p), size: n}
}

// Owned reconstitutes drop behavior, consuming the raw value.
func (c *CBoxedStr) Owned() BoxedStr {
	out := BoxedStr{data: c.data, size: c.size}
	c.data = sentinelAddr
	c.size = 0
	return out
}

// Extent returns the pointer/length pair without consuming c.
func (c *CBoxedStr) Extent() Extent[byte] {
	return Extent[byte]{Data: ptrAt[byte](c.data, c.size), Len: c.size}
}

// Release empties c and returns its extent.
func (c *CBoxedStr) Release() Extent[byte] {
	ext := c.Extent()
	c.data = sentinelAddr
	c.size = 0
	return ext
}

// CopyAndDrop consumes the raw value: the text is copied into a Go-managed
// string and the foreign allocation is dropped.
func (c *CBoxedStr) CopyAndDrop() string {
	owned := c.Owned()
	out := owned.String()
	owned.Drop()
	return out
}
