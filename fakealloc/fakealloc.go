// Package fakealloc is an in-process stand-in for the allocating side of
// the boundary. It allocates backing storage on the Go heap, pins it so the
// garbage collector cannot reclaim it while a wrapper points at it, and
// counts every drop and clone. Tests use the counters to check the
// exactly-once release discipline.
package fakealloc

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/rustffi/ffitypes"
)

// Allocator implements ffitypes.Allocator over the Go heap.
type Allocator struct {
	mu      sync.Mutex
	slices  map[unsafe.Pointer][]byte // pinned slice/string allocations
	boxes   map[unsafe.Pointer]any    // pinned scalar box allocations
	metrics Metrics
}

// Metrics counts boundary hook invocations.
type Metrics struct {
	StringDrops  int
	ByteDrops    int
	BoxDrops     int
	StringClones int
	ByteClones   int

	// LastDropLen records the length passed with the most recent string or
	// byte drop.
	LastDropLen int
}

// New returns an empty fake allocating side.
func New() *Allocator {
	return &Allocator{
		slices: make(map[unsafe.Pointer][]byte),
		boxes:  make(map[unsafe.Pointer]any),
	}
}

// Install registers a as the process-wide allocating side and returns a function
// restoring the previous one. Typical use: defer a.Install()().
func (a *Allocator) Install() func() {
	prev := ffitypes.Install(a)
	return func() { ffitypes.Install(prev) }
}

// Metrics returns a snapshot of the hook counters.
func (a *Allocator) Metrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Live returns the number of allocations currently outstanding.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slices) + len(a.boxes)
}

// MintString allocates a copy of s and returns it as a raw boxed string,
// the shape in which it would arrive from the boundary. Empty strings mint
// as the sentinel extent without allocating.
func (a *Allocator) MintString(s string) ffitypes.CBoxedStr {
	if len(s) == 0 {
		return ffitypes.NewCBoxedStr(nil, 0)
	}
	p, n := a.pin([]byte(s))
	return ffitypes.NewCBoxedStr(p, n)
}

// MintBytes allocates a copy of b and returns it as a raw boxed byte slice.
func (a *Allocator) MintBytes(b []byte) ffitypes.CBoxedByteSlice {
	if len(b) == 0 {
		return ffitypes.NewCBoxedBytes(nil, 0)
	}
	p, n := a.pin(append([]byte(nil), b...))
	return ffitypes.NewCBoxedBytes(p, n)
}

// MintBox allocates a scalar box holding v and returns it in raw form.
func MintBox[T any](a *Allocator, v T) ffitypes.CBox[T] {
	p := new(T)
	*p = v
	a.mu.Lock()
	a.boxes[unsafe.Pointer(p)] = p
	a.mu.Unlock()
	return ffitypes.NewCBox(p)
}

// DropBoxedString implements ffitypes.Allocator.
func (a *Allocator) DropBoxedString(s ffitypes.CBoxedStr) {
	ext := s.Extent()
	a.unpin(ext, "string")
	a.mu.Lock()
	a.metrics.StringDrops++
	a.metrics.LastDropLen = int(ext.Len)
	a.mu.Unlock()
}

// DropBoxedBytes implements ffitypes.Allocator.
func (a *Allocator) DropBoxedBytes(b ffitypes.CBoxedByteSlice) {
	ext := b.Extent()
	a.unpin(ext, "bytes")
	a.mu.Lock()
	a.metrics.ByteDrops++
	a.metrics.LastDropLen = int(ext.Len)
	a.mu.Unlock()
}

// CloneBoxedString implements ffitypes.Allocator.
func (a *Allocator) CloneBoxedString(s *ffitypes.CBoxedStr) ffitypes.CBoxedStr {
	ext := s.Extent()
	p, n := a.pin(append([]byte(nil), unsafe.Slice(ext.Data, ext.Len)...))
	a.mu.Lock()
	a.metrics.StringClones++
	a.mu.Unlock()
	return ffitypes.NewCBoxedStr(p, n)
}

// CloneBoxedBytes implements ffitypes.Allocator.
func (a *Allocator) CloneBoxedBytes(b *ffitypes.CBoxedByteSlice) ffitypes.CBoxedByteSlice {
	ext := b.Extent()
	p, n := a.pin(append([]byte(nil), unsafe.Slice(ext.Data, ext.Len)...))
	a.mu.Lock()
	a.metrics.ByteClones++
	a.mu.Unlock()
	return ffitypes.NewCBoxedBytes(p, n)
}

// DropBox implements ffitypes.Allocator.
func (a *Allocator) DropBox(ptr unsafe.Pointer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.boxes[ptr]; !ok {
		panic(fmt.Sprintf("fakealloc: box drop of unknown pointer %p (double free?)", ptr))
	}
	delete(a.boxes, ptr)
	a.metrics.BoxDrops++
}

// pin stores b so it stays reachable and returns its extent.
func (a *Allocator) pin(b []byte) (*byte, uintptr) {
	p := unsafe.SliceData(b)
	a.mu.Lock()
	a.slices[unsafe.Pointer(p)] = b
	a.mu.Unlock()
	return p, uintptr(len(b))
}

// unpin validates and removes a slice allocation. Receiving an extent that
// was never minted, already dropped, or has the wrong length means the
// ownership protocol was violated on the Go side, so fail hard.
func (a *Allocator) unpin(ext ffitypes.Extent[byte], kind string) {
	if ext.Len == 0 {
		panic("fakealloc: " + kind + " drop hook called for empty extent")
	}
	key := unsafe.Pointer(ext.Data)
	a.mu.Lock()
	defer a.mu.Unlock()
	pinned, ok := a.slices[key]
	if !ok {
		panic(fmt.Sprintf("fakealloc: %s drop of unknown pointer %p (double free?)", kind, key))
	}
	if uintptr(len(pinned)) != ext.Len {
		panic(fmt.Sprintf("fakealloc: %s drop with length %d, allocated %d", kind, ext.Len, len(pinned)))
	}
	delete(a.slices, key)
}
