// Package guestalloc implements the allocating side of the boundary over a
// wasm guest module instantiated with wazero. The guest owns the backing
// storage: minting calls its exported allocate function and copies the
// content into linear memory, dropping calls deallocate with the original
// offset.
//
// Host pointers handed out by this package point directly into the guest's
// linear memory. The guest must be instantiated with its memory capacity
// fixed (min == max), so the buffer can never move while raw or owned
// wrappers reference it.
package guestalloc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/tetratelabs/wazero/api"

	"github.com/rustffi/ffitypes"
)

var (
	// ErrNoMemory is returned when the guest exports no linear memory.
	ErrNoMemory = errors.New("guestalloc: guest module exports no memory")

	// ErrNoAllocator is returned when the guest exports no allocate or
	// deallocate function.
	ErrNoAllocator = errors.New("guestalloc: guest module exports no allocate/deallocate")
)

// Guest adapts a wasm module to ffitypes.Allocator and kvbridge.Minter.
type Guest struct {
	mu      sync.Mutex
	mem     api.Memory
	alloc   api.Function
	dealloc api.Function
	// offsets maps the host address of each live allocation back to its
	// guest offset, which is what deallocate expects.
	offsets map[uintptr]uint32
}

// New wraps an instantiated guest module. The module must export linear
// memory plus allocate(size) -> ptr and deallocate(ptr) functions.
func New(mod api.Module) (*Guest, error) {
	// mod.Memory() yields a typed nil inside a non-nil interface when the
	// module defines no memory, so check the export table instead
	if len(mod.ExportedMemoryDefinitions()) == 0 {
		return nil, ErrNoMemory
	}
	mem := mod.Memory()
	alloc := mod.ExportedFunction("allocate")
	dealloc := mod.ExportedFunction("deallocate")
	if alloc == nil || dealloc == nil {
		return nil, ErrNoAllocator
	}
	return &Guest{
		mem:     mem,
		alloc:   alloc,
		dealloc: dealloc,
		offsets: make(map[uintptr]uint32),
	}, nil
}

// Live returns the number of guest allocations currently outstanding.
func (g *Guest) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.offsets)
}

// Mint copies b into a fresh guest allocation and returns its extent.
func (g *Guest) Mint(b []byte) (ffitypes.Extent[byte], error) {
	if len(b) == 0 {
		return ffitypes.Extent[byte]{}, nil
	}
	results, err := g.alloc.Call(context.Background(), uint64(len(b)))
	if err != nil {
		return ffitypes.Extent[byte]{}, fmt.Errorf("guestalloc: allocate: %w", err)
	}
	offset := uint32(results[0])
	view, ok := g.mem.Read(offset, uint32(len(b)))
	if !ok {
		return ffitypes.Extent[byte]{}, fmt.Errorf("guestalloc: allocate returned out-of-range offset %d", offset)
	}
	copy(view, b)

	p := unsafe.SliceData(view)
	g.mu.Lock()
	g.offsets[uintptr(unsafe.Pointer(p))] = offset
	g.mu.Unlock()
	return ffitypes.Extent[byte]{Data: p, Len: uintptr(len(b))}, nil
}

// MintString mints a raw boxed string from the guest heap. Guest allocation
// failure is a boundary fault, not a recoverable condition, and panics.
func (g *Guest) MintString(s string) ffitypes.CBoxedStr {
	ext := g.mustMint([]byte(s))
	return ffitypes.NewCBoxedStr(ext.Data, ext.Len)
}

// MintBytes mints a raw boxed byte slice from the guest heap.
func (g *Guest) MintBytes(b []byte) ffitypes.CBoxedByteSlice {
	ext := g.mustMint(b)
	return ffitypes.NewCBoxedBytes(ext.Data, ext.Len)
}

// DropBoxedString implements ffitypes.Allocator.
func (g *Guest) DropBoxedString(s ffitypes.CBoxedStr) {
	g.free(s.Extent(), "string")
}

// DropBoxedBytes implements ffitypes.Allocator.
func (g *Guest) DropBoxedBytes(b ffitypes.CBoxedByteSlice) {
	g.free(b.Extent(), "bytes")
}

// CloneBoxedString implements ffitypes.Allocator.
func (g *Guest) CloneBoxedString(s *ffitypes.CBoxedStr) ffitypes.CBoxedStr {
	ext := s.Extent()
	return g.MintString(string(unsafe.Slice(ext.Data, ext.Len)))
}

// CloneBoxedBytes implements ffitypes.Allocator.
func (g *Guest) CloneBoxedBytes(b *ffitypes.CBoxedByteSlice) ffitypes.CBoxedByteSlice {
	ext := b.Extent()
	return g.MintBytes(unsafe.Slice(ext.Data, ext.Len))
}

// DropBox implements ffitypes.Allocator.
func (g *Guest) DropBox(ptr unsafe.Pointer) {
	g.deallocate(uintptr(ptr), "box")
}

func (g *Guest) mustMint(b []byte) ffitypes.Extent[byte] {
	ext, err := g.Mint(b)
	if err != nil {
		panic(err.Error())
	}
	return ext
}

func (g *Guest) free(ext ffitypes.Extent[byte], kind string) {
	if ext.Len == 0 {
		panic("guestalloc: " + kind + " drop hook called for empty extent")
	}
	g.deallocate(uintptr(unsafe.Pointer(ext.Data)), kind)
}

func (g *Guest) deallocate(addr uintptr, kind string) {
	g.mu.Lock()
	offset, ok := g.offsets[addr]
	if ok {
		delete(g.offsets, addr)
	}
	g.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("guestalloc: %s drop of unknown address %#x (double free?)", kind, addr))
	}
	if _, err := g.dealloc.Call(context.Background(), uint64(offset)); err != nil {
		panic(fmt.Sprintf("guestalloc: deallocate: %v", err))
	}
}
