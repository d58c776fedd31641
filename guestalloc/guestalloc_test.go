package guestalloc

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/rustffi/ffitypes"
)

// guestWasm assembles a minimal guest module: one fixed page of exported
// memory, a bump allocator for allocate and a no-op deallocate. Fixed
// min == max limits keep the linear memory buffer from ever moving.
func guestWasm() []byte {
	section := func(id byte, body []byte) []byte {
		// all section bodies here are < 128 bytes, so the LEB128 size is a
		// single byte
		return append([]byte{id, byte(len(body))}, body...)
	}
	vec := func(count byte, items ...byte) []byte {
		return append([]byte{count}, items...)
	}

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} // \0asm, version 1

	// type section: (i32) -> (i32), (i32) -> ()
	bin = append(bin, section(0x01, vec(2,
		0x60, 0x01, 0x7f, 0x01, 0x7f,
		0x60, 0x01, 0x7f, 0x00,
	))...)
	// function section: allocate has type 0, deallocate type 1
	bin = append(bin, section(0x03, vec(2, 0x00, 0x01))...)
	// memory section: min 1 page, max 1 page
	bin = append(bin, section(0x05, vec(1, 0x01, 0x01, 0x01))...)
	// global section: mutable i32 bump pointer, initially 16
	bin = append(bin, section(0x06, vec(1, 0x7f, 0x01, 0x41, 0x10, 0x0b))...)

	// export section: "memory", "allocate", "deallocate"
	exports := []byte{0x03}
	exports = append(exports, 0x06)
	exports = append(exports, []byte("memory")...)
	exports = append(exports, 0x02, 0x00)
	exports = append(exports, 0x08)
	exports = append(exports, []byte("allocate")...)
	exports = append(exports, 0x00, 0x00)
	exports = append(exports, 0x0a)
	exports = append(exports, []byte("deallocate")...)
	exports = append(exports, 0x00, 0x01)
	bin = append(bin, section(0x07, exports)...)

	// code section
	allocate := []byte{
		0x01, 0x01, 0x7f, // one extra i32 local
		0x23, 0x00, // global.get bump
		0x21, 0x01, // local.set old
		0x23, 0x00, // global.get bump
		0x20, 0x00, // local.get size
		0x6a,       // i32.add
		0x24, 0x00, // global.set bump
		0x20, 0x01, // local.get old
		0x0b, // end
	}
	deallocate := []byte{0x00, 0x0b} // no locals, empty body
	code := []byte{0x02}
	code = append(code, byte(len(allocate)))
	code = append(code, allocate...)
	code = append(code, byte(len(deallocate)))
	code = append(code, deallocate...)
	bin = append(bin, section(0x0a, code)...)

	return bin
}

func setupGuest(t *testing.T) *Guest {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })

	mod, err := r.Instantiate(ctx, guestWasm())
	require.NoError(t, err)

	guest, err := New(mod)
	require.NoError(t, err)
	return guest
}

func TestGuestMintAndDrop(t *testing.T) {
	guest := setupGuest(t)
	prev := ffitypes.Install(guest)
	defer ffitypes.Install(prev)

	raw := guest.MintString("hello")
	require.Equal(t, 1, guest.Live())

	owned := raw.Owned()
	require.Equal(t, 5, owned.Len())
	require.Equal(t, "hello", owned.String())

	owned.Drop()
	require.Equal(t, 0, guest.Live())
}

func TestGuestMintEmptyAllocatesNothing(t *testing.T) {
	guest := setupGuest(t)
	prev := ffitypes.Install(guest)
	defer ffitypes.Install(prev)

	raw := guest.MintString("")
	require.Equal(t, 0, guest.Live())

	owned := raw.Owned()
	require.True(t, owned.IsEmpty())
	owned.Drop()
}

func TestGuestCloneIndependence(t *testing.T) {
	guest := setupGuest(t)
	prev := ffitypes.Install(guest)
	defer ffitypes.Install(prev)

	raw := guest.MintBytes([]byte{1, 2, 3})
	owned := raw.Owned()
	cloned := owned.Clone()

	require.Equal(t, 2, guest.Live())
	require.Equal(t, owned.Slice(), cloned.Slice())
	require.NotEqual(t, unsafe.Pointer(owned.Data()), unsafe.Pointer(cloned.Data()),
		"clone must have a distinct backing pointer")

	owned.Drop()
	cloned.Drop()
	require.Equal(t, 0, guest.Live())
}

func TestGuestDoubleFreePanics(t *testing.T) {
	guest := setupGuest(t)
	prev := ffitypes.Install(guest)
	defer ffitypes.Install(prev)

	raw := guest.MintBytes([]byte{9})
	ext := raw.Release()

	guest.DropBoxedBytes(ffitypes.NewCBoxedBytes(ext.Data, ext.Len))
	require.Panics(t, func() {
		guest.DropBoxedBytes(ffitypes.NewCBoxedBytes(ext.Data, ext.Len))
	})
}

func TestGuestRejectsIncompleteModules(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })

	// a module with no exports at all
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	mod, err := r.Instantiate(ctx, empty)
	require.NoError(t, err)

	_, err = New(mod)
	require.ErrorIs(t, err, ErrNoMemory)

	// exported memory but no allocate/deallocate
	memOnly := append([]byte(nil), empty...)
	memOnly = append(memOnly, 0x05, 0x03, 0x01, 0x00, 0x01) // memory section, min 1
	memOnly = append(memOnly, 0x07, 0x0a, 0x01, 0x06)       // export section
	memOnly = append(memOnly, []byte("memory")...)
	memOnly = append(memOnly, 0x02, 0x00)
	memMod, err := r.InstantiateWithConfig(ctx, memOnly, wazero.NewModuleConfig().WithName("memonly"))
	require.NoError(t, err)

	_, err = New(memMod)
	require.ErrorIs(t, err, ErrNoAllocator)
}
