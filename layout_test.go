package ffitypes

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// The raw types are what actually crosses the boundary, so their layout
// must match the native pointer / pointer+length structs exactly at the
// target's pointer width.

func TestRawBoxLayout(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))

	require.Equal(t, word, unsafe.Sizeof(CBox[int32]{}))
	require.Equal(t, word, unsafe.Sizeof(CBox[Opaque]{}))
	require.Equal(t, word, unsafe.Sizeof(OptionBox[int32]{}))
	require.Equal(t, word, unsafe.Sizeof(Box[int32]{}))
}

func TestRawSliceLayout(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))

	require.Equal(t, 2*word, unsafe.Sizeof(CMutSliceRef[int32]{}))
	require.Equal(t, 2*word, unsafe.Sizeof(CSliceRef[int32]{}))
	require.Equal(t, 2*word, unsafe.Sizeof(CByteSliceRef{}))
	require.Equal(t, 2*word, unsafe.Sizeof(CBoxedSlice[int32]{}))
	require.Equal(t, 2*word, unsafe.Sizeof(CBoxedByteSlice{}))

	// pointer first, length second
	require.Equal(t, uintptr(0), unsafe.Offsetof(CBoxedByteSlice{}.data))
	require.Equal(t, word, unsafe.Offsetof(CBoxedByteSlice{}.size))
	require.Equal(t, uintptr(0), unsafe.Offsetof(CByteSliceRef{}.data))
	require.Equal(t, word, unsafe.Offsetof(CByteSliceRef{}.size))

	// owned and raw forms are bit-identical
	require.Equal(t, unsafe.Sizeof(BoxedSlice[int32]{}), unsafe.Sizeof(CBoxedSlice[int32]{}))
	require.Equal(t, unsafe.Sizeof(MutSliceRef[int32]{}), unsafe.Sizeof(CMutSliceRef[int32]{}))
}

func TestRawStringLayout(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))

	require.Equal(t, 2*word, unsafe.Sizeof(CStrRef{}))
	require.Equal(t, 2*word, unsafe.Sizeof(CBoxedStr{}))
	require.Equal(t, uintptr(0), unsafe.Offsetof(CBoxedStr{}.data))
	require.Equal(t, word, unsafe.Offsetof(CBoxedStr{}.size))

	require.Equal(t, unsafe.Sizeof(BoxedStr{}), unsafe.Sizeof(CBoxedStr{}))
	require.Equal(t, unsafe.Sizeof(StrRef{}), unsafe.Sizeof(CStrRef{}))
	require.Equal(t, unsafe.Sizeof(CharStrRef{}), unsafe.Sizeof(CStrRef{}))

	// text and byte raw forms are distinct types with one layout
	require.Equal(t, unsafe.Sizeof(CBoxedByteSlice{}), unsafe.Sizeof(CBoxedStr{}))
	require.Equal(t, unsafe.Sizeof(CByteSliceRef{}), unsafe.Sizeof(CStrRef{}))
}

func TestDynLayout(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))

	require.Equal(t, 2*word, unsafe.Sizeof(DynRef{}))
	require.Equal(t, 2*word, unsafe.Sizeof(MutDynRef{}))
	require.Equal(t, 2*word, unsafe.Sizeof(DynOwned{}))
	require.Equal(t, uintptr(0), unsafe.Offsetof(DynOwned{}.data))
	require.Equal(t, word, unsafe.Offsetof(DynOwned{}.vtable))
}

func TestSentinel(t *testing.T) {
	require.Equal(t, sentinelAddr, wrapAddr[byte](nil))

	var x byte
	require.Equal(t, uintptr(unsafe.Pointer(&x)), wrapAddr(&x))
}

// The sentinel word must never become a typed pointer: the runtime treats a
// pointer holding a small non-null address as corruption when it scans a
// frame or object, so every accessor gates on the length first.
func TestSentinelNeverMaterializesAsPointer(t *testing.T) {
	require.Nil(t, ptrAt[byte](sentinelAddr, 0))
	require.Nil(t, goSlice[byte](sentinelAddr, 0))
	require.Nil(t, goSlice[byte](0, 0))

	empty := EmptyBoxedStr()
	require.Nil(t, empty.Data())
	require.Nil(t, empty.Str().Data())
	require.Nil(t, empty.Release().Data)

	moved := EmptyBoxedSlice[uint32]()
	require.Nil(t, moved.Data())
	require.Nil(t, moved.Extent().Data)
	require.Nil(t, moved.AsSlice().Data())

	raw := NewCBoxedBytes(nil, 0)
	require.Nil(t, raw.Extent().Data)
	require.Nil(t, raw.Release().Data)
}
