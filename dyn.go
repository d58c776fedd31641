package ffitypes

import "unsafe"

// DynRef is a shared, non-owning reference to a polymorphic foreign value:
// a data pointer paired with an opaque dispatch-table pointer. The dispatch
// table is never interpreted locally; both words are forwarded unchanged.
// DynRef is freely copyable, like any shared borrow.
type DynRef struct {
	data   unsafe.Pointer
	vtable unsafe.Pointer
}

// NewDynRef wraps a data/dispatch-table pair received from the boundary.
func NewDynRef(data, vtable unsafe.Pointer) DynRef {
	return DynRef{data: data, vtable: vtable}
}

// Data returns the data pointer.
func (r DynRef) Data() unsafe.Pointer { return r.data }

// Vtable returns the opaque dispatch-table pointer.
func (r DynRef) Vtable() unsafe.Pointer { return r.vtable }

// MutDynRef is an exclusive reference to a polymorphic foreign value. Same
// layout as DynRef, but it represents single-writer access: duplicate it
// with plain assignment and the exclusivity contract is broken. Use Take to
// move it; the source is emptied.
type MutDynRef struct {
	data   unsafe.Pointer
	vtable unsafe.Pointer
}

// NewMutDynRef wraps a data/dispatch-table pair received from the boundary.
func NewMutDynRef(data, vtable unsafe.Pointer) MutDynRef {
	return MutDynRef{data: data, vtable: vtable}
}

// Data returns the data pointer.
func (r *MutDynRef) Data() unsafe.Pointer { return r.data }

// Vtable returns the opaque dispatch-table pointer.
func (r *MutDynRef) Vtable() unsafe.Pointer { return r.vtable }

// IsNil reports whether the reference has been moved out.
func (r *MutDynRef) IsNil() bool { return r.data == nil }

// Take moves the exclusive reference into the returned value, leaving r
// empty.
func (r *MutDynRef) Take() MutDynRef {
	out := MutDynRef{data: r.data, vtable: r.vtable}
	r.data = nil
	r.vtable = nil
	return out
}

// DynOwned occupies the two-word footprint of an owned polymorphic foreign
// value. It exists only so boundary structs have the correct size and
// alignment: it has no constructor, and every lifecycle operation belongs
// exclusively to the allocating side. It must never be instantiated,
// copied, or destroyed locally.
type DynOwned struct {
	data   unsafe.Pointer
	vtable unsafe.Pointer
}

// Drop is a contract violation: an owned polymorphic value can only be
// destroyed by the allocating side.
func (DynOwned) Drop() {
	panic("ffitypes: DynOwned must be destroyed by the allocating side")
}
