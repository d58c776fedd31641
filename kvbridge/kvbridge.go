// Package kvbridge exposes a cometbft key-value store as an allocating side
// of the boundary: values read from the store are minted into raw boxed
// slices the consumer must convert to owned form or forward onward, and
// values written are owned handles whose ownership transfers to the store.
package kvbridge

import (
	"errors"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/rustffi/ffitypes"
)

var (
	// ErrKeyEmpty is returned when attempting to use an empty key.
	ErrKeyEmpty = errors.New("kvbridge: key cannot be empty")

	// ErrNotFound is returned when the key has no value in the store.
	ErrNotFound = errors.New("kvbridge: key not found")
)

// Minter is the allocating half of the boundary contract: it turns
// Go-managed bytes into foreign-owned allocations described by raw boxed
// values. fakealloc and guestalloc both satisfy it.
type Minter interface {
	MintString(s string) ffitypes.CBoxedStr
	MintBytes(b []byte) ffitypes.CBoxedByteSlice
}

// Store bridges a dbm.DB across the boundary.
type Store struct {
	db   dbm.DB
	mint Minter
}

// New wraps a store with the given allocating side.
func New(db dbm.DB, mint Minter) *Store {
	return &Store{db: db, mint: mint}
}

// Get reads the value under key and mints it into a raw boxed slice. The
// returned value is a pending obligation: the caller must convert it to an
// owned slice or forward it exactly once.
func (s *Store) Get(key ffitypes.SliceRef[byte]) (ffitypes.CBoxedByteSlice, error) {
	if key.IsEmpty() {
		return ffitypes.NewCBoxedBytes(nil, 0), ErrKeyEmpty
	}
	v, err := s.db.Get(key.Slice())
	if err != nil {
		return ffitypes.NewCBoxedBytes(nil, 0), fmt.Errorf("kvbridge: get: %w", err)
	}
	if v == nil {
		return ffitypes.NewCBoxedBytes(nil, 0), ErrNotFound
	}
	return s.mint.MintBytes(v), nil
}

// Set writes the boxed value under key and consumes it: the content is
// copied into the store and the foreign allocation is dropped, transferring
// ownership out of the caller's hands on every path.
func (s *Store) Set(key ffitypes.SliceRef[byte], value *ffitypes.BoxedSlice[byte]) error {
	defer value.Drop()
	if key.IsEmpty() {
		return ErrKeyEmpty
	}
	if err := s.db.Set(key.Slice(), value.Slice()); err != nil {
		return fmt.Errorf("kvbridge: set: %w", err)
	}
	return nil
}

// Delete removes the value under key.
func (s *Store) Delete(key ffitypes.SliceRef[byte]) error {
	if key.IsEmpty() {
		return ErrKeyEmpty
	}
	if err := s.db.Delete(key.Slice()); err != nil {
		return fmt.Errorf("kvbridge: delete: %w", err)
	}
	return nil
}
