package kvbridge

import (
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/rustffi/ffitypes"
)

// frame stores all iterators opened during one boundary call.
type frame []dbm.Iterator

// iteratorFrames contains one frame per in-flight boundary call, indexed by
// call ID.
var iteratorFrames sync.Map

var (
	latestCallID      uint64
	latestCallIDMutex sync.Mutex
)

// frameLenLimit caps the number of iterators one call may hold open.
const frameLenLimit = 32

// StartCall opens a new boundary call and returns its ID. Every StartCall
// must be paired with EndCall so iterator resources are released on all
// exit paths.
func (s *Store) StartCall() uint64 {
	latestCallIDMutex.Lock()
	defer latestCallIDMutex.Unlock()
	latestCallID++
	return latestCallID
}

// EndCall closes the call and every iterator still open under it.
func (s *Store) EndCall(callID uint64) {
	// the frame can be missing when the call never opened an iterator
	removedFrame, didExist := iteratorFrames.LoadAndDelete(callID)
	if didExist {
		for _, iter := range removedFrame.(frame) {
			_ = iter.Close()
		}
	}
}

// OpenIterator starts an ascending iteration over [start, end) and returns
// an iterator ID scoped to the call. Empty bounds iterate from the first
// or to the last key respectively.
func (s *Store) OpenIterator(callID uint64, start, end ffitypes.SliceRef[byte]) (uint64, error) {
	it, err := s.db.Iterator(start.Slice(), end.Slice())
	if err != nil {
		return 0, fmt.Errorf("kvbridge: open iterator: %w", err)
	}

	loadedFrame, found := iteratorFrames.Load(callID)
	var newFrame frame
	if found {
		newFrame = loadedFrame.(frame) // panics if the wrong type was stored
	} else {
		newFrame = make(frame, 0, 8)
	}

	if len(newFrame) >= frameLenLimit {
		_ = it.Close()
		return 0, fmt.Errorf("kvbridge: reached iterator limit (%d)", frameLenLimit)
	}

	newFrame = append(newFrame, it)
	iteratorFrames.Store(callID, newFrame)

	// iterator IDs start at 1 so that 0 stays an invalid value
	return uint64(len(newFrame)), nil
}

// Next advances the iterator and mints the current value into a raw boxed
// slice. The key is returned as a Go-managed copy; the value is a pending
// obligation the caller must consume exactly once. ok is false once the
// iterator is exhausted.
func (s *Store) Next(callID, iteratorID uint64) (key []byte, value ffitypes.CBoxedByteSlice, ok bool, err error) {
	it := retrieveIterator(callID, iteratorID)
	if it == nil {
		return nil, ffitypes.NewCBoxedBytes(nil, 0), false, fmt.Errorf("kvbridge: unknown iterator %d in call %d", iteratorID, callID)
	}
	if !it.Valid() {
		return nil, ffitypes.NewCBoxedBytes(nil, 0), false, it.Error()
	}

	key = append([]byte(nil), it.Key()...)
	value = s.mint.MintBytes(it.Value())
	it.Next()
	return key, value, true, nil
}

// retrieveIterator recovers an iterator from its call frame.
func retrieveIterator(callID, iteratorID uint64) dbm.Iterator {
	if iteratorID == 0 {
		return nil
	}
	loadedFrame, found := iteratorFrames.Load(callID)
	if !found {
		return nil
	}
	f := loadedFrame.(frame)
	index := int(iteratorID - 1)
	if index >= len(f) {
		return nil
	}
	return f[index]
}
