package payload

import (
	"bytes"
	"github.com/lni/dragonboat/v4/logger"
	"sync/atomic"
)

var Logger = logger.GetLogger("payload")

type storeImpl struct {
	items  [][]byte
	size   int
	cursor atomic.Uint64
}

// NewFromSlices creates a store serving the given payloads in order.
// The payloads are copied, later changes to the input do not affect the store.
// An empty list is rejected with ErrEmptyStore.
func NewFromSlices(items [][]byte) (IPayloadStore, error) {
	if len(items) == 0 {
		return nil, ErrEmptyStore
	}

	s := &storeImpl{
		items: make([][]byte, len(items)),
	}
	for i, item := range items {
		// Copy value to prevent later mutation by the caller
		s.items[i] = bytes.Clone(item)
		if s.items[i] == nil {
			s.items[i] = []byte{}
		}
		s.size += len(item)
	}

	Logger.Debugf("created payload store with %d payloads (%d bytes)", len(s.items), s.size)
	return s, nil
}

// NewSingle creates a store containing exactly one payload.
func NewSingle(data []byte) IPayloadStore {
	// a single item can never be empty, so the error can be ignored
	s, _ := NewFromSlices([][]byte{data})
	return s
}

// NewFromLines creates a store with one payload per line of text.
// See SplitLines for the exact splitting rules.
func NewFromLines(text []byte) (IPayloadStore, error) {
	return NewFromSlices(SplitLines(text))
}

// nextIndex increments the cursor and returns the position before the increment.
//
// Thread-safety: This method is thread-safe since it uses a single atomic add.
func (s *storeImpl) nextIndex() uint64 {
	return s.cursor.Add(1) - 1
}

// --------------------------------------------------------------------------
// Interface Methods (docu see payload/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Next() (ID, []byte) {
	idx := s.nextIndex() % uint64(len(s.items))
	return ID{index: idx}, s.items[idx]
}

func (s *storeImpl) Get(id ID) ([]byte, bool) {
	if id.index >= uint64(len(s.items)) {
		return nil, false
	}
	return s.items[id.index], true
}

func (s *storeImpl) Len() int {
	return len(s.items)
}

func (s *storeImpl) Size() int {
	return s.size
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// SplitLines splits text into lines. The line terminator ("\n" or "\r\n") is
// stripped, the remaining bytes are kept as they are (no decoding). Empty
// lines are kept as empty payloads, a terminator at the very end does not
// start another line.
func SplitLines(text []byte) [][]byte {
	var lines [][]byte
	for len(text) > 0 {
		i := bytes.IndexByte(text, '\n')
		if i < 0 {
			// last line without terminator, a lone '\r' is content
			lines = append(lines, text)
			break
		}
		line := bytes.TrimSuffix(text[:i], []byte{'\r'})
		lines = append(lines, line)
		text = text[i+1:]
	}
	return lines
}
