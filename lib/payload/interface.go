package payload

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IPayloadStore is an immutable, ordered collection of payloads with a shared
// round-robin cursor. All methods are safe for concurrent use.
type IPayloadStore interface {
	// Next atomically advances the cursor and returns the id and bytes of the
	// payload at the previous cursor position (modulo Len). Any Len consecutive
	// calls return every id exactly once.
	// The returned slice is shared and must not be modified.
	Next() (id ID, data []byte)
	// Get returns the bytes of the payload with the given id without moving the
	// cursor. The boolean is false if the id does not exist in the store.
	Get(id ID) (data []byte, ok bool)
	// Len returns the number of payloads. It is always at least one.
	Len() int
	// Size returns the total number of payload bytes.
	Size() int
}
