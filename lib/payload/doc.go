// Package payload provides the immutable payload store that supplies response
// bodies to concurrently running request handlers.
//
// The package focuses on:
//   - An ordered, immutable collection of payloads (IPayloadStore)
//   - Wait-free round-robin selection over that collection
//   - A zero-copy streaming body (Body) implementing the incremental read contract
//   - An opaque payload id (ID) that can be persisted as a signed integer
//
// Key Components:
//
//   - IPayloadStore: The store is created once from a single buffer
//     (NewSingle), from one buffer per line of text (NewFromLines) or from an
//     explicit list (NewFromSlices). Empty stores are rejected at construction
//     time with ErrEmptyStore, so selection never has to handle zero payloads.
//     After construction the payloads are never modified.
//
//   - Round Robin: Next performs a single atomic add on a shared cursor and
//     maps the previous cursor value modulo the number of payloads. Because the
//     cursor only grows, any Len consecutive calls return every payload exactly
//     once, no matter how many goroutines call Next at the same time. Which
//     goroutine receives which position is decided by the order in which the
//     atomic adds complete.
//
//   - Body: A per-response view of one payload plus a read offset. RemainingLen,
//     Chunk and Advance form the incremental read contract used by transports.
//     Body also implements io.Reader and io.WriterTo so it can be handed to
//     io.Copy directly. The view is shared with the store and never copied.
//
//   - ID: The position of a payload at the time it was selected. IDs can be
//     compared with == and converted to int64 (Int64, driver.Valuer, sql.Scanner)
//     for persistence. IDFromInt64 restores an id read back from a log.
//
// Error System:
//
//	Errors are reported as *Error values carrying a RetCode. Use errors.Is with
//	the sentinel values (ErrAlreadyInitialized, ErrSourceUnavailable,
//	ErrEmptyStore, ErrNotInstalled, ErrUnknownPayload) to match by code.
//
// Thread Safety:
//
//	All IPayloadStore methods are safe for concurrent use without locks. A Body
//	belongs to one response and must not be shared between goroutines.
//
// Usage Example:
//
//	s, err := payload.NewFromLines([]byte("alpha\nbeta\ngamma"))
//	if err != nil {
//		return err
//	}
//
//	id, data := s.Next() // 0, "alpha"
//	data, ok := s.Get(id) // "alpha", true (cursor unchanged)
//
// Most applications do not use the store directly but install it into a
// handle.Handle, which adds the initialize-once contract and safe defaults.
package payload
