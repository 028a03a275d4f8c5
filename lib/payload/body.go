package payload

import "io"

// Body streams one payload. It holds a read-only view of the payload bytes
// (shared with the store, never copied) and a read offset.
//
// A Body is created per response and must not be shared between goroutines.
// Chunk returns a view into the shared payload, callers must not modify it.
type Body struct {
	data []byte
	off  int
}

var (
	_ io.Reader   = (*Body)(nil)
	_ io.WriterTo = (*Body)(nil)
)

// NewBody wraps a payload view. The slice is not copied and must not be
// modified while the body is in use.
func NewBody(data []byte) *Body {
	return &Body{data: data}
}

// EmptyBody returns a body without content. It is the safe default of all
// read paths that could not resolve a payload.
func EmptyBody() *Body {
	return &Body{}
}

// --------------------------------------------------------------------------
// Incremental read contract
// --------------------------------------------------------------------------

// RemainingLen returns the number of bytes not yet consumed.
func (b *Body) RemainingLen() int {
	return len(b.data) - b.off
}

// Chunk returns the next contiguous unconsumed bytes. The whole remainder is
// always returned as a single chunk.
func (b *Body) Chunk() []byte {
	return b.data[b.off:]
}

// Advance consumes n bytes from the front of the body.
// It panics if n is negative or larger than RemainingLen.
func (b *Body) Advance(n int) {
	if n < 0 || n > b.RemainingLen() {
		panic("payload: advance beyond end of body")
	}
	b.off += n
}

// Len returns the total size of the payload, regardless of how much was consumed.
func (b *Body) Len() int {
	return len(b.data)
}

// --------------------------------------------------------------------------
// io integration
// --------------------------------------------------------------------------

// Read implements io.Reader on top of Chunk and Advance.
func (b *Body) Read(p []byte) (int, error) {
	if b.RemainingLen() == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.Chunk())
	b.Advance(n)
	return n, nil
}

// WriteTo implements io.WriterTo. The remaining bytes are handed to w in a
// single Write call, so io.Copy does not allocate an intermediate buffer.
func (b *Body) WriteTo(w io.Writer) (int64, error) {
	if b.RemainingLen() == 0 {
		return 0, nil
	}
	n, err := w.Write(b.Chunk())
	if n < 0 || n > b.RemainingLen() {
		panic("payload: invalid write count")
	}
	b.Advance(n)
	if err == nil && b.RemainingLen() > 0 {
		err = io.ErrShortWrite
	}
	return int64(n), err
}
