package payload

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// TestBodyAdvance covers the incremental read contract on a 10 byte payload
func TestBodyAdvance(t *testing.T) {
	s := NewSingle([]byte("0123456789"))
	_, data := s.Next()
	body := NewBody(data)

	if body.RemainingLen() != 10 {
		t.Fatalf("Expected 10 remaining bytes, got %d", body.RemainingLen())
	}
	if string(body.Chunk()) != "0123456789" {
		t.Errorf("Expected the full payload as first chunk, got %q", body.Chunk())
	}

	body.Advance(4)
	if body.RemainingLen() != 6 {
		t.Errorf("Expected 6 remaining bytes, got %d", body.RemainingLen())
	}
	if string(body.Chunk()) != "456789" {
		t.Errorf("Expected last 6 bytes, got %q", body.Chunk())
	}
	if body.Len() != 10 {
		t.Errorf("Expected total length 10, got %d", body.Len())
	}

	body.Advance(6)
	if body.RemainingLen() != 0 || len(body.Chunk()) != 0 {
		t.Errorf("Expected exhausted body, got %d remaining", body.RemainingLen())
	}
}

// TestBodyZeroCopy verifies that the chunk is a view of the stored payload
func TestBodyZeroCopy(t *testing.T) {
	s := NewSingle([]byte("shared"))
	_, data := s.Next()
	body := NewBody(data)

	if &body.Chunk()[0] != &data[0] {
		t.Error("Expected Chunk to share memory with the store")
	}
}

// TestBodyAdvancePanics verifies that advancing past the end panics
func TestBodyAdvancePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Advance past the end to panic")
		}
	}()
	body := NewBody([]byte("abc"))
	body.Advance(4)
}

// TestEmptyBody verifies the empty default body
func TestEmptyBody(t *testing.T) {
	body := EmptyBody()
	if body.RemainingLen() != 0 || body.Len() != 0 {
		t.Errorf("Expected empty body, got %d remaining", body.RemainingLen())
	}
	body.Advance(0)

	n, err := body.Read(make([]byte, 8))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF, got n=%d err=%v", n, err)
	}
}

// TestBodyRead verifies partial reads resume where the previous read stopped
func TestBodyRead(t *testing.T) {
	body := NewBody([]byte("hello world"))
	buf := make([]byte, 4)
	var out bytes.Buffer

	for {
		n, err := body.Read(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if out.String() != "hello world" {
		t.Errorf("Expected hello world, got %q", out.String())
	}
}

// TestBodyWriteTo verifies that io.Copy streams the remainder
func TestBodyWriteTo(t *testing.T) {
	body := NewBody([]byte("hello world"))
	body.Advance(6)

	var out bytes.Buffer
	n, err := io.Copy(&out, body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 5 || out.String() != "world" {
		t.Errorf("Expected world (5 bytes), got %q (%d bytes)", out.String(), n)
	}
	if body.RemainingLen() != 0 {
		t.Errorf("Expected consumed body, %d bytes remaining", body.RemainingLen())
	}
}

// shortWriter accepts at most limit bytes per write
type shortWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		p = p[:w.limit]
	}
	return w.buf.Write(p)
}

// TestBodyShortWrite verifies that a short write keeps the rest of the body
func TestBodyShortWrite(t *testing.T) {
	body := NewBody([]byte("abcdef"))
	w := &shortWriter{limit: 2}

	n, err := body.WriteTo(w)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Expected ErrShortWrite, got %v", err)
	}
	if n != 2 || body.RemainingLen() != 4 || string(body.Chunk()) != "cdef" {
		t.Errorf("Expected 2 bytes written and cdef remaining, got %d / %q", n, body.Chunk())
	}
}
