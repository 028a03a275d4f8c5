package payload

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

// TestWrapAround verifies that the ids wrap around after the last payload
func TestWrapAround(t *testing.T) {
	s, err := NewFromSlices([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	expected := []int64{0, 1, 2, 0, 1, 2}
	for i, want := range expected {
		id, _ := s.Next()
		if id.Int64() != want {
			t.Errorf("Call %d: expected id %d, got %d", i+1, want, id.Int64())
		}
	}
}

// TestRoundRobinFairness verifies that any len consecutive calls return every id exactly once
func TestRoundRobinFairness(t *testing.T) {
	const n = 7
	items := make([][]byte, n)
	for i := range items {
		items[i] = []byte{byte('a' + i)}
	}
	s, err := NewFromSlices(items)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// advance the cursor to an arbitrary offset first
	for i := 0; i < 3; i++ {
		s.Next()
	}

	for window := 0; window < 5; window++ {
		seen := make(map[ID]int)
		for i := 0; i < n; i++ {
			id, data := s.Next()
			seen[id]++
			if want, _ := s.Get(id); !bytes.Equal(data, want) {
				t.Errorf("Next returned %q for id %s, Get returned %q", data, id, want)
			}
		}
		if len(seen) != n {
			t.Errorf("Window %d: expected %d distinct ids, got %d", window, n, len(seen))
		}
		for id, count := range seen {
			if count != 1 {
				t.Errorf("Window %d: id %s returned %d times", window, id, count)
			}
		}
	}
}

// TestConcurrentFairness checks that k*N concurrent calls return every id exactly k times
func TestConcurrentFairness(t *testing.T) {
	const (
		n          = 5
		k          = 2000
		goroutines = 16
	)
	items := make([][]byte, n)
	for i := range items {
		items[i] = []byte{byte(i)}
	}
	s, err := NewFromSlices(items)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	total := n * k
	results := make(chan ID, total)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			// distribute the calls as evenly as possible
			calls := total / goroutines
			if g < total%goroutines {
				calls++
			}
			for i := 0; i < calls; i++ {
				id, data := s.Next()
				if len(data) != 1 || int64(data[0]) != id.Int64() {
					t.Errorf("Payload %v does not belong to id %s", data, id)
				}
				results <- id
			}
		}(g)
	}
	wg.Wait()
	close(results)

	counts := make(map[int64]int)
	for id := range results {
		if id.Int64() < 0 || id.Int64() >= n {
			t.Fatalf("Id %s out of range", id)
		}
		counts[id.Int64()]++
	}
	for i := int64(0); i < n; i++ {
		if counts[i] != k {
			t.Errorf("Expected id %d exactly %d times, got %d", i, k, counts[i])
		}
	}
}

// TestIdempotentGet verifies that Get returns the same bytes and never moves the cursor
func TestIdempotentGet(t *testing.T) {
	s, err := NewFromLines([]byte("alpha\nbeta\ngamma"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for i := 0; i < 10; i++ {
		data, ok := s.Get(IDFromInt64(1))
		if !ok || string(data) != "beta" {
			t.Errorf("Expected beta, got %q (ok=%t)", data, ok)
		}
	}

	// the cursor must still be at the first payload
	id, data := s.Next()
	if id.Int64() != 0 || string(data) != "alpha" {
		t.Errorf("Expected id 0 (alpha) after Get calls, got %s (%q)", id, data)
	}

	if _, ok := s.Get(IDFromInt64(3)); ok {
		t.Error("Expected out of range id to be missing")
	}
	if _, ok := s.Get(IDFromInt64(-1)); ok {
		t.Error("Expected negative id to be missing")
	}
}

// TestSingle verifies the single payload store
func TestSingle(t *testing.T) {
	data := []byte("0123456789")
	s := NewSingle(data)

	if s.Len() != 1 || s.Size() != 10 {
		t.Fatalf("Expected 1 payload of 10 bytes, got %d payloads of %d bytes", s.Len(), s.Size())
	}

	// the store owns its copy
	data[0] = 'X'

	for i := 0; i < 5; i++ {
		id, got := s.Next()
		if id != (ID{}) {
			t.Errorf("Expected default id, got %s", id)
		}
		if string(got) != "0123456789" {
			t.Errorf("Expected original bytes, got %q", got)
		}
	}
}

// TestEmptyStore verifies that stores without payloads are rejected
func TestEmptyStore(t *testing.T) {
	if _, err := NewFromSlices(nil); !errors.Is(err, ErrEmptyStore) {
		t.Errorf("Expected ErrEmptyStore, got %v", err)
	}
	if _, err := NewFromLines([]byte("")); !errors.Is(err, ErrEmptyStore) {
		t.Errorf("Expected ErrEmptyStore for empty text, got %v", err)
	}
}

// TestSplitLines verifies the line splitting rules
func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "a\nb\nc", []string{"a", "b", "c"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"empty lines", "a\n\nb\n\n", []string{"a", "", "b", ""}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"lone cr", "a\rb", []string{"a\rb"}},
		{"only newline", "\n", []string{""}},
		{"empty", "", nil},
		{"raw bytes", "\xff\xfe\n\x00", []string{"\xff\xfe", "\x00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines([]byte(tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d lines, got %d (%q)", len(tt.want), len(got), got)
			}
			for i := range got {
				if string(got[i]) != tt.want[i] {
					t.Errorf("Line %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

// TestEmptyLinePayload verifies that empty lines are served as empty payloads
func TestEmptyLinePayload(t *testing.T) {
	s, err := NewFromLines([]byte("a\n\nb"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Expected 3 payloads, got %d", s.Len())
	}
	data, ok := s.Get(IDFromInt64(1))
	if !ok || data == nil || len(data) != 0 {
		t.Errorf("Expected an empty, non-nil payload, got %v (ok=%t)", data, ok)
	}
}

func BenchmarkNext(b *testing.B) {
	s, _ := NewFromLines([]byte("alpha\nbeta\ngamma\ndelta"))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Next()
		}
	})
}
