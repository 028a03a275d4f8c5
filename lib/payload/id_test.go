package payload

import (
	"database/sql/driver"
	"errors"
	"testing"
)

func TestIDConversion(t *testing.T) {
	id := IDFromInt64(42)
	if id.Int64() != 42 || id.String() != "42" {
		t.Errorf("Expected 42, got %d (%s)", id.Int64(), id)
	}

	if (ID{}) != IDFromInt64(0) {
		t.Error("Expected the default id to equal id 0")
	}

	v, err := id.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != driver.Value(int64(42)) {
		t.Errorf("Expected int64(42), got %#v", v)
	}

	parsed, err := ParseID("42")
	if err != nil || parsed != id {
		t.Errorf("Expected to parse 42, got %s (%v)", parsed, err)
	}
	if _, err := ParseID("-1"); err == nil {
		t.Error("Expected negative id to be rejected")
	}
	if _, err := ParseID("abc"); err == nil {
		t.Error("Expected non numeric id to be rejected")
	}
}

func TestIDScan(t *testing.T) {
	sources := []interface{}{int64(7), int32(7), 7, []byte("7"), "7"}
	for _, src := range sources {
		var id ID
		if err := id.Scan(src); err != nil {
			t.Errorf("Scan(%T) failed: %v", src, err)
			continue
		}
		if id.Int64() != 7 {
			t.Errorf("Scan(%T): expected 7, got %s", src, id)
		}
	}

	var id ID
	if err := id.Scan(3.5); err == nil {
		t.Error("Expected scanning a float to fail")
	}
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("disk on fire")
	err := error(WrapError(RetCSourceUnavailable, "failed to read /tmp/x", cause))

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("Expected error to match ErrSourceUnavailable")
	}
	if errors.Is(err, ErrAlreadyInitialized) {
		t.Error("Expected error not to match ErrAlreadyInitialized")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
}
