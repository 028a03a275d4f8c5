package payload

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// ID is an opaque handle to the position of a payload inside a store.
// IDs are comparable with == and the zero value is the default id that is
// handed out when no store is installed.
//
// An ID is only meaningful for the store that produced it. It converts into a
// signed 64-bit integer so that it can be persisted next to request metadata.
type ID struct {
	index uint64
}

// IDFromInt64 reconstructs an ID from its persisted representation.
// Negative values cannot come from a store and are mapped to an id that no
// store will ever resolve.
func IDFromInt64(v int64) ID {
	if v < 0 {
		return ID{index: ^uint64(0)}
	}
	return ID{index: uint64(v)}
}

// ParseID parses the decimal representation produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid payload id %q: %w", s, err)
	}
	if v < 0 {
		return ID{}, fmt.Errorf("invalid payload id %q: must not be negative", s)
	}
	return IDFromInt64(v), nil
}

// Int64 returns the storable scalar value of the id.
func (id ID) Int64() int64 {
	return int64(id.index)
}

// String returns the decimal representation of the id.
func (id ID) String() string {
	return strconv.FormatUint(id.index, 10)
}

// --------------------------------------------------------------------------
// database/sql integration
// --------------------------------------------------------------------------

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return id.Int64(), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*id = IDFromInt64(v)
	case int32:
		*id = IDFromInt64(int64(v))
	case int:
		*id = IDFromInt64(int64(v))
	case []byte:
		parsed, err := ParseID(string(v))
		if err != nil {
			return err
		}
		*id = parsed
	case string:
		parsed, err := ParseID(v)
		if err != nil {
			return err
		}
		*id = parsed
	case nil:
		*id = ID{}
	default:
		return fmt.Errorf("cannot scan %T into payload.ID", src)
	}
	return nil
}

// GormDataType lets gorm create a bigint column for ID fields.
func (ID) GormDataType() string {
	return "bigint"
}
