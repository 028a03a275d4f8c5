package servedlog

import (
	"context"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"time"
)

// Backend names a served log implementation
type Backend string

const (
	BackendNone     Backend = "none"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendPebble   Backend = "pebble"
)

// Entry records which payload was served for which request.
type Entry struct {
	RequestID string     `json:"request_id"`
	PayloadID payload.ID `json:"-"`
	Method    string     `json:"method"`
	Path      string     `json:"path"`
	ServedAt  time.Time  `json:"served_at"`
}

// IServedLog persists served entries so that a request can later be
// correlated with the payload it received.
type IServedLog interface {
	// Append stores the given entries. Entries with a request id that is
	// already stored are ignored.
	Append(ctx context.Context, entries ...Entry) (err error)
	// Lookup returns the entry for a request id. The boolean is false if no
	// entry exists for the request id.
	Lookup(ctx context.Context, requestID string) (entry Entry, found bool, err error)
	// List returns up to limit entries. A limit <= 0 means no limit.
	List(ctx context.Context, limit int) (entries []Entry, err error)
	// Close releases the resources of the log.
	Close() (err error)
}
