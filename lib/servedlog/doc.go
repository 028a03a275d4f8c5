// Package servedlog records which payload was served for which request.
//
// Every response of the mock server carries the id of the payload it served.
// When a served log is configured, the server also records the pair
// (request id, payload id) so that a client that only kept its request id
// can later ask which payload it received.
//
// Components:
//
//   - IServedLog: the persistence interface implemented by the backends
//   - Recorder: a non-blocking front of an IServedLog used on the request path
//   - sqlstore: gorm based backend for SQLite (default) and PostgreSQL
//   - pebblestore: embedded key/value backend on top of Pebble
//
// Recorder:
//
//	Record never blocks the request. Entries are pushed onto a lock-free
//	multi-producer single-consumer queue and a single writer goroutine appends
//	them to the backend in batches (RecorderOptions.BatchSize) or after
//	RecorderOptions.FlushInterval, whichever comes first. Until an entry is
//	flushed it is kept in a concurrent map, so Lookup sees it immediately.
//
//	Close stops accepting entries, flushes everything recorded so far and
//	closes the backend. Entries recorded after Close are dropped and counted.
//
// Usage Example:
//
//	backend, err := sqlstore.New(&sqlstore.Config{Type: sqlstore.DatabaseTypeSQLite})
//	if err != nil {
//		return err
//	}
//	rec := servedlog.NewRecorder(backend, nil)
//	defer rec.Close()
//
//	rec.Record(servedlog.Entry{RequestID: reqID, PayloadID: id})
//	entry, found, err := rec.Lookup(ctx, reqID)
//
// Appending is idempotent per request id: the first entry for a request id
// wins and later entries with the same id are ignored by every backend.
package servedlog
