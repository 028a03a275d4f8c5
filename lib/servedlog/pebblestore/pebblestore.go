package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/cockroachdb/pebble"
	"strconv"
	"sync"
	"time"
)

// Key layout:
//
//	served/<requestID>  -> record (lookup by request id)
//	seq/<%020d seq>     -> record (insertion order, used by List)
const (
	servedPrefix = "served/"
	seqPrefix    = "seq/"
)

// record is the stored JSON value of an entry
type record struct {
	Seq       uint64    `json:"seq"`
	RequestID string    `json:"request_id"`
	PayloadID int64     `json:"payload_id"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	ServedAt  time.Time `json:"served_at"`
}

func (r record) entry() servedlog.Entry {
	return servedlog.Entry{
		RequestID: r.RequestID,
		PayloadID: payload.IDFromInt64(r.PayloadID),
		Method:    r.Method,
		Path:      r.Path,
		ServedAt:  r.ServedAt,
	}
}

func servedKey(requestID string) []byte {
	return []byte(servedPrefix + requestID)
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", seqPrefix, seq))
}

// prefixUpperBound returns the smallest key greater than every key with the prefix
func prefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

// store implements servedlog.IServedLog on top of an embedded Pebble database
type store struct {
	db *pebble.DB

	// serializes appends so duplicate checks and sequence numbers are consistent
	mu  sync.Mutex
	seq uint64
}

// New opens (or creates) the Pebble database at path.
func New(path string) (servedlog.IServedLog, error) {
	if path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	s := &store{db: db}
	if s.seq, err = s.lastSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}

	servedlog.Logger.Infof("opened pebble served log at %s (%d entries)", path, s.seq)

	return s, nil
}

// lastSeq reads the highest sequence number in the database
func (s *store) lastSeq() (uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(seqPrefix),
		UpperBound: prefixUpperBound(seqPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	seq, err := strconv.ParseUint(string(iter.Key()[len(seqPrefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence key %q: %w", iter.Key(), err)
	}
	return seq, nil
}

func (s *store) Append(ctx context.Context, entries ...servedlog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	seq := s.seq
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.RequestID]; ok {
			continue
		}
		exists, err := s.exists(e.RequestID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		seen[e.RequestID] = struct{}{}

		seq++
		data, err := json.Marshal(record{
			Seq:       seq,
			RequestID: e.RequestID,
			PayloadID: e.PayloadID.Int64(),
			Method:    e.Method,
			Path:      e.Path,
			ServedAt:  e.ServedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to encode served entry: %w", err)
		}
		if err := batch.Set(servedKey(e.RequestID), data, nil); err != nil {
			return err
		}
		if err := batch.Set(seqKey(seq), data, nil); err != nil {
			return err
		}
	}

	if batch.Empty() {
		return nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to append served entries: %w", err)
	}
	s.seq = seq
	return nil
}

func (s *store) exists(requestID string) (bool, error) {
	_, closer, err := s.db.Get(servedKey(requestID))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (s *store) Lookup(_ context.Context, requestID string) (servedlog.Entry, bool, error) {
	value, closer, err := s.db.Get(servedKey(requestID))
	if errors.Is(err, pebble.ErrNotFound) {
		return servedlog.Entry{}, false, nil
	}
	if err != nil {
		return servedlog.Entry{}, false, fmt.Errorf("failed to look up request %s: %w", requestID, err)
	}
	defer closer.Close()

	var r record
	if err := json.Unmarshal(value, &r); err != nil {
		return servedlog.Entry{}, false, fmt.Errorf("invalid served entry for %s: %w", requestID, err)
	}
	return r.entry(), true, nil
}

func (s *store) List(ctx context.Context, limit int) ([]servedlog.Entry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(seqPrefix),
		UpperBound: prefixUpperBound(seqPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []servedlog.Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var r record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, fmt.Errorf("invalid served entry at %s: %w", iter.Key(), err)
		}
		out = append(out, r.entry())
	}
	return out, iter.Error()
}

func (s *store) Close() error {
	return s.db.Close()
}
