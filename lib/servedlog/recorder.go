package servedlog

import (
	"context"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("servedlog")

const (
	defaultBatchSize     = 256
	defaultFlushInterval = 200 * time.Millisecond
	defaultFlushTimeout  = 5 * time.Second
)

// RecorderOptions configures the batching of a Recorder
type RecorderOptions struct {
	BatchSize     int           // Maximum entries per Append call (0 = default: 256)
	FlushInterval time.Duration // Maximum time an entry waits before it is flushed (0 = default: 200ms)
}

// DefaultRecorderOptions returns the default recorder options
func DefaultRecorderOptions() *RecorderOptions {
	return &RecorderOptions{
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
	}
}

// Recorder writes served entries to a backend without blocking the caller.
//
// Record pushes the entry onto a lock-free queue. A single goroutine collects
// the entries into batches and appends them to the backend. Entries that are
// not flushed yet are kept in a concurrent map so Lookup can answer for them.
type Recorder struct {
	backend IServedLog
	queue   *mpscQueue[Entry]
	pending *xsync.MapOf[string, Entry]
	opts    RecorderOptions

	dropped atomic.Uint64
	failed  atomic.Uint64
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewRecorder creates a recorder for the given backend and starts its writer.
// opts may be nil.
func NewRecorder(backend IServedLog, opts *RecorderOptions) *Recorder {
	if opts == nil {
		opts = DefaultRecorderOptions()
	}
	o := *opts
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = defaultFlushInterval
	}

	r := &Recorder{
		backend: backend,
		queue:   newMPSCQueue[Entry](),
		pending: xsync.NewMapOf[string, Entry](),
		opts:    o,
		done:    make(chan struct{}),
	}

	go r.run()

	return r
}

// Record queues an entry. It never blocks. It returns false if the recorder
// is closed, the entry is dropped in that case.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Recorder) Record(entry Entry) bool {
	if entry.ServedAt.IsZero() {
		entry.ServedAt = time.Now()
	}

	// the first entry of a request id wins, as in the backends. A duplicate of
	// a pending entry is not queued, the first one is still on its way.
	if _, loaded := r.pending.LoadOrStore(entry.RequestID, entry); loaded {
		return true
	}
	if !r.queue.push(entry) {
		r.pending.Delete(entry.RequestID)
		r.dropped.Add(1)
		return false
	}
	return true
}

// Lookup returns the entry of a request, including entries that were not
// flushed to the backend yet.
func (r *Recorder) Lookup(ctx context.Context, requestID string) (Entry, bool, error) {
	if entry, ok := r.pending.Load(requestID); ok {
		return entry, true, nil
	}
	return r.backend.Lookup(ctx, requestID)
}

// List returns up to limit entries from the backend. Entries that are not
// flushed yet are not included.
func (r *Recorder) List(ctx context.Context, limit int) ([]Entry, error) {
	return r.backend.List(ctx, limit)
}

// Dropped returns the number of entries that could not be recorded because
// the recorder was closed.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Failed returns the number of entries that the backend rejected.
func (r *Recorder) Failed() uint64 {
	return r.failed.Load()
}

// Pending returns the number of entries not flushed yet.
func (r *Recorder) Pending() int {
	return r.pending.Size()
}

// Close stops accepting entries, flushes everything that was recorded and
// closes the backend. Calling Close more than once returns the first result.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.queue.close()
		<-r.done

		if err := r.backend.Close(); err != nil {
			r.closeErr = fmt.Errorf("failed to close served log: %w", err)
		}
	})
	return r.closeErr
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// run is the single consumer of the queue. It returns after the queue was
// closed and drained.
func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, r.opts.BatchSize)
	for {
		select {
		case entry, ok := <-r.queue.recv():
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= r.opts.BatchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// flush appends a batch to the backend and removes it from the pending map
func (r *Recorder) flush(batch []Entry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultFlushTimeout)
	defer cancel()

	start := time.Now()
	if err := r.backend.Append(ctx, batch...); err != nil {
		r.failed.Add(uint64(len(batch)))
		Logger.Errorf("failed to append %d served entries: %v", len(batch), err)
	} else {
		Logger.Debugf("flushed %d served entries in %s", len(batch), time.Since(start))
	}

	for _, entry := range batch {
		// only remove the entry if it was not replaced in the meantime, a
		// missing key must stay missing
		r.pending.Compute(entry.RequestID, func(old Entry, loaded bool) (Entry, bool) {
			return old, !loaded || old == entry
		})
	}
}
