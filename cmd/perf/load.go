package perf

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// loadConfig describes one load test run
type loadConfig struct {
	Target      string        // URL every request is sent to
	Method      string        // HTTP method
	Requests    int           // total number of requests (0 = until Duration is over)
	Duration    time.Duration // maximum duration of the run (0 = until Requests are sent)
	Threads     int           // number of concurrent workers
	Rate        float64       // maximum requests per second over all workers (0 = unlimited)
	AdminURL    string        // base URL of the admin routes, used for the replay check
	ReplayCheck bool          // replay every seen payload id and compare it with the served body
}

// loadResult is the outcome of a load test run
type loadResult struct {
	Timer    metrics.Timer   // latency histogram and throughput meter of successful requests
	Errors   metrics.Counter // failed requests (transport errors and non 2xx status codes)
	Bytes    metrics.Counter // received body bytes
	Elapsed  time.Duration
	Payloads map[int64]int64 // number of responses per payload id

	ReplayChecked    int
	ReplayMismatches []int64
}

// Fair reports whether every payload was served equally often (at most one apart)
func (r *loadResult) Fair() bool {
	if len(r.Payloads) == 0 {
		return true
	}
	var lo, hi int64 = -1, 0
	for _, n := range r.Payloads {
		if lo < 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return hi-lo <= 1
}

// PayloadIDs returns the seen payload ids in ascending order
func (r *loadResult) PayloadIDs() []int64 {
	ids := make([]int64, 0, len(r.Payloads))
	for id := range r.Payloads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// runLoad sends requests to the target until the request count or the duration is reached
func runLoad(ctx context.Context, config loadConfig, client *http.Client) (*loadResult, error) {
	if config.Requests <= 0 && config.Duration <= 0 {
		return nil, fmt.Errorf("either a request count or a duration is required")
	}
	if config.Threads <= 0 {
		config.Threads = 1
	}

	if config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.Rate), config.Threads)
	}

	result := &loadResult{
		Timer:  metrics.NewTimer(),
		Errors: metrics.NewCounter(),
		Bytes:  metrics.NewCounter(),
	}
	defer result.Timer.Stop()

	payloads := xsync.NewMapOf[int64, *atomic.Int64]()
	bodies := xsync.NewMapOf[int64, []byte]()

	var issued atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < config.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if config.Requests > 0 && issued.Add(1) > int64(config.Requests) {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				if ctx.Err() != nil {
					return
				}

				reqStart := time.Now()
				id, body, err := fetch(ctx, client, config.Method, config.Target)
				if err != nil {
					if ctx.Err() == nil {
						result.Errors.Inc(1)
					}
					continue
				}
				result.Timer.UpdateSince(reqStart)
				result.Bytes.Inc(int64(len(body)))

				counter, _ := payloads.LoadOrCompute(id, func() *atomic.Int64 { return &atomic.Int64{} })
				counter.Add(1)
				if config.ReplayCheck {
					bodies.LoadOrStore(id, body)
				}
			}
		}()
	}
	wg.Wait()

	result.Elapsed = time.Since(start)
	result.Payloads = make(map[int64]int64, payloads.Size())
	payloads.Range(func(id int64, n *atomic.Int64) bool {
		result.Payloads[id] = n.Load()
		return true
	})

	if config.ReplayCheck {
		if err := replayCheck(context.Background(), client, config.AdminURL, bodies, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// replayCheck fetches every seen payload id from the replay route and compares the bodies
func replayCheck(ctx context.Context, client *http.Client, adminURL string, bodies *xsync.MapOf[int64, []byte], result *loadResult) error {
	var firstErr error
	bodies.Range(func(id int64, served []byte) bool {
		_, replayed, err := fetch(ctx, client, http.MethodGet, fmt.Sprintf("%s/payloads/%d", adminURL, id))
		if err != nil {
			firstErr = fmt.Errorf("replay of payload %d failed: %w", id, err)
			return false
		}
		result.ReplayChecked++
		if !bytes.Equal(served, replayed) {
			result.ReplayMismatches = append(result.ReplayMismatches, id)
		}
		return true
	})
	return firstErr
}

// fetch sends one request and returns the payload id header and the body
func fetch(ctx context.Context, client *http.Client, method, url string) (int64, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, nil, fmt.Errorf("http error: %s", resp.Status)
	}

	id, err := strconv.ParseInt(resp.Header.Get(transport.HeaderPayloadID), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid %s header: %w", transport.HeaderPayloadID, err)
	}
	return id, body, nil
}
