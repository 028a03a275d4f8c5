package server

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// serverMetrics holds the counters of one mock server.
// Every server owns its own set, so several servers (and tests) do not share counters.
type serverMetrics struct {
	set *metrics.Set

	served        *metrics.Counter
	replays       *metrics.Counter
	replayMisses  *metrics.Counter
	lookups       *metrics.Counter
	serveDuration *metrics.Histogram
}

func newServerMetrics(payloads func() int, dropped func() uint64) *serverMetrics {
	set := metrics.NewSet()

	m := &serverMetrics{
		set:           set,
		served:        set.NewCounter("mockbody_served_total"),
		replays:       set.NewCounter("mockbody_replay_total"),
		replayMisses:  set.NewCounter("mockbody_replay_miss_total"),
		lookups:       set.NewCounter("mockbody_served_lookup_total"),
		serveDuration: set.NewHistogram("mockbody_serve_duration_seconds"),
	}

	set.NewGauge("mockbody_payloads", func() float64 {
		return float64(payloads())
	})
	set.NewGauge("mockbody_served_log_dropped_total", func() float64 {
		return float64(dropped())
	})

	return m
}

// observeServe counts a served payload
func (m *serverMetrics) observeServe(id payload.ID, start time.Time) {
	m.served.Inc()
	m.set.GetOrCreateCounter(fmt.Sprintf(`mockbody_served_payload_total{id="%s"}`, id)).Inc()
	m.serveDuration.UpdateDuration(start)
}

// write writes all metrics in Prometheus text format
func (m *serverMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
}
