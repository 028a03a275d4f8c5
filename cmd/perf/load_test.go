package perf

import (
	"context"
	"github.com/ValentinKolb/mockbody/lib/handle"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newMockServer serves the payloads of a handle the way the mock server does
func newMockServer(t *testing.T, lines string, corruptReplay bool) *httptest.Server {
	t.Helper()
	h := handle.New()
	require.NoError(t, h.InstallFromLines(lines))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			id   payload.ID
			body *payload.Body
		)
		if rest, ok := strings.CutPrefix(r.URL.Path, "/_mock/payloads/"); ok {
			var err error
			if id, err = payload.ParseID(rest); err != nil {
				http.Error(w, "bad id", http.StatusBadRequest)
				return
			}
			body = h.BodyByID(id)
			if corruptReplay {
				body = payload.NewBody([]byte("corrupt"))
			}
		} else {
			id, body = h.NextBody()
		}
		w.Header().Set(transport.HeaderPayloadID, id.String())
		_, _ = io.Copy(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunLoadFairness(t *testing.T) {
	srv := newMockServer(t, "a\nb\nc", false)

	result, err := runLoad(context.Background(), loadConfig{
		Target:      srv.URL + "/",
		Method:      http.MethodGet,
		Requests:    300,
		Threads:     8,
		AdminURL:    srv.URL + "/_mock",
		ReplayCheck: true,
	}, srv.Client())
	require.NoError(t, err)

	assert.Equal(t, int64(300), result.Timer.Count())
	assert.Equal(t, int64(0), result.Errors.Count())
	assert.Equal(t, []int64{0, 1, 2}, result.PayloadIDs())
	assert.Equal(t, map[int64]int64{0: 100, 1: 100, 2: 100}, result.Payloads)
	assert.True(t, result.Fair())
	assert.Equal(t, 3, result.ReplayChecked)
	assert.Empty(t, result.ReplayMismatches)
}

func TestRunLoadReplayMismatch(t *testing.T) {
	srv := newMockServer(t, "a\nb", true)

	result, err := runLoad(context.Background(), loadConfig{
		Target:      srv.URL,
		Method:      http.MethodGet,
		Requests:    4,
		Threads:     1,
		AdminURL:    srv.URL + "/_mock",
		ReplayCheck: true,
	}, srv.Client())
	require.NoError(t, err)
	assert.Len(t, result.ReplayMismatches, 2)
}

func TestRunLoadDurationAndRate(t *testing.T) {
	srv := newMockServer(t, "x", false)

	start := time.Now()
	result, err := runLoad(context.Background(), loadConfig{
		Target:   srv.URL,
		Method:   http.MethodGet,
		Duration: 200 * time.Millisecond,
		Threads:  2,
		Rate:     50,
	}, srv.Client())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	// 50 req/s for 0.2s plus the initial burst
	assert.LessOrEqual(t, result.Timer.Count(), int64(20))
	assert.Greater(t, result.Timer.Count(), int64(0))
}

func TestRunLoadCountsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result, err := runLoad(context.Background(), loadConfig{Target: srv.URL, Method: http.MethodGet, Requests: 5, Threads: 1}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Errors.Count())
	assert.Equal(t, int64(0), result.Timer.Count())
}

func TestRunLoadNeedsLimit(t *testing.T) {
	_, err := runLoad(context.Background(), loadConfig{Target: "http://localhost"}, http.DefaultClient)
	assert.Error(t, err)
}

func TestFair(t *testing.T) {
	assert.True(t, (&loadResult{Payloads: map[int64]int64{0: 4, 1: 3}}).Fair())
	assert.False(t, (&loadResult{Payloads: map[int64]int64{0: 5, 1: 3}}).Fair())
	assert.True(t, (&loadResult{}).Fair())
}

func TestBaseURL(t *testing.T) {
	base, err := baseURL("http://localhost:8080/api/v1?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", base)

	_, err = baseURL("localhost:8080")
	assert.Error(t, err)
}
