package server

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/ValentinKolb/mockbody/lib/handle"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeTransport captures the handlers instead of listening
type fakeTransport struct {
	handlers transport.Handlers
	shutdown bool
}

func (f *fakeTransport) RegisterHandlers(h transport.Handlers) { f.handlers = h }
func (f *fakeTransport) Listen(common.ServerConfig) error      { return nil }
func (f *fakeTransport) Shutdown(context.Context) error {
	f.shutdown = true
	return nil
}

func testConfig() common.ServerConfig {
	return common.ServerConfig{
		Endpoint:      ":0",
		Transport:     common.TransportHTTP,
		TimeoutSecond: 5,
		AdminPrefix:   "/_mock",
		LookupPolicy:  common.PolicySoft,
		ServedLog:     common.ServedLogConfig{Backend: servedlog.BackendNone},
		LogLevel:      "error",
	}
}

func newTestServer(t *testing.T, config common.ServerConfig) (*MockServer, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	s := NewMockServer(config, tr, handle.New())
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, tr
}

func read(t *testing.T, body *payload.Body) string {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data)
}

func request(id string) transport.Request {
	return transport.Request{Method: http.MethodGet, Path: "/", RequestID: id}
}

func TestServeRotation(t *testing.T) {
	c := testConfig()
	c.Source = common.SourceConfig{Body: "alpha\nbeta\ngamma", SplitLines: true}
	_, tr := newTestServer(t, c)

	for i, want := range []string{"alpha", "beta", "gamma", "alpha"} {
		resp := tr.handlers.Serve(request("r"))
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, int64(i%3), resp.PayloadID.Int64())
		assert.Equal(t, want, read(t, resp.Body))
	}

	resp := tr.handlers.Replay(request("r"), payload.IDFromInt64(1))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "beta", read(t, resp.Body))
}

func TestSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true}`), 0o644))

	c := testConfig()
	c.Source = common.SourceConfig{File: path}
	_, tr := newTestServer(t, c)

	resp := tr.handlers.Serve(request("r"))
	assert.Equal(t, `{"ok":true}`, read(t, resp.Body))
}

func TestMissingSourceFile(t *testing.T) {
	c := testConfig()
	c.Source = common.SourceConfig{File: filepath.Join(t.TempDir(), "missing")}

	s := NewMockServer(c, &fakeTransport{}, handle.New())
	err := s.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, payload.ErrSourceUnavailable)
}

func TestPreinstalledHandle(t *testing.T) {
	h := handle.New()
	require.NoError(t, h.InstallFromString("preinstalled"))

	c := testConfig()
	c.Source = common.SourceConfig{Body: "configured"}
	tr := &fakeTransport{}
	s := NewMockServer(c, tr, h)
	require.NoError(t, s.Init())

	assert.Equal(t, "preinstalled", read(t, tr.handlers.Serve(request("r")).Body))
}

func TestSoftPolicy(t *testing.T) {
	_, tr := newTestServer(t, testConfig())

	resp := tr.handlers.Serve(request("r"))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, payload.ID{}, resp.PayloadID)
	assert.Equal(t, 0, resp.Body.RemainingLen())

	resp = tr.handlers.Replay(request("r"), payload.IDFromInt64(4))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 0, resp.Body.RemainingLen())
}

func TestStrictPolicy(t *testing.T) {
	t.Run("NotInstalled", func(t *testing.T) {
		c := testConfig()
		c.LookupPolicy = common.PolicyStrict
		_, tr := newTestServer(t, c)

		assert.Equal(t, http.StatusServiceUnavailable, tr.handlers.Serve(request("r")).Status)
		assert.Equal(t, http.StatusServiceUnavailable, tr.handlers.Replay(request("r"), payload.ID{}).Status)
	})

	t.Run("UnknownID", func(t *testing.T) {
		c := testConfig()
		c.LookupPolicy = common.PolicyStrict
		c.Source = common.SourceConfig{Body: "a\nb", SplitLines: true}
		_, tr := newTestServer(t, c)

		resp := tr.handlers.Replay(request("r"), payload.IDFromInt64(2))
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, 0, resp.Body.RemainingLen())
	})
}

func TestServedLookup(t *testing.T) {
	c := testConfig()
	c.Source = common.SourceConfig{Body: "a\nb\nc", SplitLines: true}
	c.ServedLog = common.ServedLogConfig{
		Backend:         servedlog.BackendSQLite,
		Path:            filepath.Join(t.TempDir(), "served.db"),
		BatchSize:       2,
		FlushIntervalMs: 5,
	}
	s, tr := newTestServer(t, c)

	tr.handlers.Serve(request("first"))
	tr.handlers.Serve(transport.Request{Method: http.MethodPost, Path: "/orders", RequestID: "second"})

	resp := tr.handlers.Lookup(context.Background(), "second")
	require.Equal(t, http.StatusOK, resp.Status)

	var doc ServedResponse
	require.NoError(t, json.Unmarshal(resp.Body, &doc))
	assert.Equal(t, "second", doc.RequestID)
	assert.Equal(t, int64(1), doc.PayloadID)
	assert.Equal(t, http.MethodPost, doc.Method)
	assert.Equal(t, "/orders", doc.Path)

	assert.Equal(t, http.StatusNotFound, tr.handlers.Lookup(context.Background(), "third").Status)

	// entries survive the shutdown flush
	require.NoError(t, s.Shutdown(context.Background()))
	backend, err := OpenServedLog(c.ServedLog)
	require.NoError(t, err)
	defer backend.Close()

	entries, err := backend.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestServedLookupDisabled(t *testing.T) {
	_, tr := newTestServer(t, testConfig())

	resp := tr.handlers.Lookup(context.Background(), "any")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, string(resp.Body), "disabled")
}

func TestMetrics(t *testing.T) {
	c := testConfig()
	c.Source = common.SourceConfig{Body: "x\ny", SplitLines: true}
	_, tr := newTestServer(t, c)

	for i := 0; i < 3; i++ {
		tr.handlers.Serve(request("r"))
	}
	tr.handlers.Replay(request("r"), payload.IDFromInt64(9))

	var buf bytes.Buffer
	tr.handlers.Metrics(&buf)
	out := buf.String()

	assert.Contains(t, out, "mockbody_served_total 3")
	assert.Contains(t, out, `mockbody_served_payload_total{id="0"} 2`)
	assert.Contains(t, out, `mockbody_served_payload_total{id="1"} 1`)
	assert.Contains(t, out, "mockbody_replay_total 1")
	assert.Contains(t, out, "mockbody_replay_miss_total 1")
	assert.Contains(t, out, "mockbody_payloads 2")
}

func TestShutdownStopsTransport(t *testing.T) {
	tr := &fakeTransport{}
	s := NewMockServer(testConfig(), tr, handle.New())
	require.NoError(t, s.Init())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.True(t, tr.shutdown)
}

func TestInvalidConfig(t *testing.T) {
	c := testConfig()
	c.Transport = "carrier-pigeon"
	assert.Error(t, NewMockServer(c, &fakeTransport{}, handle.New()).Init())
}
