package server

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"net/http"
	"time"
)

// ServedResponse is the JSON document of GET {prefix}/served/{requestId}
type ServedResponse struct {
	RequestID string    `json:"request_id"`
	PayloadID int64     `json:"payload_id"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	ServedAt  time.Time `json:"served_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlers builds the transport handlers of the server
func (s *MockServer) handlers() transport.Handlers {
	return transport.Handlers{
		Serve:   s.handleServe,
		Replay:  s.handleReplay,
		Lookup:  s.handleLookup,
		Metrics: s.metrics.write,
	}
}

// --------------------------------------------------------------------------
// Serve / Replay
// --------------------------------------------------------------------------

func (s *MockServer) strict() bool {
	return s.config.LookupPolicy == common.PolicyStrict
}

func (s *MockServer) handleServe(req transport.Request) transport.BodyResponse {
	start := time.Now()

	id, body, err := s.handle.TryNextBody()
	if err != nil && s.strict() {
		return transport.BodyResponse{Status: http.StatusServiceUnavailable, PayloadID: id, Body: body}
	}

	s.metrics.observeServe(id, start)

	if s.recorder != nil {
		s.recorder.Record(servedlog.Entry{
			RequestID: req.RequestID,
			PayloadID: id,
			Method:    req.Method,
			Path:      req.Path,
			ServedAt:  start,
		})
	}

	return transport.BodyResponse{Status: http.StatusOK, PayloadID: id, Body: body}
}

func (s *MockServer) handleReplay(_ transport.Request, id payload.ID) transport.BodyResponse {
	s.metrics.replays.Inc()

	body, err := s.handle.TryBodyByID(id)
	if err == nil {
		return transport.BodyResponse{Status: http.StatusOK, PayloadID: id, Body: body}
	}

	s.metrics.replayMisses.Inc()
	Logger.Debugf("replay of payload %s failed: %v", id, err)

	status := http.StatusOK
	if s.strict() {
		if errors.Is(err, payload.ErrNotInstalled) {
			status = http.StatusServiceUnavailable
		} else {
			status = http.StatusNotFound
		}
	}
	return transport.BodyResponse{Status: status, PayloadID: id, Body: body}
}

// --------------------------------------------------------------------------
// Served log lookup
// --------------------------------------------------------------------------

func (s *MockServer) handleLookup(ctx context.Context, requestID string) transport.JSONResponse {
	s.metrics.lookups.Inc()

	if s.recorder == nil {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "served log is disabled"})
	}

	entry, found, err := s.recorder.Lookup(ctx, requestID)
	if err != nil {
		Logger.Errorf("failed to look up request %s: %v", requestID, err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
	}
	if !found {
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "unknown request id"})
	}

	return jsonResponse(http.StatusOK, NewServedResponse(entry))
}

// NewServedResponse converts a served log entry to its JSON document
func NewServedResponse(entry servedlog.Entry) ServedResponse {
	return ServedResponse{
		RequestID: entry.RequestID,
		PayloadID: entry.PayloadID.Int64(),
		Method:    entry.Method,
		Path:      entry.Path,
		ServedAt:  entry.ServedAt,
	}
}

func jsonResponse(status int, v interface{}) transport.JSONResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return transport.JSONResponse{Status: http.StatusInternalServerError, Body: []byte(`{"error":"encoding failed"}`)}
	}
	return transport.JSONResponse{Status: status, Body: data}
}
