package transport

import (
	"context"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/google/uuid"
	"io"
)

// Header names shared by all transports
const (
	HeaderPayloadID = "X-Payload-Id"
	HeaderRequestID = "X-Request-Id"
)

// Admin routes, relative to the configured admin prefix
const (
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
	RoutePayloads = "/payloads/"
	RouteServed   = "/served/"
)

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// Request is the transport independent view of an incoming request
type Request struct {
	Method    string
	Path      string
	RequestID string
}

// BodyResponse is the result of a serve or replay handler.
// Body is never nil, it is empty for error responses.
type BodyResponse struct {
	Status    int
	PayloadID payload.ID
	Body      *payload.Body
}

// JSONResponse is an already encoded JSON document and its status code
type JSONResponse struct {
	Status int
	Body   []byte
}

// Handlers are the callbacks a transport routes requests to
type Handlers struct {
	// Serve answers every request outside the admin prefix with the next payload
	Serve func(req Request) BodyResponse
	// Replay answers GET {prefix}/payloads/{id} with the payload of that id
	Replay func(req Request, id payload.ID) BodyResponse
	// Lookup answers GET {prefix}/served/{requestId}
	Lookup func(ctx context.Context, requestID string) JSONResponse
	// Metrics writes all metrics in Prometheus text format
	Metrics func(w io.Writer)
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport is the interface of the HTTP front of the mock server
type IServerTransport interface {
	// RegisterHandlers sets the handlers requests are routed to.
	// It must be called before Listen.
	RegisterHandlers(handlers Handlers)
	// Listen starts the transport and blocks until it fails or Shutdown is called.
	// After Shutdown it returns nil.
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting connections and waits for active requests
	// until ctx is done.
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// RequestIDOrNew returns the request id sent by the client or a new random one
func RequestIDOrNew(header string) string {
	if header != "" {
		return header
	}
	return uuid.NewString()
}
