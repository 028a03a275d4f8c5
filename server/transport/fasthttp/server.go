package fasthttp

import (
	"context"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/fasthttp"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/fasthttp")

const (
	readBufferSize     = 16 * 1024
	maxRequestBodySize = 8 * 1024 * 1024
)

func NewFastHttpServerTransport() transport.IServerTransport {
	return &fastHttpServerTransport{}
}

type fastHttpServerTransport struct {
	handlers transport.Handlers
	config   common.ServerConfig
	debug    bool

	server atomic.Pointer[fasthttp.Server]
	closed atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *fastHttpServerTransport) RegisterHandlers(handlers transport.Handlers) {
	t.handlers = handlers
}

func (t *fastHttpServerTransport) Listen(config common.ServerConfig) error {
	t.config = config

	ln, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return err
	}

	Logger.Infof("Starting fasthttp server on %s", config.Endpoint)

	return t.serve(ln)
}

func (t *fastHttpServerTransport) Shutdown(ctx context.Context) error {
	t.closed.Store(true)
	server := t.server.Load()
	if server == nil {
		return nil
	}

	Logger.Infof("Shutting down fasthttp server")

	done := make(chan error, 1)
	go func() {
		done <- server.Shutdown()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// serve runs the server on the given listener until Shutdown is called
func (t *fastHttpServerTransport) serve(ln net.Listener) error {
	t.debug = strings.EqualFold(t.config.LogLevel, "debug")

	server := &fasthttp.Server{
		Handler:            t.handleRequest,
		Name:               "mockbody",
		ReadBufferSize:     readBufferSize,
		MaxRequestBodySize: maxRequestBodySize,
		ReadTimeout:        t.config.Timeout(),
		WriteTimeout:       t.config.Timeout(),
		IdleTimeout:        2 * t.config.Timeout(),
		Logger:             serverLogger{},
	}
	t.server.Store(server)

	// Shutdown may have been called before the server existed
	if t.closed.Load() {
		return ln.Close()
	}

	return server.Serve(ln)
}

// --------------------------------------------------------------------------
// Routing
// --------------------------------------------------------------------------

func (t *fastHttpServerTransport) handleRequest(ctx *fasthttp.RequestCtx) {
	start := time.Now()

	t.route(ctx)

	if t.debug {
		Logger.Debugf("%s %s => %d took %s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start))
	}
}

func (t *fastHttpServerTransport) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	// the bare prefix belongs to the admin routes and has no handler
	if path == t.config.AdminPrefix {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}

	rest, isAdmin := strings.CutPrefix(path, t.config.AdminPrefix+"/")
	if !isAdmin {
		t.handleServe(ctx, path)
		return
	}

	if !ctx.IsGet() && !ctx.IsHead() {
		ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		return
	}

	rest = "/" + rest
	switch {
	case rest == transport.RouteHealth:
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case rest == transport.RouteMetrics:
		ctx.SetContentType("text/plain; version=0.0.4")
		t.handlers.Metrics(ctx)
	case strings.HasPrefix(rest, transport.RoutePayloads):
		t.handleReplay(ctx, path, strings.TrimPrefix(rest, transport.RoutePayloads))
	case strings.HasPrefix(rest, transport.RouteServed):
		t.handleLookup(ctx, strings.TrimPrefix(rest, transport.RouteServed))
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (t *fastHttpServerTransport) handleServe(ctx *fasthttp.RequestCtx, path string) {
	req := newRequest(ctx, path)
	writeBody(ctx, req, t.handlers.Serve(req))
}

func (t *fastHttpServerTransport) handleReplay(ctx *fasthttp.RequestCtx, path, rawID string) {
	id, err := payload.ParseID(rawID)
	if err != nil || strings.Contains(rawID, "/") {
		ctx.Error("Invalid payload id", fasthttp.StatusBadRequest)
		return
	}

	req := newRequest(ctx, path)
	writeBody(ctx, req, t.handlers.Replay(req, id))
}

func (t *fastHttpServerTransport) handleLookup(ctx *fasthttp.RequestCtx, requestID string) {
	if requestID == "" || strings.Contains(requestID, "/") {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}

	resp := t.handlers.Lookup(ctx, requestID)

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(resp.Status)
	ctx.SetBody(resp.Body)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func newRequest(ctx *fasthttp.RequestCtx, path string) transport.Request {
	return transport.Request{
		Method:    string(ctx.Method()),
		Path:      path,
		RequestID: transport.RequestIDOrNew(string(ctx.Request.Header.Peek(transport.HeaderRequestID))),
	}
}

// writeBody sets the headers and hands the body to fasthttp as a stream of known size
func writeBody(ctx *fasthttp.RequestCtx, req transport.Request, resp transport.BodyResponse) {
	ctx.Response.Header.Set(transport.HeaderRequestID, req.RequestID)
	ctx.Response.Header.Set(transport.HeaderPayloadID, resp.PayloadID.String())
	ctx.SetStatusCode(resp.Status)
	ctx.SetBodyStream(resp.Body, resp.Body.RemainingLen())
}

// serverLogger routes fasthttp's internal messages to the package logger
type serverLogger struct{}

func (serverLogger) Printf(format string, args ...interface{}) {
	Logger.Warningf(format, args...)
}
