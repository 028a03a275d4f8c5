package http

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/http")

func NewHttpServerTransport() transport.IServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handlers transport.Handlers
	config   common.ServerConfig

	server atomic.Pointer[http.Server]
	closed atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandlers(handlers transport.Handlers) {
	t.handlers = handlers
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	t.config = config

	ln, err := listen(config.Endpoint)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      t.router(),
		ReadTimeout:  config.Timeout(),
		WriteTimeout: config.Timeout(),
		IdleTimeout:  2 * config.Timeout(),
	}
	t.server.Store(server)

	// Shutdown may have been called before the server existed
	if t.closed.Load() {
		_ = ln.Close()
		return nil
	}

	Logger.Infof("Starting HTTP server on %s", config.Endpoint)

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *httpServerTransport) Shutdown(ctx context.Context) error {
	t.closed.Store(true)
	server := t.server.Load()
	if server == nil {
		return nil
	}
	Logger.Infof("Shutting down HTTP server")
	return server.Shutdown(ctx)
}

// --------------------------------------------------------------------------
// Routing
// --------------------------------------------------------------------------

// router builds the chi router for the configured admin prefix
func (t *httpServerTransport) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if strings.EqualFold(t.config.LogLevel, "debug") {
		r.Use(loggerMiddleware)
	}

	r.Route(t.config.AdminPrefix, func(r chi.Router) {
		r.Get(transport.RouteHealth, handleHealth)
		r.Get(transport.RouteMetrics, t.handleMetrics)
		r.Get(transport.RoutePayloads+"{id}", t.handleReplay)
		r.Get(transport.RouteServed+"{requestId}", t.handleLookup)
	})

	r.HandleFunc("/*", t.handleServe)

	return r
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (t *httpServerTransport) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	t.handlers.Metrics(w)
}

func (t *httpServerTransport) handleServe(w http.ResponseWriter, r *http.Request) {
	req := newRequest(r)
	writeBody(w, r, req, t.handlers.Serve(req))
}

func (t *httpServerTransport) handleReplay(w http.ResponseWriter, r *http.Request) {
	id, err := payload.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid payload id", http.StatusBadRequest)
		return
	}

	req := newRequest(r)
	writeBody(w, r, req, t.handlers.Replay(req, id))
}

func (t *httpServerTransport) handleLookup(w http.ResponseWriter, r *http.Request) {
	resp := t.handlers.Lookup(r.Context(), chi.URLParam(r, "requestId"))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// listen opens a tcp listener or, for endpoints of the form unix:/path.sock, a unix socket
func listen(endpoint string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(endpoint, "unix:"); ok {
		// remove a stale socket of a previous run
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove existing socket %s: %w", path, err)
		}
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", endpoint)
}

func newRequest(r *http.Request) transport.Request {
	return transport.Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: transport.RequestIDOrNew(r.Header.Get(transport.HeaderRequestID)),
	}
}

// writeBody writes the headers and streams the body of a serve or replay response
func writeBody(w http.ResponseWriter, r *http.Request, req transport.Request, resp transport.BodyResponse) {
	header := w.Header()
	header.Set(transport.HeaderRequestID, req.RequestID)
	header.Set(transport.HeaderPayloadID, resp.PayloadID.String())
	header.Set("Content-Length", strconv.Itoa(resp.Body.RemainingLen()))
	w.WriteHeader(resp.Status)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		Logger.Debugf("failed to write body of payload %s: %v", resp.PayloadID, err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// loggerMiddleware logs every request at debug level
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		Logger.Debugf("%s %s => %d (%d bytes) took %s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}
