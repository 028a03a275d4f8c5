package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/handle"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/dustin/go-humanize"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("server")

const shutdownTimeout = 10 * time.Second

// MockServer answers every request with the next payload of a handle and
// records which payload was served for which request.
type MockServer struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	handle    *handle.Handle
	recorder  *servedlog.Recorder
	metrics   *serverMetrics
}

// NewMockServer creates a new mock server.
// The handle may already be installed, the configured source is loaded into it otherwise.
//
// Usage:
//
//	s := server.NewMockServer(
//		*config,
//		http.NewHttpServerTransport(),
//		handle.New(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewMockServer(config common.ServerConfig, transport transport.IServerTransport, h *handle.Handle) *MockServer {
	s := &MockServer{
		config:    config,
		transport: transport,
		handle:    h,
	}
	s.metrics = newServerMetrics(h.Len, s.droppedEntries)
	return s
}

// Init configures the loggers, loads the payloads, opens the served log and
// registers the handlers at the transport. Serve calls it.
func (s *MockServer) Init() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}

	Logger.Infof("Created mock server")
	Logger.Infof(s.config.String())

	if err := s.loadPayloads(); err != nil {
		return err
	}

	backend, err := OpenServedLog(s.config.ServedLog)
	if err != nil {
		return fmt.Errorf("failed to open served log: %w", err)
	}
	if backend != nil {
		s.recorder = servedlog.NewRecorder(backend, &servedlog.RecorderOptions{
			BatchSize:     s.config.ServedLog.BatchSize,
			FlushInterval: s.config.ServedLog.FlushInterval(),
		})
	}

	s.transport.RegisterHandlers(s.handlers())

	return nil
}

// Serve initializes the server and listens until the transport fails or the
// process receives SIGINT or SIGTERM.
func (s *MockServer) Serve() error {
	if err := s.Init(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.transport.Listen(s.config)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		// the transport stopped on its own, still flush the served log
		return errors.Join(err, s.closeRecorder())
	case sig := <-sigCh:
		Logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.Shutdown(ctx)
	return errors.Join(err, <-errCh)
}

// Shutdown stops the transport and flushes the served log
func (s *MockServer) Shutdown(ctx context.Context) error {
	err := s.transport.Shutdown(ctx)
	return errors.Join(err, s.closeRecorder())
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// loadPayloads installs the configured source into the handle
func (s *MockServer) loadPayloads() error {
	src := s.config.Source

	var err error
	switch {
	case src.File != "" && src.SplitLines:
		err = s.handle.InstallFromLinesFile(src.File)
	case src.File != "":
		err = s.handle.InstallFromFile(src.File)
	case src.Body != "" && src.SplitLines:
		err = s.handle.InstallFromLines(src.Body)
	case src.Body != "":
		err = s.handle.InstallFromString(src.Body)
	}

	if errors.Is(err, payload.ErrAlreadyInitialized) {
		Logger.Warningf("payloads were installed before, ignoring the configured source")
	} else if err != nil {
		return fmt.Errorf("failed to load payloads: %w", err)
	}

	if !s.handle.IsInstalled() {
		Logger.Warningf("no payloads installed, every response has an empty body")
		return nil
	}

	Logger.Infof("serving %s payloads (%s)",
		humanize.Comma(int64(s.handle.Len())),
		humanize.Bytes(uint64(s.handle.Size())),
	)
	return nil
}

func (s *MockServer) closeRecorder() error {
	if s.recorder == nil {
		return nil
	}
	err := s.recorder.Close()
	if dropped := s.recorder.Dropped(); dropped > 0 {
		Logger.Warningf("%d served entries were dropped", dropped)
	}
	return err
}

func (s *MockServer) droppedEntries() uint64 {
	if s.recorder == nil {
		return 0
	}
	return s.recorder.Dropped() + s.recorder.Failed()
}
