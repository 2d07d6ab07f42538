// Package server wires the Channel Registry, Channel Command Queue, and
// transports into the HTTP surface described in spec §4.7 and §6, and owns
// the process's HTTP lifecycle and purge-sweep janitor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/onec-mcp/bridge/internal/channel"
	"github.com/onec-mcp/bridge/internal/config"
	"github.com/onec-mcp/bridge/internal/queue"
	"github.com/onec-mcp/bridge/internal/transport"
)

// purgeSweepInterval is how often the janitor runs. It is a fixed 30s and
// does not depend on the configured await timeout; each sweep drops pending
// commands older than that await timeout (spec §9 "add a bounded variant... purge sweep provide an
// upper bound on residency").
const purgeSweepInterval = 30 * time.Second

// Server owns the broker's shared state and HTTP bring-up/shutdown.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *channel.Registry
	queue    *queue.ChannelCommandQueue
	sse      *transport.SSETransport

	httpServer  *http.Server
	stopJanitor chan struct{}
}

// New constructs a Server with fresh, empty state.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	registry := channel.NewRegistry()
	return &Server{
		cfg:         cfg,
		logger:      logger,
		registry:    registry,
		queue:       queue.NewChannelCommandQueue(),
		sse:         transport.NewSSETransport(registry, "/mcp/message"),
		stopJanitor: make(chan struct{}),
	}
}

// routes builds the route table (spec §6). gorilla/mux gives the REST
// mirror path parameterization the teacher's bare http.ServeMux cannot
// express cleanly.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	modern := transport.WithChannelBinding(s.registry, transport.NewModernHandler(s.newMCPServer))
	legacy := http.HandlerFunc(s.sse.ServeHTTP)
	r.Handle("/mcp", transport.Dispatch(modern, legacy)).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	r.HandleFunc("/mcp/message", s.sse.HandleMessage).Methods(http.MethodPost)

	r.HandleFunc("/1c/poll", s.handlePoll).Methods(http.MethodGet)
	r.HandleFunc("/1c/result", s.handleResult).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/{tool}", s.handleAPI).Methods(http.MethodGet, http.MethodPost)

	return r
}

// Start binds the listener in the background and starts the purge-sweep
// janitor, mirroring serveServer.Start's startup-error channel plus a short
// grace window to surface immediate bind failures synchronously.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.routes(),
	}

	go s.purgeSweep()

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Stop drains the janitor and shuts the HTTP server down within ctx's
// deadline, letting in-flight submit→await calls finish rather than
// dropping them.
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.stopJanitor:
	default:
		close(s.stopJanitor)
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) purgeSweep() {
	ticker := time.NewTicker(purgeSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.queue.PurgeOlderThan(s.cfg.AwaitTimeout); n > 0 {
				s.logger.Debug("purged stale pending commands", "count", n)
			}
		case <-s.stopJanitor:
			return
		}
	}
}
