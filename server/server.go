// Package server exposes the WebSocket control endpoint and the static client over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"messenger/connection"
	"messenger/protocol"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	log      *slog.Logger
	http     *http.Server
	config   connection.ControlConfig
	deps     connection.ControlDependencies
	peersFor func(codec protocol.Codec) connection.PeerStarter

	// Same-origin upgrades are always accepted.
	originPatterns []string
	allowAnyOrigin bool

	// Connections outlive their HTTP request once hijacked, so they hang off
	// this context instead.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires /ws and, when staticDir is set, serves it under /.
// deps.Codec and deps.Peers are filled per connection from the negotiated encoding.
func NewServer(addr, staticDir string, config connection.ControlConfig, deps connection.ControlDependencies,
	peersFor func(codec protocol.Codec) connection.PeerStarter, log *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{log: log, config: config, deps: deps, peersFor: peersFor, ctx: ctx, cancel: cancel}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.upgrade)
	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
	}
	s.http = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// WithOrigins accepts upgrades from pages served by hosts matching patterns.
// allowAny disables the Origin check entirely and is meant for development.
func (s *Server) WithOrigins(patterns []string, allowAny bool) *Server {
	s.originPatterns = patterns
	s.allowAnyOrigin = allowAny
	return s
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	encoding, err := protocol.ParseEncoding(r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	codec, err := protocol.NewCodec(encoding)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     s.originPatterns,
		InsecureSkipVerify: s.allowAnyOrigin,
	})
	if err != nil {
		s.log.Warn("Failed to accept websocket connection", "origin", r.Header.Get("Origin"), "error", err)
		return
	}

	deps := s.deps
	deps.Codec = codec
	deps.Peers = s.peersFor(codec)
	control := connection.NewControlConnection(conn, s.config, deps)
	s.log.Debug("WebSocket accepted", "connection_id", control.ID(), "encoding", encoding, "remote", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	control.Run(s.ctx)
}

// ListenAndServe blocks until ctx ends, then shuts down and waits for every connection.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.cancel()
		return err
	case <-ctx.Done():
	}
	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.cancel()
	s.wg.Wait()
	return err
}
