package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/renderfarm/framefarm/internal/events"
)

// Config controls where the Control API listens. Either Addr or
// Socket (or both) may be set; an empty value disables that listener
// (spec.md §4.4 surfaces over whichever transport the operator
// deploys with — no CLI, since the config file already names the
// transports).
type Config struct {
	Addr   string // TCP address, e.g. ":8090"; empty disables TCP
	Socket string // unix socket path; empty disables the socket listener
}

// Server serves the Control API's JSON endpoints over a TCP listener
// and a Unix domain socket listener simultaneously, plus a
// Server-Sent-Events stream of internal/events.Bus activity —
// modeled on the teacher's web.Server/SocketServer/Hub triad, adapted
// to serve one JSON mux over both transports instead of a bespoke
// line-protocol socket.
type Server struct {
	cfg Config

	httpServer     *http.Server
	tcpListener    net.Listener
	socketListener net.Listener
	hub            *hub

	addr   string
	socket string
}

// New builds a Server wired to store s and fed by bus. Call Start to
// begin listening.
func New(cfg Config, s Store, bus *events.Bus) *Server {
	h := newHub()
	bus.Subscribe(h.onEvent)

	mux := newMux(s, bus, h)

	return &Server{
		cfg:        cfg,
		httpServer: &http.Server{Handler: mux},
		hub:        h,
		addr:       cfg.Addr,
		socket:     cfg.Socket,
	}
}

// Start begins listening on whichever transports are configured.
// Non-blocking: servers run in goroutines.
func (s *Server) Start() error {
	go s.hub.run()

	if s.cfg.Addr != "" {
		l, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return fmt.Errorf("control api tcp listen: %w", err)
		}
		s.tcpListener = l
		s.addr = l.Addr().String()
		go func() { _ = s.httpServer.Serve(l) }()
	}

	if s.cfg.Socket != "" {
		if err := os.MkdirAll(filepath.Dir(s.cfg.Socket), 0o755); err != nil {
			return fmt.Errorf("control api socket dir: %w", err)
		}
		os.Remove(s.cfg.Socket)
		l, err := net.Listen("unix", s.cfg.Socket)
		if err != nil {
			return fmt.Errorf("control api socket listen: %w", err)
		}
		s.socketListener = l
		go func() { _ = s.httpServer.Serve(l) }()
	}

	return nil
}

// Stop gracefully shuts down both listeners and the event hub.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("control api shutdown: %w", err)
	}
	if s.cfg.Socket != "" {
		os.Remove(s.cfg.Socket)
	}
	return nil
}

// Addr returns the TCP listen address, or "" if TCP is disabled.
func (s *Server) Addr() string {
	return s.addr
}

// SocketPath returns the Unix socket path, or "" if disabled.
func (s *Server) SocketPath() string {
	return s.socket
}
