// Package server provides the realtime duplex channel and the one-shot
// HTTP fallback for the chat assistant.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/vroomie/internal/llm"
	"github.com/raphaelgruber/vroomie/internal/metrics"
	"github.com/raphaelgruber/vroomie/internal/session"
)

// Server owns the session store and routes chat traffic to the failover
// caller.
type Server struct {
	sessions *session.Store
	caller   *llm.Caller
	metrics  *metrics.Collector
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server around the given failover caller. metrics may be nil.
func New(caller *llm.Caller, mc *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: session.NewStore(),
		caller:   caller,
		metrics:  mc,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local dev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the HTTP handler with all routes registered.
// The websocket route stays outside the logging middleware so the upgrade
// can hijack the connection.
func (s *Server) Handler() http.Handler {
	logged := LoggingMiddleware(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/api/query", logged(http.HandlerFunc(s.handleQuery)))
	mux.Handle("/api/stats", logged(http.HandlerFunc(s.handleStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return mux
}

// Sessions exposes the session store for tests.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}
