package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/vroomie/internal/metrics"
	"github.com/raphaelgruber/vroomie/internal/prompt"
	"github.com/raphaelgruber/vroomie/internal/wire"
)

// User-facing messages for realtime failures. Exactly one per exhausted
// attempt; the pending turn is marked failed and excluded from future
// prompt composition.
const (
	exhaustedMessage  = "Sorry, I was unable to get a response. Please try again later."
	processingMessage = "Processing error. Please try again."
)

// handleWebSocket owns one duplex connection's lifecycle: a session is
// created on connect under a fresh connection ID and removed on disconnect.
// Events for a connection are processed one at a time in arrival order;
// connections are independent of each other.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.New().String()
	s.sessions.Create(connID)
	s.logger.Info("client connected", "conn_id", connID)

	defer func() {
		s.sessions.Remove(connID)
		conn.Close()
		s.logger.Info("client disconnected", "conn_id", connID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "conn_id", connID, "error", err)
			}
			return
		}
		s.handleEvent(conn, connID, data)
	}
}

// handleEvent processes one inbound message. Malformed payloads and
// non-query event types are ignored without acknowledgment; an unexpected
// panic during processing yields one generic error event, not a dropped
// connection.
func (s *Server) handleEvent(conn *websocket.Conn, connID string, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic processing message", "conn_id", connID, "panic", rec)
			s.writeEvent(conn, connID, wire.Envelope{Type: wire.EventError, Content: processingMessage})
		}
	}()

	var ev wire.Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Debug("ignoring malformed payload", "conn_id", connID, "error", err)
		return
	}
	if ev.Type != wire.EventQuery {
		return
	}

	start := time.Now()
	s.logger.Info("query received", "conn_id", connID, "content", truncate(ev.Content, maxContentLogLen))

	s.sessions.AppendUserTurn(connID, ev.Content)
	turns, ok := s.sessions.Get(connID)
	if !ok {
		// Session vanished under us; the connection is on its way out.
		return
	}

	// The just-appended turn is still unresolved and is skipped by Compose,
	// so the new query appears only in the trailing suffix.
	composed := prompt.Compose(turns, ev.Content)

	// Disconnects do not abort an in-flight call; the per-attempt timeout
	// inside the caller bounds how long a hung model can stall the session.
	text, err := s.caller.Generate(context.Background(), composed)
	s.metrics.RecordTiming(metrics.OpRealtimeQuery, time.Since(start))

	if err != nil {
		s.sessions.MarkLastTurnFailed(connID)
		s.logger.Error("all models failed", "conn_id", connID, "error", err)
		s.writeEvent(conn, connID, wire.Envelope{Type: wire.EventError, Content: exhaustedMessage})
		return
	}

	normalized := prompt.Beautify(text)
	s.sessions.SetAssistant(connID, normalized)
	s.writeEvent(conn, connID, wire.Envelope{Type: wire.EventResponse, Content: normalized})
}

// writeEvent sends one envelope, logging write failures instead of
// propagating them: the read loop will observe the broken connection.
func (s *Server) writeEvent(conn *websocket.Conn, connID string, ev wire.Envelope) {
	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Warn("websocket write failed", "conn_id", connID, "type", ev.Type, "error", err)
	}
}
