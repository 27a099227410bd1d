package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/raphaelgruber/vroomie/internal/metrics"
	"github.com/raphaelgruber/vroomie/internal/prompt"
	"github.com/raphaelgruber/vroomie/internal/wire"
)

const fallbackFailedMessage = "Unable to get a response."

// handleQuery is the stateless one-shot exchange used when the duplex
// channel is unavailable. It carries no history and never touches the
// session store.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, wire.QueryError{Error: "method not allowed"})
		return
	}

	var req wire.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wire.QueryError{Error: "invalid request body"})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, wire.QueryError{Error: "content is required"})
		return
	}

	start := time.Now()
	composed := prompt.ComposeOneShot(req.Content)

	text, err := s.caller.Generate(r.Context(), composed)
	s.metrics.RecordTiming(metrics.OpFallbackQuery, time.Since(start))

	if err != nil {
		s.logger.Error("fallback query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, wire.QueryError{Error: fallbackFailedMessage})
		return
	}

	writeJSON(w, http.StatusOK, wire.QueryResponse{Content: prompt.Beautify(text)})
}

// handleStats returns a snapshot of in-memory runtime statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, wire.QueryError{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
