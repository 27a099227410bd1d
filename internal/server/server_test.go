package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/vroomie/internal/llm"
	"github.com/raphaelgruber/vroomie/internal/metrics"
	"github.com/raphaelgruber/vroomie/internal/server"
	"github.com/raphaelgruber/vroomie/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// scriptedProvider returns canned responses or errors and records every
// prompt it sees.
type scriptedProvider struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	models   []string
}

func (p *scriptedProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	p.models = append(p.models, model)
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *scriptedProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func (p *scriptedProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func newTestServer(t *testing.T, provider llm.Provider, models []string) (*server.Server, *httptest.Server) {
	t.Helper()
	mc := metrics.NewCollector()
	caller := llm.NewCaller(provider, models, time.Second, mc, testLogger())
	srv := server.New(caller, mc, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wire.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev wire.Envelope
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestRealtimeQueryResponse(t *testing.T) {
	provider := &scriptedProvider{
		response: "  The Model 3 starts around $40k.  \n\n  Trims vary by region.  \n",
	}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "Tesla Model 3 price"}))

	ev := readEnvelope(t, conn)
	assert.Equal(t, wire.EventResponse, ev.Type)
	assert.Equal(t, "The Model 3 starts around $40k.\nTrims vary by region.\n", ev.Content,
		"response must be normalized: no blank lines, no leading spaces, one trailing newline")

	prompt := provider.lastPrompt()
	assert.True(t, strings.HasSuffix(prompt, "User: Tesla Model 3 price\nAssistant: "),
		"composed prompt must end open-ended with the query")
}

func TestRealtimeHistoryReplay(t *testing.T) {
	provider := &scriptedProvider{response: "answer one"}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "Tesla Model 3"}))
	readEnvelope(t, conn)

	provider.mu.Lock()
	provider.response = "answer two"
	provider.mu.Unlock()

	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "price?"}))
	readEnvelope(t, conn)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "User: Tesla Model 3\nAssistant: answer one\n")
	assert.True(t, strings.HasSuffix(prompt, "User: price?\nAssistant: "))
}

func TestRealtimeExhaustionEmitsError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("overloaded")}
	_, ts := newTestServer(t, provider, []string{"model-a", "model-b"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "anything"}))

	ev := readEnvelope(t, conn)
	assert.Equal(t, wire.EventError, ev.Type)
	assert.Contains(t, ev.Content, "unable to get a response")

	// Both models were attempted, in order.
	provider.mu.Lock()
	models := append([]string(nil), provider.models...)
	provider.mu.Unlock()
	assert.Equal(t, []string{"model-a", "model-b"}, models)
}

func TestFailedTurnExcludedFromReplay(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("down")}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "doomed question"}))
	ev := readEnvelope(t, conn)
	require.Equal(t, wire.EventError, ev.Type)

	provider.setErr(nil)
	provider.mu.Lock()
	provider.response = "fresh answer"
	provider.mu.Unlock()

	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "new question"}))
	ev = readEnvelope(t, conn)
	require.Equal(t, wire.EventResponse, ev.Type)

	assert.NotContains(t, provider.lastPrompt(), "doomed question",
		"failed turns must not pollute later prompts")
}

func TestMalformedAndUnknownEventsIgnored(t *testing.T) {
	provider := &scriptedProvider{response: "still alive"}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: "ping", Content: "ignored"}))

	// The connection must survive both; a real query still works.
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "hello"}))
	ev := readEnvelope(t, conn)
	assert.Equal(t, wire.EventResponse, ev.Type)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Len(t, provider.prompts, 1, "ignored events must not reach the model")
}

func TestSessionIsolation(t *testing.T) {
	provider := &scriptedProvider{response: "ok"}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	conn1 := dialWS(t, ts)
	conn2 := dialWS(t, ts)

	require.NoError(t, conn1.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "secret tesla question"}))
	readEnvelope(t, conn1)

	require.NoError(t, conn2.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "honda question"}))
	readEnvelope(t, conn2)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "honda question")
	assert.NotContains(t, prompt, "secret tesla question",
		"one connection's history must never leak into another's prompt")
}

func TestSessionRemovedOnDisconnect(t *testing.T) {
	provider := &scriptedProvider{response: "ok"}
	srv, ts := newTestServer(t, provider, []string{"model-a"})

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: "hi"}))
	readEnvelope(t, conn)
	require.Equal(t, 1, srv.Sessions().Len())

	conn.Close()

	require.Eventually(t, func() bool {
		return srv.Sessions().Len() == 0
	}, 2*time.Second, 10*time.Millisecond, "session must be discarded on disconnect")
}

func TestFallbackQuery(t *testing.T) {
	provider := &scriptedProvider{response: "  fallback answer  \n\n"}
	srv, ts := newTestServer(t, provider, []string{"model-a"})

	body, _ := json.Marshal(wire.QueryRequest{Content: "Tesla Model 3 price"})
	resp, err := http.Post(ts.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qr wire.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qr))
	assert.Equal(t, "fallback answer\n", qr.Content)

	// The one-shot path carries the broader persona and no history.
	assert.Contains(t, provider.lastPrompt(), "vehicle expert")
	assert.Equal(t, 0, srv.Sessions().Len(), "fallback path must never touch the session store")
}

func TestFallbackQueryFailure(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("all down")}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	body, _ := json.Marshal(wire.QueryRequest{Content: "anything"})
	resp, err := http.Post(ts.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var qe wire.QueryError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&qe))
	assert.NotEmpty(t, qe.Error)
}

func TestFallbackQueryValidation(t *testing.T) {
	provider := &scriptedProvider{response: "unused"}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"missing content", http.MethodPost, `{}`, http.StatusBadRequest},
		{"invalid json", http.MethodPost, `{nope`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+"/api/query", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHealth(t *testing.T) {
	provider := &scriptedProvider{}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStats(t *testing.T) {
	provider := &scriptedProvider{response: "ok"}
	_, ts := newTestServer(t, provider, []string{"model-a"})

	body, _ := json.Marshal(wire.QueryRequest{Content: "warm up"})
	resp, err := http.Post(ts.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap metrics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotNil(t, snap.FallbackQuery)
	assert.Equal(t, int64(1), snap.FallbackQuery.Count)
	assert.Contains(t, snap.Models, "model-a")
}
