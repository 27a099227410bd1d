// Package wire defines the JSON message formats shared by the duplex
// channel and the one-shot fallback exchange.
package wire

// Event types carried in duplex envelopes. Any other value is ignored
// server-side without acknowledgment.
const (
	EventQuery    = "query"
	EventResponse = "response"
	EventError    = "error"
)

// Envelope is one duplex channel message in either direction.
type Envelope struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// QueryRequest is the one-shot fallback request body.
type QueryRequest struct {
	Content string `json:"content"`
}

// QueryResponse is the one-shot fallback success body.
type QueryResponse struct {
	Content string `json:"content"`
}

// QueryError is the one-shot fallback failure body, sent with a non-2xx
// status.
type QueryError struct {
	Error string `json:"error"`
}
