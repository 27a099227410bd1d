// Package session keeps per-connection conversation history in memory.
package session

import "sync"

// Turn is one user query plus its (optional) resolved assistant answer.
// Assistant is set at most once, only after a successful model response.
// Failed marks a turn whose generation exhausted every model; failed turns
// stay in the log as evidence but are excluded from prompt composition.
type Turn struct {
	User      string
	Assistant string
	Failed    bool
}

// Complete reports whether the turn has a resolved assistant answer.
func (t Turn) Complete() bool {
	return t.Assistant != "" && !t.Failed
}

// Store maps stable connection IDs to their ordered turn history.
// Connection IDs are issued at accept time, never live transport objects,
// so domain state does not share a lifetime with the socket.
//
// All methods are safe for concurrent use. Connections never share an ID,
// so writers for different connections do not contend on the same entry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]Turn),
	}
}

// Create registers an empty session for a connection.
func (s *Store) Create(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[connID] = []Turn{}
}

// Get returns a copy of the session's turns and whether the session exists.
func (s *Store) Get(connID string) ([]Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[connID]
	if !ok {
		return nil, false
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, true
}

// AppendUserTurn appends a new turn holding the user's query.
// A no-op if the session does not exist.
func (s *Store) AppendUserTurn(connID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions[connID]
	if !ok {
		return
	}
	s.sessions[connID] = append(turns, Turn{User: text})
}

// SetAssistant resolves the last turn with the assistant's answer.
// A no-op if the session does not exist, is empty, or the last turn is
// already resolved.
func (s *Store) SetAssistant(connID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions[connID]
	if !ok || len(turns) == 0 {
		return
	}
	last := &turns[len(turns)-1]
	if last.Assistant != "" || last.Failed {
		return
	}
	last.Assistant = text
}

// MarkLastTurnFailed flags the last turn as exhausted so future prompt
// composition skips it. A no-op if the session does not exist or is empty.
func (s *Store) MarkLastTurnFailed(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.sessions[connID]
	if !ok || len(turns) == 0 {
		return
	}
	last := &turns[len(turns)-1]
	if last.Assistant != "" {
		return
	}
	last.Failed = true
}

// Remove discards a session. Removing an absent ID is a no-op.
func (s *Store) Remove(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
