package cart

import (
	"strings"
	"sync"

	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
)

// Sessions maps checkout session ids to their cart engines. Each till or
// browser tab gets its own session; nothing is shared ambiently.
type Sessions struct {
	stock StockSource

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewSessions builds an empty session registry.
func NewSessions(stock StockSource) *Sessions {
	return &Sessions{
		stock:   stock,
		engines: map[string]*Engine{},
	}
}

// Get returns the engine for the session, creating it on first use.
func (s *Sessions) Get(sessionID string) (*Engine, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	engine, ok := s.engines[id]
	if !ok {
		engine = NewEngine(s.stock)
		s.engines[id] = engine
	}
	return engine, nil
}

// Peek returns the engine only if the session already exists.
func (s *Sessions) Peek(sessionID string) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	engine, ok := s.engines[sessionID]
	return engine, ok
}

// Drop removes the session and its cart.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.engines, sessionID)
	s.mu.Unlock()
}

// Count returns the number of live sessions.
func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}
