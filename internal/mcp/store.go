package mcp

import (
	"log"
	"sync"
)

// Store holds per-session connection managers. It is created once at worker
// startup and shared by every activity, so MCP subprocesses started for a
// session stay alive between tool calls instead of being respawned per call.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Manager
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Manager)}
}

// GetOrCreate returns the session's manager, creating an empty one if the
// session is new (or the worker restarted and lost it).
func (s *Store) GetOrCreate(sessionID string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mgr, ok := s.sessions[sessionID]; ok {
		return mgr
	}
	mgr := NewManager()
	s.sessions[sessionID] = mgr
	return mgr
}

// Get returns the session's manager, or nil if it has none.
func (s *Store) Get(sessionID string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

// Remove closes the session's manager and forgets it.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	mgr, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if ok {
		mgr.Close()
		log.Printf("mcp: cleaned up session %s", sessionID)
	}
}

// Count reports the number of sessions with managers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
