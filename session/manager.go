package session

import (
	"sync"

	"github.com/use-agent/chimera/models"
)

// Manager is the process-wide session map. The outer map is
// guarded by a reader/writer lock; callers acquire only a reader guard while
// cloning a shared *Session reference, then release the map lock before
// doing any work. Per-session mutation serializes on the Session's own
// mutex — holding it across a suspension point (vision RPC, motor sleeps)
// is forbidden, and no caller in this codebase does so.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session map.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put registers a new session, replacing (and closing) any prior session
// with the same id.
func (m *Manager) Put(s *Session) {
	m.mu.Lock()
	old, existed := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()
	if existed {
		old.Close()
	}
}

// Get returns the session for id, or a SessionNotFound error.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.NewAgentError(models.ErrCodeSessionNotFound, "session not found: "+id, nil)
	}
	return s, nil
}

// Close terminates and removes the session for id. Missing id is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll terminates every session (used on process shutdown).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
