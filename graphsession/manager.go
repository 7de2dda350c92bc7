package graphsession

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-graph-session/graphsession/statestore"
)

// Manager owns one Session per external session identifier, for servers that
// authenticate multiple users. Each session remains single-owner: the
// manager only guards the map, not the sessions, so a given session must
// still be used by one request context at a time.
type Manager struct {
	cfg      Config
	newStore func(sessionID string) statestore.Repo
	opts     []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. newStore builds the state store for
// a given session ID (e.g. one state file per session); opts are applied to
// every created session.
func NewManager(cfg Config, newStore func(sessionID string) statestore.Repo, opts ...Option) *Manager {
	return &Manager{
		cfg:      cfg,
		newStore: newStore,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for the given ID, creating it on first
// use.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok {
		return session, nil
	}

	session, err := New(ctx, m.cfg, m.newStore(sessionID), m.opts...)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionID] = session
	return session, nil
}

// Get returns the session for the given ID, if one exists.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	return session, ok
}

// Delete removes the session for the given ID from the manager. The
// session's persisted state is untouched; call Logout first to destroy it.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
