package session

import (
	"context"
	"errors"
	"sync"
)

// ErrManagerClosed is returned by Open and CheckReadiness after Close.
var ErrManagerClosed = errors.New("session manager closed")

// Manager tracks the live sessions of a host.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a Manager that builds sessions from deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session. The caller must Release it.
func (m *Manager) Open(ctx context.Context, publish func(View)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}

	s := New(ctx, m.deps, publish)
	m.sessions[s.ID()] = s
	m.deps.Metrics.SessionsActive.Inc()
	m.deps.Logger.Info("session opened", "session_id", s.ID())
	return s, nil
}

// Release closes s and forgets it. Releasing twice is a no-op.
func (m *Manager) Release(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s.ID()]
	delete(m.sessions, s.ID())
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	m.deps.Metrics.SessionsActive.Dec()
	m.deps.Logger.Info("session closed", "session_id", s.ID())
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CheckReadiness implements the readiness probe: the manager accepts
// sessions until it is closed.
func (m *Manager) CheckReadiness(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// Close stops accepting sessions and closes every live one.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		m.Release(s)
	}
}
