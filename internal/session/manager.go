package session

import (
	"sort"
	"sync"
	"time"

	"github.com/MJE43/fairpace/internal/config"
)

// Manager holds live sessions for the HTTP service. Each session has its own
// lock so handlers for different sessions never contend.
type Manager struct {
	cfg config.Config
	rec Recorder
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewManager creates a manager. rec may be nil.
func NewManager(cfg config.Config, rec Recorder) *Manager {
	return &Manager{
		cfg:      cfg,
		rec:      rec,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Config returns the defaults new sessions start from.
func (m *Manager) Config() config.Config { return m.cfg }

// Create starts a session and registers it.
func (m *Manager) Create(p Params) (*Session, error) {
	s, err := New(m.cfg, p, m.now())
	if err != nil {
		return nil, err
	}
	s.Attach(m.rec)

	m.mu.Lock()
	m.sessions[s.ID()] = &entry{s: s}
	m.mu.Unlock()
	return s, nil
}

// Do runs fn with exclusive access to the session.
func (m *Manager) Do(id string, fn func(*Session) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Delete ends and removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if m.rec != nil {
		e.mu.Lock()
		m.rec.SessionEnded(id, m.now().UTC())
		e.mu.Unlock()
	}
	return nil
}

// IDs returns the live session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
