// session/session.go
package session

import (
	"sync"

	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/network"
)

// Session is one live client channel, keyed by the client id.
// Idle peers are dropped by the connection heartbeat.
type Session struct {
	ID   string
	Conn network.Connection
}

func NewSession(id string, conn network.Connection) *Session {
	return &Session{
		ID:   id,
		Conn: conn,
	}
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the connection registry.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Register adds the session and reports false if the id is already live.
func (m *Manager) Register(session *Session) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return false
	}
	m.sessions[session.ID] = session
	return true
}

func (m *Manager) Unregister(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Send delivers data to one client. An unregistered client is skipped; a
// disconnect racing a broadcast is expected and not an error.
func (m *Manager) Send(sessionID string, data []byte) {
	s, ok := m.Get(sessionID)
	if !ok {
		logger.Log.Debugf("Skipping send to unregistered client %s", sessionID)
		return
	}
	if err := s.Send(data); err != nil {
		logger.Log.Warnf("Send to client %s failed: %v", sessionID, err)
	}
}

// Broadcast sends data to every registered id in ids. A failure for one
// recipient does not stop delivery to the others.
func (m *Manager) Broadcast(ids []string, data []byte) {
	m.mutex.RLock()
	targets := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	m.mutex.RUnlock()

	for _, s := range targets {
		if err := s.Send(data); err != nil {
			logger.Log.Warnf("Broadcast to client %s failed: %v", s.ID, err)
			continue
		}
	}
}
