package session

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, data)
	return nil
}
func (m *MockConnection) ReadMessage() ([]byte, error)        { return nil, nil }
func (m *MockConnection) Close() error                        { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}

func (m *MockConnection) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.sent...)
}

func TestManager_Register_Get_Unregister(t *testing.T) {
	manager := NewManager()
	sess := NewSession("client-1", &MockConnection{})

	require.True(t, manager.Register(sess))
	assert.Equal(t, 1, manager.Count())

	got, ok := manager.Get("client-1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	manager.Unregister("client-1")
	_, ok = manager.Get("client-1")
	assert.False(t, ok)
}

func TestManager_RegisterDuplicate(t *testing.T) {
	manager := NewManager()
	require.True(t, manager.Register(NewSession("dup", &MockConnection{})))
	assert.False(t, manager.Register(NewSession("dup", &MockConnection{})))
	assert.Equal(t, 1, manager.Count())
}

func TestManager_SendToMissingClient(t *testing.T) {
	manager := NewManager()
	assert.NotPanics(t, func() {
		manager.Send("ghost", []byte(`{}`))
	})
}

func TestManager_BroadcastSkipsAbsentAndFailing(t *testing.T) {
	manager := NewManager()
	okConn := &MockConnection{}
	badConn := &MockConnection{sendErr: errors.New("broken pipe")}
	lastConn := &MockConnection{}

	manager.Register(NewSession("a", okConn))
	manager.Register(NewSession("b", badConn))
	manager.Register(NewSession("c", lastConn))

	manager.Broadcast([]string{"a", "gone", "b", "c"}, []byte(`{"event":"x"}`))

	assert.Len(t, okConn.Sent(), 1)
	assert.Empty(t, badConn.Sent())
	assert.Len(t, lastConn.Sent(), 1, "a failing recipient must not abort the broadcast")
}
