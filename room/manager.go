package room

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

const (
	minRoomID = 1000
	maxRoomID = 9999
)

// Manager owns the active rooms and the client -> room index. Its mutex only
// guards the maps; handler work is serialized per room by Acquire.
type Manager struct {
	rooms   map[string]*Room
	members map[string]string
	mutex   sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		members: make(map[string]string),
	}
}

// CreateRoom allocates an unused 4-digit id and registers the room.
func (m *Manager) CreateRoom(settings Settings, creator *Player) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.rooms) > maxRoomID-minRoomID {
		return nil, ErrNoRoomID
	}

	var id string
	for {
		id = fmt.Sprintf("%d", minRoomID+rand.IntN(maxRoomID-minRoomID+1))
		if _, exists := m.rooms[id]; !exists {
			break
		}
	}

	room := NewRoom(id, settings, creator)
	m.rooms[id] = room
	return room, nil
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Acquire returns the room locked. The caller must Unlock it. A room removed
// while the caller waited for the lock is reported as ErrRoomNotFound.
func (m *Manager) Acquire(id string) (*Room, error) {
	room, ok := m.GetRoom(id)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.Lock()
	if room.removed {
		room.mutex.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RemoveRoom drops the room. The caller holds the room lock.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.removed = true
		delete(m.rooms, id)
	}
}

func (m *Manager) Bind(clientID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.members[clientID] = roomID
}

func (m *Manager) Unbind(clientID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.members, clientID)
}

func (m *Manager) RoomOf(clientID string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	roomID, ok := m.members[clientID]
	return roomID, ok
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Snapshots lists every room, ordered by id.
func (m *Manager) Snapshots() []Snapshot {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
