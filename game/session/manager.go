package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/segmentio/ksuid"
)

// Peer is the connection handle the registry owns for the lifetime of a
// participant. The transport layer provides the implementation; Send must be
// safe for concurrent use and Close must be idempotent.
type Peer interface {
	Send(data []byte) error
	Close()
}

// Participant is one connected client: its connection, assigned entity id,
// and host flag. Copies returned by the Manager are point-in-time views.
type Participant struct {
	ClientID string
	EntityID string
	IsHost   bool
	Conn     Peer

	joinSeq uint64
}

// Manager is the registry of live participants. Exactly one participant has
// IsHost set whenever the registry is non-empty.
type Manager struct {
	mu           sync.Mutex
	participants map[string]*Participant
	nextEntity   uint64
	nextSeq      uint64
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		participants: make(map[string]*Participant),
	}
}

// Register allocates a fresh client id and entity id for the connection and
// stores the participant. The first participant of an empty registry becomes
// host, regardless of where the connection came from.
func (m *Manager) Register(conn Peer) Participant {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEntity++
	m.nextSeq++

	p := &Participant{
		ClientID: ksuid.New().String(),
		EntityID: fmt.Sprintf("P%d", m.nextEntity),
		IsHost:   len(m.participants) == 0,
		Conn:     conn,
		joinSeq:  m.nextSeq,
	}
	m.participants[p.ClientID] = p
	return *p
}

// Unregister removes the participant. If the removed participant was host and
// others remain, the remaining participant with the lowest join sequence is
// promoted and returned. A miss returns (nil, nil) and changes nothing;
// connections may legitimately close before onboarding finishes.
func (m *Manager) Unregister(clientID string) (removed, promoted *Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[clientID]
	if !ok {
		return nil, nil
	}
	delete(m.participants, clientID)
	gone := *p

	if !gone.IsHost || len(m.participants) == 0 {
		return &gone, nil
	}

	var next *Participant
	for _, candidate := range m.participants {
		if next == nil || candidate.joinSeq < next.joinSeq {
			next = candidate
		}
	}
	next.IsHost = true
	newHost := *next
	return &gone, &newHost
}

// Get returns a copy of the participant, or false when the client id is
// unknown.
func (m *Manager) Get(clientID string) (Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[clientID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// FindByConn resolves a connection handle back to its participant. Used to
// map transport events onto registry entries.
func (m *Manager) FindByConn(conn Peer) (Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.participants {
		if p.Conn == conn {
			return *p, true
		}
	}
	return Participant{}, false
}

// List returns copies of all participants in join order.
func (m *Manager) List() []Participant {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Participant, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].joinSeq < out[j].joinSeq })
	return out
}

// Count returns the number of registered participants.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants)
}

// Host returns the current host, or false when the registry is empty.
func (m *Manager) Host() (Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.participants {
		if p.IsHost {
			return *p, true
		}
	}
	return Participant{}, false
}
