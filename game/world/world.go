package world

import (
	"encoding/json"
	"sync"
)

// State is the authoritative session snapshot broadcast to every client.
// Enemies, projectiles and orbs are opaque payloads owned by the clients'
// simulations; the server relays them without interpreting their contents.
type State struct {
	Started     bool               `json:"started"`
	T           float64            `json:"t"`
	Paused      bool               `json:"paused"`
	GameOver    bool               `json:"gameOver"`
	Players     map[string]*Player `json:"players"`
	Enemies     []json.RawMessage  `json:"enemies"`
	Projectiles []json.RawMessage  `json:"projectiles"`
	Orbs        []json.RawMessage  `json:"orbs"`
}

// Store owns the shared world snapshot. Every mutation happens under one
// mutex so a broadcast always observes a consistent, non-torn state.
type Store struct {
	mu    sync.Mutex
	state State
	order []string // entity ids in insertion order, drives lobby slots
}

// NewStore returns an empty, un-started world.
func NewStore() *Store {
	return &Store{
		state: State{
			Players:     make(map[string]*Player),
			Enemies:     make([]json.RawMessage, 0),
			Projectiles: make([]json.RawMessage, 0),
			Orbs:        make([]json.RawMessage, 0),
		},
	}
}

// AddPlayer inserts a new entity at the next lobby slot. It is idempotent: if
// an entity with the id already exists the call is a no-op and returns false.
func (s *Store) AddPlayer(id string, isHost bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.Players[id]; exists {
		return false
	}
	slot := len(s.order)
	s.state.Players[id] = newPlayer(id, slot, isHost)
	s.order = append(s.order, id)
	return true
}

// RemovePlayer deletes the entity owned by a departing client.
func (s *Store) RemovePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.Players[id]; !exists {
		return false
	}
	delete(s.state.Players, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// ApplyPlayerUpdate merges the fields present in raw into the entity. Returns
// false when the entity does not exist or the payload is malformed.
func (s *Store) ApplyPlayerUpdate(id string, raw json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, exists := s.state.Players[id]
	if !exists {
		return false
	}
	return player.merge(raw) == nil
}

// SetLevel records a level-up for the entity.
func (s *Store) SetLevel(id string, level int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, exists := s.state.Players[id]
	if !exists {
		return false
	}
	player.Level = level
	return true
}

// StartRound flips the world into a running round: clock zeroed, pause and
// game-over flags cleared.
func (s *Store) StartRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Started = true
	s.state.T = 0
	s.state.Paused = false
	s.state.GameOver = false
}

// Stop reverts to an un-started lobby, used when the last client leaves.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Started = false
}

// Started reports whether a round is running.
func (s *Store) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Started
}

// PlayerCount returns the number of live entities.
func (s *Store) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Players)
}

// Reset clears the transient collections and re-homes every surviving entity
// to its lobby slot: x = index*spacing, y = 0, velocity zeroed, health
// restored to max. The round clock and flags are cleared.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.T = 0
	s.state.Paused = false
	s.state.GameOver = false
	s.state.Enemies = make([]json.RawMessage, 0)
	s.state.Projectiles = make([]json.RawMessage, 0)
	s.state.Orbs = make([]json.RawMessage, 0)

	for i, id := range s.order {
		p, ok := s.state.Players[id]
		if !ok {
			continue
		}
		p.X = float64(i) * LobbySpacing
		p.Y = 0
		p.VX = 0
		p.VY = 0
		p.HP = p.HPMax
	}
}

// Snapshot returns a deep copy of the current state, safe to serialize after
// the lock is released.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	snap := State{
		Started:     s.state.Started,
		T:           s.state.T,
		Paused:      s.state.Paused,
		GameOver:    s.state.GameOver,
		Players:     make(map[string]*Player, len(s.state.Players)),
		Enemies:     append([]json.RawMessage(nil), s.state.Enemies...),
		Projectiles: append([]json.RawMessage(nil), s.state.Projectiles...),
		Orbs:        append([]json.RawMessage(nil), s.state.Orbs...),
	}
	for id, p := range s.state.Players {
		copied := *p
		snap.Players[id] = &copied
	}
	return snap
}
