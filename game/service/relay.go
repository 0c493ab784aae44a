package service

import (
	"encoding/json"
	"log"

	"github.com/hyunlab/swarm-arena/game/session"
	"github.com/hyunlab/swarm-arena/game/world"
)

// RelayService defines every operation of the relay protocol. The transport
// layer decodes messages and delegates here; boolean results tell it whether
// anything changed and therefore whether to broadcast.
type RelayService interface {
	// Lifecycle
	Join(conn session.Peer) JoinResult
	Leave(clientID string) LeaveResult

	// Round control (host only)
	StartGame(clientID string) bool
	Reset(clientID string) bool

	// Entity mutations (owner only)
	PlayerUpdate(clientID, playerID string, raw json.RawMessage) bool
	LevelUp(clientID, playerID string, level int) bool

	// Relay path: authorization only, the world store is not touched.
	AuthorizeProjectile(clientID, playerID string) bool

	// Reads
	Snapshot() world.State
	Participants() []session.Participant
	ClientCount() int
}

// JoinResult carries everything the lifecycle manager needs to welcome a new
// participant and decide what to broadcast.
type JoinResult struct {
	Participant session.Participant
	Snapshot    world.State
	AutoStarted bool
}

// LeaveResult reports the outcome of a departure. NewHost is non-nil when the
// departing participant was host and a remaining one was promoted. Found is
// false when the connection was never fully registered.
type LeaveResult struct {
	Found   bool
	NewHost *session.Participant
}

type relayService struct {
	registry *session.Manager
	store    *world.Store
}

// NewRelayService binds the registry and world store into the protocol's
// operation set.
func NewRelayService(registry *session.Manager, store *world.Store) RelayService {
	return &relayService{registry: registry, store: store}
}

// Join registers the connection, provisions its entity at the next lobby
// slot, and applies the auto-start rule: the moment a second entity exists
// and no round is running, the round starts. The rule fires identically for
// host and guest joins.
func (r *relayService) Join(conn session.Peer) JoinResult {
	p := r.registry.Register(conn)

	if !r.store.AddPlayer(p.EntityID, p.IsHost) {
		// Reconnect race: the entity already exists. Keep it untouched.
		log.Printf("join: entity %s already present, skipping provisioning", p.EntityID)
	}

	autoStarted := false
	if !r.store.Started() && r.store.PlayerCount() > 1 {
		r.store.StartRound()
		autoStarted = true
		log.Printf("round auto-started with %d players", r.store.PlayerCount())
	}

	return JoinResult{
		Participant: p,
		Snapshot:    r.store.Snapshot(),
		AutoStarted: autoStarted,
	}
}

// Leave removes the departing participant's entity, unregisters it, and
// handles host failover. When nobody remains the world reverts to an
// un-started lobby. Unknown client ids are no-ops.
func (r *relayService) Leave(clientID string) LeaveResult {
	removed, promoted := r.registry.Unregister(clientID)
	if removed == nil {
		return LeaveResult{}
	}

	r.store.RemovePlayer(removed.EntityID)

	if removed.IsHost && promoted == nil {
		r.store.Stop()
	}
	return LeaveResult{Found: true, NewHost: promoted}
}

// StartGame starts a round on behalf of the host. Requires at least one
// entity; non-host callers are rejected silently.
func (r *relayService) StartGame(clientID string) bool {
	p, ok := r.registry.Get(clientID)
	if !ok || !p.IsHost {
		log.Printf("startGame rejected for %s", clientID)
		return false
	}
	if r.store.PlayerCount() < 1 {
		return false
	}
	r.store.StartRound()
	return true
}

// Reset clears the round on behalf of the host and re-homes every surviving
// entity to its lobby slot.
func (r *relayService) Reset(clientID string) bool {
	p, ok := r.registry.Get(clientID)
	if !ok || !p.IsHost {
		log.Printf("reset rejected for %s", clientID)
		return false
	}
	r.store.Reset()
	return true
}

// PlayerUpdate merges a partial entity update after checking that the sender
// owns the named entity. Cross-entity writes are dropped without an error.
func (r *relayService) PlayerUpdate(clientID, playerID string, raw json.RawMessage) bool {
	if !r.authorizeOwner(clientID, playerID, "playerUpdate") {
		return false
	}
	return r.store.ApplyPlayerUpdate(playerID, raw)
}

// LevelUp sets the entity's level after the same ownership check.
func (r *relayService) LevelUp(clientID, playerID string, level int) bool {
	if !r.authorizeOwner(clientID, playerID, "levelUp") {
		return false
	}
	return r.store.SetLevel(playerID, level)
}

// AuthorizeProjectile gates the fire-and-forget relay path. Projectiles never
// enter the world store; the transport fans the payload out to the other
// peers when this returns true.
func (r *relayService) AuthorizeProjectile(clientID, playerID string) bool {
	return r.authorizeOwner(clientID, playerID, "projectile")
}

func (r *relayService) authorizeOwner(clientID, playerID, op string) bool {
	p, ok := r.registry.Get(clientID)
	if !ok {
		return false
	}
	if p.EntityID != playerID {
		log.Printf("%s rejected: client %s does not own entity %s", op, clientID, playerID)
		return false
	}
	return true
}

// Snapshot returns a consistent copy of the world for serialization.
func (r *relayService) Snapshot() world.State {
	return r.store.Snapshot()
}

// Participants lists the registered clients in join order.
func (r *relayService) Participants() []session.Participant {
	return r.registry.List()
}

// ClientCount reports how many clients are connected.
func (r *relayService) ClientCount() int {
	return r.registry.Count()
}
