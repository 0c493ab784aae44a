// Package service implements the relay operations behind the wire protocol.
//
// RelayService is the single entry point the transport layer calls for every
// protocol operation: joining and leaving, partial player updates, round
// start, reset, level-ups, and projectile relays. Each operation authorizes
// the caller against the session registry before touching the world store, so
// a client can only ever mutate the entity it owns and only the host can
// start or reset a round.
//
// Unauthorized or stale operations are rejected silently: the caller learns
// nothing beyond the absence of a state change, matching the protocol's
// no-negative-acknowledgment rule.
package service
