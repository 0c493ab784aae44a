// Package session tracks the connected clients of a relay session.
//
// The session package implements:
//   - Thread-safe participant registration and removal
//   - Unique client and entity id allocation
//   - Host election and deterministic host failover
//   - Reverse lookup from a connection to its participant
//
// Core Types:
//
// Manager is the registry of live participants. Participant binds a client
// connection to its assigned entity id and host flag.
//
// Host Election:
//
// The first registered participant becomes host. When the host disconnects
// and other participants remain, the one with the lowest join sequence is
// promoted, so failover is reproducible regardless of map iteration order.
// The registry guarantees exactly one host whenever it is non-empty.
//
// Identifiers:
//
// Client ids are KSUIDs, unique per connection with no identity beyond it.
// Entity ids are monotonically allocated ("P1", "P2", ...) and are never
// reused while the owning participant's entity still exists.
//
// Concurrency:
//
// All mutating operations are atomic with respect to concurrent
// registration and unregistration from other connections.
package session
