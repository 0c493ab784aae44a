// Package websocket provides the persistent-connection transport of the
// relay server.
//
// The websocket package implements:
//   - Connection onboarding and teardown (the lifecycle half of the protocol)
//   - Message decoding, routing, and silent rejection of bad input
//   - State broadcast and projectile relay fan-out with per-peer isolation
//   - Keep-alive pings for the life of each connection
//
// Architecture:
//
// The package uses a hub-and-spoke model. Hub owns the HTTP upgrade endpoint
// and fans messages out through the session registry; each client connection
// gets a dedicated reader and writer goroutine. Writes go through a buffered
// per-client channel so one slow or broken peer never stalls delivery to the
// others: a full buffer or a failed write closes that peer only.
//
// Message Protocol:
//
// Messages are JSON text frames with a "type" discriminator. Inbound types
// are playerUpdate, startGame, reset, levelUp, and projectile; outbound types
// are connected, state, hostChanged, and projectile. Malformed or
// unauthorized inbound messages are logged and dropped; the connection stays
// open and no error is ever sent back.
//
// Connection Lifecycle:
//
// 1. Client connects and is registered with the session registry
// 2. Entity provisioned, "connected" welcome sent with the full snapshot
// 3. State broadcast to everyone
// 4. Client messages are routed until the connection drops
// 5. Disconnect removes the entity, runs host failover, broadcasts again
package websocket
