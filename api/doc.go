// Package api provides the auxiliary HTTP surface of the relay server.
//
// It exposes three read-only JSON endpoints used by the game page and by
// operators:
//   - GET /api/ip       — the discovered reachable address for remote players
//   - GET /api/state    — the current world snapshot
//   - GET /api/clients  — the connected participants
//   - GET /health       — liveness probe
//
// It also builds the static asset handler that serves the game files; every
// asset request touches the activity clock so the liveness watchdog can tell
// an open browser tab from an abandoned process.
//
// The API never mutates game state; all mutations flow through the
// WebSocket protocol.
package api
