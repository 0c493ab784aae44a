// Package mcp exposes a read-only MCP diagnostics surface for the relay.
//
// It is a thin client that proxies tool calls to the auxiliary REST API, so
// an MCP-capable assistant can inspect a running session: the discovered
// address, the world snapshot, and the connected clients. No tool mutates
// game state.
package mcp
