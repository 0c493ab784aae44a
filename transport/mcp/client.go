package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP server that proxies to the relay's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates an MCP client targeting the auxiliary HTTP server.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server for stdio or HTTP serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Swarm Arena Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Swarm Arena Relay - MCP Interface

Read-only diagnostics for a running relay session.

AVAILABLE TOOLS:
- server_status: Discovered reachable address and WebSocket URL
- world_state: The authoritative world snapshot (players, round flags)
- list_clients: Connected clients with their entity ids and host flag

All tools proxy the relay's REST API; none of them mutate game state.`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get the relay's discovered reachable address and WebSocket URL",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get the current authoritative world snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_clients",
		Description: "List the connected clients and who is host",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListClients)
}

func (c *Client) handleServerStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.proxyGet(ctx, "/api/ip")
}

func (c *Client) handleWorldState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.proxyGet(ctx, "/api/state")
}

func (c *Client) handleListClients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.proxyGet(ctx, "/api/clients")
}

// proxyGet forwards a GET to the REST API and wraps the JSON body as a tool
// result.
func (c *Client) proxyGet(ctx context.Context, path string) (*mcp.CallToolResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build request: %v", err)), nil
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("relay API unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
	}
	if resp.StatusCode != http.StatusOK {
		return mcp.NewToolResultError(fmt.Sprintf("relay API returned %d: %s", resp.StatusCode, body)), nil
	}

	return mcp.NewToolResultText(string(body)), nil
}
