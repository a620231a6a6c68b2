package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/click-battler/game/engine"
	"github.com/wricardo/click-battler/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Click Battler",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Click Battler - MCP Interface

This is a read-only observer that proxies requests to the REST API server.
Players fight over a websocket at /chat; these tools let you watch.

AVAILABLE TOOLS:
- world_state: Every live player with health, plus the current leader
- player_info: One live player by id
- server_stats: Tick, connection, action and broadcast counters
- game_rules: How the game is played under the active ruleset
- list_rulesets: Rulesets available on the server
- get_ruleset: Full values of one ruleset`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "List every live player and their health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "player_info",
		Description: "Get one live player by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player id as sent to the client on connect",
				},
			},
			Required: []string{"player_id"},
		},
	}, c.handlePlayerInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get coordinator counters and uptime",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the game under the ruleset the server is running",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rulesets",
		Description: "List available rulesets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRulesets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_ruleset",
		Description: "Get the values of one ruleset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Ruleset id as listed by list_rulesets",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleGetRuleset)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers single JSON-RPC messages posted to /mcp
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	if response == nil {
		// Notifications have no response
		w.WriteHeader(http.StatusAccepted)
		return
	}
	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseData)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state service.WorldState
	if err := c.apiCall(ctx, "GET", "/api/world", nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorldState(&state)), nil
}

func (c *Client) handlePlayerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	// JSON numbers arrive as float64
	raw, ok := args["player_id"].(float64)
	if !ok || raw < 0 || raw != float64(uint64(raw)) {
		return mcp.NewToolResultError("player_id must be a non-negative integer"), nil
	}

	var player engine.Player
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/world/players/%d", uint64(raw)), nil, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Player %d: %d health", player.ID, player.Health)), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rules engine.Rules
	if err := c.apiCall(ctx, "GET", "/api/rules", nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRules(&rules)), nil
}

func (c *Client) handleListRulesets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Rulesets []service.RulesetInfo `json:"rulesets"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rulesets", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rulesets (%d):\n\n", response.Count)
	for _, r := range response.Rulesets {
		fmt.Fprintf(&b, "- %s: %s (start %d, tick %dms)\n", r.RulesetID, r.Description, r.StartingHealth, r.TickIntervalMs)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRuleset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := arguments(request)["name"].(string)
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	var rules engine.Rules
	if err := c.apiCall(ctx, "GET", "/api/rulesets/"+url.PathEscape(name), nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRules(&rules)), nil
}

func formatWorldState(state *service.WorldState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ruleset: %s (tick every %dms)\n", state.Ruleset, state.TickMs)
	fmt.Fprintf(&b, "Players alive: %d\n", state.PlayerCount)
	if state.Leader != nil {
		fmt.Fprintf(&b, "Leader: player %d with %d health\n", state.Leader.ID, state.Leader.Health)
	}
	if len(state.Players) == 0 {
		b.WriteString("\nNobody is connected.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, p := range state.Players {
		fmt.Fprintf(&b, "  #%-4d %s %d\n", p.ID, healthBar(p.Health), p.Health)
	}
	return b.String()
}

// healthBar draws up to 20 blocks, one per health point
func healthBar(health int) string {
	n := health
	if n > 20 {
		n = 20
	}
	if n < 0 {
		n = 0
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", 20-n) + "]"
}

func formatStats(stats *service.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Players: %d\n", stats.Players)
	fmt.Fprintf(&b, "Uptime: %s\n", (time.Duration(stats.UptimeSeconds) * time.Second).String())

	for _, key := range []string{
		"tick_count", "avg_tick_ms", "connects", "disconnects", "actions_applied",
		"stale_actions", "deaths", "broadcasts", "dropped_deliveries", "malformed_frames", "spectators",
	} {
		if v, ok := stats.Counters[key]; ok {
			fmt.Fprintf(&b, "%s: %v\n", key, v)
		}
	}
	return b.String()
}

func formatRules(rules *engine.Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Click Battler - %s\n", rules.Name)
	if rules.Description != "" {
		fmt.Fprintf(&b, "%s\n", rules.Description)
	}
	b.WriteString("\nHOW TO PLAY:\n")
	b.WriteString("Open a websocket to /chat. The first frame is your player id, the second\n")
	b.WriteString("is every live player. After that you receive PlayerJoined, PlayerDied and\n")
	b.WriteString("WorldUpdate frames.\n\n")
	b.WriteString("ACTIONS:\n")
	fmt.Fprintf(&b, "- {\"type\":\"HealSelf\"} restores %d health\n", rules.HealAmount)
	fmt.Fprintf(&b, "- {\"type\":\"AttackPlayer\",\"target\":<id>} removes %d health from the target\n", rules.AttackDamage)
	b.WriteString("\nVALUES:\n")
	fmt.Fprintf(&b, "- Starting health: %d\n", rules.StartingHealth)
	if rules.TickDamage > 0 {
		fmt.Fprintf(&b, "- Every %dms each player loses %d health\n", rules.TickIntervalMs, rules.TickDamage)
		fmt.Fprintf(&b, "- An idle player survives %d ticks\n", rules.IdleLifetime())
	} else {
		fmt.Fprintf(&b, "- Health does not decay; the world refreshes every %dms\n", rules.TickIntervalMs)
	}
	b.WriteString("- A player at 0 health or below dies and is removed\n")
	return b.String()
}
