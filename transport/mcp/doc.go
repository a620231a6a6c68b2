// Package mcp provides a Model Context Protocol server for Click Battler.
//
// The mcp package implements:
//   - MCP tools for AI agents that want to observe a running arena
//   - A thin client that proxies every tool to the REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - world_state: Live players with a health bar each, plus the leader
//   - player_info: One live player by id
//   - server_stats: Coordinator counters and uptime
//   - game_rules: Protocol and values of the active ruleset
//   - list_rulesets: Rulesets available on the server
//   - get_ruleset: Values of one ruleset
//
// The tools never act on the game. Playing requires a websocket connection
// to /chat.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3030")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	mux.Handle("/mcp", client)
package mcp
