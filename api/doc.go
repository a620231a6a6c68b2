// Package api provides HTTP REST API handlers for Click Battler.
//
// The api package implements:
//   - Read-only world and player endpoints
//   - Server statistics and the active ruleset
//   - Ruleset listing, lookup and creation
//   - WebSocket upgrade routing (/chat)
//   - Static file serving for the browser client
//
// Endpoints:
//
// World:
//   - GET /api/world - Live players in id order plus the current leader
//   - GET /api/world/players/{id} - One live player
//
// Server:
//   - GET /api/stats - Coordinator counters and uptime
//   - GET /api/rules - Ruleset the coordinator is running
//   - GET /healthz - Liveness probe
//
// Rulesets:
//   - GET /api/rulesets - List rulesets in the rules directory
//   - GET /api/rulesets/{name} - Load one ruleset
//   - POST /api/rulesets - Validate and store a ruleset
//   - POST /api/rulesets/reload - Reread ruleset files from disk
//
// Gameplay never goes through REST. Players connect to /chat and exchange
// JSON frames with the coordinator (see the websocket package).
//
// Usage:
//
//	chat := websocket.NewHandler(coord.Handle(), coord.Metrics(), logger)
//	server := api.NewServer(gameService, chat, "./static/", logger)
//	http.ListenAndServe(":3030", server)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status code derived from the
// service error (404 for unknown players or rulesets, 503 once the
// coordinator has stopped):
//
//	{
//	  "error": "player not found: 7"
//	}
package api
