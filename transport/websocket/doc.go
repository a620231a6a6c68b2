// Package websocket provides the WebSocket transport for Click Battler.
//
// The websocket package implements:
//   - HTTP upgrade of /chat requests into game connections
//   - One Session per socket, relaying between the socket and the coordinator
//   - Keepalive pings and read deadlines
//   - Exactly-once disconnect notification per connection
//
// Message Protocol:
//
// Right after the upgrade the server writes two frames: the bare JSON
// player id, then the bare JSON snapshot object. Every frame after that is
// a `type`-tagged GameUpdate:
//   - {"type":"PlayerJoined","player":{"id":1,"health":10}}
//   - {"type":"PlayerDied","id":1}
//   - {"type":"WorldUpdate","players":{"1":{"id":1,"health":9}}}
//
// Clients send `type`-tagged actions:
//   - {"type":"HealSelf"}
//   - {"type":"AttackPlayer","target":1}
//
// Frames that do not decode are logged and dropped; the connection stays up.
//
// Usage:
//
//	handler := websocket.NewHandler(coord.Handle(), coord.Metrics(), logger)
//	router.Handle("/chat", handler)
//
// Connection Lifecycle:
//
// 1. Client connects, the session registers a player with the coordinator
// 2. Identity and snapshot frames are written
// 3. Read pump forwards actions, write pump relays updates and pings
// 4. Either pump failing closes the socket and sends one disconnect
// 5. The coordinator closes the update channel, ending the write pump
//
// Concurrency:
//
// Each session runs two goroutines. Only the write pump writes to the
// socket once the handshake is done, and neither goroutine ever touches
// game state directly.
package websocket
