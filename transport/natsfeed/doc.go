// Package natsfeed republishes coordinator broadcasts on NATS.
//
// A Feed registers with the coordinator as a spectator, so it receives the
// same PlayerJoined, PlayerDied and WorldUpdate sequence as every connected
// client, without owning a player. Each update is encoded exactly as it is
// on the websocket and published to <prefix>.player_joined,
// <prefix>.player_died or <prefix>.world_update.
//
// Usage:
//
//	conn, err := natsfeed.Dial("nats://localhost:4222", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Drain()
//
//	feed := natsfeed.NewFeed(coord.Handle(), conn, "clickbattler", logger)
//	go feed.Run(ctx)
//
// Like any slow client, a feed that falls behind loses updates rather than
// delaying the game.
package natsfeed
