// Package coordinator serializes every change to the shared game state.
//
// A Coordinator is the single owner of the World and of the registry of
// connected clients. It runs one goroutine that takes events (connect,
// disconnect, action, snapshot queries) from a queue and ticks from a
// ticker, and processes each one to completion, broadcasts included,
// before looking at the next. No locks guard the game state.
//
// Broadcasts go to per-client buffered channels with a non-blocking send:
// a client that does not drain its channel simply misses updates, it never
// slows the tick loop or other clients.
//
// Sessions talk to the coordinator through a Handle:
//
//	c, err := coordinator.New(engine.DefaultRules(), coordinator.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	go c.Run(ctx)
//
//	h := c.Handle()
//	conn, err := h.Connect(ctx)
//	_ = h.SendAction(conn.ID, engine.HealSelf())
//	for update := range conn.Updates {
//		// write to socket
//	}
//	_ = h.Disconnect(conn.ID)
//
// A disconnected player is removed from the world immediately and no
// PlayerDied is broadcast for it; the next WorldUpdate shows it gone.
package coordinator
