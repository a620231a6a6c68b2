package coordinator

import (
	"context"

	"github.com/wricardo/click-battler/game/engine"
)

// Handle submits events to a Coordinator. It is a small value that is safe
// to copy and to use from any number of goroutines; submissions from one
// goroutine are processed in the order they were made.
type Handle struct {
	events chan<- event
	done   <-chan struct{}
}

func (h Handle) submit(ctx context.Context, ev event) error {
	select {
	case <-h.done:
		return ErrCoordinatorStopped
	default:
	}

	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers a new player and waits for its identity, the current
// snapshot and its update channel. The update channel is closed by the
// coordinator after Disconnect or on shutdown.
func (h Handle) Connect(ctx context.Context) (Connection, error) {
	reply := make(chan Connection, 1)
	if err := h.submit(ctx, event{kind: eventConnect, connectReply: reply}); err != nil {
		return Connection{}, err
	}

	select {
	case conn := <-reply:
		return conn, nil
	case <-h.done:
		return Connection{}, ErrCoordinatorStopped
	case <-ctx.Done():
		// The coordinator will still register the player; release it once it does.
		go func() {
			select {
			case conn := <-reply:
				_ = h.Disconnect(conn.ID)
			case <-h.done:
			}
		}()
		return Connection{}, ctx.Err()
	}
}

// Disconnect unregisters a player. It is safe to call more than once.
func (h Handle) Disconnect(id engine.PlayerID) error {
	return h.submit(context.Background(), event{kind: eventDisconnect, id: id})
}

// SendAction queues a player action. The coordinator does not reply.
func (h Handle) SendAction(id engine.PlayerID, msg engine.ClientMessage) error {
	return h.submit(context.Background(), event{kind: eventAction, id: id, msg: msg})
}

// Snapshot returns the current player registry as seen by the coordinator
func (h Handle) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	reply := make(chan engine.Snapshot, 1)
	if err := h.submit(ctx, event{kind: eventSnapshot, snapshotReply: reply}); err != nil {
		return nil, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return nil, ErrCoordinatorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Player looks up one live player. The bool is false for unknown or dead ids.
func (h Handle) Player(ctx context.Context, id engine.PlayerID) (engine.Player, bool, error) {
	reply := make(chan playerLookup, 1)
	if err := h.submit(ctx, event{kind: eventPlayer, id: id, playerReply: reply}); err != nil {
		return engine.Player{}, false, err
	}

	select {
	case r := <-reply:
		return r.player, r.found, nil
	case <-h.done:
		return engine.Player{}, false, ErrCoordinatorStopped
	case <-ctx.Done():
		return engine.Player{}, false, ctx.Err()
	}
}

// Spectate registers an observer that receives every broadcast but owns no player
func (h Handle) Spectate(ctx context.Context) (Spectator, error) {
	reply := make(chan Spectator, 1)
	if err := h.submit(ctx, event{kind: eventSpectate, spectateReply: reply}); err != nil {
		return Spectator{}, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Spectator{}, ErrCoordinatorStopped
	case <-ctx.Done():
		go func() {
			select {
			case s := <-reply:
				_ = h.Unspectate(s.ID)
			case <-h.done:
			}
		}()
		return Spectator{}, ctx.Err()
	}
}

// Unspectate removes an observer and closes its channel
func (h Handle) Unspectate(id uint64) error {
	return h.submit(context.Background(), event{kind: eventUnspectate, spectator: id})
}
