package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/engine"
)

// Stats summarises one bot's run
type Stats struct {
	ID          engine.PlayerID
	ActionsSent int
	Updates     int
	JoinsSeen   int
	DeathsSeen  int
	Died        bool
	LastHealth  int
}

// Bot plays one websocket connection
type Bot struct {
	id       engine.PlayerID
	conn     *websocket.Conn
	strategy *Strategy
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	players engine.Snapshot
	stats   Stats
	died    chan struct{}
}

// Dial connects a bot and consumes the identity and snapshot frames
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	var id engine.PlayerID
	if err := readFrame(conn, &id); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var snapshot engine.Snapshot
	if err := readFrame(conn, &snapshot); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return &Bot{
		id:      id,
		conn:    conn,
		logger:  logger.With(zap.Uint64("player_id", uint64(id))),
		players: snapshot,
		stats:   Stats{ID: id, LastHealth: snapshot[id].Health},
		died:    make(chan struct{}),
	}, nil
}

func readFrame(conn *websocket.Conn, v any) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ID is the player id the server assigned
func (b *Bot) ID() engine.PlayerID { return b.id }

// Run sends one action per interval until ctx ends, the bot dies or the
// server goes away.
func (b *Bot) Run(ctx context.Context, strategy *Strategy, interval time.Duration) Stats {
	b.strategy = strategy
	b.interval = interval

	readDone := make(chan struct{})
	go b.readLoop(readDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-readDone:
			break loop
		case <-b.died:
			b.logger.Debug("bot died")
			break loop
		case <-ticker.C:
			msg := b.strategy.NextMove(b.view())
			data, err := json.Marshal(msg)
			if err != nil {
				b.logger.Error("encode action", zap.Error(err))
				break loop
			}
			if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.logger.Debug("write failed", zap.Error(err))
				break loop
			}
			b.mu.Lock()
			b.stats.ActionsSent++
			b.mu.Unlock()
		}
	}

	b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.conn.Close()
	<-readDone

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// view returns a copy of the bot's latest known registry
func (b *Bot) view() engine.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(engine.Snapshot, len(b.players))
	for id, p := range b.players {
		out[id] = p
	}
	return out
}

func (b *Bot) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		var u engine.GameUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			b.logger.Warn("undecodable update", zap.ByteString("frame", data))
			continue
		}
		b.apply(u)
	}
}

func (b *Bot) apply(u engine.GameUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.Updates++
	switch u.Kind {
	case engine.KindPlayerJoined:
		b.stats.JoinsSeen++
		b.players[u.Player.ID] = u.Player
	case engine.KindPlayerDied:
		b.stats.DeathsSeen++
		delete(b.players, u.ID)
		if u.ID == b.id && !b.stats.Died {
			b.stats.Died = true
			b.stats.LastHealth = 0
			close(b.died)
		}
	case engine.KindWorldUpdate:
		b.players = u.Players
		if b.players == nil {
			b.players = make(engine.Snapshot)
		}
		if me, ok := u.Players[b.id]; ok {
			b.stats.LastHealth = me.Health
		}
	}
}
