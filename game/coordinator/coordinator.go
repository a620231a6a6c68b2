package coordinator

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/engine"
)

// DefaultQueueSize is the capacity of the inbound event queue
const DefaultQueueSize = 1024

var (
	ErrCoordinatorStopped = errors.New("coordinator stopped")
	ErrAlreadyRunning     = errors.New("coordinator already running")
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventAction
	eventSnapshot
	eventSpectate
	eventUnspectate
	eventPlayer
)

// event is the single message type flowing through the coordinator queue
type event struct {
	kind      eventKind
	id        engine.PlayerID
	msg       engine.ClientMessage
	spectator uint64

	connectReply  chan<- Connection
	snapshotReply chan<- engine.Snapshot
	spectateReply chan<- Spectator
	playerReply   chan<- playerLookup
}

type playerLookup struct {
	player engine.Player
	found  bool
}

// Connection is what a newly connected client receives from the coordinator
type Connection struct {
	ID       engine.PlayerID
	Snapshot engine.Snapshot
	Updates  <-chan engine.GameUpdate
}

// Spectator is a non-player observer of every broadcast
type Spectator struct {
	ID      uint64
	Updates <-chan engine.GameUpdate
}

// Coordinator owns the world and the client registry. All mutation happens
// on the goroutine running Run; other goroutines talk to it through a Handle.
type Coordinator struct {
	world      *engine.World
	clients    map[engine.PlayerID]chan engine.GameUpdate
	spectators map[uint64]chan engine.GameUpdate
	nextSpec   uint64

	events  chan event
	done    chan struct{}
	ticks   <-chan time.Time
	running atomic.Bool

	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger, zap.NewNop() by default
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics shares an existing metrics set
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTicks replaces the internal ticker with an external tick source.
// Closing the channel stops ticking.
func WithTicks(ticks <-chan time.Time) Option {
	return func(c *Coordinator) {
		c.ticks = ticks
	}
}

// WithQueueSize sets the inbound event queue capacity
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.events = make(chan event, n)
		}
	}
}

// New creates a coordinator running the given rules. Call Run to start it.
func New(rules engine.Rules, opts ...Option) (*Coordinator, error) {
	world, err := engine.NewWorld(rules)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		world:      world,
		clients:    make(map[engine.PlayerID]chan engine.GameUpdate),
		spectators: make(map[uint64]chan engine.GameUpdate),
		events:     make(chan event, DefaultQueueSize),
		done:       make(chan struct{}),
		metrics:    &Metrics{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Handle returns a submitter for this coordinator
func (c *Coordinator) Handle() Handle {
	return Handle{events: c.events, done: c.done}
}

// Rules returns the ruleset the coordinator was created with
func (c *Coordinator) Rules() engine.Rules {
	return c.world.Rules()
}

// Metrics returns the live counters
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Done is closed once Run has returned
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run processes events and ticks one at a time until ctx is cancelled.
// When both a tick and a client event are ready, the tick goes first.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.shutdown()

	ticks := c.ticks
	if ticks == nil {
		ticker := time.NewTicker(c.world.Rules().TickInterval())
		defer ticker.Stop()
		ticks = ticker.C
	}

	c.logger.Info("coordinator started",
		zap.String("rules", c.world.Rules().Name),
		zap.Duration("tick_interval", c.world.Rules().TickInterval()))

	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			c.handleTick()
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			c.handleTick()
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Coordinator) shutdown() {
	close(c.done)
	for id, ch := range c.clients {
		close(ch)
		delete(c.clients, id)
	}
	for id, ch := range c.spectators {
		close(ch)
		delete(c.spectators, id)
	}
	c.metrics.Spectators.Store(0)
	c.logger.Info("coordinator stopped", zap.Int("players", c.world.Len()))
}

func (c *Coordinator) handle(ev event) {
	switch ev.kind {
	case eventConnect:
		c.handleConnect(ev.connectReply)
	case eventDisconnect:
		c.handleDisconnect(ev.id)
	case eventAction:
		c.handleAction(ev.id, ev.msg)
	case eventSnapshot:
		ev.snapshotReply <- c.world.Snapshot()
	case eventSpectate:
		c.handleSpectate(ev.spectateReply)
	case eventUnspectate:
		c.handleUnspectate(ev.spectator)
	case eventPlayer:
		p, ok := c.world.Get(ev.id)
		ev.playerReply <- playerLookup{player: p, found: ok}
	default:
		c.logger.Error("unknown event", zap.Int("kind", int(ev.kind)))
	}
}

func (c *Coordinator) handleConnect(reply chan<- Connection) {
	p := c.world.Spawn()

	// Announce before registering so the new client does not see its own join
	c.broadcast(engine.NewPlayerJoined(p))

	updates := make(chan engine.GameUpdate, c.world.Rules().ClientBuffer)
	c.clients[p.ID] = updates
	c.metrics.Connects.Add(1)

	reply <- Connection{ID: p.ID, Snapshot: c.world.Snapshot(), Updates: updates}

	c.logger.Debug("player connected", playerField(p.ID), zap.Int("players", c.world.Len()))
}

// handleDisconnect drops the client and removes its player without a death
// broadcast. Unknown ids are ignored.
func (c *Coordinator) handleDisconnect(id engine.PlayerID) {
	c.metrics.DisconnectRequests.Add(1)
	updates, registered := c.clients[id]
	if registered {
		delete(c.clients, id)
		close(updates)
		c.metrics.Disconnects.Add(1)
	}
	removed := c.world.Remove(id)

	if registered || removed {
		c.logger.Debug("player disconnected", playerField(id), zap.Bool("was_alive", removed))
	}
}

func (c *Coordinator) handleAction(id engine.PlayerID, msg engine.ClientMessage) {
	died, ok, err := c.world.Apply(id, msg)
	if err != nil {
		c.logger.Warn("rejected action", playerField(id), zap.Error(err))
		return
	}
	if !ok {
		c.metrics.StaleActions.Add(1)
		c.logger.Debug("ignored stale action", playerField(id), zap.String("action", string(msg.Kind)))
		return
	}
	c.metrics.ActionsApplied.Add(1)

	c.announceDeaths(died)
	c.broadcast(engine.NewWorldUpdate(c.world.Snapshot()))
}

func (c *Coordinator) handleTick() {
	start := time.Now()

	died := c.world.Tick()
	c.announceDeaths(died)
	c.broadcast(engine.NewWorldUpdate(c.world.Snapshot()))

	c.metrics.addTick(time.Since(start))
}

func (c *Coordinator) announceDeaths(died []engine.PlayerID) {
	for _, id := range died {
		c.metrics.Deaths.Add(1)
		c.logger.Debug("player died", playerField(id))
		c.broadcast(engine.NewPlayerDied(id))
	}
}

func (c *Coordinator) handleSpectate(reply chan<- Spectator) {
	id := c.nextSpec
	c.nextSpec++
	updates := make(chan engine.GameUpdate, c.world.Rules().ClientBuffer)
	c.spectators[id] = updates
	c.metrics.Spectators.Add(1)
	reply <- Spectator{ID: id, Updates: updates}
}

func (c *Coordinator) handleUnspectate(id uint64) {
	if updates, ok := c.spectators[id]; ok {
		delete(c.spectators, id)
		close(updates)
		c.metrics.Spectators.Add(-1)
	}
}

// broadcast hands u to every registered client and spectator, in ascending
// id order, without ever blocking on a slow consumer.
func (c *Coordinator) broadcast(u engine.GameUpdate) {
	c.metrics.Broadcasts.Add(1)
	for _, id := range slices.Sorted(maps.Keys(c.clients)) {
		c.deliver(c.clients[id], u)
	}
	for _, id := range slices.Sorted(maps.Keys(c.spectators)) {
		c.deliver(c.spectators[id], u)
	}
}

func (c *Coordinator) deliver(ch chan engine.GameUpdate, u engine.GameUpdate) {
	select {
	case ch <- u:
	default:
		c.metrics.DroppedDeliveries.Add(1)
	}
}

func playerField(id engine.PlayerID) zap.Field {
	return zap.Uint64("player_id", uint64(id))
}
