package natsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return p.err
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.msgs...)
}

func startCoordinator(t *testing.T) (*coordinator.Coordinator, chan time.Time, context.CancelFunc) {
	t.Helper()
	ticks := make(chan time.Time)
	coord, err := coordinator.New(engine.DefaultRules(), coordinator.WithTicks(ticks))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-coord.Done()
	})
	return coord, ticks, cancel
}

func TestFeed_Subject(t *testing.T) {
	f := NewFeed(coordinator.Handle{}, &fakePublisher{}, "", nil)

	assert.Equal(t, "clickbattler.player_joined", f.Subject(engine.KindPlayerJoined))
	assert.Equal(t, "clickbattler.player_died", f.Subject(engine.KindPlayerDied))
	assert.Equal(t, "clickbattler.world_update", f.Subject(engine.KindWorldUpdate))

	custom := NewFeed(coordinator.Handle{}, &fakePublisher{}, "arena.eu", nil)
	assert.Equal(t, "arena.eu.world_update", custom.Subject(engine.KindWorldUpdate))
}

func TestFeed_PublishesBroadcasts(t *testing.T) {
	coord, ticks, _ := startCoordinator(t)
	pub := &fakePublisher{}
	feed := NewFeed(coord.Handle(), pub, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spec, err := coord.Handle().Spectate(ctx)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- feed.stream(ctx, spec) }()

	conn, err := coord.Handle().Connect(ctx)
	require.NoError(t, err)
	ticks <- time.Now()

	require.Eventually(t, func() bool { return len(pub.all()) == 2 }, time.Second, 5*time.Millisecond)

	msgs := pub.all()
	assert.Equal(t, "clickbattler.player_joined", msgs[0].subject)
	assert.JSONEq(t, `{"type":"PlayerJoined","player":{"id":0,"health":10}}`, string(msgs[0].data))
	assert.Equal(t, "clickbattler.world_update", msgs[1].subject)

	var u engine.GameUpdate
	require.NoError(t, json.Unmarshal(msgs[1].data, &u))
	assert.Equal(t, 9, u.Players[conn.ID].Health)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}

func TestFeed_RunStopsWhenCoordinatorStops(t *testing.T) {
	coord, _, stop := startCoordinator(t)
	feed := NewFeed(coord.Handle(), &fakePublisher{}, "", nil)

	done := make(chan error, 1)
	go func() { done <- feed.Run(context.Background()) }()

	stop()

	select {
	case err := <-done:
		// Either the feed saw its channel close or never got to spectate
		if err != nil {
			assert.ErrorIs(t, err, coordinator.ErrCoordinatorStopped)
		}
	case <-time.After(time.Second):
		t.Fatal("feed did not stop with the coordinator")
	}
}

func TestFeed_PublishErrorsAreSkipped(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	f := NewFeed(coordinator.Handle{}, pub, "", nil)

	f.publish(engine.NewPlayerDied(3))
	f.publish(engine.NewPlayerDied(4))

	msgs := pub.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "clickbattler.player_died", msgs[0].subject)
	assert.JSONEq(t, `{"type":"PlayerDied","id":3}`, string(msgs[0].data))
}
