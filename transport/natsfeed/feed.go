package natsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
)

// DefaultSubjectPrefix is prepended to every published subject
const DefaultSubjectPrefix = "clickbattler"

// Publisher is the subset of *nats.Conn the feed needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Dial connects to a NATS server and keeps reconnecting forever
func Dial(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(
		url,
		nats.Name("click-battler"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// Feed mirrors every coordinator broadcast onto NATS subjects
type Feed struct {
	handle coordinator.Handle
	pub    Publisher
	prefix string
	logger *zap.Logger
}

// NewFeed creates a feed. An empty prefix uses DefaultSubjectPrefix.
func NewFeed(handle coordinator.Handle, pub Publisher, prefix string, logger *zap.Logger) *Feed {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{handle: handle, pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject an update is published on, e.g.
// clickbattler.world_update
func (f *Feed) Subject(kind engine.UpdateKind) string {
	switch kind {
	case engine.KindPlayerJoined:
		return f.prefix + ".player_joined"
	case engine.KindPlayerDied:
		return f.prefix + ".player_died"
	case engine.KindWorldUpdate:
		return f.prefix + ".world_update"
	default:
		return f.prefix + ".unknown"
	}
}

// Run registers as a spectator and publishes until ctx is cancelled or the
// coordinator stops. Publish failures are logged and skipped.
func (f *Feed) Run(ctx context.Context) error {
	spec, err := f.handle.Spectate(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to spectate: %w", err)
	}
	f.logger.Info("nats feed started", zap.String("prefix", f.prefix))
	return f.stream(ctx, spec)
}

// stream publishes the spectator's updates until ctx ends or the channel closes
func (f *Feed) stream(ctx context.Context, spec coordinator.Spectator) error {
	for {
		select {
		case <-ctx.Done():
			if err := f.handle.Unspectate(spec.ID); err != nil && !errors.Is(err, coordinator.ErrCoordinatorStopped) {
				f.logger.Warn("unspectate failed", zap.Error(err))
			}
			return nil

		case update, ok := <-spec.Updates:
			if !ok {
				f.logger.Info("nats feed stopped")
				return nil
			}
			f.publish(update)
		}
	}
}

func (f *Feed) publish(update engine.GameUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		f.logger.Error("failed to encode update", zap.Error(err))
		return
	}
	subject := f.Subject(update.Kind)
	if err := f.pub.Publish(subject, data); err != nil {
		f.logger.Warn("nats publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
