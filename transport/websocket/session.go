package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
)

// Session relays between one websocket connection and the coordinator
type Session struct {
	handle  coordinator.Handle
	conn    *websocket.Conn
	connID  string
	id      engine.PlayerID
	metrics *coordinator.Metrics
	logger  *zap.Logger

	closeOnce sync.Once
}

// PlayerID returns the identity assigned by the coordinator
func (s *Session) PlayerID() engine.PlayerID {
	return s.id
}

// start registers the player, writes the handshake frames (identity first,
// then the snapshot) and launches the read and write pumps.
func (s *Session) start(ctx context.Context) error {
	joined, err := s.handle.Connect(ctx)
	if err != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server unavailable")
		if werr := s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); werr != nil {
			s.logger.Debug("close frame not sent", zap.Error(werr))
		}
		_ = s.conn.Close()
		return fmt.Errorf("connect to coordinator: %w", err)
	}
	s.id = joined.ID

	if err := s.writeJSON(joined.ID); err != nil {
		s.close()
		return fmt.Errorf("write identity: %w", err)
	}
	if err := s.writeJSON(joined.Snapshot); err != nil {
		s.close()
		return fmt.Errorf("write snapshot: %w", err)
	}

	go s.writePump(joined.Updates)
	go s.readPump()
	return nil
}

// close tears the connection down and tells the coordinator exactly once
func (s *Session) close() {
	s.closeOnce.Do(func() {
		// Unblocks whichever pump is still running
		_ = s.conn.Close()
		if err := s.handle.Disconnect(s.id); err != nil && !errors.Is(err, coordinator.ErrCoordinatorStopped) {
			s.logger.Warn("disconnect not delivered", zap.Error(err))
		}
		s.logger.Info("client disconnected", zap.Uint64("player_id", uint64(s.id)))
	})
}

func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump decodes client actions and forwards them to the coordinator
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Info("websocket read error", zap.Error(err))
			}
			return
		}

		msg, err := engine.DecodeClientMessage(payload)
		if err != nil {
			s.metrics.IncMalformed()
			s.logger.Debug("dropped malformed frame", zap.Error(err), zap.ByteString("frame", payload))
			continue
		}

		if err := s.handle.SendAction(s.id, msg); err != nil {
			s.logger.Info("coordinator unreachable", zap.Error(err))
			return
		}
	}
}

// writePump writes coordinator updates and keepalive pings to the socket
func (s *Session) writePump(updates <-chan engine.GameUpdate) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				// The coordinator closed the channel
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); err != nil {
					s.logger.Debug("close frame not sent", zap.Error(err))
				}
				return
			}
			if err := s.writeJSON(update); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
