package websocket

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/game/coordinator"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The game page may be served through a tunnel under another host
		return true
	},
}

// Handler upgrades HTTP requests to websocket Sessions bound to a coordinator
type Handler struct {
	handle  coordinator.Handle
	metrics *coordinator.Metrics
	logger  *zap.Logger
}

// NewHandler creates a websocket handler. metrics may be nil.
func NewHandler(handle coordinator.Handle, metrics *coordinator.Metrics, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = &coordinator.Metrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{handle: handle, metrics: metrics, logger: logger}
}

// ServeHTTP upgrades the connection, registers the player and starts the pumps
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := h.newSession(conn, r.RemoteAddr)
	if err := s.start(r.Context()); err != nil {
		s.logger.Info("session not started", zap.Error(err))
		return
	}
	s.logger.Info("client connected", zap.Uint64("player_id", uint64(s.PlayerID())))
}

func (h *Handler) newSession(conn *websocket.Conn, remote string) *Session {
	s := &Session{
		handle:  h.handle,
		conn:    conn,
		connID:  uuid.NewString(),
		metrics: h.metrics,
	}
	s.logger = h.logger.With(zap.String("conn_id", s.connID), zap.String("remote", remote))
	return s
}
