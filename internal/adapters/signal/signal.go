// Package signal is the WebSocket transport adapter: it upgrades the
// connection, binds it to a session and pumps frames between the socket and
// the orchestrator.
package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/tiger/internal/app/orch"
	"github.com/dkeye/tiger/internal/config"
	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Cookie session keys written by the HTTP login flow.
const (
	SessionUserIDKey   = "user_id"
	SessionUsernameKey = "username"
)

const defaultSendBuffer = 32

type SignalWSController struct {
	Orch *orch.Orchestrator

	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IdentityFrom reads the identity the login flow stored in the cookie
// session. Visitors without one connect anonymously.
func IdentityFrom(c *gin.Context) *domain.Identity {
	s := sessions.Default(c)
	uid, ok := s.Get(SessionUserIDKey).(int64)
	if !ok {
		return nil
	}
	name, ok := s.Get(SessionUsernameKey).(string)
	if !ok || name == "" {
		return nil
	}
	return &domain.Identity{UserID: domain.UserID(uid), Username: name}
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	identity := IdentityFrom(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Bool("anonymous", identity == nil).Msg("new WS connection")

	buf := ctl.SendBuffer
	if buf <= 0 {
		buf = defaultSendBuffer
	}
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buf),
	}
	sess := core.NewMemberSession(sid, identity, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	ctl.Orch.OnConnect(ctx, sess, cancel)
	go ctl.readPump(ctx, cancel, sess, conn)
}
