package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/VoiceClub/internal/app/orch"
	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit  int64
	SendBuffer int
	WriteWait  time.Duration
	PingPeriod time.Duration
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	Opts Options
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	return &SignalWSController{Orch: o, Opts: opts}
}

// WsSignalConn is a websocket with a bounded outbound queue drained by its
// own writer goroutine.
type WsSignalConn struct {
	conn       *websocket.Conn
	send       chan core.Frame
	done       chan struct{}
	writeWait  time.Duration
	pingPeriod time.Duration

	mu     sync.RWMutex
	closed bool
	reason core.CloseReason
}

func newWsSignalConn(ws *websocket.Conn, opts Options) *WsSignalConn {
	return &WsSignalConn{
		conn:       ws,
		send:       make(chan core.Frame, opts.SendBuffer),
		done:       make(chan struct{}),
		writeWait:  opts.WriteWait,
		pingPeriod: opts.PingPeriod,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The writer flushes what is queued, sends the
// close frame with reason and closes the socket. Only the first reason wins.
func (c *WsSignalConn) Close(reason core.CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.send)
}

func (c *WsSignalConn) Done() <-chan struct{} { return c.done }

func (c *WsSignalConn) closeReason() core.CloseReason {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handshake struct {
	UserID   string `form:"user_id" binding:"required,max=64"`
	Username string `form:"username" binding:"required,max=64"`
	Role     string `form:"role" binding:"omitempty,oneof=speaker listener"`
}

// HandleSignal upgrades the request and joins the session. The caller has
// already validated the handshake and the session status; Join re-checks
// the status under the room lock.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, id domain.SessionID, hs Handshake) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWsSignalConn(ws, ctl.Opts)
	go conn.writePump(ctx)

	p, err := ctl.Orch.Join(ctx, orch.JoinParams{
		SessionID: id,
		UserID:    hs.UserID,
		Username:  hs.Username,
		Role:      hs.Role,
		Conn:      conn,
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("session", string(id)).Msg("join failed after upgrade")
		conn.Close(closeReasonFor(err))
		return
	}
	log.Info().Str("module", "signal").Str("session", string(id)).Str("user", string(p.User.ID)).Msg("new WS connection")
	go ctl.readPump(id, p.User.ID, conn)
}

func closeReasonFor(err error) core.CloseReason {
	r := core.CloseInvalidState
	switch orch.ErrorCode(err) {
	case "not_found", "forbidden":
		r = core.CloseNotParticipant
	}
	r.Text = err.Error()
	return r
}
