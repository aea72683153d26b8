package signal

import (
	"context"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// maxCloseText keeps the close frame payload under the 125 byte control limit.
const maxCloseText = 120

func (c *WsSignalConn) writePump(ctx context.Context) {
	defer func() {
		_ = c.conn.Close()
		close(c.done)
	}()

	var ping <-chan time.Time
	if c.pingPeriod > 0 {
		t := time.NewTicker(c.pingPeriod)
		defer t.Stop()
		ping = t.C
	}
	stop := ctx.Done()

	for {
		select {
		case <-stop:
			stop = nil
			c.Close(core.CloseNormal)
		case data, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close(core.CloseNormal)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close(core.CloseNormal)
				return
			}
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				c.Close(core.CloseNormal)
				return
			}
		}
	}
}

func (c *WsSignalConn) writeClose() {
	reason := c.closeReason()
	text := reason.Text
	if len(text) > maxCloseText {
		text = text[:maxCloseText]
	}
	msg := websocket.FormatCloseMessage(reason.Code, text)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("write close frame")
	}
}

func (ctl *SignalWSController) readPump(id domain.SessionID, user domain.UserID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("session", string(id)).Str("user", string(user)).Msg("readPump closing")
		ctl.Orch.Leave(id, user, c)
		c.Close(core.CloseNormal)
	}()

	if ctl.Opts.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.Opts.ReadLimit)
	}
	c.conn.SetPongHandler(func(string) error {
		ctl.Orch.Touch(id, user, c)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("session", string(id)).Msg("readPump read error")
			}
			return
		}
		ctl.Orch.Touch(id, user, c)
		cmd, err := DecodeCommand(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("session", string(id)).Str("user", string(user)).Msg("malformed frame dropped")
			continue
		}
		ctl.Orch.HandleCommand(id, user, c, cmd)
	}
}
