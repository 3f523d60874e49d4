package signal

import (
	"fmt"
	"time"

	"github.com/dkeye/Reflector/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const closeGrace = time.Second

func (ctl *SignalWSController) writePump(c *wsSignalConn) {
	defer func() {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		_ = c.conn.Close()
		log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump closed")
	}()

	var broken error
	for out := range c.send {
		if broken != nil {
			out.done(fmt.Errorf("%w: %v", core.ErrConnectionClosed, broken))
			continue
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
			broken = err
			out.done(err)
			_ = c.conn.Close()
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, out.frame); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
			broken = err
			out.done(err)
			// unblocks readPump, which then closes send
			_ = c.conn.Close()
			continue
		}
		out.done(nil)
	}
}

func (ctl *SignalWSController) readPump(sess core.PeerSession, c *wsSignalConn) {
	defer func() {
		c.Close()
		ctl.untrack(c)
		ctl.Orch.OnClose(sess)
		log.Debug().Str("module", "signal").Str("conn", string(c.id)).Str("remote", c.remote).Msg("readPump closing")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		ctl.Orch.OnFrame(sess, core.Frame(data))
	}
}
