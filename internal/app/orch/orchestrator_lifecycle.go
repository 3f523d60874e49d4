package orch

import (
	"github.com/dkeye/Reflector/internal/core"
)

// OnOpen is called once per accepted connection, before any frame.
func (o *Orchestrator) OnOpen(sess core.PeerSession) {
	o.Metrics.ConnectionsActive.Inc()
	sessionLogger(sess).Debug().Msg("new client connected")
}

// OnClose is called once when the transport is gone, whoever closed it. Only
// a binding that still points at sess is removed.
func (o *Orchestrator) OnClose(sess core.PeerSession) {
	o.Metrics.ConnectionsActive.Dec()
	if o.Limiter != nil {
		o.Limiter.Forget(sess.Signal().ID())
	}

	logger := sessionLogger(sess)
	id, bound := sess.Identity()
	if !bound {
		logger.Debug().Msg("connection closed")
		return
	}
	if o.Registry.Unregister(id, sess) {
		logger.Debug().Msg("connection closed, identity released")
		return
	}
	logger.Debug().Msg("connection closed, identity already taken over")
}
