package orch

import (
	"github.com/dkeye/Reflector/internal/core"
	"github.com/dkeye/Reflector/internal/domain"
	"github.com/dkeye/Reflector/internal/metric"
)

// handleRouted applies the sender checks of a non-REGISTER message and hands
// it to route.
func (o *Orchestrator) handleRouted(sess core.PeerSession, msg *core.RoutedMessage) {
	self, bound := sess.Identity()
	if !bound {
		o.reply(sess, domain.NewReplyCode(msg.Method, domain.StatusBadRequest, domain.ReasonNotRegistered))
		return
	}
	if msg.HasTo && !msg.HasFrom {
		o.reply(sess, domain.NewReplyCode(msg.Method, domain.StatusBadRequest, domain.ReasonNoFrom))
		return
	}
	if msg.HasTo && domain.Identity(msg.From) != self {
		o.reply(sess, domain.NewReplyCode(msg.Method, domain.StatusBadRequest, domain.ReasonBadFrom))
		return
	}
	if msg.HasTo && domain.Identity(msg.To) == self {
		o.reply(sess, domain.NewReplyCode(msg.Method, domain.StatusBadRequest, domain.ReasonOneself))
		return
	}
	o.route(sess, msg)
}

// route forwards the original frame untouched. Payload fields are never read.
func (o *Orchestrator) route(sender core.PeerSession, msg *core.RoutedMessage) {
	var (
		target core.PeerSession
		found  bool
	)
	if msg.HasTo && msg.To != "" {
		target, found = o.Registry.Lookup(domain.Identity(msg.To))
	}
	if !found {
		sessionLogger(sender).Debug().Str("method", msg.Method).Str("to", msg.To).Msg("peer unavailable")
		o.reply(sender, domain.NewReplyCode(msg.Method, domain.StatusBadRequest, domain.ReasonPeerUnavailable))
		return
	}

	o.Metrics.Forwarded.Inc()
	sessionLogger(sender).Debug().
		Str("method", msg.Method).
		Str("to", msg.To).
		Str("target_conn", string(target.Signal().ID())).
		Msg("forward")
	target.Signal().Send(msg.Raw, o.sendCallback(target, metric.KindForward))
}
