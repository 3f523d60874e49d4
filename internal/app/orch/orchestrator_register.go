package orch

import (
	"github.com/dkeye/Reflector/internal/core"
	"github.com/dkeye/Reflector/internal/domain"
)

func (o *Orchestrator) handleRegister(sess core.PeerSession, req *core.RegisterRequest) {
	if _, bound := sess.Identity(); bound {
		o.reply(sess, domain.CodeAlreadyRegistered)
		return
	}
	if !req.HasFrom {
		o.reply(sess, domain.CodeRegisterNoFrom)
		return
	}
	id, err := domain.NewIdentity(req.From)
	if err != nil {
		o.reply(sess, domain.CodeRegisterEmptyFrom)
		return
	}

	// Frames of one connection arrive in order, so the check above means
	// Bind cannot fail here.
	if err := sess.Bind(id); err != nil {
		sessionLogger(sess).Error().Err(err).Msg("bind")
		return
	}

	// The registry points at sess before the old connection starts closing, so
	// a concurrent lookup always finds one of the two.
	if prev := o.Registry.Register(id, sess); prev != nil {
		o.Metrics.Supersessions.Inc()
		sessionLogger(sess).Info().
			Str("superseded", string(prev.Signal().ID())).
			Msg("identity taken over, closing previous connection")
		prev.Signal().Close()
	}

	sessionLogger(sess).Debug().Msg("registered")
	o.reply(sess, domain.CodeRegisterOK)
}
