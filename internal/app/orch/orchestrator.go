package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Reflector/internal/app"
	"github.com/dkeye/Reflector/internal/core"
	"github.com/dkeye/Reflector/internal/domain"
	"github.com/dkeye/Reflector/internal/metric"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Orchestrator receives the events of every connection and drives the
// registry. Events of one connection must be delivered sequentially; events
// of different connections may arrive concurrently.
type Orchestrator struct {
	Registry *app.Registry
	// Limiter is optional; nil disables rate limiting.
	Limiter *app.RateLimiter
	Metrics *metric.Metrics
}

func New(reg *app.Registry, limiter *app.RateLimiter, m *metric.Metrics) *Orchestrator {
	m.TrackRegistrations(reg.Len)
	return &Orchestrator{
		Registry: reg,
		Limiter:  limiter,
		Metrics:  m,
	}
}

// OnFrame validates one inbound frame and either registers the sender or
// routes the message. Protocol violations are answered with a reply code and
// never close the connection.
func (o *Orchestrator) OnFrame(sess core.PeerSession, data core.Frame) {
	o.Metrics.FramesReceived.Inc()
	logger := sessionLogger(sess)
	logger.Trace().Bytes("frame", data).Msg("frame received")

	req, err := core.DecodeRequest(data)

	if o.Limiter != nil && !o.Limiter.Allow(sess.Signal().ID()) {
		o.Metrics.RateLimited.Inc()
		code := domain.NewBareReplyCode(domain.StatusRateLimited, domain.ReasonRateLimited)
		if err == nil {
			code = domain.NewReplyCode(req.RequestMethod(), domain.StatusRateLimited, domain.ReasonRateLimited)
		}
		logger.Warn().Str("code", string(code)).Msg("frame rate limited")
		o.reply(sess, code)
		return
	}

	if err != nil {
		var de *core.DecodeError
		if !errors.As(err, &de) {
			logger.Error().Err(err).Msg("decode")
			return
		}
		logger.Warn().Err(err).Str("code", string(de.Code)).Msg("bad message")
		o.reply(sess, de.Code)
		return
	}

	switch r := req.(type) {
	case *core.RegisterRequest:
		o.handleRegister(sess, r)
	case *core.RoutedMessage:
		o.handleRouted(sess, r)
	default:
		logger.Error().Str("method", req.RequestMethod()).Msg("unhandled request type")
	}
}

func (o *Orchestrator) reply(sess core.PeerSession, code domain.ReplyCode) {
	o.Metrics.Replies.WithLabelValues(string(code.Status()), string(code.Reason())).Inc()
	b, err := json.Marshal(domain.Reply{Method: code})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("reply marshal")
		return
	}
	sess.Signal().Send(b, o.sendCallback(sess, metric.KindReply))
}

// sendCallback logs the delivery outcome. Failures are counted and dropped;
// nothing is reported back to whoever caused the send.
func (o *Orchestrator) sendCallback(to core.PeerSession, kind string) core.SendCallback {
	return func(err error) {
		logger := sessionLogger(to)
		if err != nil {
			o.Metrics.SendFailures.WithLabelValues(kind).Inc()
			logger.Warn().Err(err).Str("kind", kind).Msg("sending error")
			return
		}
		logger.Trace().Str("kind", kind).Msg("sending success")
	}
}

func sessionLogger(sess core.PeerSession) *zerolog.Logger {
	conn := sess.Signal()
	ctx := log.With().
		Str("module", "app.orch").
		Str("conn", string(conn.ID())).
		Str("remote", conn.RemoteAddr())
	if id, ok := sess.Identity(); ok {
		ctx = ctx.Str("identity", string(id))
	}
	l := ctx.Logger()
	return &l
}
