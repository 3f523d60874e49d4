package core

import (
	"errors"

	"github.com/dkeye/Reflector/internal/domain"
)

var ErrAlreadyBound = errors.New("session already bound to an identity")

// PeerSession is the per-connection state: the transport endpoint plus the
// identity it registered under, if any. It is passed explicitly through every
// orchestrator call.
type PeerSession interface {
	Signal() SignalConnection
	// Identity returns the bound identity; ok is false before REGISTER succeeds.
	Identity() (id domain.Identity, ok bool)
	// Bind sets the identity once; later calls return ErrAlreadyBound.
	Bind(id domain.Identity) error
}
