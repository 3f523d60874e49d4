package core

import (
	"sync"

	"github.com/dkeye/Reflector/internal/domain"
)

// peerSession implements PeerSession by pairing a transport with its binding.
type peerSession struct {
	conn SignalConnection

	mu       sync.RWMutex
	identity domain.Identity
	bound    bool
}

func NewPeerSession(conn SignalConnection) PeerSession {
	return &peerSession{conn: conn}
}

func (s *peerSession) Signal() SignalConnection { return s.conn }

func (s *peerSession) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.bound
}

func (s *peerSession) Bind(id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return ErrAlreadyBound
	}
	s.identity = id
	s.bound = true
	return nil
}
