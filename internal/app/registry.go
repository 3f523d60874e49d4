package app

import (
	"sync"

	"github.com/dkeye/Reflector/internal/core"
	"github.com/dkeye/Reflector/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps an identity to the single session currently bound to it.
// The map never leaves the type; all access goes through the methods below.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.Identity]core.PeerSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.Identity]core.PeerSession),
	}
}

// Register binds id to sess. When id was already bound to another session the
// binding is replaced and the displaced session is returned; the caller must
// close it. Registering the same session twice returns nil.
func (r *Registry) Register(id domain.Identity, sess core.PeerSession) (superseded core.PeerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.sessions[id]; ok && prev != sess {
		superseded = prev
	}
	r.sessions[id] = sess
	ev := log.Debug().Str("module", "app.registry").Str("identity", string(id)).Str("conn", string(sess.Signal().ID()))
	if superseded != nil {
		ev = ev.Str("superseded", string(superseded.Signal().ID()))
	}
	ev.Msg("registered")
	return superseded
}

func (r *Registry) Lookup(id domain.Identity) (core.PeerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Unregister removes id only if it is still bound to sess, so a late close of
// a superseded session leaves the newer binding alone. It reports whether the
// binding was removed.
func (r *Registry) Unregister(id domain.Identity, sess core.PeerSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[id]
	if !ok || cur != sess {
		return false
	}
	delete(r.sessions, id)
	log.Debug().Str("module", "app.registry").Str("identity", string(id)).Msg("unregistered")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
