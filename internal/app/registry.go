package app

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type sessionEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry is the connection registry: every open transport session, anonymous
// or not, keyed by sid. All operations are serialized by one RWMutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Register records the session, overwriting any stale entry for the same sid.
// cancel tears down the transport and may be nil.
func (r *Registry) Register(sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.SID()] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.SID())).Str("username", core.Username(sess)).Msg("registered session")
}

// Unregister removes sid and returns the identity it carried, if any.
func (r *Registry) Unregister(sid core.SessionID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered session")
	return e.Session.Identity()
}

func (r *Registry) Lookup(sid core.SessionID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session.Identity()
	}
	return domain.Identity{}, false
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// ListOnline returns the usernames of identified sessions, deduplicated and sorted.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.sessions))
	for _, e := range r.sessions {
		if id, ok := e.Session.Identity(); ok {
			names = append(names, id.Username)
		}
	}
	r.mu.RUnlock()

	names = lo.Uniq(names)
	slices.Sort(names)
	return names
}

// Snapshot returns every registered session.
func (r *Registry) Snapshot() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Session)
	}
	return out
}

// SessionsOf returns the sessions whose identity is one of users.
func (r *Registry) SessionsOf(users []domain.UserID) []core.MemberSession {
	want := lo.SliceToMap(users, func(id domain.UserID) (domain.UserID, struct{}) {
		return id, struct{}{}
	})

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(users))
	for _, e := range r.sessions {
		id, ok := e.Session.Identity()
		if !ok {
			continue
		}
		if _, member := want[id.UserID]; member {
			out = append(out, e.Session)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel asks the transport of sid to shut down; the disconnect path then
// unregisters it.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
