package core

import (
	"sync"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory audience.
// It never closes adapter-owned resources.
type roomImpl struct {
	name  domain.RoomName
	mu    sync.RWMutex
	bySID map[SessionID]MemberSession
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:  name,
		bySID: make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Has(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) AddMember(ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySID[ms.SID()] = ms
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(ms.SID())).Msg("audience joined")
}

func (r *roomImpl) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return false
	}
	delete(r.bySID, sid)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("audience left")
	return true
}

func (r *roomImpl) Snapshot() []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.bySID))
	for _, ms := range r.bySID {
		out = append(out, ms)
	}
	return out
}

// Broadcast delivers to a snapshot taken under the read lock; sessions that
// join afterwards are not owed this frame.
func (r *roomImpl) Broadcast(data Frame) PublishResult {
	res := Publish(r.Snapshot(), "", data)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
