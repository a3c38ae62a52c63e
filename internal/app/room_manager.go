package app

import (
	"sync"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
)

// RoomManagerImpl tracks live audiences. Join and Leave run under the manager
// lock so an audience is never dropped while someone is joining it.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomName]core.RoomService)}
}

func (f *RoomManagerImpl) getOrCreateLocked(name domain.RoomName) core.RoomService {
	if room, ok := f.rooms[name]; ok {
		return room
	}
	room := core.NewRoomService(name)
	f.rooms[name] = room
	return room
}

func (f *RoomManagerImpl) Join(name domain.RoomName, ms core.MemberSession) core.RoomService {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.getOrCreateLocked(name)
	room.AddMember(ms)
	return room
}

func (f *RoomManagerImpl) Get(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

func (f *RoomManagerImpl) Leave(name domain.RoomName, sid core.SessionID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaveLocked(name, sid)
}

func (f *RoomManagerImpl) leaveLocked(name domain.RoomName, sid core.SessionID) bool {
	room, ok := f.rooms[name]
	if !ok {
		return false
	}
	removed := room.RemoveMember(sid)
	if room.MemberCount() == 0 {
		delete(f.rooms, name)
	}
	return removed
}

func (f *RoomManagerImpl) LeaveAll(sid core.SessionID) []domain.RoomName {
	f.mu.Lock()
	defer f.mu.Unlock()
	var left []domain.RoomName
	for name := range f.rooms {
		if f.leaveLocked(name, sid) {
			left = append(left, name)
		}
	}
	return left
}

func (f *RoomManagerImpl) StopRoom(name domain.RoomName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, name)
}
