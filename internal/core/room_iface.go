package core

import (
	"errors"

	"github.com/dkeye/tiger/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the live broadcast audience of one room name: the sessions
// that explicitly joined it on this process. Durable membership lives in the
// membership index, not here.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	Has(sid SessionID) bool
	Snapshot() []MemberSession

	AddMember(ms MemberSession)
	RemoveMember(sid SessionID) bool
	Broadcast(data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	// Join adds ms to the named audience, creating it on first use.
	Join(name domain.RoomName, ms MemberSession) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	// Leave drops sid from the named audience and stops the audience once empty.
	Leave(name domain.RoomName, sid SessionID) bool
	// LeaveAll drops sid from every audience and returns the names it left.
	LeaveAll(sid SessionID) []domain.RoomName
	StopRoom(name domain.RoomName)
}

// Publish sends data to every target except skip. Targets whose buffer is full
// are reported in Dropped; closed ones are silently skipped.
func Publish(targets []MemberSession, skip SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for _, m := range targets {
		if skip != "" && m.SID() == skip {
			continue
		}
		err := m.Signal().TrySend(data)
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, ErrBackpressure):
			res.Dropped = append(res.Dropped, m)
		}
	}
	return res
}
