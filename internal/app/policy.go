package app

import (
	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a session whose send buffer was full during
// a broadcast to room.
type Policy interface {
	OnBackPressure(room domain.RoomName, member core.MemberSession) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomName, member core.MemberSession) BackpressureAction {
	return KickMember
}
