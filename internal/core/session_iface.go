package core

import "github.com/dkeye/tiger/internal/domain"

type SessionID string

// MemberSession is the per-connection context every handler receives.
// It is built once at connect time and never looked up from globals.
type MemberSession interface {
	SID() SessionID
	// Identity is empty for anonymous sessions.
	Identity() (domain.Identity, bool)
	Signal() SignalConnection
}
