package core

import "github.com/dkeye/tiger/internal/domain"

// memberSession implements MemberSession by pairing identity + transport.
type memberSession struct {
	sid      SessionID
	identity *domain.Identity
	signal   SignalConnection
}

// NewMemberSession binds a transport endpoint to an optional identity.
func NewMemberSession(sid SessionID, identity *domain.Identity, signal SignalConnection) MemberSession {
	var id *domain.Identity
	if identity != nil {
		cp := *identity
		id = &cp
	}
	return &memberSession{sid: sid, identity: id, signal: signal}
}

func (m *memberSession) SID() SessionID           { return m.sid }
func (m *memberSession) Signal() SignalConnection { return m.signal }

func (m *memberSession) Identity() (domain.Identity, bool) {
	if m.identity == nil {
		return domain.Identity{}, false
	}
	return *m.identity, true
}

// Username returns the display name of a session, or domain.AnonymousName.
func Username(ms MemberSession) string {
	if id, ok := ms.Identity(); ok {
		return id.Username
	}
	return domain.AnonymousName
}
