package app

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return core.ErrClosed
	case c.full:
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) events() []map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]json.RawMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var env map[string]json.RawMessage
		_ = json.Unmarshal(f, &env)
		out = append(out, env)
	}
	return out
}

func newSession(sid string, id *domain.Identity) (core.MemberSession, *recordingConn) {
	conn := &recordingConn{}
	return core.NewMemberSession(core.SessionID(sid), id, conn), conn
}

func ident(id int64, name string) *domain.Identity {
	return &domain.Identity{UserID: domain.UserID(id), Username: name}
}
