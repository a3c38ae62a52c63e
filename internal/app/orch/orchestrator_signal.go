package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/protocol"
)

// signalHandler relays one negotiation kind. Any connected session may relay,
// anonymous ones included.
func signalHandler(kind protocol.EventKind) handlerFunc {
	return func(o *Orchestrator, _ context.Context, ms core.MemberSession, data json.RawMessage) error {
		res, err := o.Relay.Forward(ms.SID(), kind, data)
		if err != nil {
			return err
		}
		o.applyPolicy("", res)
		return nil
	}
}

func (o *Orchestrator) handleWhoAmI(_ context.Context, ms core.MemberSession, _ json.RawMessage) error {
	ev := protocol.WhoAmIEvent{SID: string(ms.SID()), Username: core.Username(ms), Rooms: []string{}}
	if id, ok := ms.Identity(); ok {
		for _, r := range o.Index.RoomsOf(id.UserID) {
			ev.Rooms = append(ev.Rooms, string(r.Name))
		}
	}
	o.send(ms, protocol.WhoAmI, ev)
	return nil
}

func (o *Orchestrator) handlePing(_ context.Context, ms core.MemberSession, _ json.RawMessage) error {
	o.send(ms, protocol.Pong, struct{}{})
	return nil
}
