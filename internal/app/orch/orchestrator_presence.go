package orch

import (
	"context"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
)

// OnConnect registers the session. For identified sessions it announces the
// user to everyone else, refreshes the online list for everyone, and sends
// the user's history to this session alone.
func (o *Orchestrator) OnConnect(ctx context.Context, ms core.MemberSession, cancel context.CancelFunc) {
	o.Registry.Register(ms, cancel)

	id, ok := ms.Identity()
	if !ok {
		o.send(ms, protocol.Connected, protocol.ConnectedEvent{SID: string(ms.SID())})
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(ms.SID())).Str("username", id.Username).Msg("user connected")

	o.broadcastOthers(ms.SID(), protocol.UserConnected, protocol.UserEvent{Username: id.Username})
	o.broadcastOthers("", protocol.UpdateUserList, o.Registry.ListOnline())

	history, err := o.Messages.FetchHistory(ctx, id.UserID, o.HistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(ms.SID())).Msg("fetch history")
		o.send(ms, protocol.Error, protocol.ErrorEvent{Message: "Failed to load history"})
		return
	}
	o.send(ms, protocol.ChatHistory, protocol.NewChatHistory(history))
}

// OnDisconnect is the paired cleanup of OnConnect. After it returns the
// session is in no registry or audience.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.Rooms.LeaveAll(sid)
	id, ok := o.Registry.Unregister(sid)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("username", id.Username).Msg("user disconnected")

	// user_disconnected only once the last session of the user is gone
	gone := len(o.Registry.SessionsOf([]domain.UserID{id.UserID})) == 0
	if gone {
		o.broadcastOthers(sid, protocol.UserDisconnected, protocol.UserEvent{Username: id.Username})
	}
	o.broadcastOthers(sid, protocol.UpdateUserList, o.Registry.ListOnline())

	if gone && o.Limiter != nil {
		o.Limiter.Forget(id.UserID)
	}
}
