package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleJoinRoom(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	return o.join(ctx, ms, data, false)
}

func (o *Orchestrator) handleJoinGroup(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	return o.join(ctx, ms, data, true)
}

// join adds the session to the live audience of a room it durably belongs to.
func (o *Orchestrator) join(ctx context.Context, ms core.MemberSession, data json.RawMessage, group bool) error {
	id, err := identity(ms)
	if err != nil {
		return err
	}
	var p protocol.RoomPayload
	if err := protocol.DecodeData(data, &p); err != nil {
		return err
	}
	name := domain.RoomName(p.Room)

	room, err := o.Index.ResolveByName(ctx, name)
	if err != nil {
		return err
	}
	if group && !room.IsGroup {
		return fmt.Errorf("room %s: %w", name, domain.ErrNotGroup)
	}
	if !o.Index.IsMember(id.UserID, room.ID) {
		return domain.ErrAccessDenied
	}

	o.Rooms.Join(name, ms)
	log.Info().Str("module", "orch").Str("sid", string(ms.SID())).Str("username", id.Username).Str("room", string(name)).Msg("joined room")
	o.notice(name, fmt.Sprintf("%s has joined the room.", id.Username))
	return nil
}

func (o *Orchestrator) handleLeaveRoom(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	return o.leave(ms, data, false)
}

func (o *Orchestrator) handleLeaveGroup(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	return o.leave(ms, data, true)
}

// leave drops the session from the live audience only; durable membership is
// untouched. Leaving an audience the session is not in is a no-op.
func (o *Orchestrator) leave(ms core.MemberSession, data json.RawMessage, group bool) error {
	var p protocol.RoomPayload
	if err := protocol.DecodeData(data, &p); err != nil {
		return err
	}
	name := domain.RoomName(p.Room)
	if !o.Rooms.Leave(name, ms.SID()) {
		return nil
	}

	username := core.Username(ms)
	log.Info().Str("module", "orch").Str("sid", string(ms.SID())).Str("username", username).Str("room", string(name)).Msg("left room")
	if group {
		o.multicastRoom(name, protocol.UserLeftGroup, protocol.UserLeftGroupEvent{Username: username, Room: string(name)})
		return nil
	}
	o.multicastRoom(name, protocol.UserLeft, protocol.UserEvent{Username: username})
	return nil
}

func (o *Orchestrator) handleStartPrivateChat(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	id, err := identity(ms)
	if err != nil {
		return err
	}
	var p protocol.PrivateChatPayload
	if err := protocol.DecodeData(data, &p); err != nil {
		return err
	}
	if p.Recipient == id.Username {
		return fmt.Errorf("%w: private chat with yourself", domain.ErrBadPayload)
	}
	if _, err := o.Users.UserByName(ctx, p.Recipient); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("recipient %s: %w", p.Recipient, domain.ErrUserNotFound)
		}
		return err
	}
	name := domain.PrivateRoomName(id.Username, p.Recipient)
	if err := o.checkExisting(ctx, name, id.UserID); err != nil {
		return err
	}

	o.Rooms.Join(name, ms)
	log.Info().Str("module", "orch").Str("sid", string(ms.SID())).Str("username", id.Username).Str("room", string(name)).Msg("private chat started")
	o.notice(name, fmt.Sprintf("%s started a private chat with %s.", id.Username, p.Recipient))
	return nil
}

func (o *Orchestrator) handleCreateGroupChat(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	id, err := identity(ms)
	if err != nil {
		return err
	}
	var p protocol.GroupChatPayload
	if err := protocol.DecodeData(data, &p); err != nil {
		return err
	}
	name := domain.RoomName(p.GroupName)
	if err := o.checkExisting(ctx, name, id.UserID); err != nil {
		return err
	}

	o.Rooms.Join(name, ms)
	log.Info().Str("module", "orch").Str("sid", string(ms.SID())).Str("username", id.Username).Str("room", string(name)).Msg("group chat opened")
	o.notice(name, fmt.Sprintf("Group %s created by %s.", name, id.Username))
	return nil
}

// checkExisting lets a session open the live audience of a room that has no
// durable record yet, but never of a durable room it is not a member of.
func (o *Orchestrator) checkExisting(ctx context.Context, name domain.RoomName, userID domain.UserID) error {
	room, err := o.Index.ResolveByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case !o.Index.IsMember(userID, room.ID):
		return domain.ErrAccessDenied
	}
	return nil
}

// EvictRoom drops the live audience of a room that no longer exists durably.
func (o *Orchestrator) EvictRoom(name domain.RoomName) {
	o.Rooms.StopRoom(name)
}

// EvictMember drops every session of userID from the live audience of name,
// after its durable membership was revoked.
func (o *Orchestrator) EvictMember(name domain.RoomName, userID domain.UserID) {
	for _, ms := range o.Registry.SessionsOf([]domain.UserID{userID}) {
		o.Rooms.Leave(name, ms.SID())
	}
}
