package orch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handleSendMessage persists a chat message and only then delivers it to the
// online members of the room. Membership is checked and the audience taken
// under the index read lock, so a concurrent removal lands either entirely
// before or entirely after this message.
func (o *Orchestrator) handleSendMessage(ctx context.Context, ms core.MemberSession, data json.RawMessage) error {
	id, err := identity(ms)
	if err != nil {
		return err
	}
	var p protocol.SendMessagePayload
	if err := protocol.DecodeData(data, &p); err != nil {
		return err
	}
	if !o.Limiter.Allow(id.UserID) {
		return domain.ErrRateLimited
	}
	name := domain.RoomName(p.Room)

	var res core.PublishResult
	err = o.Index.WithMember(ctx, name, id.UserID, func(room domain.Room, members []domain.UserID) error {
		mu := o.commitLock(room.ID)
		mu.Lock()
		defer mu.Unlock()

		msg, err := o.Messages.SaveMessage(ctx, room.ID, id.UserID, p.Message)
		if err != nil {
			return err
		}
		frame := encode(protocol.ReceiveMessage, protocol.NewChatMessage(msg))
		if frame == nil {
			return errors.New("encode receive_message")
		}
		res = core.Publish(o.Registry.SessionsOf(members), "", frame)
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		// a room that does not exist has no members, the sender included
		err = domain.ErrAccessDenied
	}
	if err != nil {
		return err
	}

	log.Debug().
		Str("module", "orch").
		Str("sid", string(ms.SID())).
		Str("room", string(name)).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("message delivered")
	o.applyPolicy(name, res)
	return nil
}
