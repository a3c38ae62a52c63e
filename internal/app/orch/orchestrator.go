// Package orch is the message router: every inbound real-time event is
// authenticated, authorized against room membership, applied, and only then
// broadcast to its audience.
package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/tiger/internal/app"
	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var errUnknownEvent = errors.New("unknown event")

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Index    *app.MembershipIndex
	Messages core.MessageStore
	Users    core.UserDirectory
	Relay    *app.SignalRelay
	Policy   app.Policy
	Limiter  *app.RoomRateLimiter

	// HistoryLimit caps chat_history on connect; zero means everything.
	HistoryLimit int
	// Now stamps system notices; time.Now when nil.
	Now func() time.Time

	commits sync.Map // domain.RoomID -> *sync.Mutex
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// commitLock serializes persist+broadcast per room so delivery order matches
// commit order.
func (o *Orchestrator) commitLock(id domain.RoomID) *sync.Mutex {
	mu, _ := o.commits.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func encode(kind protocol.EventKind, v any) core.Frame {
	frame, err := protocol.Encode(kind, v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", string(kind)).Msg("encode")
		return nil
	}
	return frame
}

// send delivers one event to one session.
func (o *Orchestrator) send(ms core.MemberSession, kind protocol.EventKind, v any) {
	frame := encode(kind, v)
	if frame == nil {
		return
	}
	if err := ms.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(ms.SID())).Str("event", string(kind)).Msg("send failed")
	}
}

// broadcastOthers is the global relay primitive: every registered session
// except skip.
func (o *Orchestrator) broadcastOthers(skip core.SessionID, kind protocol.EventKind, v any) {
	frame := encode(kind, v)
	if frame == nil {
		return
	}
	res := core.Publish(o.Registry.Snapshot(), skip, frame)
	o.applyPolicy("", res)
}

// multicastRoom is the room-scoped primitive: the live audience of name.
// Once the room exists durably, sessions that opened the audience earlier
// without being members are left out.
func (o *Orchestrator) multicastRoom(name domain.RoomName, kind protocol.EventKind, v any) {
	room, ok := o.Rooms.Get(name)
	if !ok {
		return
	}
	frame := encode(kind, v)
	if frame == nil {
		return
	}
	members, durable := o.Index.MembersByName(name)
	if !durable {
		o.applyPolicy(name, room.Broadcast(frame))
		return
	}
	audience := lo.Filter(room.Snapshot(), func(ms core.MemberSession, _ int) bool {
		id, ok := ms.Identity()
		return ok && lo.Contains(members, id.UserID)
	})
	o.applyPolicy(name, core.Publish(audience, "", frame))
}

func (o *Orchestrator) notice(name domain.RoomName, text string) {
	o.multicastRoom(name, protocol.ReceiveMessage, protocol.SystemNotice(name, text, o.now()))
}

func (o *Orchestrator) applyPolicy(room domain.RoomName, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		if o.Policy.OnBackPressure(room, slow) != app.KickMember {
			continue
		}
		log.Warn().Str("module", "orch").Str("sid", string(slow.SID())).Str("room", string(room)).Msg("kicking slow session")
		o.Registry.Cancel(slow.SID())
	}
}

// Reject reports err to the originating session only.
func (o *Orchestrator) Reject(ms core.MemberSession, err error) {
	o.send(ms, protocol.Error, protocol.ErrorEvent{Message: errorMessage(err)})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, domain.ErrAccessDenied):
		return "Access denied"
	case errors.Is(err, domain.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, domain.ErrNotFound):
		return "Room not found"
	case errors.Is(err, domain.ErrNotGroup):
		return "Not a group room"
	case errors.Is(err, domain.ErrBadPayload):
		return "Invalid payload"
	case errors.Is(err, domain.ErrRateLimited):
		return "Rate limit exceeded"
	case errors.Is(err, domain.ErrPersistence):
		return "Failed to save message"
	case errors.Is(err, errUnknownEvent):
		return "Unknown event"
	default:
		return "Internal error"
	}
}

func identity(ms core.MemberSession) (domain.Identity, error) {
	id, ok := ms.Identity()
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
