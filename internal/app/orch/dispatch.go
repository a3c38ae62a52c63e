package orch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
)

type handlerFunc func(o *Orchestrator, ctx context.Context, ms core.MemberSession, data json.RawMessage) error

var dispatch = map[protocol.EventKind]handlerFunc{
	protocol.SendMessage:        (*Orchestrator).handleSendMessage,
	protocol.JoinRoom:           (*Orchestrator).handleJoinRoom,
	protocol.JoinGroup:          (*Orchestrator).handleJoinGroup,
	protocol.LeaveRoom:          (*Orchestrator).handleLeaveRoom,
	protocol.LeaveGroup:         (*Orchestrator).handleLeaveGroup,
	protocol.StartPrivateChat:   (*Orchestrator).handleStartPrivateChat,
	protocol.CreateGroupChat:    (*Orchestrator).handleCreateGroupChat,
	protocol.WebRTCOffer:        signalHandler(protocol.WebRTCOffer),
	protocol.WebRTCAnswer:       signalHandler(protocol.WebRTCAnswer),
	protocol.WebRTCIceCandidate: signalHandler(protocol.WebRTCIceCandidate),
	protocol.WhoAmI:             (*Orchestrator).handleWhoAmI,
	protocol.Ping:               (*Orchestrator).handlePing,
}

func init() {
	for _, kind := range protocol.Inbound {
		if _, ok := dispatch[kind]; !ok {
			panic(fmt.Sprintf("orch: no handler for inbound event %q", kind))
		}
	}
	if len(dispatch) != len(protocol.Inbound) {
		panic("orch: dispatch table has handlers for undeclared events")
	}
}

// Dispatch runs the handler for env and turns any failure, including a panic,
// into an error event for the sender. It never propagates a failure upward.
func (o *Orchestrator) Dispatch(ctx context.Context, ms core.MemberSession, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "orch").Str("sid", string(ms.SID())).Str("event", string(env.Event)).Interface("panic", r).Msg("handler panicked")
			o.Reject(ms, fmt.Errorf("panic: %v", r))
		}
	}()

	h, ok := dispatch[env.Event]
	if !ok {
		log.Warn().Str("module", "orch").Str("sid", string(ms.SID())).Str("event", string(env.Event)).Msg("unknown event")
		o.Reject(ms, errUnknownEvent)
		return
	}
	if err := h(o, ctx, ms, env.Data); err != nil {
		log.Info().Err(err).Str("module", "orch").Str("sid", string(ms.SID())).Str("event", string(env.Event)).Msg("event rejected")
		o.Reject(ms, err)
	}
}
