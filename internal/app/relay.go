package app

import (
	"encoding/json"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards peer negotiation payloads to every other connected
// session. It keeps no state and never inspects the payload beyond adding the
// sender fields.
type SignalRelay struct {
	Registry *Registry
}

func NewSignalRelay(reg *Registry) *SignalRelay {
	return &SignalRelay{Registry: reg}
}

func (r *SignalRelay) Forward(sid core.SessionID, kind protocol.EventKind, payload json.RawMessage) (core.PublishResult, error) {
	username := domain.AnonymousName
	if id, ok := r.Registry.Lookup(sid); ok {
		username = id.Username
	}

	data, err := protocol.Augment(payload, sid, username)
	if err != nil {
		return core.PublishResult{}, err
	}
	frame, err := protocol.EncodeRaw(kind, data)
	if err != nil {
		return core.PublishResult{}, err
	}

	res := core.Publish(r.Registry.Snapshot(), sid, frame)
	log.Debug().
		Str("module", "app.relay").
		Str("sid", string(sid)).
		Str("event", string(kind)).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("signal relayed")
	return res, nil
}
