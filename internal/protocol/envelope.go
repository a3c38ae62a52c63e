package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	senderSIDKey      = "sender_sid"
	senderUsernameKey = "sender_username"
)

var validate = validator.New()

// Envelope is the frame layout in both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps v into an envelope of the given kind.
func Encode(kind EventKind, v any) (core.Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return EncodeRaw(kind, data)
}

// EncodeRaw wraps an already encoded payload.
func EncodeRaw(kind EventKind, data json.RawMessage) (core.Frame, error) {
	b, err := json.Marshal(Envelope{Event: kind, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope %s: %w", kind, err)
	}
	return b, nil
}

// Decode parses an inbound frame. It does not look at Data.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", domain.ErrBadPayload)
	}
	return env, nil
}

// DecodeData unmarshals and validates a typed payload.
func DecodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", domain.ErrBadPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	return nil
}

// Augment adds the sender fields to a signaling payload. Every original field
// is carried over as raw bytes; only JSON objects are accepted.
func Augment(data json.RawMessage, sid core.SessionID, username string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: signaling payload must be an object", domain.ErrBadPayload)
	}
	var err error
	if fields[senderSIDKey], err = json.Marshal(string(sid)); err != nil {
		return nil, err
	}
	if fields[senderUsernameKey], err = json.Marshal(username); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}
