package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"event":"send_message","data":{"room":"r","message":"hi"}}`))
	req.NoError(err)
	req.Equal(SendMessage, env.Event)

	var p SendMessagePayload
	req.NoError(DecodeData(env.Data, &p))
	req.Equal("r", p.Room)
	req.Equal("hi", p.Message)
}

func TestDecode_Malformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `nope`,
		"missing event": `{"data":{}}`,
		"array":         `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			require.ErrorIs(t, err, domain.ErrBadPayload)
		})
	}
}

func TestDecodeData_Validates(t *testing.T) {
	for name, raw := range map[string]string{
		"missing data":     ``,
		"missing message":  `{"room":"r"}`,
		"empty room":       `{"room":"","message":"x"}`,
		"wrong type":       `{"room":1,"message":"x"}`,
		"oversize message": `{"room":"r","message":"` + longString(4097) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			var p SendMessagePayload
			err := DecodeData(json.RawMessage(raw), &p)
			require.ErrorIs(t, err, domain.ErrBadPayload)
		})
	}

	var pc PrivateChatPayload
	require.ErrorIs(t, DecodeData(json.RawMessage(`{"recipient":"bad name"}`), &pc), domain.ErrBadPayload)
	require.NoError(t, DecodeData(json.RawMessage(`{"recipient":"bob"}`), &pc))

	var gc GroupChatPayload
	require.NoError(t, DecodeData(json.RawMessage(`{"groupName":"devs"}`), &gc))
	require.Equal(t, "devs", gc.GroupName)
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestEncode_Envelope(t *testing.T) {
	req := require.New(t)

	frame, err := Encode(UpdateUserList, []string{"alice", "bob"})
	req.NoError(err)
	req.JSONEq(`{"event":"update_user_list","data":["alice","bob"]}`, string(frame))

	frame, err = Encode(Pong, struct{}{})
	req.NoError(err)
	req.JSONEq(`{"event":"pong","data":{}}`, string(frame))
}

func TestAugment_Keeps_Every_Field(t *testing.T) {
	req := require.New(t)

	out, err := Augment(json.RawMessage(`{"sdp":"v=0\r\n","target":null,"n":1.5e3,"list":[{"a":true}]}`), "sid-1", "alice")

	req.NoError(err)
	req.JSONEq(`{"sdp":"v=0\r\n","target":null,"n":1.5e3,"list":[{"a":true}],"sender_sid":"sid-1","sender_username":"alice"}`, string(out))
}

func TestAugment_Rejects_Non_Objects(t *testing.T) {
	for _, raw := range []string{`"str"`, `[1]`, `null`, `42`, ``} {
		_, err := Augment(json.RawMessage(raw), "sid", "alice")
		require.ErrorIs(t, err, domain.ErrBadPayload, raw)
	}
}

func TestChatMessage_Formats(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 9, 5, 42, 0, time.UTC)
	msg := domain.Message{Room: "devs", Sender: "alice", Content: "hi", Timestamp: at}

	live := NewChatMessage(msg)
	req.Equal(ChatMessage{Sender: "alice", Message: "hi", Timestamp: "09:05", Room: "devs"}, live)

	history := NewChatHistory([]domain.Message{msg})
	req.Equal([]HistoryEntry{{Content: "hi", Sender: "alice", Room: "devs", Timestamp: "2024-03-01T09:05:42Z"}}, history.History)

	notice := SystemNotice("devs", "hello", at)
	req.Equal(domain.SystemSender, notice.Sender)
}

func TestInbound_Is_Closed(t *testing.T) {
	req := require.New(t)
	seen := map[EventKind]bool{}
	for _, k := range Inbound {
		req.False(seen[k], "duplicate %s", k)
		seen[k] = true
	}
	req.True(WebRTCOffer.IsSignaling())
	req.True(WebRTCAnswer.IsSignaling())
	req.True(WebRTCIceCandidate.IsSignaling())
	req.False(SendMessage.IsSignaling())
}
