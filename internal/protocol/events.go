// Package protocol defines the real-time wire contract: the closed set of
// event kinds, the JSON envelope every frame travels in, and typed payloads.
package protocol

type EventKind string

// Inbound kinds.
const (
	SendMessage        EventKind = "send_message"
	JoinRoom           EventKind = "join_room"
	JoinGroup          EventKind = "join_group"
	LeaveRoom          EventKind = "leave_room"
	LeaveGroup         EventKind = "leave_group"
	StartPrivateChat   EventKind = "start_private_chat"
	CreateGroupChat    EventKind = "create_group_chat"
	WebRTCOffer        EventKind = "webrtc_offer"
	WebRTCAnswer       EventKind = "webrtc_answer"
	WebRTCIceCandidate EventKind = "webrtc_ice_candidate"
	WhoAmI             EventKind = "whoami"
	Ping               EventKind = "ping"
)

// Outbound kinds.
const (
	Connected        EventKind = "connected"
	UserConnected    EventKind = "user_connected"
	UserDisconnected EventKind = "user_disconnected"
	UpdateUserList   EventKind = "update_user_list"
	ChatHistory      EventKind = "chat_history"
	ReceiveMessage   EventKind = "receive_message"
	UserLeft         EventKind = "user_left"
	UserLeftGroup    EventKind = "user_left_group"
	Error            EventKind = "error"
	Pong             EventKind = "pong"
)

// Inbound is the closed set of events a client may send. Dispatch tables are
// checked against it at startup so no kind is silently dropped.
var Inbound = []EventKind{
	SendMessage,
	JoinRoom,
	JoinGroup,
	LeaveRoom,
	LeaveGroup,
	StartPrivateChat,
	CreateGroupChat,
	WebRTCOffer,
	WebRTCAnswer,
	WebRTCIceCandidate,
	WhoAmI,
	Ping,
}

// IsSignaling reports whether k is relayed verbatim between peers.
func (k EventKind) IsSignaling() bool {
	switch k {
	case WebRTCOffer, WebRTCAnswer, WebRTCIceCandidate:
		return true
	}
	return false
}
