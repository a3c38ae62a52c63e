package orch

import (
	"context"
	"testing"

	"github.com/dkeye/tiger/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestOnConnect_Announces_And_Sends_History_Privately(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	alice, bob := h.user("alice"), h.user("bob")
	room := h.privateRoom(alice, bob)
	_, err := h.db.SaveMessage(context.Background(), room.ID, alice.UserID, "first")
	req.NoError(err)
	_, err = h.db.SaveMessage(context.Background(), room.ID, bob.UserID, "second")
	req.NoError(err)

	// Given alice is online
	aliceConn := h.connect("a", &alice)
	req.Equal([]protocol.EventKind{protocol.UpdateUserList, protocol.ChatHistory}, aliceConn.kinds())
	aliceConn.reset()

	// When bob connects
	bobConn := h.connect("b", &bob)

	// Then alice learns about bob and gets the refreshed list, but no history
	req.Equal([]protocol.EventKind{protocol.UserConnected, protocol.UpdateUserList}, aliceConn.kinds())
	req.Equal("bob", decode[protocol.UserEvent](t, aliceConn.of(protocol.UserConnected)[0]).Username)
	req.Equal([]string{"alice", "bob"}, decode[[]string](t, aliceConn.of(protocol.UpdateUserList)[0]))

	// And bob gets the list and the history oldest first, never a user_connected for bob
	req.Equal([]protocol.EventKind{protocol.UpdateUserList, protocol.ChatHistory}, bobConn.kinds())
	history := decode[protocol.ChatHistoryEvent](t, bobConn.of(protocol.ChatHistory)[0]).History
	req.Len(history, 2)
	req.Equal("first", history[0].Content)
	req.Equal("alice", history[0].Sender)
	req.Equal("private_alice_bob", history[0].Room)
	req.Equal("second", history[1].Content)

	req.ElementsMatch([]string{"alice", "bob"}, h.o.Registry.ListOnline())
}

func TestOnConnect_Anonymous_Only_Acknowledged(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	alice := h.user("alice")
	aliceConn := h.connect("a", &alice)
	aliceConn.reset()

	anonConn := h.connect("x", nil)

	req.Equal([]protocol.EventKind{protocol.Connected}, anonConn.kinds())
	req.Equal("x", decode[protocol.ConnectedEvent](t, anonConn.of(protocol.Connected)[0]).SID)
	req.Empty(aliceConn.kinds())
	req.Equal([]string{"alice"}, h.o.Registry.ListOnline())
	req.Equal(2, h.o.Registry.Count())
}

func TestOnDisconnect_Clears_Presence_And_Audiences(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	alice, bob := h.user("alice"), h.user("bob")
	h.groupRoom("devs", alice, bob)
	aliceConn := h.connect("a", &alice)
	h.connect("b", &bob)
	h.send("b", protocol.JoinRoom, protocol.RoomPayload{Room: "devs"})
	aliceConn.reset()

	// When bob disconnects
	h.o.OnDisconnect("b")

	// Then bob is gone from presence and from every audience
	req.Equal([]string{"alice"}, h.o.Registry.ListOnline())
	_, ok := h.o.Rooms.Get("devs")
	req.False(ok)

	// And the others are told
	req.Equal([]protocol.EventKind{protocol.UserDisconnected, protocol.UpdateUserList}, aliceConn.kinds())
	req.Equal("bob", decode[protocol.UserEvent](t, aliceConn.of(protocol.UserDisconnected)[0]).Username)
	req.Equal([]string{"alice"}, decode[[]string](t, aliceConn.of(protocol.UpdateUserList)[0]))

	// A second disconnect is a no-op
	aliceConn.reset()
	h.o.OnDisconnect("b")
	req.Empty(aliceConn.kinds())
}

func TestOnDisconnect_Anonymous_Is_Silent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	alice := h.user("alice")
	aliceConn := h.connect("a", &alice)
	h.connect("x", nil)
	aliceConn.reset()

	h.o.OnDisconnect("x")

	req.Empty(aliceConn.kinds())
	req.Equal(1, h.o.Registry.Count())
}

func TestPresence_Same_User_Two_Tabs(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, nil)
	alice, bob := h.user("alice"), h.user("bob")
	h.connect("a1", &alice)
	h.connect("a2", &alice)
	bobConn := h.connect("b", &bob)
	bobConn.reset()

	// When one of two alice sessions closes
	h.o.OnDisconnect("a1")

	// Then alice is still online and nobody is told otherwise
	req.ElementsMatch([]string{"alice", "bob"}, h.o.Registry.ListOnline())
	req.Equal([]protocol.EventKind{protocol.UpdateUserList}, bobConn.kinds())
	req.ElementsMatch([]string{"alice", "bob"}, decode[[]string](t, bobConn.of(protocol.UpdateUserList)[0]))

	// When the last one closes
	bobConn.reset()
	h.o.OnDisconnect("a2")

	// Then user_disconnected goes out
	req.Equal([]protocol.EventKind{protocol.UserDisconnected, protocol.UpdateUserList}, bobConn.kinds())
	req.Equal("alice", decode[protocol.UserEvent](t, bobConn.of(protocol.UserDisconnected)[0]).Username)
	req.Equal([]string{"bob"}, h.o.Registry.ListOnline())
}
