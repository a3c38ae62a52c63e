package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrivateRoomName_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(RoomName("private_alice_bob"), PrivateRoomName("alice", "bob"))
	req.Equal(PrivateRoomName("alice", "bob"), PrivateRoomName("bob", "alice"))
	req.NotEqual(PrivateRoomName("alice", "bob"), PrivateRoomName("alice", "carol"))
}

func TestRoom_CanDelete(t *testing.T) {
	req := require.New(t)
	group := Room{IsGroup: true, CreatorID: 1}
	private := Room{CreatorID: 1}

	req.True(group.CanDelete(1))
	req.False(group.CanDelete(2))
	req.True(private.CanDelete(2))
}

func TestValidateUsername(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateUsername("alice"))
	req.ErrorIs(ValidateUsername(""), ErrUsernameEmpty)
	req.ErrorIs(ValidateUsername(strings.Repeat("a", MaxUsernameLen+1)), ErrUsernameTooLong)
}
